package factor

// words.go: typed accessors over the Word object layout (object.go's
// WordName..WordCache slot offsets), plus the magic cached-handler-id
// scheme spec.md §4.8 describes.

// handlerIDUncached is what WordCachedHandlerID reports for a word
// whose cache slot has never been populated (the slot still holds
// False); handlerIDNone, stored fixnum-tagged, marks a word that was
// looked up and found to have no primitive handler (it must be walked
// as a quotation call instead).
const (
	handlerIDUncached = -1
	handlerIDNone     = -2
)

// WordNameStr reads a word's name string (spec.md §3.6).
func WordNameStr(mem *Memory, word Cell) string {
	nameObj := GetSlot(mem, word, WordName)
	return ReadFactorString(mem, Untag(nameObj))
}

// WordDefinition returns a word's quotation body, or False if the
// word is a primitive with no interpreted definition.
func WordDefinition(mem *Memory, word Cell) Cell {
	return GetSlot(mem, word, WordDef)
}

// WordSubprimitiveID returns the closed primitive-enumeration id a
// word names, or -1 if the word has no subprimitive (it must be
// walked via its Def quotation instead).
func WordSubprimitiveID(mem *Memory, word Cell) int {
	v := GetSlot(mem, word, WordSubprimitive)
	if v == False {
		return -1
	}
	return int(UntagFixnum(v))
}

// WordCachedHandlerID reads a word's per-word dispatch cache (spec.md
// §4.8's "cached handler id", grounded on
// _examples/original_source/vm/interpreter.cpp's word-execution fast
// path).
func WordCachedHandlerID(mem *Memory, word Cell) int {
	v := GetSlot(mem, word, WordCache)
	if v == False {
		return handlerIDUncached
	}
	return int(UntagFixnum(v))
}

// SetWordCachedHandlerID populates a word's dispatch cache. Does not
// itself invoke the write barrier: id is always a fixnum, never a
// heap pointer, so no barrier is required.
func SetWordCachedHandlerID(mem *Memory, word Cell, id int) {
	SetSlot(mem, word, WordCache, TagFixnumVal(int32(id)))
}

// WordHashcode returns a word's identity hash, as stored in its
// WordHash slot.
func WordHashcode(mem *Memory, word Cell) int {
	return int(UntagFixnum(GetSlot(mem, word, WordHash)))
}
