package factor

import "hash/fnv"

// handlers.go: the per-word cached-handler-id dispatch spec.md §4.8
// describes. A word's WordCache slot (words.go) holds one of:
//
//   - handlerIDUncached: never looked up
//   - handlerIDNone: looked up, has no primitive, must be walked as a
//     quotation call via WordDef
//   - a non-negative HandlerID: an index into primitiveTable
//     (primitives.go) or interpreterOnlyTable (combinators.go)
//
// Grounded on _examples/original_source/vm/entry_points.cpp's
// compile-time word-to-primitive binding, adapted since this target
// never compiles: the "binding" happens once, lazily, the first time
// a word is executed, and is cached on the word object itself so
// repeat executions skip the name hash entirely.

// HandlerID identifies one closed primitive by its slot in
// primitiveTable or interpreterOnlyTable (primitives.go,
// combinators.go). Negative values are reserved for the sentinels in
// words.go.
type HandlerID int

// handlerKind distinguishes which table a resolved HandlerID indexes.
type handlerKind int

const (
	handlerKindPrimitive handlerKind = iota
	handlerKindInterpreterOnly
)

// ResolveHandlerID returns the cached or newly-computed handler id
// for word, along with which table it indexes. ok is false when the
// word has no primitive and must be walked via its definition
// quotation instead.
func (vm *VM) ResolveHandlerID(word Cell) (HandlerID, handlerKind, bool) {
	cached := WordCachedHandlerID(vm.Mem, word)
	switch {
	case cached == handlerIDNone:
		return 0, 0, false
	case cached != handlerIDUncached:
		id := HandlerID(cached)
		if int(id) < len(primitiveTable) {
			return id, handlerKindPrimitive, true
		}
		return id - HandlerID(len(primitiveTable)), handlerKindInterpreterOnly, true
	}

	name := WordNameStr(vm.Mem, word)
	if id, ok := interpreterOnlyByName[name]; ok {
		SetWordCachedHandlerID(vm.Mem, word, int(id)+len(primitiveTable))
		return id, handlerKindInterpreterOnly, true
	}
	if id, ok := primitiveByName[name]; ok {
		SetWordCachedHandlerID(vm.Mem, word, int(id))
		return id, handlerKindPrimitive, true
	}
	SetWordCachedHandlerID(vm.Mem, word, handlerIDNone)
	return 0, 0, false
}

// wordNameHash computes the identity hash stored in a freshly defined
// word's WordHash slot (words.go); primitives.go's hash@ and
// rehash-string use it for string hashes too. Grounded on the FNV
// scheme _examples/other_examples reference code uses for small string
// interning tables.
func wordNameHash(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() & 0x7fffffff)
}
