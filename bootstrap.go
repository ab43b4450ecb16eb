package factor

// bootstrap.go: builds a minimal heap-resident vocabulary without a
// parser or compiler -- this target never compiles source text into
// quotations (spec.md §1's Non-goals exclude the optimizing compiler
// and, by extension, any front end that would feed it); callers build
// quotations directly out of tagged Cells (as the tests do) or load
// an image someone else produced. Bootstrap only wires up the handful
// of heap objects every run needs to exist before the interpreter can
// do anything at all: the canonical true object, the two quotation
// marker words, and a Word object per closed primitive/combinator so
// a host can look words up by name. Grounded on
// _examples/hagna-eforth's CREATE-style word table construction.

// Vocabulary maps a word's source name to its heap-resident Word
// object, standing in for the namespace/vocabulary hashtable real
// Factor keeps in SpecialObjects[SOGlobalNamespace] -- kept here as a
// plain Go map since no heap hashtable object type exists in this
// target's closed type enumeration (spec.md §3.2).
type Vocabulary map[string]Cell

// AllocString allocates a String object holding s's UTF-8 bytes.
func (vm *VM) AllocString(s string) Cell {
	size := Align(2*CellSize + Cell(len(s)))
	if err := vm.GC.EnsureNurseryRoom(size); err != nil {
		FatalError(vm.stderr(), vm, "out of memory allocating string", False)
	}
	addr := vm.Heap.Nursery.Allot(size)
	vm.Mem.SetCell(addr, MakeHeader(TypeString))
	vm.Mem.SetCell(addr+CellSize, TagFixnumVal(int32(len(s))))
	copy(vm.Mem.Slice(addr+2*CellSize, addr+2*CellSize+Cell(len(s))), []byte(s))
	return TagObjectPtr(addr)
}

// AllocWord allocates a bare Word object named name, with no
// definition and an uncached dispatch slot.
func (vm *VM) AllocWord(name string) Cell {
	size := Align(Cell(1+wordSlots) * CellSize)
	if err := vm.GC.EnsureNurseryRoom(size); err != nil {
		FatalError(vm.stderr(), vm, "out of memory allocating word", False)
	}
	nameObj := vm.AllocString(name)
	addr := vm.Heap.Nursery.Allot(size)
	vm.Mem.SetCell(addr, MakeHeader(TypeWord))
	SetSlot(vm.Mem, addr, WordName, nameObj)
	SetSlot(vm.Mem, addr, WordDef, False)
	SetSlot(vm.Mem, addr, WordSubprimitive, False)
	SetSlot(vm.Mem, addr, WordProps, False)
	SetSlot(vm.Mem, addr, WordHash, TagFixnumVal(int32(wordNameHash(name))))
	SetSlot(vm.Mem, addr, WordCache, False)
	return TagObjectPtr(addr)
}

// Bootstrap populates vm.SpecialObjects' marker slots and returns a
// Vocabulary containing one Word per closed primitive/combinator
// name, so a host (the -fep debugger, tests) can resolve words by
// name without a parser.
func (vm *VM) Bootstrap() Vocabulary {
	vm.SpecialObjects[SOCanonicalTrue] = vm.AllocWord("t")
	vm.SpecialObjects[SODoPrimitiveWord] = vm.AllocWord("(do-primitive)")
	vm.SpecialObjects[SODeclareWord] = vm.AllocWord("declare")

	vocab := make(Vocabulary)
	for name := range primitiveByName {
		vocab[name] = vm.AllocWord(name)
	}
	for name := range interpreterOnlyByName {
		vocab[name] = vm.AllocWord(name)
	}
	vm.Vocab = vocab
	return vocab
}

// DefineWord installs a user-level word with a quotation definition
// into vocab, for hosts that build their own words programmatically
// (the test suite, for example).
func (vm *VM) DefineWord(vocab Vocabulary, name string, def Cell) Cell {
	word := vm.AllocWord(name)
	SetSlot(vm.Mem, Untag(word), WordDef, def)
	vocab[name] = word
	return word
}
