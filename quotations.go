package factor

import "os"

// quotations.go: typed accessors over the Quotation object layout and
// the quotation-walking rules spec.md §4.7 describes (do-primitive and
// declare marker words, interleaved with ordinary elements).

// QuotationElements returns the tagged Array pointer holding a
// quotation's body elements.
func QuotationElements(mem *Memory, quot Cell) Cell { return GetSlot(mem, quot, QuotElements) }

// QuotationLength returns the number of elements in a quotation's
// body.
func QuotationLength(mem *Memory, quot Cell) int {
	elems := QuotationElements(mem, quot)
	if !IsObjectPtr(elems) {
		return 0
	}
	return ArrayCapacity(mem, Untag(elems))
}

// QuotationElementAt reads the i'th element of a quotation's body: a
// literal value, a word, or a nested quotation, all stored tagged and
// undifferentiated in the elements array.
func QuotationElementAt(mem *Memory, quot Cell, i int) Cell {
	elems := Untag(QuotationElements(mem, quot))
	return ArrayNth(mem, elems, i)
}

// ElementKind classifies a single quotation-body element so the
// interpreter's walker (interpreter.go) knows how to handle it.
type ElementKind int

const (
	ElementLiteral ElementKind = iota
	ElementWord
	ElementQuotation
	ElementWrapper
)

// ClassifyElement inspects a tagged element's header (if any) to
// decide whether the walker should push it as a literal, execute it
// as a word, recurse into it as a nested quotation literal, or unwrap
// it once and push its content (a wrapped word or quotation, carried
// as data rather than executed).
func ClassifyElement(mem *Memory, elem Cell) ElementKind {
	if !IsObjectPtr(elem) {
		return ElementLiteral
	}
	h := mem.GetCell(Untag(elem))
	switch HeaderType(h) {
	case TypeWord:
		return ElementWord
	case TypeQuotation:
		return ElementQuotation
	case TypeWrapper:
		return ElementWrapper
	default:
		return ElementLiteral
	}
}

// IsDoPrimitiveMarker reports whether elem is the special marker word
// the quotation compiler inserts immediately after a primitive-calling
// word to tell the walker "treat what follows as already resolved";
// on this non-compiling target it is a no-op consumed and skipped
// (spec.md §4.7).
func IsDoPrimitiveMarker(specials *SpecialObjectsTable, elem Cell) bool {
	return elem == specials[SODoPrimitiveWord]
}

// AllocQuotation allocates a new Quotation object wrapping an
// already-built elements array, used by combinators.go's curry.
func (vm *VM) AllocQuotation(elements, effect Cell) Cell {
	size := Align(Cell(1+quotationSlots) * CellSize)
	if err := vm.GC.EnsureNurseryRoom(size); err != nil {
		FatalError(vm.stderr(), vm, "out of memory allocating quotation", False)
		os.Exit(1)
	}
	addr := vm.Heap.Nursery.Allot(size)
	vm.Mem.SetCell(addr, MakeHeader(TypeQuotation))
	SetSlot(vm.Mem, addr, QuotElements, elements)
	SetSlot(vm.Mem, addr, QuotEffect, effect)
	return TagObjectPtr(addr)
}

// IsDeclareMarker reports whether elem is the `declare` marker word
// that carries stack-effect/type hints for the optimizing compiler
// this target does not have; the walker skips it (and the literal
// array that follows it) unconditionally.
func IsDeclareMarker(specials *SpecialObjectsTable, elem Cell) bool {
	return elem == specials[SODeclareWord]
}
