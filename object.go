package factor

// Per-type object shape, size computation, and slot access
// (spec.md §3.2, invariant H-1). Every accessor here takes a Memory
// and an untagged heap address; callers at the tagged-Cell boundary
// (primitives.go, slot_visitor.go) are responsible for untagging.

// Fixed slot counts for object kinds whose size does not depend on a
// stored capacity (spec.md §3.2 "Fixed-shape objects").
const (
	wordSlots      = 6 // name, def, subprimitive, props, hash, cache
	quotationSlots = 2 // elements array pointer, cached effect
	floatSlots     = 2 // float64 payload, 2 cells wide
	wrapperSlots   = 1 // wrapped value
	alienSlots     = 2 // base pointer, byte offset (fixnum)
	callstackSlots = 2 // captured frames array pointer, depth (fixnum)
	dllSlots       = 2 // path string pointer, OS handle (fixnum, always false on this target)
)

// Slot offsets within a Word object, in cells after the header.
const (
	WordName         = 0
	WordDef          = 1
	WordSubprimitive = 2
	WordProps        = 3
	WordHash         = 4
	WordCache        = 5 // the handler-id / handler-cache slot (spec.md §4.7)
)

// Slot offsets within a Quotation object.
const (
	QuotElements = 0
	QuotEffect   = 1
)

// Slot offsets within a Wrapper object.
const WrapperObj = 0

// Slot offsets within an Alien object.
const (
	AlienBase   = 0
	AlienOffset = 1
)

// Slot offsets within a layout array (itself an ordinary Array object;
// spec.md §3.6's "layout descriptor" is represented the way real Factor
// represents it, as a tagged array rather than a distinct header type).
const (
	LayoutClassWord = 0
	LayoutSize      = 1
	LayoutEchelon   = 2
	layoutFixedCells = 3 // class word, size, echelon, before the superclass/hashcode pairs
)

// slotAddr returns the byte address of the i'th cell after the header.
// addr may be tagged or bare; Untag is a no-op on an already-bare
// address since DataAlignment keeps its low bits clear.
func slotAddr(addr Cell, i int) Cell { return Untag(addr) + CellSize + Cell(i)*CellSize }

// GetSlot reads the i'th cell-sized slot after an object's header.
func GetSlot(mem *Memory, addr Cell, i int) Cell { return mem.GetCell(slotAddr(addr, i)) }

// SetSlot writes the i'th cell-sized slot after an object's header.
// Callers that store a pointer into an older generation must also
// invoke the write barrier (cards.go's WriteBarrier) -- SetSlot itself
// does not, matching spec.md §4.3's requirement that the barrier be
// invoked explicitly at each store site rather than buried in a
// generic setter.
func SetSlot(mem *Memory, addr Cell, i int, v Cell) { mem.SetCell(slotAddr(addr, i), v) }

// ArrayCapacity reads the stored element count of an array, byte-array,
// string or bignum object (the "capacity" slot immediately after the
// header, spec.md §3.2).
func ArrayCapacity(mem *Memory, addr Cell) int {
	return int(UntagFixnum(mem.GetCell(addr + CellSize)))
}

// ArrayNth reads element i (0-based) of an Array object.
func ArrayNth(mem *Memory, addr Cell, i int) Cell {
	return mem.GetCell(addr + 2*CellSize + Cell(i)*CellSize)
}

// SetArrayNth writes element i (0-based) of an Array object.
func SetArrayNth(mem *Memory, addr Cell, i int, v Cell) {
	mem.SetCell(addr+2*CellSize+Cell(i)*CellSize, v)
}

// ByteArrayAt / SetByteArrayAt access a single byte of a byte-array or
// string payload.
func ByteArrayAt(mem *Memory, addr Cell, i int) byte {
	return mem.GetByte(addr + 2*CellSize + Cell(i))
}

func SetByteArrayAt(mem *Memory, addr Cell, i int, b byte) {
	mem.SetByte(addr+2*CellSize+Cell(i), b)
}

// ReadFactorString decodes a String object's payload as UTF-8
// (spec.md §3.2: strings are byte-arrays with a UTF-8 payload and a
// cached codepoint-length slot managed by string primitives, not by
// the object model itself).
func ReadFactorString(mem *Memory, addr Cell) string {
	n := ArrayCapacity(mem, addr)
	return string(mem.Slice(addr+2*CellSize, addr+2*CellSize+Cell(n)))
}

// TupleLayoutAddr reads the tagged layout pointer from slot 0 of a
// Tuple object.
func TupleLayoutAddr(mem *Memory, addr Cell) Cell { return GetSlot(mem, addr, 0) }

// TupleSlotCount dereferences a tuple's layout to find its instance
// slot count (spec.md §3.2: "Tuples: ... size is header + layout.size").
func TupleSlotCount(mem *Memory, tupleAddr Cell) int {
	layoutPtr := TupleLayoutAddr(mem, tupleAddr)
	if !IsObjectPtr(layoutPtr) {
		return 0
	}
	return int(UntagFixnum(ArrayNth(mem, Untag(layoutPtr), LayoutSize)))
}

// LoadLayout materializes a Layout Go value from the tagged array
// pointer layoutPtr, for use by dispatch_cache.go.
func LoadLayout(mem *Memory, layoutPtr Cell) *Layout {
	addr := Untag(layoutPtr)
	n := ArrayCapacity(mem, addr)
	l := &Layout{
		Addr:      addr,
		ClassWord: ArrayNth(mem, addr, LayoutClassWord),
		Size:      int(UntagFixnum(ArrayNth(mem, addr, LayoutSize))),
		Echelon:   int(UntagFixnum(ArrayNth(mem, addr, LayoutEchelon))),
	}
	pairs := (n - layoutFixedCells) / 2
	l.Superclass = make([]Cell, pairs)
	l.Hashcode = make([]int, pairs)
	for e := 0; e < pairs; e++ {
		l.Superclass[e] = ArrayNth(mem, addr, layoutFixedCells+2*e)
		l.Hashcode[e] = int(UntagFixnum(ArrayNth(mem, addr, layoutFixedCells+2*e+1)))
	}
	return l
}

// ObjectSize computes the total size in bytes (including the header
// and alignment padding) of the object at addr, by type-switching on
// its header -- invariant H-1: derivable from the header and at most
// the first two slots, without reading anything beyond the object.
func ObjectSize(mem *Memory, addr Cell) Cell {
	h := mem.GetCell(addr)
	switch HeaderType(h) {
	case TypeArray:
		cap := ArrayCapacity(mem, addr)
		return Align(Cell(2+cap) * CellSize)
	case TypeByteArray, TypeString:
		cap := ArrayCapacity(mem, addr)
		return Align(2*CellSize + Cell(cap))
	case TypeBignum:
		// Capacity holds the magnitude byte length plus one sign byte;
		// see math/big wiring notes in bignum.go.
		cap := ArrayCapacity(mem, addr)
		return Align(2*CellSize + Cell(cap))
	case TypeFloat:
		return Align(Cell(1+floatSlots) * CellSize)
	case TypeWord:
		return Align(Cell(1+wordSlots) * CellSize)
	case TypeQuotation:
		return Align(Cell(1+quotationSlots) * CellSize)
	case TypeTuple:
		return Align(Cell(2+TupleSlotCount(mem, addr)) * CellSize)
	case TypeWrapper:
		return Align(Cell(1+wrapperSlots) * CellSize)
	case TypeAlien:
		return Align(Cell(1+alienSlots) * CellSize)
	case TypeCallstack:
		return Align(Cell(1+callstackSlots) * CellSize)
	case TypeDLL:
		return Align(Cell(1+dllSlots) * CellSize)
	default:
		// Free or forwarded block: caller should have checked
		// HeaderFreeP/HeaderForwardedP first. Degrade to one cell so a
		// caller that ignores this still makes forward progress rather
		// than looping.
		return CellSize
	}
}
