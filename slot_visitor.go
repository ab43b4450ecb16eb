package factor

// slot_visitor.go: a single traversal that both the copying collectors
// (gc_nursery.go, gc_aging.go) and the mark-sweep full collector
// (gc_full.go) drive, parameterized by what happens to each pointer
// slot they find (spec.md §4.4, grounded on
// _examples/original_source/vm/slot_visitor.hpp).
//
// A copying collector's policy relocates the referent and returns its
// new address. A mark-sweep collector's policy sets the referent's
// mark bit, enqueues it for further scanning, and returns the address
// unchanged. Either way the visitor writes whatever the policy
// returns back into the slot, so the two collectors share every line
// of "how do I find this object's pointer slots" logic.

// SlotFunc is a per-pointer-slot policy. tagged is the tagged Cell
// read from the slot; the return value replaces it.
type SlotFunc func(tagged Cell) Cell

// SlotVisitor walks heap objects and root sets, applying fn to every
// tagged pointer slot it finds.
type SlotVisitor struct {
	mem *Memory
	fn  SlotFunc
}

// NewSlotVisitor builds a visitor over mem that applies fn to each
// pointer slot visited.
func NewSlotVisitor(mem *Memory, fn SlotFunc) *SlotVisitor {
	return &SlotVisitor{mem: mem, fn: fn}
}

// VisitPointer applies fn to a single tagged Cell and returns the
// (possibly rewritten) result. Immediate values pass through
// unexamined.
func (v *SlotVisitor) VisitPointer(tagged Cell) Cell {
	if IsImmediate(tagged) {
		return tagged
	}
	return v.fn(tagged)
}

// VisitHandle applies fn in place to the Cell at *slot, through a
// pointer so the caller's storage is updated directly. Used for
// struct-typed roots (Segment.Ptr-addressed stack slots, context
// fields) rather than heap slots addressed by Cell offset.
func (v *SlotVisitor) VisitHandle(slot *Cell) {
	*slot = v.VisitPointer(*slot)
}

// visitSlotRange rewrites every cell-sized tagged slot in [start, end)
// of the object at addr's backing memory.
func (v *SlotVisitor) visitSlotRange(start, end Cell) {
	for addr := start; addr < end; addr += CellSize {
		old := v.mem.GetCell(addr)
		if IsImmediate(old) {
			continue
		}
		v.mem.SetCell(addr, v.fn(old))
	}
}

// VisitSlots dispatches on an object's header type code and rewrites
// exactly the slots that hold tagged pointers, matching object.go's
// slot layout for each type (spec.md §3.2's per-type slot lists).
func (v *SlotVisitor) VisitSlots(addr Cell) {
	h := v.mem.GetCell(addr)
	if HeaderFreeP(h) || HeaderForwardedP(h) {
		return
	}
	switch HeaderType(h) {
	case TypeArray:
		cap := ArrayCapacity(v.mem, addr)
		start := addr + 2*CellSize
		v.visitSlotRange(start, start+Cell(cap)*CellSize)
	case TypeByteArray, TypeString, TypeBignum:
		// payload is raw bytes, not tagged pointers; only the header
		// cell (not a pointer) and capacity cell need no rewriting.
	case TypeFloat:
		// raw IEEE-754 payload, no pointer slots.
	case TypeWord:
		base := addr + CellSize
		v.visitSlotRange(base, base+Cell(wordSlots)*CellSize)
	case TypeQuotation:
		base := addr + CellSize
		v.visitSlotRange(base, base+Cell(quotationSlots)*CellSize)
	case TypeTuple:
		n := TupleSlotCount(v.mem, addr)
		start := addr + 2*CellSize
		v.visitSlotRange(start, start+Cell(n)*CellSize)
	case TypeWrapper:
		base := addr + CellSize
		v.visitSlotRange(base, base+Cell(wrapperSlots)*CellSize)
	case TypeAlien:
		base := addr + CellSize
		v.visitSlotRange(base, base+Cell(alienSlots)*CellSize)
	case TypeCallstack:
		base := addr + CellSize
		v.visitSlotRange(base, base+Cell(callstackSlots)*CellSize)
	case TypeDLL:
		base := addr + CellSize
		v.visitSlotRange(base, base+Cell(dllSlots)*CellSize)
	}
}

// VisitStackElements rewrites every live cell of a single Segment,
// from Start to Ptr inclusive.
func (v *SlotVisitor) VisitStackElements(s *Segment) {
	if s.EmptyP() {
		return
	}
	v.visitSlotRange(s.Start, s.Ptr+CellSize)
}

// VisitAllRoots walks every root the VM knows about: the data-root
// stack, the special-objects table, and every active context's three
// stacks plus its context-objects array (spec.md §4.4 "Root set").
func (v *SlotVisitor) VisitAllRoots(roots *DataRootStack, specials *SpecialObjectsTable, contexts *Context) {
	roots.Each(func(c *Cell) { v.VisitHandle(c) })
	for i := range specials {
		v.VisitHandle(&specials[i])
	}
	for ctx := contexts; ctx != nil; ctx = ctx.Next {
		v.VisitStackElements(ctx.DataStack)
		v.VisitStackElements(ctx.RetainStack)
		v.VisitStackElements(ctx.CallStack)
		for i := range ctx.ContextObjects {
			v.VisitHandle(&ctx.ContextObjects[i])
		}
	}
}

// VisitMarkStack drains a worklist of tenured addresses to a
// fixpoint, calling VisitSlots on each and letting fn (the mark
// policy) push newly-discovered addresses back onto the same stack.
// This is the full collector's trace phase (spec.md §4.5 "Full
// collection", phase 1); copying collectors use CheneysAlgorithm
// instead since their to-space doubles as the worklist.
func (v *SlotVisitor) VisitMarkStack(stack *[]Cell) {
	for len(*stack) > 0 {
		n := len(*stack) - 1
		addr := (*stack)[n]
		*stack = (*stack)[:n]
		v.VisitSlots(addr)
	}
}

// CheneysAlgorithm runs the two-finger copying scan used by the
// nursery and aging collectors (spec.md §4.5): scan starts at the
// to-space's original Here and walks forward as fn relocates objects
// and advances Here, until scan catches up with Here.
func (v *SlotVisitor) CheneysAlgorithm(to *BumpAllocator, scanStart Cell) {
	scan := scanStart
	for scan < to.Here {
		v.VisitSlots(scan)
		scan += ObjectSize(v.mem, scan)
	}
}
