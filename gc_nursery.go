package factor

// gc_nursery.go: promote every nursery object reachable from a root
// into the active aging semispace (spec.md §4.5 "Nursery collection").
// Grounded on _examples/original_source/vm/nursery_collector.cpp.

// collectNursery runs a full nursery collection: trace every root,
// copy reachable nursery objects into aging to-space, fix up
// remembered-set entries that point at nursery, then reset the
// nursery for reuse.
func (gc *GC) collectNursery() {
	heap := gc.Heap
	to := heap.Aging()
	scanStart := to.Here

	forwarded := make(map[Cell]Cell)

	copyIfNursery := func(tagged Cell) Cell {
		if !IsObjectPtr(tagged) {
			return tagged
		}
		addr := Untag(tagged)
		if !heap.Nursery.Contains(addr) {
			return tagged
		}
		h := heap.Mem.GetCell(addr)
		if HeaderForwardedP(h) {
			return TagObjectPtr(ForwardAddr(h))
		}
		if newAddr, ok := forwarded[addr]; ok {
			return TagObjectPtr(newAddr)
		}
		size := ObjectSize(heap.Mem, addr)
		newAddr := to.Allot(size)
		heap.Mem.CopyCells(newAddr, addr, size/CellSize)
		heap.Mem.SetCell(addr, MakeForwardHeader(newAddr))
		forwarded[addr] = newAddr
		return TagObjectPtr(newAddr)
	}

	v := NewSlotVisitor(heap.Mem, copyIfNursery)
	v.VisitAllRoots(gc.Roots, gc.Specials, gc.Contexts)

	// Objects in aging/tenured whose cards are marked "points to
	// nursery" may hold stale pointers once we've moved those
	// objects; fix each such object's slots too.
	heap.AgingRS.VisitCards(CardPointsToNursery, CardPointsToNursery, func(cardIdx int) {
		start, end := heap.AgingRS.CardAddrRange(cardIdx)
		for addr := start; addr < end; {
			sz := ObjectSize(heap.Mem, addr)
			v.VisitSlots(addr)
			addr += sz
		}
	})
	heap.TenuredRS.VisitCards(CardPointsToNursery, CardPointsToNursery, func(cardIdx int) {
		obj := heap.TenuredStarts.FindObjectContainingCard(heap.Mem, cardIdx)
		v.VisitSlots(obj)
	})

	// Newly copied objects may themselves hold nursery pointers;
	// Cheney's two-finger scan drains those transitively.
	v.CheneysAlgorithm(to, scanStart)

	gc.Heap.ResetNursery(debugPoisonGC)
	gc.Stats.NurseryCollections++
	gc.Stats.BytesPromoted += to.Here - scanStart
}

// debugPoisonGC is toggled by the FACTOR_DEBUG_GC env var (vm.go);
// when set, freed/reset regions are poisoned so a stale read crashes
// loudly instead of silently returning garbage.
var debugPoisonGC = false
