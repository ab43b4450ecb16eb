package factor

// gc_aging.go: two-phase aging collection (spec.md §4.5 "Aging
// collection") plus the aging-to-tenured promotion it falls back to.
// Grounded on _examples/original_source/vm/aging_collector.cpp for the
// semispace-copy shape and on data_heap.go's Aging()/AgingSemispace()/
// SwapAging(), which this file is the sole caller of.

// collectAging runs the real two-phase algorithm: phase 1 scans
// tenured's points-to-aging cards as extra roots alongside the normal
// root set; phase 2 flips which aging half is active (SwapAging) and
// Cheney-copies every object still reachable from the old (now
// from-space) half into the new active half. An object that doesn't
// fit in to-space is promoted straight into tenured instead -- the
// per-object overflow fallback spec.md §4.5 calls "aging cannot absorb
// survivors" -- rather than failing the whole collection. Only tenured
// itself running out of room fails collectAging outright.
func (gc *GC) collectAging() error {
	heap := gc.Heap
	from := heap.Aging()
	heap.SwapAging()
	to := heap.Aging()
	scanStart := to.Here

	forwarded := make(map[Cell]Cell)
	var promoteErr error

	copyOrPromote := func(tagged Cell) Cell {
		if !IsObjectPtr(tagged) {
			return tagged
		}
		addr := Untag(tagged)
		if !from.Contains(addr) {
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
		var newAddr Cell
		if to.FreeSpace() >= size {
			newAddr = to.Allot(size)
			heap.Mem.CopyCells(newAddr, addr, size/CellSize)
			heap.Mem.SetCell(addr, MakeForwardHeader(newAddr))
		} else {
			ok := false
			newAddr, ok = heap.Tenured.Allot(size)
			if !ok {
				promoteErr = &VMError{Kind: ErrorKind_MEMORY}
				return tagged
			}
			heap.Mem.CopyCells(newAddr, addr, size/CellSize)
			heap.Mem.SetCell(addr, MakeForwardHeader(newAddr))
			heap.Tenured.Mark.SetMarkedP(newAddr, size)
			heap.TenuredStarts.RecordObjectStartOffset(newAddr)
			gc.Stats.BytesPromoted += size
		}
		forwarded[addr] = newAddr
		return TagObjectPtr(newAddr)
	}

	v := NewSlotVisitor(heap.Mem, copyOrPromote)
	v.VisitAllRoots(gc.Roots, gc.Specials, gc.Contexts)
	if promoteErr != nil {
		return promoteErr
	}

	heap.TenuredRS.VisitCards(CardPointsToAging, CardPointsToAging, func(cardIdx int) {
		obj := heap.TenuredStarts.FindObjectContainingCard(heap.Mem, cardIdx)
		v.VisitSlots(obj)
	})
	if promoteErr != nil {
		return promoteErr
	}

	// Cheney's two-finger scan drains to-space, chasing pointers from
	// objects already copied into any from-space object not yet moved.
	v.CheneysAlgorithm(to, scanStart)
	if promoteErr != nil {
		return promoteErr
	}

	// Objects that overflowed straight into tenured this round fall
	// outside to-space's Cheney walk but may themselves still point
	// back at from-space; scan them directly.
	for _, newAddr := range forwarded {
		if heap.GenerationOf(newAddr) == GenTenured {
			v.VisitSlots(newAddr)
		}
	}
	if promoteErr != nil {
		return promoteErr
	}

	heap.ResetAging(debugPoisonGC) // from-space is now garbage
	gc.Stats.AgingCollections++
	return nil
}

// collectToTenured promotes every live aging object -- in either half
// of the semispace pair -- straight into tenured and frees the whole
// pair for reuse, skipping the semispace copy entirely. This is the
// eager fallback spec.md §4.5's escalation ladder names TO_TENURED,
// reached when a plain aging collection didn't free enough room:
// unlike collectAging, "copy" here always means "allocate a tenured
// block and fix up the mark bits", since there is no to-space destination.
func (gc *GC) collectToTenured() error {
	heap := gc.Heap
	forwarded := make(map[Cell]Cell)
	var promoteErr error

	promoteIfAging := func(tagged Cell) Cell {
		if !IsObjectPtr(tagged) {
			return tagged
		}
		addr := Untag(tagged)
		if heap.GenerationOf(addr) != GenAging {
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
		newAddr, ok := heap.Tenured.Allot(size)
		if !ok {
			promoteErr = &VMError{Kind: ErrorKind_MEMORY}
			return tagged
		}
		heap.Mem.CopyCells(newAddr, addr, size/CellSize)
		heap.Mem.SetCell(addr, MakeForwardHeader(newAddr))
		heap.Tenured.Mark.SetMarkedP(newAddr, size)
		heap.TenuredStarts.RecordObjectStartOffset(newAddr)
		forwarded[addr] = newAddr
		gc.Stats.BytesPromoted += size
		return TagObjectPtr(newAddr)
	}

	v := NewSlotVisitor(heap.Mem, promoteIfAging)
	v.VisitAllRoots(gc.Roots, gc.Specials, gc.Contexts)
	if promoteErr != nil {
		return promoteErr
	}

	heap.TenuredRS.VisitCards(CardPointsToAging, CardPointsToAging, func(cardIdx int) {
		obj := heap.TenuredStarts.FindObjectContainingCard(heap.Mem, cardIdx)
		v.VisitSlots(obj)
	})

	// Promoted objects are already fully copied (no to-space bump
	// allocator to re-scan); fix their own slots directly since they
	// may point at other aging objects not yet promoted.
	for _, newAddr := range forwarded {
		v.VisitSlots(newAddr)
	}
	if promoteErr != nil {
		return promoteErr
	}

	heap.ResetAging(debugPoisonGC)
	heap.Aging().Flush(debugPoisonGC)
	gc.Stats.AgingCollections++
	return nil
}
