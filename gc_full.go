package factor

// gc_full.go: full collection (spec.md §4.5 "Full collection") and
// compaction (spec.md §4.5 "Compaction", invariant P-2). Grounded on
// _examples/original_source/vm/full_collector.cpp.
//
// A full collection first promotes everything still live in nursery
// and aging into tenured (so every surviving object ends up in one
// place), then mark-sweeps tenured itself. Compaction is a separate,
// rarer step full collection escalates into only when tenured has
// enough total free space but it's too fragmented to satisfy the
// triggering allocation (gc_policy.go's GCCompact transition).

// collectFull drains nursery and aging into tenured, then mark-sweeps
// tenured: every root is traced and marked, then every unmarked span
// is folded back into the free-list allocator.
func (gc *GC) collectFull() {
	gc.collectNursery()
	_ = gc.collectToTenured() // best-effort; a failure here just leaves some objects in aging for next time

	heap := gc.Heap
	heap.ResetTenured()

	var stack []Cell
	markIfTenuredUnmarked := func(tagged Cell) Cell {
		if !IsObjectPtr(tagged) {
			return tagged
		}
		addr := Untag(tagged)
		if heap.GenerationOf(addr) != GenTenured {
			return tagged
		}
		if heap.Tenured.Mark.MarkedP(addr) {
			return tagged
		}
		heap.Tenured.Mark.SetMarkedP(addr, ObjectSize(heap.Mem, addr))
		stack = append(stack, addr)
		return tagged
	}

	v := NewSlotVisitor(heap.Mem, markIfTenuredUnmarked)
	v.VisitAllRoots(gc.Roots, gc.Specials, gc.Contexts)
	v.VisitMarkStack(&stack)

	reclaimed := heap.Tenured.Sweep(heap.TenuredStarts)
	gc.Stats.FullCollections++
	gc.Stats.BytesReclaimed += reclaimed
}

// compactTenured relocates every live tenured object to pack them
// contiguously from the start of the region, rewriting every pointer
// (roots and inter-object) to match, then rebuilds the free-list
// allocator over the now-trailing free space. Assumes mark bits are
// already current from the full collection that preceded it.
func (gc *GC) compactTenured() {
	heap := gc.Heap
	forwarding := heap.Tenured.Mark.ComputeForwarding()

	relocate := func(tagged Cell) Cell {
		if !IsObjectPtr(tagged) {
			return tagged
		}
		addr := Untag(tagged)
		if newAddr, ok := forwarding[addr]; ok {
			return TagObjectPtr(newAddr)
		}
		return tagged
	}

	v := NewSlotVisitor(heap.Mem, relocate)
	v.VisitAllRoots(gc.Roots, gc.Specials, gc.Contexts)

	// Move payloads into place. Iterate in address order so a chain of
	// shifts-left never overwrites data not yet read; ComputeForwarding
	// guarantees newAddr <= addr for every entry.
	order := make([]Cell, 0, len(forwarding))
	for old := range forwarding {
		order = append(order, old)
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j-1] > order[j]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	for _, old := range order {
		newAddr := forwarding[old]
		size := ObjectSize(heap.Mem, old)
		heap.Mem.CopyCells(newAddr, old, size/CellSize)
		v.VisitSlots(newAddr)
	}

	heap.ResetTenured()
	for _, newAddr := range forwarding {
		heap.Tenured.Mark.SetMarkedP(newAddr, ObjectSize(heap.Mem, newAddr))
	}
	heap.TenuredStarts.UpdateForSweep(heap.Tenured, heap.Tenured.Start, heap.Tenured.End)
	heap.Tenured.Sweep(heap.TenuredStarts)
	gc.Stats.CompactCollections++
}
