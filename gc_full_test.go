package factor

import "testing"

// promoteToTenured drains a fresh array all the way through nursery
// and aging into tenured (mirroring what repeated allocation pressure
// would eventually do), rooting it only for the duration of the two
// collections that move it there.
func promoteToTenured(t *testing.T, vm *VM, elems []Cell) Cell {
	t.Helper()
	a := vm.AllocArray(elems)
	vm.DataRoots.Push(&a)
	vm.GC.collectNursery()
	if err := vm.GC.collectToTenured(); err != nil {
		t.Fatalf("collectToTenured: %v", err)
	}
	vm.DataRoots.Pop()
	if vm.Heap.GenerationOf(Untag(a)) != GenTenured {
		t.Fatalf("promoteToTenured: object landed in generation %v, want tenured", vm.Heap.GenerationOf(Untag(a)))
	}
	return a
}

func Test_GC_Full_CollectionPreservesRootedAndReclaimsGarbage(t *testing.T) {
	vm, _ := newTestVM(t)

	keep := promoteToTenured(t, vm, []Cell{TagFixnumVal(41), TagFixnumVal(42)})
	vm.DataRoots.Push(&keep)
	defer vm.DataRoots.Pop()
	keepAddr := Untag(keep)

	// Promoted but never re-rooted afterward: unreachable by the time
	// collectFull runs its mark phase.
	garbage := promoteToTenured(t, vm, []Cell{TagFixnumVal(99)})
	garbageAddr := Untag(garbage)
	garbageSize := ObjectSize(vm.Mem, garbageAddr)

	freeBefore := vm.Heap.Tenured.TotalFree()

	gc := vm.GC
	gc.collectFull()

	if Untag(keep) != keepAddr {
		t.Fatalf("mark-sweep full collection moved a rooted object from 0x%x to 0x%x", keepAddr, Untag(keep))
	}
	if !vm.Heap.Tenured.Mark.MarkedP(keepAddr) {
		t.Fatal("rooted tenured object lost its mark bit across collectFull")
	}
	wantFixnum(t, ArrayNth(vm.Mem, keepAddr, 0), 41)
	wantFixnum(t, ArrayNth(vm.Mem, keepAddr, 1), 42)

	if vm.Heap.Tenured.Mark.MarkedP(garbageAddr) {
		t.Fatal("unrooted tenured object is still marked after collectFull")
	}
	if got := vm.Heap.Tenured.TotalFree(); got < freeBefore+garbageSize {
		t.Fatalf("tenured free space after reclaiming garbage = %d, want at least %d", got, freeBefore+garbageSize)
	}
	if gc.Stats.BytesReclaimed == 0 {
		t.Fatal("expected BytesReclaimed to account for the swept garbage")
	}
	if gc.Stats.FullCollections != 1 {
		t.Fatalf("FullCollections = %d, want 1", gc.Stats.FullCollections)
	}
}

func Test_GC_Compact_PacksLiveObjectsAndGrowsLargestFreeBlock(t *testing.T) {
	vm, _ := newTestVM(t)

	first := promoteToTenured(t, vm, []Cell{TagFixnumVal(1)})
	middle := promoteToTenured(t, vm, []Cell{TagFixnumVal(2)})
	last := promoteToTenured(t, vm, []Cell{TagFixnumVal(3)})

	vm.DataRoots.Push(&first)
	defer vm.DataRoots.Pop()
	vm.DataRoots.Push(&last)
	defer vm.DataRoots.Pop()
	// middle is left unrooted so collectFull reclaims it, opening a
	// gap between first and last that fragments tenured.

	vm.GC.collectFull()
	if vm.Heap.Tenured.Mark.MarkedP(Untag(middle)) {
		t.Fatal("expected middle to be reclaimed before compaction")
	}

	fragmentedLargest := vm.Heap.Tenured.LargestFree()
	totalFree := vm.Heap.Tenured.TotalFree()

	vm.GC.compactTenured()

	if got := vm.Heap.Tenured.TotalFree(); got != totalFree {
		t.Fatalf("compaction changed total free space: %d -> %d, want unchanged", totalFree, got)
	}
	if got := vm.Heap.Tenured.LargestFree(); got < fragmentedLargest {
		t.Fatalf("largest free block shrank after compaction: %d -> %d", fragmentedLargest, got)
	}

	wantFixnum(t, ArrayNth(vm.Mem, Untag(first), 0), 1)
	wantFixnum(t, ArrayNth(vm.Mem, Untag(last), 0), 3)
	if Untag(first) == Untag(last) {
		t.Fatalf("compacted objects collided at the same address: 0x%x", Untag(first))
	}
	if vm.GC.Stats.CompactCollections != 1 {
		t.Fatalf("CompactCollections = %d, want 1", vm.GC.Stats.CompactCollections)
	}
}
