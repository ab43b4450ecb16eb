package factor

import "testing"

func Test_GC_EnsureNurseryRoom_NoOpWhenRoomAvailable(t *testing.T) {
	vm, _ := newTestVM(t)
	before := vm.Heap.Nursery.FreeSpace()
	if err := vm.GC.EnsureNurseryRoom(16); err != nil {
		t.Fatalf("EnsureNurseryRoom: %v", err)
	}
	if got := vm.Heap.Nursery.FreeSpace(); got != before {
		t.Fatalf("EnsureNurseryRoom collected even though room was available: free went from %d to %d", before, got)
	}
	if vm.GC.Stats.NurseryCollections != 0 {
		t.Fatalf("unexpected nursery collection: stats = %+v", vm.GC.Stats)
	}
}

func Test_GC_Nursery_CollectionPreservesRootedObject(t *testing.T) {
	vm, _ := newTestVM(t)
	a := vm.AllocArray([]Cell{TagFixnumVal(11), TagFixnumVal(22)})
	origAddr := Untag(a)
	vm.DataRoots.Push(&a)
	defer vm.DataRoots.Pop()

	vm.GC.collectNursery()

	if !IsObjectPtr(a) {
		t.Fatalf("rooted pointer is no longer an object pointer after collection: 0x%x", a)
	}
	addr := Untag(a)
	if addr == origAddr {
		t.Fatal("expected the surviving object to have moved out of the nursery")
	}
	if got := HeaderType(vm.Mem.GetCell(addr)); got != TypeArray {
		t.Fatalf("surviving object header type = %s, want array", got)
	}
	wantFixnum(t, ArrayNth(vm.Mem, addr, 0), 11)
	wantFixnum(t, ArrayNth(vm.Mem, addr, 1), 22)
}

func Test_GC_Nursery_CollectionDropsUnreachableObject(t *testing.T) {
	vm, _ := newTestVM(t)
	// Not rooted: after collection the nursery is flushed and this
	// address is fair game to be reused by the next allocation.
	vm.AllocArray([]Cell{TagFixnumVal(1)})
	before := vm.Heap.Nursery.OccupiedSpace()
	if before == 0 {
		t.Fatal("expected the nursery to hold the unrooted allocation before collection")
	}
	vm.GC.collectNursery()
	if got := vm.Heap.Nursery.OccupiedSpace(); got != 0 {
		t.Fatalf("nursery occupied space after collecting an unreachable object = %d, want 0", got)
	}
}

func Test_GCOp_String(t *testing.T) {
	cases := map[GCOp]string{
		GCNursery:   "nursery",
		GCAging:     "aging",
		GCToTenured: "to_tenured",
		GCFull:      "full",
		GCCompact:   "compact",
		GCGrowing:   "growing",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Fatalf("GCOp(%d).String() = %q, want %q", op, got, want)
		}
	}
}
