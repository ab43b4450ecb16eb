package factor

import "testing"

func Test_DataHeap_AgingAndAgingSemispaceFollowActiveFlag(t *testing.T) {
	h := NewDataHeap(HeapSizes{Nursery: 1 << 10, Aging: 1 << 10, Tenured: 4 << 10, Code: 1 << 10})
	if h.Aging() != h.AgingA || h.AgingSemispace() != h.AgingB {
		t.Fatal("with AgingActive == 0, Aging() should be AgingA and AgingSemispace() should be AgingB")
	}
	h.SwapAging()
	if h.Aging() != h.AgingB || h.AgingSemispace() != h.AgingA {
		t.Fatal("after SwapAging, Aging() should be AgingB and AgingSemispace() should be AgingA")
	}
	h.SwapAging()
	if h.Aging() != h.AgingA {
		t.Fatal("SwapAging twice should return to the original active half")
	}
}

func Test_DataHeap_GenerationOfClassifiesEveryRegion(t *testing.T) {
	h := NewDataHeap(HeapSizes{Nursery: 1 << 10, Aging: 1 << 10, Tenured: 4 << 10, Code: 1 << 10})
	if got := h.GenerationOf(h.Nursery.Start); got != GenNursery {
		t.Fatalf("GenerationOf(nursery start) = %v, want GenNursery", got)
	}
	if got := h.GenerationOf(h.AgingA.Start); got != GenAging {
		t.Fatalf("GenerationOf(AgingA start) = %v, want GenAging", got)
	}
	if got := h.GenerationOf(h.AgingB.Start); got != GenAging {
		t.Fatalf("GenerationOf(AgingB start) = %v, want GenAging", got)
	}
	if got := h.GenerationOf(h.Tenured.Start); got != GenTenured {
		t.Fatalf("GenerationOf(tenured start) = %v, want GenTenured", got)
	}
}

func Test_DataHeap_ResetAgingFlushesTheInactiveHalf(t *testing.T) {
	h := NewDataHeap(HeapSizes{Nursery: 1 << 10, Aging: 1 << 10, Tenured: 4 << 10, Code: 1 << 10})
	h.AgingA.Allot(64)
	h.SwapAging() // AgingA is now the inactive half, still holding the 64-byte allocation
	h.ResetAging(false)
	if got := h.AgingA.OccupiedSpace(); got != 0 {
		t.Fatalf("AgingA occupied space after ResetAging = %d, want 0", got)
	}
}

func Test_DataHeap_LowMemoryPTracksTenuredFreeRatio(t *testing.T) {
	h := NewDataHeap(HeapSizes{Nursery: 1 << 10, Aging: 1 << 10, Tenured: 4 << 10, Code: 1 << 10})
	if h.LowMemoryP() {
		t.Fatal("a freshly created tenured region should not report low memory")
	}
	size := h.Tenured.End - h.Tenured.Start
	if _, ok := h.Tenured.Allot(size - size/20); !ok { // consume all but 5%
		t.Fatal("failed to consume tenured down to 5% free")
	}
	if !h.LowMemoryP() {
		t.Fatal("tenured at 5% free should report low memory")
	}
}

func Test_DataHeap_TenuredHasRoomFor(t *testing.T) {
	h := NewDataHeap(HeapSizes{Nursery: 1 << 10, Aging: 1 << 10, Tenured: 4 << 10, Code: 1 << 10})
	size := h.Tenured.End - h.Tenured.Start
	if !h.TenuredHasRoomFor(size / 2) {
		t.Fatal("a freshly created tenured region should have room for half its own size")
	}
	if h.TenuredHasRoomFor(size * 2) {
		t.Fatal("tenured should not report room for twice its own size")
	}
}
