package factor

import (
	"bytes"
	"testing"
)

func Test_Image_SaveAndLoadRoundTripsTenuredObjectsAndSpecials(t *testing.T) {
	vm, _ := newTestVM(t)

	kept := promoteToTenured(t, vm, []Cell{TagFixnumVal(7), TagFixnumVal(8)})
	vm.DataRoots.Push(&kept)
	defer vm.DataRoots.Pop()

	var buf bytes.Buffer
	if err := vm.SaveImage(&buf); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	// SaveImage's full collection and compaction move live objects, so
	// compare against the addresses as they were saved.
	wantSpecials := vm.SpecialObjects
	keptAddr := Untag(kept)

	loaded, err := LoadImage(&buf)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}

	if loaded.SpecialObjects != wantSpecials {
		t.Fatalf("SpecialObjects after round-trip = %+v, want %+v", loaded.SpecialObjects, wantSpecials)
	}
	if got := HeaderType(loaded.Mem.GetCell(keptAddr)); got != TypeArray {
		t.Fatalf("loaded object header type at 0x%x = %s, want array", keptAddr, got)
	}
	wantFixnum(t, ArrayNth(loaded.Mem, keptAddr, 0), 7)
	wantFixnum(t, ArrayNth(loaded.Mem, keptAddr, 1), 8)
	if !loaded.Heap.Tenured.Mark.MarkedP(keptAddr) {
		t.Fatal("loaded image lost the mark bit on a live tenured object")
	}
	if got := loaded.Heap.Nursery.OccupiedSpace(); got != 0 {
		t.Fatalf("loaded image's nursery occupied space = %d, want 0 (SaveImage forces a full collection first)", got)
	}
}

func Test_Image_LoadRejectsBadMagic(t *testing.T) {
	_, err := LoadImage(bytes.NewReader([]byte{0, 0, 0, 0}))
	if err == nil {
		t.Fatal("LoadImage accepted a header with a bad magic number")
	}
}
