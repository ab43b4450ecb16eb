package factor

import "testing"

func Test_MarkBits_SetMarkedPCoversWholeObject(t *testing.T) {
	mem := NewMemory(4096)
	mb := NewMarkBits(mem, 0, 4096)

	addr := Cell(64)
	size := Cell(32)
	mb.SetMarkedP(addr, size)

	for off := Cell(0); off < size; off += DataAlignment {
		if !mb.MarkedP(addr + off) {
			t.Fatalf("granule at offset %d within a marked object is unmarked", off)
		}
	}
	if mb.MarkedP(addr - DataAlignment) {
		t.Fatal("granule just before a marked object is marked")
	}
	if mb.MarkedP(addr + size) {
		t.Fatal("granule just after a marked object is marked")
	}
}

func Test_MarkBits_ClearMarkBitsResetsEverything(t *testing.T) {
	mem := NewMemory(4096)
	mb := NewMarkBits(mem, 0, 4096)
	mb.SetMarkedP(0, 64)
	mb.ClearMarkBits()
	if mb.MarkedP(0) {
		t.Fatal("ClearMarkBits left a granule marked")
	}
}

func Test_MarkBits_UnmarkedBlockSizeStopsAtMarkedGranule(t *testing.T) {
	mem := NewMemory(4096)
	mb := NewMarkBits(mem, 0, 4096)
	mb.SetMarkedP(96, DataAlignment)

	if got, want := mb.UnmarkedBlockSize(0), Cell(96); got != want {
		t.Fatalf("UnmarkedBlockSize(0) = %d, want %d", got, want)
	}
}

func Test_MarkBits_ComputeForwardingPacksLiveObjectsContiguously(t *testing.T) {
	mem := NewMemory(4096)
	mb := NewMarkBits(mem, 0, 4096)

	// Two live arrays (capacity 0, size 2 cells) separated by a gap.
	a, b := Cell(0), Cell(64)
	for _, addr := range []Cell{a, b} {
		mem.SetCell(addr, MakeHeader(TypeArray))
		mem.SetCell(addr+CellSize, TagFixnumVal(0))
		mb.SetMarkedP(addr, ObjectSize(mem, addr))
	}

	forwarding := mb.ComputeForwarding()
	if forwarding[a] != 0 {
		t.Fatalf("forwarding[a] = %d, want 0", forwarding[a])
	}
	if want := ObjectSize(mem, a); forwarding[b] != want {
		t.Fatalf("forwarding[b] = %d, want %d (packed right after a)", forwarding[b], want)
	}
}
