package factor

// MarkBits is the dense bit array that accompanies a free-list heap
// (spec.md §4.1): one bit per DataAlignment-sized granule across
// [Start, End), set for every granule covered by a live, marked
// object. It is the substrate both the full collector's mark phase
// and its sweep/compaction phases operate on.
type MarkBits struct {
	mem        *Memory
	Start, End Cell
	bits       []byte
}

// NewMarkBits allocates mark bits covering [start, end) of mem.
func NewMarkBits(mem *Memory, start, end Cell) *MarkBits {
	granules := (end - start) / DataAlignment
	return &MarkBits{mem: mem, Start: start, End: end, bits: make([]byte, (granules+7)/8)}
}

func (mb *MarkBits) granuleIndex(addr Cell) int {
	return int((addr - mb.Start) / DataAlignment)
}

func (mb *MarkBits) granuleCount() int {
	return int((mb.End - mb.Start) / DataAlignment)
}

// MarkedP reports whether the granule at addr is marked.
func (mb *MarkBits) MarkedP(addr Cell) bool {
	i := mb.granuleIndex(addr)
	return mb.bits[i/8]&(1<<(uint(i)%8)) != 0
}

// SetMarkedP marks every granule covered by an object of the given
// size starting at addr (spec.md §4.1: "marks and records size").
func (mb *MarkBits) SetMarkedP(addr, size Cell) {
	first := mb.granuleIndex(addr)
	n := int((size + DataAlignment - 1) / DataAlignment)
	for i := first; i < first+n; i++ {
		mb.bits[i/8] |= 1 << (uint(i) % 8)
	}
}

// ClearMarkBits zeroes the whole bit array, run at the start of every
// full collection (GC-2: "after a full collection, the mark bits are
// all clear").
func (mb *MarkBits) ClearMarkBits() {
	clear(mb.bits)
}

// NextUnmarkedBlockAfter scans forward from addr for the next granule
// whose bit is clear, returning End if none remains.
func (mb *MarkBits) NextUnmarkedBlockAfter(addr Cell) Cell {
	i := mb.granuleIndex(addr)
	n := mb.granuleCount()
	for ; i < n; i++ {
		if mb.bits[i/8]&(1<<(uint(i)%8)) == 0 {
			return mb.Start + Cell(i)*DataAlignment
		}
	}
	return mb.End
}

// UnmarkedBlockSize returns the length, in bytes, of the contiguous
// run of unmarked granules starting at addr.
func (mb *MarkBits) UnmarkedBlockSize(addr Cell) Cell {
	i := mb.granuleIndex(addr)
	n := mb.granuleCount()
	start := i
	for ; i < n; i++ {
		if mb.bits[i/8]&(1<<(uint(i)%8)) != 0 {
			break
		}
	}
	return Cell(i-start) * DataAlignment
}

// ComputeForwarding walks the live objects in [Start, End) in address
// order and assigns each one the address it would have if every live
// object were packed contiguously from Start, with no gaps. It returns
// a map from old address to new address, consumed by compactTenured
// (gc_full.go) to slide objects left and fix up pointers.
func (mb *MarkBits) ComputeForwarding() map[Cell]Cell {
	forwarding := make(map[Cell]Cell)
	addr := mb.Start
	newAddr := mb.Start
	for addr < mb.End {
		if mb.MarkedP(addr) {
			size := ObjectSize(mb.mem, addr)
			forwarding[addr] = newAddr
			newAddr += size
			addr += size
		} else {
			addr += mb.UnmarkedBlockSize(addr)
		}
	}
	return forwarding
}
