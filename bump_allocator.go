package factor

// BumpAllocator is a monotonic region allocator used by the nursery
// and by each half of the aging semispace (spec.md §4.1). Grounded
// directly on _examples/original_source/vm/bump_allocator.hpp.
type BumpAllocator struct {
	mem   *Memory
	Here  Cell
	Start Cell
	End   Cell
	Size  Cell
}

// NewBumpAllocator creates a bump allocator over [start, start+size) of
// mem. The caller owns reserving that range; BumpAllocator never
// resizes it.
func NewBumpAllocator(mem *Memory, start, size Cell) *BumpAllocator {
	return &BumpAllocator{mem: mem, Here: start, Start: start, End: start + size, Size: size}
}

// Allot reserves dataSize bytes (rounded up to DataAlignment) and
// returns the address of the reservation. It never checks for
// overflow -- callers (data_heap.go) must ensure FreeSpace() is
// sufficient first, matching bump_allocator.hpp's allot.
func (b *BumpAllocator) Allot(dataSize Cell) Cell {
	h := b.Here
	b.Here = h + Align(dataSize)
	return h
}

// Contains reports whether addr lies in [Start, End), the whole
// reserved region (not just the allocated prefix).
func (b *BumpAllocator) Contains(addr Cell) bool {
	return addr >= b.Start && addr < b.End
}

// ContainsAllocated reports whether addr lies in the allocated prefix
// [Start, Here) -- stricter than Contains, used when a slot must
// actually name a live object rather than merely fall in reserved
// space.
func (b *BumpAllocator) ContainsAllocated(addr Cell) bool {
	return addr >= b.Start && addr < b.Here
}

// OccupiedSpace returns the number of bytes allocated so far.
func (b *BumpAllocator) OccupiedSpace() Cell { return b.Here - b.Start }

// FreeSpace returns the number of bytes remaining before End.
func (b *BumpAllocator) FreeSpace() Cell { return b.End - b.Here }

// Flush resets the region to empty. When poison is true (the VM's
// defensive/debug mode), the freed bytes are overwritten with a
// recognizable pattern so stale references fail loudly instead of
// reading garbage silently (spec.md §4.1).
func (b *BumpAllocator) Flush(poison bool) {
	if poison {
		b.mem.Poison(b.Start, b.End)
	}
	b.Here = b.Start
}
