package factor

// DataHeap owns every region of the generational heap and the card/
// deck tables over each (spec.md §3.3, §4.2). It is the only type
// that knows how nursery, aging, and tenured relate to each other;
// everything else (allocators, collectors) operates on the regions it
// hands out.
type DataHeap struct {
	Mem *Memory

	Nursery *BumpAllocator

	// Aging is a semispace: exactly one of AgingA/AgingB is "active"
	// (Active selects it) at any time; the other is from-space during
	// an aging collection. Swapping flips Active.
	AgingA, AgingB *BumpAllocator
	AgingActive    int // 0 => AgingA is to-space, 1 => AgingB is to-space
	AgingRS        *RememberedSet

	Tenured       *FreeListAllocator
	TenuredRS     *RememberedSet
	TenuredStarts *ObjectStartMap

	// CodeHeap exists for compatibility with the callback table even
	// though this target never generates native code (spec.md §3.3);
	// its entries are stub objects only.
	CodeHeap *FreeListAllocator
}

// Sizing, in bytes, for a freshly booted heap. Overridable via the
// -young/-aging/-tenured/-code CLI flags (spec.md §6.2).
type HeapSizes struct {
	Nursery Cell
	Aging   Cell
	Tenured Cell
	Code    Cell
}

// DefaultHeapSizes matches what a small embedded image needs for the
// scenarios in spec.md §8.
var DefaultHeapSizes = HeapSizes{
	Nursery: 1 << 20,  // 1 MiB
	Aging:   4 << 20,  // 4 MiB
	Tenured: 16 << 20, // 16 MiB
	Code:    1 << 20,  // 1 MiB
}

// NewDataHeap lays out every region back-to-back in one linear memory
// and returns the coordinator.
func NewDataHeap(sizes HeapSizes) *DataHeap {
	total := sizes.Nursery + 2*sizes.Aging + sizes.Tenured + sizes.Code
	mem := NewMemory(total)

	var cursor Cell
	nursery := NewBumpAllocator(mem, cursor, sizes.Nursery)
	cursor += sizes.Nursery

	agingA := NewBumpAllocator(mem, cursor, sizes.Aging)
	cursor += sizes.Aging
	agingB := NewBumpAllocator(mem, cursor, sizes.Aging)
	cursor += sizes.Aging

	tenuredStart := cursor
	tenured := NewFreeListAllocator(mem, tenuredStart, tenuredStart+sizes.Tenured)
	cursor += sizes.Tenured

	codeStart := cursor
	code := NewFreeListAllocator(mem, codeStart, codeStart+sizes.Code)

	agingRegionStart := agingA.Start
	agingRegionSize := (agingB.End - agingA.Start)

	return &DataHeap{
		Mem:           mem,
		Nursery:       nursery,
		AgingA:        agingA,
		AgingB:        agingB,
		AgingActive:   0,
		AgingRS:       NewRememberedSet(agingRegionStart, agingRegionSize),
		Tenured:       tenured,
		TenuredRS:     NewRememberedSet(tenuredStart, sizes.Tenured),
		TenuredStarts: NewObjectStartMap(tenuredStart, sizes.Tenured),
		CodeHeap:      code,
	}
}

// Aging returns the active (to-space) aging bump allocator.
func (h *DataHeap) Aging() *BumpAllocator {
	if h.AgingActive == 0 {
		return h.AgingA
	}
	return h.AgingB
}

// AgingSemispace returns the inactive (from-space) aging bump
// allocator.
func (h *DataHeap) AgingSemispace() *BumpAllocator {
	if h.AgingActive == 0 {
		return h.AgingB
	}
	return h.AgingA
}

// SwapAging flips which half of the aging semispace is active,
// performed once per aging collection (spec.md §4.5 "Aging
// collection", phase 2).
func (h *DataHeap) SwapAging() {
	h.AgingActive = 1 - h.AgingActive
}

// GenerationOf classifies an untagged heap address by which region it
// falls in, used by the write barrier and by the slot visitor's
// fixup policies.
func (h *DataHeap) GenerationOf(addr Cell) Generation {
	if h.Nursery.Contains(addr) {
		return GenNursery
	}
	if h.AgingA.Contains(addr) || h.AgingB.Contains(addr) {
		return GenAging
	}
	return GenTenured
}

// ResetNursery flushes the nursery, called after every successful
// nursery collection (spec.md §4.5: "On success, reset the nursery").
func (h *DataHeap) ResetNursery(poison bool) { h.Nursery.Flush(poison) }

// ResetAging flushes the inactive aging half after a collection has
// finished consulting it.
func (h *DataHeap) ResetAging(poison bool) { h.AgingSemispace().Flush(poison) }

// ResetTenured clears tenured's mark bits, used at the start of a full
// collection (GC-2).
func (h *DataHeap) ResetTenured() { h.Tenured.Mark.ClearMarkBits() }

// LowMemoryP reports whether tenured's free space has fallen below a
// safety threshold (spec.md §4.2).
func (h *DataHeap) LowMemoryP() bool {
	const lowMemoryThreshold = 0.10 // 10% of tenured's total size
	return h.Tenured.TotalFree() < Cell(float64(h.Tenured.End-h.Tenured.Start)*lowMemoryThreshold)
}

// HighFragmentationP reports whether tenured's free space is plentiful
// in total but scattered: enough free bytes exist, yet no single free
// block is large enough to be useful (spec.md §4.2, invariant P-2).
func (h *DataHeap) HighFragmentationP() bool {
	const fragmentationFreeThreshold = 0.25  // total free must exceed this fraction...
	const fragmentationChunkThreshold = 0.05 // ...while the largest block is under this fraction
	size := h.Tenured.End - h.Tenured.Start
	total := h.Tenured.TotalFree()
	if total < Cell(float64(size)*fragmentationFreeThreshold) {
		return false
	}
	return h.Tenured.LargestFree() < Cell(float64(size)*fragmentationChunkThreshold)
}

// TenuredHasRoomFor reports whether tenured currently holds enough
// contiguous-or-not free space to accept n more bytes -- a coarse
// check used by the escalation policy (invariant P-3 is maintained by
// collect_growing when this fails after a full collection).
func (h *DataHeap) TenuredHasRoomFor(n Cell) bool {
	return h.Tenured.TotalFree() >= n
}
