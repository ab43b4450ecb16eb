package factor

import "sort"

// Small-block buckets, in bytes, carved from large free blocks on
// demand (spec.md §4.1). Sizes are multiples of DataAlignment up to a
// modest cutoff; anything larger goes through the large-block path.
var smallBlockSizes = []Cell{
	8, 16, 24, 32, 48, 64, 96, 128, 192, 256,
}

const smallBlockMax = 256

// PageSize governs how many equal small blocks a freshly carved large
// block is split into: ceil(PageSize/n) blocks of size n.
const PageSize = 4096

type freeBlock struct {
	addr Cell
	size Cell
}

// FreeListAllocator is the size-segregated allocator backing the
// tenured heap and the code heap (spec.md §4.1). Grounded on
// _examples/original_source/vm/free_list.hpp.
type FreeListAllocator struct {
	mem        *Memory
	Start, End Cell
	Mark       *MarkBits

	buckets [][]Cell    // buckets[i]: stack of free addrs of size smallBlockSizes[i]
	large   []freeBlock // sorted ascending by size, for lower-bound lookup
}

// NewFreeListAllocator creates an allocator over [start, end) of mem,
// initially consisting of one large free block spanning the whole
// region.
func NewFreeListAllocator(mem *Memory, start, end Cell) *FreeListAllocator {
	f := &FreeListAllocator{
		mem:     mem,
		Start:   start,
		End:     end,
		Mark:    NewMarkBits(mem, start, end),
		buckets: make([][]Cell, len(smallBlockSizes)),
	}
	f.addLarge(start, end-start)
	return f
}

func bucketIndex(n Cell) int {
	for i, sz := range smallBlockSizes {
		if n <= sz {
			return i
		}
	}
	return -1
}

func (f *FreeListAllocator) addLarge(addr, size Cell) {
	f.mem.SetCell(addr, MakeFreeHeader(size/CellSize))
	i := sort.Search(len(f.large), func(i int) bool { return f.large[i].size >= size })
	f.large = append(f.large, freeBlock{})
	copy(f.large[i+1:], f.large[i:])
	f.large[i] = freeBlock{addr: addr, size: size}
}

// takeLarge removes and returns the smallest free block with size >= n,
// splitting the remainder back onto the large list. Returns ok=false
// if no block is big enough.
func (f *FreeListAllocator) takeLarge(n Cell) (addr Cell, ok bool) {
	i := sort.Search(len(f.large), func(i int) bool { return f.large[i].size >= n })
	if i == len(f.large) {
		return 0, false
	}
	blk := f.large[i]
	f.large = append(f.large[:i], f.large[i+1:]...)
	if rem := blk.size - n; rem > 0 {
		f.addLarge(blk.addr+n, rem)
	}
	return blk.addr, true
}

// Allot reserves n bytes, rounded up to DataAlignment, following the
// small-bucket/large-set split described in spec.md §4.1.
func (f *FreeListAllocator) Allot(n Cell) (Cell, bool) {
	n = Align(n)
	if bi := bucketIndex(n); bi >= 0 {
		bucketSize := smallBlockSizes[bi]
		if len(f.buckets[bi]) == 0 {
			blockSize := ((PageSize + bucketSize - 1) / bucketSize) * bucketSize
			if blockSize == 0 {
				blockSize = bucketSize
			}
			base, ok := f.takeLarge(blockSize)
			if !ok {
				// Fall through to an exact-size large allocation instead
				// of failing outright when the page-sized carve can't be
				// satisfied but a single block still could.
				base, ok = f.takeLarge(bucketSize)
				if !ok {
					return 0, false
				}
				return base, true
			}
			count := blockSize / bucketSize
			for i := Cell(0); i < count; i++ {
				f.buckets[bi] = append(f.buckets[bi], base+i*bucketSize)
			}
		}
		last := len(f.buckets[bi]) - 1
		addr := f.buckets[bi][last]
		f.buckets[bi] = f.buckets[bi][:last]
		return addr, true
	}
	return f.takeLarge(n)
}

// Free returns a previously allocated block of the given size to the
// allocator, marking its header free (spec.md §4.1).
func (f *FreeListAllocator) Free(addr, size Cell) {
	size = Align(size)
	if bi := bucketIndex(size); bi >= 0 {
		f.mem.SetCell(addr, MakeFreeHeader(size/CellSize))
		f.buckets[bi] = append(f.buckets[bi], addr)
		return
	}
	f.addLarge(addr, size)
}

// Sweep walks [Start, End) object by object; every unmarked run of
// objects is coalesced into one free block and added to the free
// list, every marked object is left in place (spec.md §4.1). It
// returns the bytes reclaimed: how much the allocator's total free
// space grew, not counting blocks that were already free.
func (f *FreeListAllocator) Sweep(startMap *ObjectStartMap) Cell {
	freeBefore := f.TotalFree()
	f.buckets = make([][]Cell, len(smallBlockSizes))
	f.large = nil
	addr := f.Start
	for addr < f.End {
		if f.Mark.MarkedP(addr) {
			addr += ObjectSize(f.mem, addr)
			continue
		}
		runSize := f.Mark.UnmarkedBlockSize(addr)
		f.addLarge(addr, runSize)
		addr += runSize
	}
	if startMap != nil {
		startMap.UpdateForSweep(f, f.Start, f.End)
	}
	return f.TotalFree() - freeBefore
}

// LargestFree returns the size of the largest block on the large free
// list, used by high_fragmentation_p (data_heap.go).
func (f *FreeListAllocator) LargestFree() Cell {
	if len(f.large) == 0 {
		return 0
	}
	return f.large[len(f.large)-1].size
}

// TotalFree sums every free block, small and large.
func (f *FreeListAllocator) TotalFree() Cell {
	var total Cell
	for i, sz := range smallBlockSizes {
		total += Cell(len(f.buckets[i])) * sz
	}
	for _, b := range f.large {
		total += b.size
	}
	return total
}
