package factor

// gc_policy.go: the escalation state machine spec.md §4.5 describes as
// NURSERY -> AGING -> TO_TENURED -> FULL, with GROWING/COMPACT as side
// transitions off of FULL. Grounded on
// _examples/original_source/vm/gc.cpp's collect_* dispatch.

// GCOp names a single collection attempt.
type GCOp int

const (
	GCNursery GCOp = iota
	GCAging
	GCToTenured
	GCFull
	GCCompact
	GCGrowing
)

func (op GCOp) String() string {
	switch op {
	case GCNursery:
		return "nursery"
	case GCAging:
		return "aging"
	case GCToTenured:
		return "to_tenured"
	case GCFull:
		return "full"
	case GCCompact:
		return "compact"
	case GCGrowing:
		return "growing"
	default:
		return "unknown"
	}
}

// GCStats accumulates the counters spec.md §7's diagnostics surface
// (VM.DumpMemoryLayout, VM.DispatchStats).
type GCStats struct {
	NurseryCollections int
	AgingCollections   int
	FullCollections    int
	CompactCollections int
	GrowingEvents      int
	BytesPromoted      Cell
	BytesReclaimed      Cell
}

// GC bundles everything a collection needs to reach: the heap itself,
// every live root, and the stats a caller can inspect afterward.
type GC struct {
	Heap     *DataHeap
	Roots    *DataRootStack
	Specials *SpecialObjectsTable
	Contexts *Context // head of the active-context linked list
	Stats    GCStats
	VM       *VM // back-reference, set by NewVM; used only for debug tracing
}

// NewGC builds a collector coordinator over an already-constructed
// heap and root set.
func NewGC(heap *DataHeap, roots *DataRootStack, specials *SpecialObjectsTable) *GC {
	return &GC{Heap: heap, Roots: roots, Specials: specials}
}

// EnsureNurseryRoom runs the escalation ladder until the nursery has
// at least n bytes free, matching spec.md §4.5's "allocation failure
// triggers escalation" discipline. It is called by bump_allocator.go's
// callers (interpreter.go's allocation helpers), never by Allot itself
// (Allot never checks bounds, per spec.md §4.1).
func (gc *GC) EnsureNurseryRoom(n Cell) error {
	if gc.Heap.Nursery.FreeSpace() >= n {
		return nil
	}
	return gc.Collect(GCNursery, n)
}

// Collect runs op and, if it didn't free enough room, escalates to the
// next stage in the ladder. n is the number of bytes the triggering
// allocation needs; it is only used to decide whether escalation is
// necessary, never to size the collection itself (every collection
// scans its whole generation).
func (gc *GC) Collect(op GCOp, n Cell) error {
	defer func() {
		if gc.VM != nil {
			gc.VM.traceGC(op)
		}
	}()
	switch op {
	case GCNursery:
		gc.collectNursery()
		if gc.Heap.Nursery.FreeSpace() >= n {
			return nil
		}
		return gc.Collect(GCAging, n)

	case GCAging:
		if err := gc.collectAging(); err != nil {
			return gc.Collect(GCToTenured, n)
		}
		if gc.Heap.Nursery.FreeSpace() >= n {
			return nil
		}
		return gc.Collect(GCToTenured, n)

	case GCToTenured:
		// A plain aging collection wasn't enough: drain the whole
		// semispace pair straight into tenured instead of copying
		// survivors into the other half, freeing the entire pair for
		// the next nursery collection (spec.md §4.5, "TO_TENURED"
		// transition -- reached when aging cannot absorb survivors).
		if err := gc.collectToTenured(); err != nil {
			return gc.Collect(GCFull, n)
		}
		if gc.Heap.Nursery.FreeSpace() >= n {
			return nil
		}
		return gc.Collect(GCFull, n)

	case GCFull:
		gc.collectFull()
		if gc.Heap.TenuredHasRoomFor(n) && gc.Heap.Nursery.FreeSpace() >= n {
			return nil
		}
		if gc.Heap.HighFragmentationP() {
			return gc.Collect(GCCompact, n)
		}
		return gc.Collect(GCGrowing, n)

	case GCCompact:
		gc.compactTenured()
		if gc.Heap.TenuredHasRoomFor(n) {
			return nil
		}
		return gc.Collect(GCGrowing, n)

	case GCGrowing:
		gc.Stats.GrowingEvents++
		if gc.Heap.TenuredHasRoomFor(n) {
			return nil
		}
		return &VMError{Kind: ErrorKind_MEMORY, Fatal: true}
	}
	return nil
}
