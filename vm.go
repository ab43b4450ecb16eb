package factor

import (
	"fmt"
	"io"
	"os"
)

// vm.go: the top-level VM struct tying memory, heap, GC, contexts, and
// the trampoline's work queue together (spec.md §3, §6). Grounded on
// _examples/daios-ai-msg/vm.go's top-level runtime struct and its
// env-var debug-toggle idiom (debug_spans.go).

// DispatchStats accumulates the per-run counters spec.md §7's
// diagnostics surface.
type DispatchStats struct {
	WordsExecuted    uint64
	PrimitivesRun    uint64
	QuotationsWalked uint64
	MegaCacheHits    uint64
	MegaCacheMisses  uint64
}

// VM is the whole interpreter: one heap, one active set of contexts,
// one work queue, one error-delivery path.
type VM struct {
	Mem  *Memory
	Heap *DataHeap
	GC   *GC

	DataRoots      *DataRootStack
	SpecialObjects SpecialObjectsTable

	Contexts       *Context // head of the active-context linked list
	CurrentContext *Context

	WorkQueue *WorkQueue
	MegaCache *MegaCache
	Methods   Methods // generic word -> class -> method, consulted by mega-cache-lookup
	Vocab     Vocabulary // set by Bootstrap; lets define-generic splice in the mega-cache-lookup/call words

	CurrentGC bool // true while a collection is running; GeneralError checks this

	Stats DispatchStats

	debugGC       bool
	debugDispatch bool
	debugAlloc    bool

	Stdout io.Writer
	Stderr io.Writer
}

// VMConfig controls how NewVM lays out a fresh heap and stacks
// (spec.md §6.2's CLI flags feed this in).
type VMConfig struct {
	Heap            HeapSizes
	DataStackSize   Cell
	RetainStackSize Cell
	CallStackSize   Cell
}

// DefaultVMConfig matches the sizes spec.md §8's scenarios assume.
var DefaultVMConfig = VMConfig{
	Heap:            DefaultHeapSizes,
	DataStackSize:   64 << 10,
	RetainStackSize: 64 << 10,
	CallStackSize:   64 << 10,
}

// NewVM boots a VM with a fresh heap, one context, and every env-var
// debug toggle read once at startup (the teacher's FACTOR_DEBUG_*
// pattern, debug_spans.go).
func NewVM(cfg VMConfig) *VM {
	heap := NewDataHeap(cfg.Heap)

	// Stacks live past the end of the data heap's linear memory, in
	// their own region so a stack overflow can never corrupt the
	// object heap.
	stacksStart := Cell(len(heap.Mem.Bytes))
	totalStackBytes := cfg.DataStackSize + cfg.RetainStackSize + cfg.CallStackSize
	grown := make([]byte, len(heap.Mem.Bytes)+int(totalStackBytes))
	copy(grown, heap.Mem.Bytes)
	heap.Mem.Bytes = grown

	dataBase := stacksStart
	retainBase := dataBase + cfg.DataStackSize
	callBase := retainBase + cfg.RetainStackSize

	ctx := NewContext(heap.Mem, dataBase, cfg.DataStackSize, retainBase, cfg.RetainStackSize, callBase, cfg.CallStackSize)

	roots := NewDataRootStack()
	vm := &VM{
		Mem:           heap.Mem,
		Heap:          heap,
		DataRoots:     roots,
		Contexts:      ctx,
		CurrentContext: ctx,
		WorkQueue:     NewWorkQueue(),
		MegaCache:     NewMegaCache(),
		Methods:       NewMethods(),
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		debugGC:       os.Getenv("FACTOR_DEBUG_GC") != "",
		debugDispatch: os.Getenv("FACTOR_DEBUG_DISPATCH") != "",
		debugAlloc:    os.Getenv("FACTOR_DEBUG_ALLOC") != "",
	}
	for i := range vm.SpecialObjects {
		vm.SpecialObjects[i] = False
	}
	vm.GC = NewGC(heap, roots, &vm.SpecialObjects)
	vm.GC.Contexts = ctx
	vm.GC.VM = vm
	debugPoisonGC = vm.debugGC
	return vm
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

// AllocArray allocates a fixed-length Array object in the nursery and
// populates it from elems (spec.md §3.2).
func (vm *VM) AllocArray(elems []Cell) Cell {
	size := Align(Cell(2+len(elems)) * CellSize)
	if err := vm.GC.EnsureNurseryRoom(size); err != nil {
		FatalError(vm.stderr(), vm, "out of memory allocating array", False)
		os.Exit(1)
	}
	addr := vm.Heap.Nursery.Allot(size)
	vm.Mem.SetCell(addr, MakeHeader(TypeArray))
	vm.Mem.SetCell(addr+CellSize, TagFixnumVal(int32(len(elems))))
	for i, e := range elems {
		SetArrayNth(vm.Mem, addr, i, e)
	}
	return TagObjectPtr(addr)
}

// AllocArray4 is the fixed-arity convenience GeneralError uses to
// build a kernel error array (errors.go).
func (vm *VM) AllocArray4(a, b, c, d Cell) Cell {
	return vm.AllocArray([]Cell{a, b, c, d})
}

// DumpMemoryLayout renders a one-line-per-region report of every heap
// region's occupied/free/capacity byte counts (spec.md §7), adapted
// from _examples/original_source/vm's dump_memory_layout diagnostic
// and rendered with the teacher's aligned-column snippet style
// (errors.go's renderMemoryDump).
func (vm *VM) DumpMemoryLayout(w io.Writer) {
	h := vm.Heap
	rows := [][4]string{
		{"region", "occupied", "free", "capacity"},
		{"nursery", fmtBytes(h.Nursery.OccupiedSpace()), fmtBytes(h.Nursery.FreeSpace()), fmtBytes(h.Nursery.Size)},
		{"aging", fmtBytes(h.Aging().OccupiedSpace()), fmtBytes(h.Aging().FreeSpace()), fmtBytes(h.Aging().Size)},
		{"tenured", fmtBytes(h.Tenured.End - h.Tenured.Start - h.Tenured.TotalFree()), fmtBytes(h.Tenured.TotalFree()), fmtBytes(h.Tenured.End - h.Tenured.Start)},
		{"code", fmtBytes(h.CodeHeap.End - h.CodeHeap.Start - h.CodeHeap.TotalFree()), fmtBytes(h.CodeHeap.TotalFree()), fmtBytes(h.CodeHeap.End - h.CodeHeap.Start)},
	}
	fmt.Fprint(w, renderMemoryDump(rows))
	fmt.Fprintf(w, "\ngc: nursery=%d aging=%d full=%d compact=%d growing=%d promoted=%d reclaimed=%d\n",
		vm.GC.Stats.NurseryCollections, vm.GC.Stats.AgingCollections, vm.GC.Stats.FullCollections,
		vm.GC.Stats.CompactCollections, vm.GC.Stats.GrowingEvents, vm.GC.Stats.BytesPromoted, vm.GC.Stats.BytesReclaimed)
}

// DispatchStatsString renders the dispatch counters spec.md §7 asks
// for, used by the -fep debugger's `stats` command (debugger.go).
func (vm *VM) DispatchStatsString() string {
	s := vm.Stats
	return fmt.Sprintf("words=%d primitives=%d quotations=%d mega_hits=%d mega_misses=%d",
		s.WordsExecuted, s.PrimitivesRun, s.QuotationsWalked, s.MegaCacheHits, s.MegaCacheMisses)
}

func fmtBytes(n Cell) string { return fmt.Sprintf("%d", n) }
