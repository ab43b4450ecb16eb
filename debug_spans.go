// debug_spans.go -- verbose dispatch tracing, gated by FACTOR_DEBUG_DISPATCH.
//
// WHAT THIS MODULE DOES
// ======================
// Centralizes debugging-only helpers for the trampoline's work-item
// dispatch (interpreter.go). Mirrors the teacher's pattern of a
// single env-var-driven toggle plus private, verbose dump routines
// invoked only when that toggle is set, so the hot dispatch path
// itself stays branch-free in the common case -- the toggle is read
// once at VM construction (vm.go's NewVM) and the dump call sites
// check the resulting bool field, not os.Getenv, on every step.
package factor

import (
	"fmt"
	"io"
)

// traceStep prints one line describing item before it runs, when
// vm.debugDispatch is set. Called from interpreter.go's step.
func (vm *VM) traceStep(item WorkItem) {
	if !vm.debugDispatch {
		return
	}
	dumpWorkItem(vm.stderr(), vm, item)
}

func dumpWorkItem(w io.Writer, vm *VM, item WorkItem) {
	switch v := item.(type) {
	case CallCallable:
		fmt.Fprintf(w, "[dispatch] call obj=0x%x\n", v.Obj)
	case ExecuteWord:
		fmt.Fprintf(w, "[dispatch] word %q (0x%x)\n", WordNameStr(vm.Mem, v.Word), v.Word)
	case QuotationContinue:
		fmt.Fprintf(w, "[dispatch] quot=0x%x idx=%d/%d\n", v.Quot, v.Idx, QuotationLength(vm.Mem, v.Quot))
	case RestoreValues:
		fmt.Fprintf(w, "[dispatch] restore count=%d\n", v.Count)
	case LoopContinue:
		fmt.Fprintf(w, "[dispatch] loop body=0x%x\n", v.Body)
	case WhileContinue:
		fmt.Fprintf(w, "[dispatch] while pred=0x%x body=0x%x\n", v.Pred, v.Body)
	case PushValue:
		fmt.Fprintf(w, "[dispatch] push value=0x%x\n", v.Value)
	default:
		fmt.Fprintf(w, "[dispatch] <unknown work item>\n")
	}
}

// traceGC prints a one-line summary after a collection, when
// vm.debugGC is set.
func (vm *VM) traceGC(op GCOp) {
	if !vm.debugGC {
		return
	}
	fmt.Fprintf(vm.stderr(), "[gc] %s nursery_free=%d tenured_free=%d\n", op, vm.Heap.Nursery.FreeSpace(), vm.Heap.Tenured.TotalFree())
}
