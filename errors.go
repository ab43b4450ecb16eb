// errors.go: the VM's error taxonomy and error-delivery path.
//
// What this file does
// --------------------
// Mirrors _examples/original_source/vm/errors.cpp: a closed ErrorKind
// enum, a general_error entry point that either hands a tagged error
// array to the installed error-handler quotation or treats the
// condition as fatal, and a handful of named convenience wrappers
// (TypeError, DivideByZeroError, ...).
//
// The fatal path's "attempt a memory dump" (spec.md §7) reuses the
// teacher's (daios-ai-msg/errors.go) caret-snippet renderer, retargeted
// from "render a line of source with a caret" to "render one line per
// heap region with its occupied/free/capacity" -- same shape
// (header + aligned rows), different payload.
package factor

import (
	"fmt"
	"io"
	"strings"
)

// ErrorKind is the closed enumeration from spec.md §4.9.
type ErrorKind int

const (
	ErrorKind_EXPIRED ErrorKind = iota
	ErrorKind_IO
	ErrorKind_TYPE
	ErrorKind_DIVIDE_BY_ZERO
	ErrorKind_SIGNAL
	ErrorKind_ARRAY_SIZE
	ErrorKind_OUT_OF_FIXNUM_RANGE
	ErrorKind_FFI
	ErrorKind_UNDEFINED_SYMBOL
	ErrorKind_DATASTACK_UNDERFLOW
	ErrorKind_DATASTACK_OVERFLOW
	ErrorKind_RETAINSTACK_UNDERFLOW
	ErrorKind_RETAINSTACK_OVERFLOW
	ErrorKind_CALLSTACK_UNDERFLOW
	ErrorKind_CALLSTACK_OVERFLOW
	ErrorKind_MEMORY
	ErrorKind_FP_TRAP
	ErrorKind_INTERRUPT
	ErrorKind_CALLBACK_SPACE_OVERFLOW
)

var errorKindNames = [...]string{
	"EXPIRED", "IO", "TYPE", "DIVIDE_BY_ZERO", "SIGNAL", "ARRAY_SIZE",
	"OUT_OF_FIXNUM_RANGE", "FFI", "UNDEFINED_SYMBOL", "DATASTACK_UNDERFLOW",
	"DATASTACK_OVERFLOW", "RETAINSTACK_UNDERFLOW", "RETAINSTACK_OVERFLOW",
	"CALLSTACK_UNDERFLOW", "CALLSTACK_OVERFLOW", "MEMORY", "FP_TRAP",
	"INTERRUPT", "CALLBACK_SPACE_OVERFLOW",
}

func (k ErrorKind) String() string {
	if int(k) < 0 || int(k) >= len(errorKindNames) {
		return "UNKNOWN_ERROR"
	}
	return errorKindNames[k]
}

// VMError is a typed runtime error raised by a primitive or by the
// interpreter itself. Arg1/Arg2 are tagged Cells, interpreted
// per-kind (e.g. TYPE carries (expected_type, actual_value)).
type VMError struct {
	Kind       ErrorKind
	Arg1, Arg2 Cell
	Fatal      bool // set for conditions general_error never reaches (corruption, double fault)
	Msg        string
}

func (e *VMError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s error (arg1=0x%x arg2=0x%x)", e.Kind, e.Arg1, e.Arg2)
}

// GeneralError is the VM's single error-raising entry point (spec.md
// §4.9, grounded on errors.cpp's general_error). If a handler quotation
// is installed and no collection is in progress, it allocates a
// four-element error array, pushes it, clears the data-root stack, and
// schedules the handler via the work queue. Otherwise the error is
// fatal: it is returned as a *VMError, and Run (interpreter.go) hands
// it back to its own caller.
func (vm *VM) GeneralError(kind ErrorKind, arg1, arg2 Cell) error {
	ctx := vm.CurrentContext
	if ctx != nil {
		ctx.FixStacks()
	}

	handler := vm.SpecialObjects[SOErrorHandlerQuot]
	if !vm.CurrentGC && ToBoolean(handler) {
		errObj := vm.AllocArray4(TagFixnumVal(int32(KernelErrorTag)), TagFixnumVal(int32(kind)), arg1, arg2)
		if ctx != nil {
			_ = ctx.Push(errObj)
		}
		vm.DataRoots.Clear()
		vm.WorkQueue.Push(CallCallable{Obj: handler})
		return nil
	}

	return &VMError{Kind: kind, Arg1: arg1, Arg2: arg2}
}

// TypeError raises ErrorKind_TYPE with (expected, actual).
func (vm *VM) TypeError(expected TypeCode, actual Cell) error {
	return vm.GeneralError(ErrorKind_TYPE, TagFixnumVal(int32(expected)), actual)
}

// DivideByZeroError raises ErrorKind_DIVIDE_BY_ZERO.
func (vm *VM) DivideByZeroError() error {
	return vm.GeneralError(ErrorKind_DIVIDE_BY_ZERO, False, False)
}

// UndefinedSymbolError raises ErrorKind_UNDEFINED_SYMBOL for a word
// lookup that found nothing in the handler table and has no
// definition to fall back to.
func (vm *VM) UndefinedSymbolError(word Cell) error {
	return vm.GeneralError(ErrorKind_UNDEFINED_SYMBOL, word, False)
}

// FatalError reports an unrecoverable invariant violation: it writes
// msg and a memory-layout dump to w (callers pass vm.stderr() or
// os.Stderr). It returns nothing and does not exit; the caller picks
// the exit status and calls os.Exit itself.
func FatalError(w io.Writer, vm *VM, msg string, tagged Cell) {
	fmt.Fprintf(w, "fatal_error: %s: 0x%x\n\n", msg, tagged)
	if vm != nil {
		vm.DumpMemoryLayout(w)
	}
}

// renderMemoryDump builds the per-region report DumpMemoryLayout
// prints, in the teacher's aligned-column snippet style (errors.go's
// prettyErrorStringLabeled), repurposed from "source line with caret"
// to "heap region with occupied/free/capacity".
func renderMemoryDump(rows [][4]string) string {
	var b strings.Builder
	widths := [4]int{0, 0, 0, 0}
	for _, r := range rows {
		for i, cell := range r {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	for _, r := range rows {
		for i, cell := range r {
			fmt.Fprintf(&b, "%-*s", widths[i]+2, cell)
			if i == 0 {
				b.WriteString("| ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
