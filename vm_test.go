package factor

import "testing"

// vm_test.go: shared helpers for the package's tests, in the teacher's
// style (daios-ai-msg/interpreter_test.go's mustEval/wantX helpers).

// smallVMConfig keeps test heaps tiny so tests stay fast; the sizes
// are unrelated to correctness, only to how much a test can allocate
// before Boot needs a bigger heap.
var smallVMConfig = VMConfig{
	Heap: HeapSizes{
		Nursery: 64 << 10,
		Aging:   64 << 10,
		Tenured: 256 << 10,
		Code:    16 << 10,
	},
	DataStackSize:   4 << 10,
	RetainStackSize: 4 << 10,
	CallStackSize:   4 << 10,
}

// newTestVM boots a fresh VM with the closed vocabulary installed.
func newTestVM(t *testing.T) (*VM, Vocabulary) {
	t.Helper()
	vm := NewVM(smallVMConfig)
	vocab := vm.Bootstrap()
	return vm, vocab
}

func wantFixnum(t *testing.T, c Cell, n int32) {
	t.Helper()
	if Tag(c) != TagFixnum || UntagFixnum(c) != n {
		t.Fatalf("want fixnum %d, got 0x%x", n, c)
	}
}

func wantObjectType(t *testing.T, mem *Memory, c Cell, want TypeCode) Cell {
	t.Helper()
	if !IsObjectPtr(c) {
		t.Fatalf("want object pointer, got 0x%x", c)
	}
	addr := Untag(c)
	got := HeaderType(mem.GetCell(addr))
	if got != want {
		t.Fatalf("want type %s, got %s", want, got)
	}
	return addr
}

func mustPush(t *testing.T, ctx *Context, v Cell) {
	t.Helper()
	if err := ctx.Push(v); err != nil {
		t.Fatalf("push 0x%x: %v", v, err)
	}
}

func mustPop(t *testing.T, ctx *Context) Cell {
	t.Helper()
	v, err := ctx.Pop()
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	return v
}

// byteArrayLiteral allocates a byte-array object holding s's bytes,
// used to build the "name literal + do-primitive marker" pattern
// interpreter.go's continueQuotation recognizes.
func byteArrayLiteral(vm *VM, s string) Cell {
	obj := vm.AllocByteArray(len(s))
	addr := Untag(obj)
	for i := 0; i < len(s); i++ {
		SetByteArrayAt(vm.Mem, addr, i, s[i])
	}
	return obj
}
