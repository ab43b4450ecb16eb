package factor

import "testing"

func newTestContext() (*Context, *Memory) {
	mem := NewMemory(4096)
	ctx := NewContext(mem, 0, 256, 256, 256, 512, 256)
	return ctx, mem
}

func Test_Context_Push_Pop_RoundTrip(t *testing.T) {
	ctx, _ := newTestContext()
	mustPush(t, ctx, TagFixnumVal(1))
	mustPush(t, ctx, TagFixnumVal(2))
	mustPush(t, ctx, TagFixnumVal(3))
	if got := ctx.DataStack.Depth(); got != 3 {
		t.Fatalf("depth = %d, want 3", got)
	}
	wantFixnum(t, mustPop(t, ctx), 3)
	wantFixnum(t, mustPop(t, ctx), 2)
	wantFixnum(t, mustPop(t, ctx), 1)
	if !ctx.DataStack.EmptyP() {
		t.Fatal("stack must be empty after popping everything pushed")
	}
}

func Test_Context_Pop_Underflow(t *testing.T) {
	ctx, _ := newTestContext()
	if _, err := ctx.Pop(); err == nil {
		t.Fatal("expected underflow popping an empty stack")
	}
}

func Test_Context_Push_Overflow(t *testing.T) {
	ctx, _ := newTestContext()
	var lastErr error
	for i := 0; i < 1000; i++ {
		if lastErr = ctx.Push(TagFixnumVal(int32(i))); lastErr != nil {
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected overflow after filling a 256-byte data stack")
	}
}

func Test_Context_PeekAt(t *testing.T) {
	ctx, _ := newTestContext()
	mustPush(t, ctx, TagFixnumVal(10))
	mustPush(t, ctx, TagFixnumVal(20))
	top, err := ctx.PeekAt(0)
	if err != nil {
		t.Fatalf("PeekAt(0): %v", err)
	}
	wantFixnum(t, top, 20)
	below, err := ctx.PeekAt(1)
	if err != nil {
		t.Fatalf("PeekAt(1): %v", err)
	}
	wantFixnum(t, below, 10)
	if got := ctx.DataStack.Depth(); got != 2 {
		t.Fatalf("PeekAt must not consume the stack, depth = %d", got)
	}
}

func Test_Context_Replace(t *testing.T) {
	ctx, _ := newTestContext()
	mustPush(t, ctx, TagFixnumVal(1))
	if err := ctx.Replace(TagFixnumVal(99)); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	wantFixnum(t, mustPop(t, ctx), 99)
}

func Test_Context_FixStacks_ClampsOutOfRangePointer(t *testing.T) {
	ctx, _ := newTestContext()
	ctx.DataStack.Ptr = ctx.DataStack.End + 1000
	ctx.FixStacks()
	if ctx.DataStack.Ptr > ctx.DataStack.End-CellSize {
		t.Fatalf("FixStacks did not clamp an over-range pointer: %d", ctx.DataStack.Ptr)
	}
}
