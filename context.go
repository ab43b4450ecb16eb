package factor

import "fmt"

// Segment is a contiguous memory region backing one of a context's
// three stacks (spec.md §3.5). The stack pointer points *at* the
// topmost live element; an empty stack's pointer sits one cell below
// Start.
type Segment struct {
	Start, End Cell
	Ptr        Cell
}

// NewSegment reserves [start, start+size) and initializes it empty.
func NewSegment(start, size Cell) *Segment {
	return &Segment{Start: start, End: start + size, Ptr: start - CellSize}
}

// Depth returns the number of live cells on the segment.
func (s *Segment) Depth() int { return int((s.Ptr + CellSize - s.Start) / CellSize) }

// EmptyP reports whether the segment currently holds no elements.
func (s *Segment) EmptyP() bool { return s.Ptr == s.Start-CellSize }

// Context-object slot indices (spec.md §3.5's "well-known per-context
// slots").
const (
	ContextNamestack = iota
	ContextCatchstack
	ContextCurrent
	contextObjectCount
)

// Context owns the three stacks a single coroutine-like execution
// uses (spec.md §3.5). Contexts form a linked list of active
// contexts, walked by the slot visitor's VisitAllRoots.
type Context struct {
	mem *Memory

	DataStack    *Segment
	RetainStack  *Segment
	CallStack    *Segment
	ContextObjects [contextObjectCount]Cell

	Next *Context // next active context in the VM's linked list
}

// NewContext allocates a context's three segments at the given bases
// and sizes.
func NewContext(mem *Memory, dataBase, dataSize, retainBase, retainSize, callBase, callSize Cell) *Context {
	return &Context{
		mem:         mem,
		DataStack:   NewSegment(dataBase, dataSize),
		RetainStack: NewSegment(retainBase, retainSize),
		CallStack:   NewSegment(callBase, callSize),
	}
}

// ErrDataStackUnderflow and friends are raised by Pop/Push as
// *VMError (errors.go); they are kept here only as sentinel kinds for
// tests that want to assert on a specific stack.
var (
	ErrDataStackUnderflow = ErrorKind_DATASTACK_UNDERFLOW
	ErrDataStackOverflow  = ErrorKind_DATASTACK_OVERFLOW
)

// Push bounds-checks before advancing the pointer, matching spec.md
// §4.6's ordering: "bounds-check datastack < seg.end - cell, then
// advance, then store".
func (c *Context) Push(v Cell) error {
	if c.DataStack.Ptr+CellSize >= c.DataStack.End {
		return &VMError{Kind: ErrorKind_DATASTACK_OVERFLOW}
	}
	c.DataStack.Ptr += CellSize
	c.mem.SetCell(c.DataStack.Ptr, v)
	return nil
}

// Pop returns the top of the data stack and decrements the pointer.
// Underflow is a hard error (spec.md §4.6).
func (c *Context) Pop() (Cell, error) {
	if c.DataStack.EmptyP() {
		return 0, &VMError{Kind: ErrorKind_DATASTACK_UNDERFLOW}
	}
	v := c.mem.GetCell(c.DataStack.Ptr)
	c.DataStack.Ptr -= CellSize
	return v, nil
}

// Peek returns the top of the data stack without popping it.
func (c *Context) Peek() (Cell, error) {
	if c.DataStack.EmptyP() {
		return 0, &VMError{Kind: ErrorKind_DATASTACK_UNDERFLOW}
	}
	return c.mem.GetCell(c.DataStack.Ptr), nil
}

// PeekAt returns the value at depth i below the top (0 = top) without
// disturbing the stack, used by handlers that read below the top
// element, such as 2keep and 3keep (combinators.go).
func (c *Context) PeekAt(i int) (Cell, error) {
	addr := c.DataStack.Ptr - Cell(i)*CellSize
	if addr < c.DataStack.Start {
		return 0, &VMError{Kind: ErrorKind_DATASTACK_UNDERFLOW}
	}
	return c.mem.GetCell(addr), nil
}

// Replace overwrites the top of the data stack in place.
func (c *Context) Replace(v Cell) error {
	if c.DataStack.EmptyP() {
		return &VMError{Kind: ErrorKind_DATASTACK_UNDERFLOW}
	}
	c.mem.SetCell(c.DataStack.Ptr, v)
	return nil
}

// PushRetain / PopRetain mirror Push/Pop for the retain stack, used by
// dip/keep-family combinators (combinators.go).
func (c *Context) PushRetain(v Cell) error {
	if c.RetainStack.Ptr >= c.RetainStack.End-CellSize {
		return &VMError{Kind: ErrorKind_RETAINSTACK_OVERFLOW}
	}
	c.RetainStack.Ptr += CellSize
	c.mem.SetCell(c.RetainStack.Ptr, v)
	return nil
}

func (c *Context) PopRetain() (Cell, error) {
	if c.RetainStack.EmptyP() {
		return 0, &VMError{Kind: ErrorKind_RETAINSTACK_UNDERFLOW}
	}
	v := c.mem.GetCell(c.RetainStack.Ptr)
	c.RetainStack.Ptr -= CellSize
	return v, nil
}

// FixStacks clamps every stack pointer back into its valid range after
// an error, so the error-handler invocation that follows can itself
// allocate and push without tripping another bounds check (spec.md
// §4.6, §4.9).
func (c *Context) FixStacks() {
	clampStack(c.DataStack)
	clampStack(c.RetainStack)
	clampStack(c.CallStack)
}

func clampStack(s *Segment) {
	if s.Ptr < s.Start-CellSize {
		s.Ptr = s.Start - CellSize
	}
	if s.Ptr > s.End-CellSize {
		s.Ptr = s.End - CellSize
	}
}

// AddressToError classifies an address relative to this context's
// three segments, used by memory-fault delivery on targets with
// signal-based protection; on this target it is only reachable via
// explicit bounds checks, never a real signal, but the mapping is
// kept so error reporting names the right stack.
func (c *Context) AddressToError(addr Cell) ErrorKind {
	switch {
	case addr >= c.DataStack.Start && addr < c.DataStack.End:
		return ErrorKind_DATASTACK_OVERFLOW
	case addr >= c.RetainStack.Start && addr < c.RetainStack.End:
		return ErrorKind_RETAINSTACK_OVERFLOW
	case addr >= c.CallStack.Start && addr < c.CallStack.End:
		return ErrorKind_CALLSTACK_OVERFLOW
	default:
		return ErrorKind_MEMORY
	}
}

func (c *Context) String() string {
	return fmt.Sprintf("context{data=%d retain=%d call=%d}",
		c.DataStack.Depth(), c.RetainStack.Depth(), c.CallStack.Depth())
}
