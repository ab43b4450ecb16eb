package factor

import "math/big"

// handlers_stack.go: the closed primitive enumeration's stack,
// arithmetic, and comparison handlers (spec.md §4.8's "closed
// primitive enumeration"). Grounded on
// _examples/original_source/vm/primitives -- each Factor primitive
// there becomes one entry in primitiveTable here, dispatched by the
// same compile-time name-hash scheme (handlers.go), minus anything
// this target's Non-goals exclude (FFI, native-code compilation).

// Primitive handler ids, in primitiveTable order. Ids are cached
// per-word in the WordCache slot, and image.go saves and loads that
// slot as-is without re-resolving it, so an image is only valid for a
// build with the same ordering.
const (
	PrimDup HandlerID = iota
	PrimDrop
	PrimSwap
	PrimOver
	PrimPick
	PrimRot
	PrimNegRot
	PrimNip
	PrimDupd
	PrimSwapd
	Prim2Dup
	PrimClearStack

	PrimFixnumAdd
	PrimFixnumSub
	PrimFixnumMul
	PrimFixnumDivInt
	PrimFixnumMod
	PrimFixnumLess
	PrimFixnumLessEq
	PrimFixnumGreater
	PrimFixnumGreaterEq
	PrimBothFixnums
	PrimFixnumShift
	PrimBitAnd
	PrimBitOr
	PrimBitXor
	PrimBitNot

	PrimEq
	PrimNot
	PrimAnd
	PrimOr

	PrimArrayNth
	PrimSetArrayNth
	PrimArrayLength

	PrimSlot
	PrimSetSlot
	PrimTag

	PrimContextObject
	PrimSetContextObject
	PrimSpecialObject
	PrimSetSpecialObject

	primitiveTableSize
)

type primitiveFunc func(vm *VM) error

var primitiveTable [primitiveTableSize]primitiveFunc

var primitiveByName map[string]HandlerID

func init() {
	primitiveTable[PrimDup] = primDup
	primitiveTable[PrimDrop] = primDrop
	primitiveTable[PrimSwap] = primSwap
	primitiveTable[PrimOver] = primOver
	primitiveTable[PrimPick] = primPick
	primitiveTable[PrimRot] = primRot
	primitiveTable[PrimNegRot] = primNegRot
	primitiveTable[PrimNip] = primNip
	primitiveTable[PrimDupd] = primDupd
	primitiveTable[PrimSwapd] = primSwapd
	primitiveTable[Prim2Dup] = prim2Dup
	primitiveTable[PrimClearStack] = primClearStack

	primitiveTable[PrimFixnumAdd] = primFixnumArith(fixnumAdd, bigIntAdd)
	primitiveTable[PrimFixnumSub] = primFixnumArith(fixnumSub, bigIntSub)
	primitiveTable[PrimFixnumMul] = primFixnumArith(fixnumMul, bigIntMul)
	primitiveTable[PrimFixnumDivInt] = primFixnumDivInt
	primitiveTable[PrimFixnumMod] = primFixnumMod
	primitiveTable[PrimFixnumLess] = primFixnumCompare(func(a, b int32) bool { return a < b })
	primitiveTable[PrimFixnumLessEq] = primFixnumCompare(func(a, b int32) bool { return a <= b })
	primitiveTable[PrimFixnumGreater] = primFixnumCompare(func(a, b int32) bool { return a > b })
	primitiveTable[PrimFixnumGreaterEq] = primFixnumCompare(func(a, b int32) bool { return a >= b })
	primitiveTable[PrimBothFixnums] = primBothFixnums
	primitiveTable[PrimFixnumShift] = primFixnumShift
	primitiveTable[PrimBitAnd] = primBitwise(func(a, b int32) int32 { return a & b })
	primitiveTable[PrimBitOr] = primBitwise(func(a, b int32) int32 { return a | b })
	primitiveTable[PrimBitXor] = primBitwise(func(a, b int32) int32 { return a ^ b })
	primitiveTable[PrimBitNot] = primBitNot

	primitiveTable[PrimEq] = primEq
	primitiveTable[PrimNot] = primNot
	primitiveTable[PrimAnd] = primAnd
	primitiveTable[PrimOr] = primOr

	primitiveTable[PrimArrayNth] = primArrayNth
	primitiveTable[PrimSetArrayNth] = primSetArrayNth
	primitiveTable[PrimArrayLength] = primArrayLength

	primitiveTable[PrimSlot] = primSlot
	primitiveTable[PrimSetSlot] = primSetSlot
	primitiveTable[PrimTag] = primTag

	primitiveTable[PrimContextObject] = primContextObject
	primitiveTable[PrimSetContextObject] = primSetContextObject
	primitiveTable[PrimSpecialObject] = primSpecialObject
	primitiveTable[PrimSetSpecialObject] = primSetSpecialObject

	primitiveByName = map[string]HandlerID{
		"dup": PrimDup, "drop": PrimDrop, "swap": PrimSwap, "over": PrimOver,
		"pick": PrimPick, "rot": PrimRot, "-rot": PrimNegRot, "nip": PrimNip,
		"dupd": PrimDupd, "swapd": PrimSwapd, "2dup": Prim2Dup,
		"clear": PrimClearStack,
		"+":     PrimFixnumAdd, "-": PrimFixnumSub, "*": PrimFixnumMul,
		"/i": PrimFixnumDivInt, "mod": PrimFixnumMod,
		"<": PrimFixnumLess, "<=": PrimFixnumLessEq, ">": PrimFixnumGreater, ">=": PrimFixnumGreaterEq,
		"both-fixnums?": PrimBothFixnums, "fixnum-shift": PrimFixnumShift,
		"bitand": PrimBitAnd, "bitor": PrimBitOr, "bitxor": PrimBitXor, "bitnot": PrimBitNot,
		"eq?": PrimEq, "not": PrimNot, "and": PrimAnd, "or": PrimOr,
		"nth": PrimArrayNth, "set-nth": PrimSetArrayNth, "length": PrimArrayLength,
		"slot": PrimSlot, "set-slot": PrimSetSlot, "tag": PrimTag,
		"context-object": PrimContextObject, "set-context-object": PrimSetContextObject,
		"special-object": PrimSpecialObject, "set-special-object": PrimSetSpecialObject,
	}
}

func primDup(vm *VM) error {
	v, err := vm.CurrentContext.Peek()
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(v)
}

func primDrop(vm *VM) error {
	_, err := vm.CurrentContext.Pop()
	return err
}

func primSwap(vm *VM) error {
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(b); err != nil {
		return err
	}
	return vm.CurrentContext.Push(a)
}

func primOver(vm *VM) error {
	a, err := vm.CurrentContext.PeekAt(1)
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(a)
}

func primPick(vm *VM) error {
	a, err := vm.CurrentContext.PeekAt(2)
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(a)
}

func primRot(vm *VM) error {
	c, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(b); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(c); err != nil {
		return err
	}
	return vm.CurrentContext.Push(a)
}

func primNip(vm *VM) error {
	top, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if _, err := vm.CurrentContext.Pop(); err != nil {
		return err
	}
	return vm.CurrentContext.Push(top)
}

func primDupd(vm *VM) error {
	top, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	below, err := vm.CurrentContext.Peek()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(below); err != nil {
		return err
	}
	return vm.CurrentContext.Push(top)
}

func primClearStack(vm *VM) error {
	s := vm.CurrentContext.DataStack
	s.Ptr = s.Start - CellSize
	return nil
}

func primNegRot(vm *VM) error {
	c, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(c); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(a); err != nil {
		return err
	}
	return vm.CurrentContext.Push(b)
}

func primSwapd(vm *VM) error {
	c, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(b); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(a); err != nil {
		return err
	}
	return vm.CurrentContext.Push(c)
}

func prim2Dup(vm *VM) error {
	b, err := vm.CurrentContext.Peek()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.PeekAt(1)
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(a); err != nil {
		return err
	}
	return vm.CurrentContext.Push(b)
}

func fixnumAdd(a, b int32) int64 { return int64(a) + int64(b) }
func fixnumSub(a, b int32) int64 { return int64(a) - int64(b) }
func fixnumMul(a, b int32) int64 { return int64(a) * int64(b) }

func bigIntAdd(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }
func bigIntSub(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }
func bigIntMul(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) }

// primFixnumArith builds a handler that pops two numeric operands,
// widens to *big.Int if either is a bignum or the fixnum result
// overflows, and pushes the narrowed result (spec.md §4.9's
// OUT_OF_FIXNUM_RANGE is reserved for operations this delegation
// never triggers, since overflow here silently promotes instead).
func primFixnumArith(fast func(a, b int32) int64, wide func(a, b *big.Int) *big.Int) primitiveFunc {
	return func(vm *VM) error {
		b, err := vm.CurrentContext.Pop()
		if err != nil {
			return err
		}
		a, err := vm.CurrentContext.Pop()
		if err != nil {
			return err
		}
		if Tag(a) == TagFixnum && Tag(b) == TagFixnum {
			result := fast(UntagFixnum(a), UntagFixnum(b))
			if FixnumFits(result) {
				return vm.CurrentContext.Push(TagFixnumVal(int32(result)))
			}
		}
		bigA, bigB := ToBigInt(vm.Mem, a), ToBigInt(vm.Mem, b)
		return vm.CurrentContext.Push(vm.NarrowBigInt(wide(bigA, bigB)))
	}
}

func primFixnumDivInt(vm *VM) error {
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if UntagFixnum(b) == 0 {
		return vm.DivideByZeroError()
	}
	return vm.CurrentContext.Push(TagFixnumVal(UntagFixnum(a) / UntagFixnum(b)))
}

func primFixnumMod(vm *VM) error {
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if UntagFixnum(b) == 0 {
		return vm.DivideByZeroError()
	}
	return vm.CurrentContext.Push(TagFixnumVal(UntagFixnum(a) % UntagFixnum(b)))
}

func primFixnumCompare(cmp func(a, b int32) bool) primitiveFunc {
	return func(vm *VM) error {
		b, err := vm.CurrentContext.Pop()
		if err != nil {
			return err
		}
		a, err := vm.CurrentContext.Pop()
		if err != nil {
			return err
		}
		return vm.CurrentContext.Push(BoolCell(cmp(UntagFixnum(a), UntagFixnum(b)), vm.SpecialObjects[SOCanonicalTrue]))
	}
}

// primBothFixnums implements both-fixnums?: it pops two operands and
// pushes the canonical true object if both carry the fixnum tag,
// False otherwise.
func primBothFixnums(vm *VM) error {
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(BoolCell(Tag(a) == TagFixnum && Tag(b) == TagFixnum, vm.SpecialObjects[SOCanonicalTrue]))
}

// primFixnumShift shifts a left by count bits (right for negative
// count), promoting to a bignum on overflow the same way
// primFixnumArith does.
func primFixnumShift(vm *VM) error {
	count, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	n := int(UntagFixnum(count))
	if Tag(a) == TagFixnum {
		v := int64(UntagFixnum(a))
		if n >= 0 {
			shifted := v << uint(n)
			if FixnumFits(shifted) && shifted>>uint(n) == v {
				return vm.CurrentContext.Push(TagFixnumVal(int32(shifted)))
			}
		} else {
			return vm.CurrentContext.Push(TagFixnumVal(int32(v >> uint(-n))))
		}
	}
	bigA := ToBigInt(vm.Mem, a)
	var shifted *big.Int
	if n >= 0 {
		shifted = new(big.Int).Lsh(bigA, uint(n))
	} else {
		shifted = new(big.Int).Rsh(bigA, uint(-n))
	}
	return vm.CurrentContext.Push(vm.NarrowBigInt(shifted))
}

// primBitwise builds a fixnum-only bitwise binary handler; the object
// model's Non-goals stop the numeric tower at fixnum/bignum, and
// nothing in this target ever bitwise-combines a bignum, so unlike
// primFixnumArith there is no wide fallback here.
func primBitwise(op func(a, b int32) int32) primitiveFunc {
	return func(vm *VM) error {
		b, err := vm.CurrentContext.Pop()
		if err != nil {
			return err
		}
		a, err := vm.CurrentContext.Pop()
		if err != nil {
			return err
		}
		return vm.CurrentContext.Push(TagFixnumVal(op(UntagFixnum(a), UntagFixnum(b))))
	}
}

func primBitNot(vm *VM) error {
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(TagFixnumVal(^UntagFixnum(a)))
}

func primEq(vm *VM) error {
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(BoolCell(a == b, vm.SpecialObjects[SOCanonicalTrue]))
}

func primNot(vm *VM) error {
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(BoolCell(!ToBoolean(a), vm.SpecialObjects[SOCanonicalTrue]))
}

func primAnd(vm *VM) error {
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(BoolCell(ToBoolean(a) && ToBoolean(b), vm.SpecialObjects[SOCanonicalTrue]))
}

func primOr(vm *VM) error {
	b, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	a, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(BoolCell(ToBoolean(a) || ToBoolean(b), vm.SpecialObjects[SOCanonicalTrue]))
}

func primArrayNth(vm *VM) error {
	i, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	arr, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if !IsObjectPtr(arr) {
		return vm.TypeError(TypeArray, arr)
	}
	addr := Untag(arr)
	idx := int(UntagFixnum(i))
	if idx < 0 || idx >= ArrayCapacity(vm.Mem, addr) {
		return vm.GeneralError(ErrorKind_ARRAY_SIZE, i, arr)
	}
	return vm.CurrentContext.Push(ArrayNth(vm.Mem, addr, idx))
}

func primSetArrayNth(vm *VM) error {
	i, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	arr, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	v, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if !IsObjectPtr(arr) {
		return vm.TypeError(TypeArray, arr)
	}
	addr := Untag(arr)
	idx := int(UntagFixnum(i))
	if idx < 0 || idx >= ArrayCapacity(vm.Mem, addr) {
		return vm.GeneralError(ErrorKind_ARRAY_SIZE, i, arr)
	}
	SetArrayNth(vm.Mem, addr, idx, v)
	if IsObjectPtr(v) {
		WriteBarrier(barrierSetFor(vm, addr), addr, vm.Heap.GenerationOf(Untag(v)))
	}
	return nil
}

func primArrayLength(vm *VM) error {
	arr, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if !IsObjectPtr(arr) {
		return vm.TypeError(TypeArray, arr)
	}
	return vm.CurrentContext.Push(TagFixnumVal(int32(ArrayCapacity(vm.Mem, Untag(arr)))))
}

// primSlot reads a tuple's own instance slot from language level: (
// tuple n -- value ), the primitive that makes accessor words like a
// tuple's generated getters possible.
func primSlot(vm *VM) error {
	n, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	tuple, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if !IsObjectPtr(tuple) || HeaderType(vm.Mem.GetCell(Untag(tuple))) != TypeTuple {
		return vm.TypeError(TypeTuple, tuple)
	}
	addr := Untag(tuple)
	idx := int(UntagFixnum(n))
	if idx < 0 || idx >= TupleSlotCount(vm.Mem, addr) {
		return vm.GeneralError(ErrorKind_ARRAY_SIZE, n, tuple)
	}
	return vm.CurrentContext.Push(TupleSlotAt(vm.Mem, addr, idx))
}

// primSetSlot writes a tuple's own instance slot: ( value tuple n --
// ), the write half of primSlot, following primSetArrayNth's write
// barrier discipline for a pointer stored into a possibly-older tuple.
func primSetSlot(vm *VM) error {
	n, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	tuple, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	v, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if !IsObjectPtr(tuple) || HeaderType(vm.Mem.GetCell(Untag(tuple))) != TypeTuple {
		return vm.TypeError(TypeTuple, tuple)
	}
	addr := Untag(tuple)
	idx := int(UntagFixnum(n))
	if idx < 0 || idx >= TupleSlotCount(vm.Mem, addr) {
		return vm.GeneralError(ErrorKind_ARRAY_SIZE, n, tuple)
	}
	SetTupleSlotAt(vm.Mem, addr, idx, v)
	if IsObjectPtr(v) {
		WriteBarrier(barrierSetFor(vm, addr), addr, vm.Heap.GenerationOf(Untag(v)))
	}
	return nil
}

// primTag returns an object's 3-bit pointer tag as a fixnum: ( obj --
// n ), the primitive `tag` is named after (spec.md §3.1's tag bits).
func primTag(vm *VM) error {
	obj, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	return vm.CurrentContext.Push(TagFixnumVal(int32(Tag(obj))))
}

// primContextObject and primSetContextObject expose the current
// context's well-known slots (namestack, catchstack, current-context,
// context.go's ContextObjects array) to quotations: ( n -- value ) and
// ( value n -- ), the read/write pair the GC's slot visitor previously
// had exclusive access to.
func primContextObject(vm *VM) error {
	n, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	idx := int(UntagFixnum(n))
	if idx < 0 || idx >= contextObjectCount {
		return vm.GeneralError(ErrorKind_ARRAY_SIZE, n, False)
	}
	return vm.CurrentContext.Push(vm.CurrentContext.ContextObjects[idx])
}

func primSetContextObject(vm *VM) error {
	n, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	v, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	idx := int(UntagFixnum(n))
	if idx < 0 || idx >= contextObjectCount {
		return vm.GeneralError(ErrorKind_ARRAY_SIZE, n, False)
	}
	vm.CurrentContext.ContextObjects[idx] = v
	return nil
}

// primSpecialObject and primSetSpecialObject expose the VM-global
// SpecialObjectsTable (roots.go) to quotations the same way
// primContextObject exposes per-context slots.
func primSpecialObject(vm *VM) error {
	n, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	idx := int(UntagFixnum(n))
	if idx < 0 || idx >= len(vm.SpecialObjects) {
		return vm.GeneralError(ErrorKind_ARRAY_SIZE, n, False)
	}
	return vm.CurrentContext.Push(vm.SpecialObjects[idx])
}

func primSetSpecialObject(vm *VM) error {
	n, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	v, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	idx := int(UntagFixnum(n))
	if idx < 0 || idx >= len(vm.SpecialObjects) {
		return vm.GeneralError(ErrorKind_ARRAY_SIZE, n, False)
	}
	vm.SpecialObjects[idx] = v
	return nil
}

// barrierSetFor picks the remembered set covering addr's generation,
// used by primitives that store a pointer into a possibly-older
// object (spec.md §4.3).
func barrierSetFor(vm *VM, addr Cell) *RememberedSet {
	switch vm.Heap.GenerationOf(addr) {
	case GenAging:
		return vm.Heap.AgingRS
	default:
		return vm.Heap.TenuredRS
	}
}
