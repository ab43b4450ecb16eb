package factor

// combinators.go: control-flow words implemented as handlers that
// schedule WorkItems instead of calling into Go's own stack (spec.md
// §4.7 "Combinators never recurse"). Grounded on
// _examples/original_source/vm/interpreter.cpp's WasmHandlerId enum,
// which special-cases this exact combinator set (HANDLER_DIP,
// HANDLER_KEEP, HANDLER_MEGA_CACHE_LOOKUP, ...) as subprimitives,
// reworked here as interpreter-only handler ids resolved the same way
// a primitive is (handlers.go), but dispatched through
// interpreterOnlyTable instead of primitiveTable.

const (
	CombCall HandlerID = iota
	CombExecute
	CombDip
	Comb2Dip
	Comb3Dip
	CombKeep
	Comb2Keep
	Comb3Keep
	CombBi
	CombBiStar
	CombBiAt
	CombTri
	CombTriStar
	CombTriAt
	CombIf
	CombWhen
	CombUnless
	CombLoop
	CombWhile
	CombCurry
	CombCompose
	CombCallEffect
	CombExecuteEffect
	CombMegaCacheLookup

	interpreterOnlyTableSize
)

var interpreterOnlyTable [interpreterOnlyTableSize]primitiveFunc
var interpreterOnlyByName map[string]HandlerID

func init() {
	interpreterOnlyTable[CombCall] = combCall
	interpreterOnlyTable[CombExecute] = combCall // execute takes a word rather than any callable, but dispatches the same way
	interpreterOnlyTable[CombDip] = combDip
	interpreterOnlyTable[Comb2Dip] = comb2Dip
	interpreterOnlyTable[Comb3Dip] = comb3Dip
	interpreterOnlyTable[CombKeep] = combKeep
	interpreterOnlyTable[Comb2Keep] = comb2Keep
	interpreterOnlyTable[Comb3Keep] = comb3Keep
	interpreterOnlyTable[CombBi] = combBi
	interpreterOnlyTable[CombBiStar] = combBiStar
	interpreterOnlyTable[CombBiAt] = combBiAt
	interpreterOnlyTable[CombTri] = combTri
	interpreterOnlyTable[CombTriStar] = combTriStar
	interpreterOnlyTable[CombTriAt] = combTriAt
	interpreterOnlyTable[CombIf] = combIf
	interpreterOnlyTable[CombWhen] = combWhen
	interpreterOnlyTable[CombUnless] = combUnless
	interpreterOnlyTable[CombLoop] = combLoop
	interpreterOnlyTable[CombWhile] = combWhile
	interpreterOnlyTable[CombCurry] = combCurry
	interpreterOnlyTable[CombCompose] = combCompose
	interpreterOnlyTable[CombCallEffect] = combCallEffect
	interpreterOnlyTable[CombExecuteEffect] = combCallEffect // execute-effect drops the same trailing effect literal before dispatching a word
	interpreterOnlyTable[CombMegaCacheLookup] = combMegaCacheLookup

	interpreterOnlyByName = map[string]HandlerID{
		"call": CombCall, "execute": CombExecute,
		"dip": CombDip, "2dip": Comb2Dip, "3dip": Comb3Dip,
		"keep": CombKeep, "2keep": Comb2Keep, "3keep": Comb3Keep,
		"bi": CombBi, "bi*": CombBiStar, "bi@": CombBiAt,
		"tri": CombTri, "tri*": CombTriStar, "tri@": CombTriAt,
		"if": CombIf, "when": CombWhen, "unless": CombUnless,
		"loop": CombLoop, "while": CombWhile,
		"curry": CombCurry, "compose": CombCompose,
		"call-effect": CombCallEffect, "execute-effect": CombExecuteEffect,
		"mega-cache-lookup": CombMegaCacheLookup,
	}
}

func combCall(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// combDip: ( x quot -- x ), running quot with x hidden beneath it and
// restored afterward.
func combDip(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// comb2Dip: ( y x quot -- y x ), same as dip but hiding two values.
func comb2Dip(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	y, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(y); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(RestoreValues{Count: 2})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// comb3Dip: ( z y x quot -- z y x ), same as dip but hiding three values.
func comb3Dip(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	y, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	z, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(z); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(y); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(RestoreValues{Count: 3})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// combKeep: ( ..a obj quot -- ..b obj ): quot is popped and runs with
// obj still on the stack; a copy of obj saved on the retain stack is
// pushed back on top of quot's result.
func combKeep(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	obj, err := vm.CurrentContext.Peek()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(obj); err != nil {
		return err
	}
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// comb2Keep: ( ..a x y quot -- ..b x y ), copies of x and y are pushed
// back on top of quot's result.
func comb2Keep(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	y, err := vm.CurrentContext.Peek()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.PeekAt(1)
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(x); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(y); err != nil {
		return err
	}
	vm.WorkQueue.Push(RestoreValues{Count: 2})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// comb3Keep: ( ..a x y z quot -- ..b x y z ), copies of all three are
// pushed back on top of quot's result.
func comb3Keep(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	z, err := vm.CurrentContext.Peek()
	if err != nil {
		return err
	}
	y, err := vm.CurrentContext.PeekAt(1)
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.PeekAt(2)
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(x); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(y); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(z); err != nil {
		return err
	}
	vm.WorkQueue.Push(RestoreValues{Count: 3})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// combBi: ( x p q -- r1 r2 ), both p and q applied to the same x.
func combBi(vm *VM) error {
	q, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	p, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(x); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(CallCallable{Obj: q})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: p})
	return nil
}

// combBiStar: ( x y p q -- r1 r2 ), p applied to x and q applied to y.
func combBiStar(vm *VM) error {
	q, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	p, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	y, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(y); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(CallCallable{Obj: q})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: p})
	return nil
}

// combBiAt: ( x y quot -- r1 r2 ), quot applied to x, then to y.
func combBiAt(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	y, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(y); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// combTri: ( x p q r -- r1 r2 r3 ), p, q and r each applied to x.
func combTri(vm *VM) error {
	r, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	q, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	p, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(x); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(x); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(CallCallable{Obj: r})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: q})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: p})
	return nil
}

// combTriStar: ( x y z p q r -- r1 r2 r3 ), p applied to x, q to y, r to z.
func combTriStar(vm *VM) error {
	r, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	q, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	p, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	z, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	y, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	// Retain stack is LIFO, so push z before y: the restore that runs
	// right after p (feeding q) must pop y first.
	if err := vm.CurrentContext.PushRetain(z); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(y); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(CallCallable{Obj: r})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: q})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: p})
	return nil
}

// combTriAt: ( x y z quot -- r1 r2 r3 ), quot applied to each of x, y, z.
func combTriAt(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	z, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	y, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	x, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(z); err != nil {
		return err
	}
	if err := vm.CurrentContext.PushRetain(y); err != nil {
		return err
	}
	if err := vm.CurrentContext.Push(x); err != nil {
		return err
	}
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	vm.WorkQueue.Push(RestoreValues{Count: 1})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

// combCallEffect: ( ..a quot effect -- ..b ), same as call after dropping
// the trailing stack-effect literal. Used for both call-effect and
// execute-effect -- this target has no compiler to check the effect
// against, so it is consumed and ignored rather than validated.
func combCallEffect(vm *VM) error {
	if _, err := vm.CurrentContext.Pop(); err != nil {
		return err
	}
	return combCall(vm)
}

func combIf(vm *VM) error {
	elseQuot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	thenQuot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	cond, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if ToBoolean(cond) {
		vm.WorkQueue.Push(CallCallable{Obj: thenQuot})
	} else {
		vm.WorkQueue.Push(CallCallable{Obj: elseQuot})
	}
	return nil
}

func combWhen(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	cond, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if ToBoolean(cond) {
		vm.WorkQueue.Push(CallCallable{Obj: quot})
	}
	return nil
}

func combUnless(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	cond, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	if !ToBoolean(cond) {
		vm.WorkQueue.Push(CallCallable{Obj: quot})
	}
	return nil
}

// combLoop: ( ... quot -- ... ), runs quot, which must leave a flag
// on top of the stack; LoopContinue pops that flag and runs quot again
// for as long as it is true.
func combLoop(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	vm.WorkQueue.Push(LoopContinue{Body: quot})
	vm.WorkQueue.Push(CallCallable{Obj: quot})
	return nil
}

func combWhile(vm *VM) error {
	body, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	pred, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	vm.WorkQueue.Push(WhileContinue{Pred: pred, Body: body})
	vm.WorkQueue.Push(CallCallable{Obj: pred})
	return nil
}

// combCurry: ( obj quot -- curried ), builds a new quotation whose
// body is [obj, quot's elements...] -- this target's object model has
// no distinct "curry" object type (spec.md §3.2's type enumeration is
// closed), so currying is realized by eagerly constructing the
// equivalent expanded quotation rather than a lazy wrapper.
func combCurry(vm *VM) error {
	quot, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	obj, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	n := QuotationLength(vm.Mem, quot)
	elems := make([]Cell, n+1)
	elems[0] = obj
	for i := 0; i < n; i++ {
		elems[i+1] = QuotationElementAt(vm.Mem, quot, i)
	}
	arr := vm.AllocArray(elems)
	curried := vm.AllocQuotation(arr, False)
	return vm.CurrentContext.Push(curried)
}

// callableElements returns the sequence of quotation-body elements
// executing obj would walk: a quotation's own elements, or a
// single-element sequence wrapping a bare word so it still executes in
// place when spliced into another quotation's body.
func callableElements(vm *VM, obj Cell) []Cell {
	if IsObjectPtr(obj) && HeaderType(vm.Mem.GetCell(Untag(obj))) == TypeQuotation {
		n := QuotationLength(vm.Mem, obj)
		elems := make([]Cell, n)
		for i := 0; i < n; i++ {
			elems[i] = QuotationElementAt(vm.Mem, obj, i)
		}
		return elems
	}
	return []Cell{obj}
}

// combCompose: ( p q -- pq ), builds a quotation equivalent to running
// p then q. Like combCurry above, this object model carries no
// distinct composed-callable type, so composition is realized by
// splicing p's and q's elements into one fresh quotation eagerly
// rather than allocating a two-slot composed object that dispatchCallable
// would need its own case for.
func combCompose(vm *VM) error {
	q, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	p, err := vm.CurrentContext.Pop()
	if err != nil {
		return err
	}
	elems := append(callableElements(vm, p), callableElements(vm, q)...)
	arr := vm.AllocArray(elems)
	composed := vm.AllocQuotation(arr, False)
	return vm.CurrentContext.Push(composed)
}
