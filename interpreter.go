package factor

// interpreter.go: the non-recursive trampoline (spec.md §4.7).
// Grounded on _examples/hagna-eforth and _examples/unixdj-forego's
// explicit-continuation inner loops, generalized from a single
// "next word" pointer to workqueue.go's typed WorkItem union, and on
// _examples/original_source/vm/interpreter.cpp and dispatch.cpp for
// the marker-word skipping rules.

// Run executes entry (a word or quotation) to completion, draining
// the work queue until empty. Any error that survives GeneralError's
// handler-delivery attempt (errors.go) is returned to the caller as
// fatal.
func (vm *VM) Run(entry Cell) error {
	vm.WorkQueue.Push(CallCallable{Obj: entry})
	for {
		item, ok := vm.WorkQueue.Pop()
		if !ok {
			return nil
		}
		if err := vm.step(item); err != nil {
			if verr, isVMErr := err.(*VMError); isVMErr && !verr.Fatal {
				if handled := vm.GeneralError(verr.Kind, verr.Arg1, verr.Arg2); handled != nil {
					return handled
				}
				continue
			}
			return err
		}
	}
}

// step executes a single WorkItem, pushing whatever follow-up items
// it implies.
func (vm *VM) step(item WorkItem) error {
	vm.traceStep(item)
	switch w := item.(type) {
	case CallCallable:
		return vm.dispatchCallable(w.Obj)

	case ExecuteWord:
		return vm.executeWord(w.Word)

	case QuotationContinue:
		return vm.continueQuotation(w.Quot, w.Idx)

	case PushValue:
		return vm.CurrentContext.Push(w.Value)

	case RestoreValues:
		values := make([]Cell, w.Count)
		for i := 0; i < w.Count; i++ {
			v, err := vm.CurrentContext.PopRetain()
			if err != nil {
				return err
			}
			values[i] = v
		}
		for i := len(values) - 1; i >= 0; i-- {
			if err := vm.CurrentContext.Push(values[i]); err != nil {
				return err
			}
		}
		return nil

	case LoopContinue:
		flag, err := vm.CurrentContext.Pop()
		if err != nil {
			return err
		}
		if ToBoolean(flag) {
			vm.WorkQueue.Push(LoopContinue{Body: w.Body})
			vm.WorkQueue.Push(CallCallable{Obj: w.Body})
		}
		return nil

	case WhileContinue:
		cond, err := vm.CurrentContext.Pop()
		if err != nil {
			return err
		}
		if ToBoolean(cond) {
			vm.WorkQueue.Push(WhileContinue{Pred: w.Pred, Body: w.Body})
			vm.WorkQueue.Push(CallCallable{Obj: w.Pred})
			vm.WorkQueue.Push(CallCallable{Obj: w.Body})
		}
		return nil

	default:
		return &VMError{Kind: ErrorKind_TYPE, Fatal: true, Msg: "unknown work item"}
	}
}

// dispatchCallable classifies a generic callable value (anything
// `call` or a combinator might invoke) and schedules the right next
// step.
func (vm *VM) dispatchCallable(obj Cell) error {
	if !IsObjectPtr(obj) {
		return vm.TypeError(TypeQuotation, obj)
	}
	h := vm.Mem.GetCell(Untag(obj))
	switch HeaderType(h) {
	case TypeQuotation:
		vm.WorkQueue.Push(QuotationContinue{Quot: obj, Idx: 0})
		vm.Stats.QuotationsWalked++
		return nil
	case TypeWord:
		vm.WorkQueue.Push(ExecuteWord{Word: obj})
		return nil
	case TypeWrapper:
		// A wrapper unwraps once and calls its object -- calling a
		// wrapped word or quotation dispatches the wrapped value itself
		// rather than raising a type error.
		return vm.dispatchCallable(GetSlot(vm.Mem, Untag(obj), WrapperObj))
	default:
		return vm.TypeError(TypeQuotation, obj)
	}
}

// executeWord resolves word's handler id (cached after the first
// call) and either runs its primitive/combinator handler or, if it
// has none, schedules its definition quotation as a nested call
// (spec.md §4.8).
func (vm *VM) executeWord(word Cell) error {
	vm.Stats.WordsExecuted++
	id, kind, ok := vm.ResolveHandlerID(word)
	if !ok {
		def := WordDefinition(vm.Mem, word)
		if !ToBoolean(def) {
			return vm.UndefinedSymbolError(word)
		}
		vm.WorkQueue.Push(CallCallable{Obj: def})
		return nil
	}
	switch kind {
	case handlerKindPrimitive:
		vm.Stats.PrimitivesRun++
		return primitiveTable[id](vm)
	case handlerKindInterpreterOnly:
		return interpreterOnlyTable[id](vm)
	}
	return nil
}

// continueQuotation walks a quotation's elements array starting at
// idx, handling the do-primitive and declare marker words inline
// (spec.md §4.7: a compiled quotation interleaves ordinary elements
// with these two marker kinds, which the walker must recognize and
// skip rather than push or execute).
func (vm *VM) continueQuotation(quot Cell, idx int) error {
	n := QuotationLength(vm.Mem, quot)
	if idx >= n {
		return nil
	}
	elem := QuotationElementAt(vm.Mem, quot, idx)

	// The two lookahead patterns spec.md §4.7 describes both name the
	// *current* element (a byte-array or an array) plus the marker
	// word one slot further on -- never the marker word alone -- so
	// both checks must peek at idx+1, not classify idx in isolation.
	if idx+1 < n {
		next := QuotationElementAt(vm.Mem, quot, idx+1)
		if IsObjectPtr(elem) && HeaderType(vm.Mem.GetCell(Untag(elem))) == TypeByteArray && IsDoPrimitiveMarker(&vm.SpecialObjects, next) {
			name := ReadFactorString(vm.Mem, Untag(elem))
			vm.WorkQueue.Push(QuotationContinue{Quot: quot, Idx: idx + 2})
			return vm.DispatchNamedPrimitive(name)
		}
		if IsObjectPtr(elem) && HeaderType(vm.Mem.GetCell(Untag(elem))) == TypeArray && IsDeclareMarker(&vm.SpecialObjects, next) {
			vm.WorkQueue.Push(QuotationContinue{Quot: quot, Idx: idx + 2})
			return nil
		}
	}

	switch ClassifyElement(vm.Mem, elem) {
	case ElementWord:
		vm.WorkQueue.Push(QuotationContinue{Quot: quot, Idx: idx + 1})
		vm.WorkQueue.Push(ExecuteWord{Word: elem})
		return nil
	case ElementWrapper:
		// A wrapper unwraps once and pushes its content, so a word or
		// quotation carried as data inside another quotation's body
		// never gets executed just because the walker reached it.
		inner := GetSlot(vm.Mem, Untag(elem), WrapperObj)
		if err := vm.CurrentContext.Push(inner); err != nil {
			return err
		}
		vm.WorkQueue.Push(QuotationContinue{Quot: quot, Idx: idx + 1})
		return nil
	default: // ElementLiteral, ElementQuotation: push as data, don't execute
		if err := vm.CurrentContext.Push(elem); err != nil {
			return err
		}
		vm.WorkQueue.Push(QuotationContinue{Quot: quot, Idx: idx + 1})
		return nil
	}
}
