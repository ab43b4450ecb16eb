package factor

import "testing"

// buildQuotation allocates an elements array from elems and wraps it
// in a Quotation object, the shape continueQuotation walks.
func buildQuotation(vm *VM, elems []Cell) Cell {
	arr := vm.AllocArray(elems)
	return vm.AllocQuotation(arr, False)
}

func Test_Interpreter_Run_PushesLiterals(t *testing.T) {
	vm, _ := newTestVM(t)
	quot := buildQuotation(vm, []Cell{TagFixnumVal(1), TagFixnumVal(2), TagFixnumVal(3)})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 3)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 2)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 1)
}

func Test_Interpreter_Run_ExecutesWord(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	quot := buildQuotation(vm, []Cell{TagFixnumVal(41), dup})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 41)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 41)
}

// Test_Interpreter_DoPrimitiveMarker_Dispatches builds a quotation
// containing the literal-fixnum/byte-array-name/marker pattern
// spec.md §4.7 describes and checks the named primitive actually
// runs, guarding against the marker-lookahead regression fixed in
// continueQuotation (it must peek at idx+1 for the marker, not
// classify idx in isolation).
func Test_Interpreter_DoPrimitiveMarker_Dispatches(t *testing.T) {
	vm, _ := newTestVM(t)
	marker := vm.SpecialObjects[SODoPrimitiveWord]
	name := byteArrayLiteral(vm, "<byte-array>")
	quot := buildQuotation(vm, []Cell{TagFixnumVal(3), name, marker})

	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := mustPop(t, vm.CurrentContext)
	addr := wantObjectType(t, vm.Mem, result, TypeByteArray)
	if got := ArrayCapacity(vm.Mem, addr); got != 3 {
		t.Fatalf("<byte-array> capacity = %d, want 3", got)
	}
	if !vm.CurrentContext.DataStack.EmptyP() {
		t.Fatal("the byte-array name literal must not itself be pushed")
	}
}

func Test_Interpreter_DeclareMarker_SkipsBoth(t *testing.T) {
	vm, _ := newTestVM(t)
	marker := vm.SpecialObjects[SODeclareWord]
	hints := vm.AllocArray([]Cell{False})
	quot := buildQuotation(vm, []Cell{TagFixnumVal(9), hints, marker})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 9)
	if !vm.CurrentContext.DataStack.EmptyP() {
		t.Fatal("the declare hints array must not be pushed")
	}
}

// Test_Interpreter_WrapperLiteral_PushesUnwrapped checks that a
// Wrapper embedded in a quotation body is unwrapped and its content
// pushed as data, rather than being pushed as the wrapper object
// itself or executed (quotations.go's ElementWrapper case).
func Test_Interpreter_WrapperLiteral_PushesUnwrapped(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	wrapped := vm.AllocWrapper(dup)
	quot := buildQuotation(vm, []Cell{wrapped})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !vm.CurrentContext.DataStack.EmptyP() {
		got := mustPop(t, vm.CurrentContext)
		if got != dup {
			t.Fatalf("wrapper content = 0x%x, want the wrapped word 0x%x", got, dup)
		}
	} else {
		t.Fatal("wrapper literal pushed nothing")
	}
	if !vm.CurrentContext.DataStack.EmptyP() {
		t.Fatal("dup must not have executed -- only its wrapper's content should be pushed")
	}
}

// Test_Interpreter_CallWrapper_DispatchesWrappedObject checks that
// calling a wrapper (dispatchCallable's TypeWrapper case) unwraps once
// and dispatches the wrapped word, instead of raising a type error.
func Test_Interpreter_CallWrapper_DispatchesWrappedObject(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	wrapped := vm.AllocWrapper(dup)
	mustPush(t, vm.CurrentContext, TagFixnumVal(7))
	if err := vm.Run(wrapped); err != nil {
		t.Fatalf("Run(wrapper): %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 7)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 7)
}

func Test_Interpreter_UndefinedWord_RaisesError(t *testing.T) {
	vm, _ := newTestVM(t)
	bogus := vm.AllocWord("this-word-has-no-definition")
	quot := buildQuotation(vm, []Cell{bogus})
	err := vm.Run(quot)
	if err == nil {
		t.Fatal("expected an undefined-symbol error")
	}
	verr, ok := err.(*VMError)
	if !ok || verr.Kind != ErrorKind_UNDEFINED_SYMBOL {
		t.Fatalf("got %v, want ErrorKind_UNDEFINED_SYMBOL", err)
	}
}
