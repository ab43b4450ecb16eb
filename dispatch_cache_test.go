package factor

import "testing"

// classLayout builds a minimal Layout array for a root class (echelon
// 0, no superclass pairs), enough for LookupMethod's trailing
// classWord fallback to find a method (dispatch_cache.go).
func classLayout(vm *VM, classWord Cell) Cell {
	return vm.AllocArray([]Cell{classWord, TagFixnumVal(0), TagFixnumVal(0)})
}

// defineGeneric drives the define-generic named primitive the way a
// quotation would: push the name, dispatch, pop the result.
func defineGeneric(t *testing.T, vm *VM, name string) Cell {
	t.Helper()
	mustPush(t, vm.CurrentContext, vm.AllocString(name))
	if err := vm.DispatchNamedPrimitive("define-generic"); err != nil {
		t.Fatalf("define-generic: %v", err)
	}
	return mustPop(t, vm.CurrentContext)
}

func defineMethod(t *testing.T, vm *VM, method, class, generic Cell) {
	t.Helper()
	mustPush(t, vm.CurrentContext, method)
	mustPush(t, vm.CurrentContext, class)
	mustPush(t, vm.CurrentContext, generic)
	if err := vm.DispatchNamedPrimitive("define-method"); err != nil {
		t.Fatalf("define-method: %v", err)
	}
}

// Test_MegaCacheLookup_DispatchesByClass defines a generic word "area"
// with distinct methods on two tuple classes and checks it dispatches
// to the right one, exercising the mega-cache-lookup path a generic
// word's own definition quotation drives (dispatch_cache.go's
// LookupMethod, combMegaCacheLookup).
func Test_MegaCacheLookup_DispatchesByClass(t *testing.T) {
	vm, vocab := newTestVM(t)
	dropWord, ok := vocab["drop"]
	if !ok {
		t.Skip("teacher vocabulary has no drop word")
	}

	classA := vm.AllocWord("class-a")
	classB := vm.AllocWord("class-b")
	layoutA := classLayout(vm, classA)
	layoutB := classLayout(vm, classB)
	tupleA := vm.AllocTuple(layoutA)
	tupleB := vm.AllocTuple(layoutB)

	generic := defineGeneric(t, vm, "area")

	methodA := buildQuotation(vm, []Cell{dropWord, TagFixnumVal(111)})
	methodB := buildQuotation(vm, []Cell{dropWord, TagFixnumVal(222)})
	defineMethod(t, vm, methodA, classA, generic)
	defineMethod(t, vm, methodB, classB, generic)

	mustPush(t, vm.CurrentContext, tupleA)
	if err := vm.Run(generic); err != nil {
		t.Fatalf("Run(generic) on A: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 111)

	mustPush(t, vm.CurrentContext, tupleB)
	if err := vm.Run(generic); err != nil {
		t.Fatalf("Run(generic) on B: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 222)

	mustPush(t, vm.CurrentContext, tupleA)
	if err := vm.Run(generic); err != nil {
		t.Fatalf("Run(generic) on A again: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 111)

	if vm.Stats.MegaCacheMisses != 2 {
		t.Fatalf("MegaCacheMisses = %d, want 2 (one per distinct class)", vm.Stats.MegaCacheMisses)
	}
	if vm.Stats.MegaCacheHits != 1 {
		t.Fatalf("MegaCacheHits = %d, want 1 (the repeat call on A)", vm.Stats.MegaCacheHits)
	}
}

// Test_MegaCacheLookup_UndefinedMethod checks that dispatching a
// generic word against a class with no installed method raises an
// undefined-symbol error rather than panicking or silently no-oping.
func Test_MegaCacheLookup_UndefinedMethod(t *testing.T) {
	vm, _ := newTestVM(t)
	classA := vm.AllocWord("class-a")
	layoutA := classLayout(vm, classA)
	tupleA := vm.AllocTuple(layoutA)

	generic := defineGeneric(t, vm, "area")
	mustPush(t, vm.CurrentContext, tupleA)
	if err := vm.Run(generic); err == nil {
		t.Fatal("Run(generic) with no method installed: want error, got nil")
	}
}
