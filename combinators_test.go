package factor

import "testing"

// wordQuot builds a one-element quotation that just calls word,
// convenient for combinator tests that need a callable but don't care
// about its body beyond "executes this word".
func wordQuot(vm *VM, word Cell) Cell {
	return buildQuotation(vm, []Cell{word})
}

func Test_Combinators_Execute_RunsWord(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	quot := buildQuotation(vm, []Cell{TagFixnumVal(5), vm.AllocWrapper(dup), vocab["execute"]})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 5)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 5)
}

func Test_Combinators_3Dip_HidesThreeValues(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	inner := wordQuot(vm, dup)
	quot := buildQuotation(vm, []Cell{
		TagFixnumVal(1), TagFixnumVal(2), TagFixnumVal(3), TagFixnumVal(99), inner, vocab["3dip"],
	})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 3dip hides the top three values (2, 3, 99) beneath dup's run on
	// the remaining 1, then restores them on top in their original
	// relative order: [1 1 2 3 99].
	wantFixnum(t, mustPop(t, vm.CurrentContext), 99)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 3)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 2)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 1)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 1)
}

func Test_Combinators_2Keep_RestoresBothValues(t *testing.T) {
	vm, vocab := newTestVM(t)
	addWord, ok := vocab["+"]
	if !ok {
		t.Skip("teacher vocabulary has no + word")
	}
	inner := wordQuot(vm, addWord)
	quot := buildQuotation(vm, []Cell{TagFixnumVal(3), TagFixnumVal(4), inner, vocab["2keep"]})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 4)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 3)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 7)
}

func Test_Combinators_BiStar_AppliesEachQuotToItsOwnValue(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	p := wordQuot(vm, dup)
	q := wordQuot(vm, dup)
	quot := buildQuotation(vm, []Cell{TagFixnumVal(1), TagFixnumVal(2), p, q, vocab["bi*"]})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 2)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 2)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 1)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 1)
}

func Test_Combinators_Tri_AppliesThreeQuotsToOneValue(t *testing.T) {
	vm, vocab := newTestVM(t)
	dropWord, ok := vocab["drop"]
	if !ok {
		t.Skip("teacher vocabulary has no drop word")
	}
	p := buildQuotation(vm, []Cell{dropWord, TagFixnumVal(10)})
	q := buildQuotation(vm, []Cell{dropWord, TagFixnumVal(20)})
	r := buildQuotation(vm, []Cell{dropWord, TagFixnumVal(30)})
	quot := buildQuotation(vm, []Cell{TagFixnumVal(5), p, q, r, vocab["tri"]})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 30)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 20)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 10)
}

func Test_Combinators_CallEffect_DropsTrailingEffectLiteral(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	inner := wordQuot(vm, dup)
	effect := vm.AllocArray([]Cell{})
	quot := buildQuotation(vm, []Cell{TagFixnumVal(6), inner, effect, vocab["call-effect"]})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 6)
	wantFixnum(t, mustPop(t, vm.CurrentContext), 6)
}

// Test_Combinators_Compose_SplicesTwoQuotations checks that compose
// builds a single quotation equivalent to running p then q, rather
// than requiring a distinct composed-callable object type
// (combinators.go's callableElements/combCompose).
func Test_Combinators_Compose_SplicesTwoQuotations(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	addWord, ok := vocab["+"]
	if !ok {
		t.Skip("teacher vocabulary has no + word")
	}
	p := wordQuot(vm, dup)
	q := wordQuot(vm, addWord)
	quot := buildQuotation(vm, []Cell{TagFixnumVal(4), p, q, vocab["compose"], vocab["call"]})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 8)
	if !vm.CurrentContext.DataStack.EmptyP() {
		t.Fatal("compose must not leave extra values on the stack")
	}
}

// Test_Combinators_Compose_SplicesBareWords checks compose also
// accepts a bare word (not itself a quotation) as either operand,
// via callableElements' single-element fallback.
func Test_Combinators_Compose_SplicesBareWords(t *testing.T) {
	vm, vocab := newTestVM(t)
	dup, ok := vocab["dup"]
	if !ok {
		t.Skip("teacher vocabulary has no dup word")
	}
	addWord, ok := vocab["+"]
	if !ok {
		t.Skip("teacher vocabulary has no + word")
	}
	quot := buildQuotation(vm, []Cell{TagFixnumVal(10), vm.AllocWrapper(dup), vm.AllocWrapper(addWord), vocab["compose"], vocab["call"]})
	if err := vm.Run(quot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantFixnum(t, mustPop(t, vm.CurrentContext), 20)
}
