package factor

import "testing"

func Test_Cell_TagFixnumVal_RoundTrip(t *testing.T) {
	for _, n := range []int32{0, 1, -1, MaxFixnum, MinFixnum, 12345, -98765} {
		c := TagFixnumVal(n)
		if Tag(c) != TagFixnum {
			t.Fatalf("TagFixnumVal(%d): tag = %d, want TagFixnum", n, Tag(c))
		}
		if got := UntagFixnum(c); got != n {
			t.Fatalf("UntagFixnum(TagFixnumVal(%d)) = %d", n, got)
		}
	}
}

func Test_Cell_TagObjectPtr_Untag(t *testing.T) {
	addr := Cell(DataAlignment * 5)
	c := TagObjectPtr(addr)
	if !IsObjectPtr(c) {
		t.Fatalf("TagObjectPtr(%d) is not an object pointer: 0x%x", addr, c)
	}
	if got := Untag(c); got != addr {
		t.Fatalf("Untag(TagObjectPtr(%d)) = %d", addr, got)
	}
}

func Test_Cell_TagObjectPtr_PanicsOnMisalignedAddress(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic tagging a misaligned address")
		}
	}()
	TagObjectPtr(3)
}

func Test_Cell_ToBoolean(t *testing.T) {
	if ToBoolean(False) {
		t.Fatal("False must be falsy")
	}
	if !ToBoolean(Null) {
		t.Fatal("Null is not False, so it must be truthy per the everything-but-false rule")
	}
	if !ToBoolean(TagFixnumVal(0)) {
		t.Fatal("fixnum zero must be truthy per the everything-but-false rule")
	}
}

func Test_Cell_FixnumFits(t *testing.T) {
	if !FixnumFits(int64(MaxFixnum)) || !FixnumFits(int64(MinFixnum)) {
		t.Fatal("fixnum bounds must fit")
	}
	if FixnumFits(int64(MaxFixnum) + 1) {
		t.Fatal("MaxFixnum+1 must overflow")
	}
	if FixnumFits(int64(MinFixnum) - 1) {
		t.Fatal("MinFixnum-1 must overflow")
	}
}

func Test_Cell_IsImmediate(t *testing.T) {
	if !IsImmediate(TagFixnumVal(7)) || !IsImmediate(False) || !IsImmediate(Null) {
		t.Fatal("fixnum/false/null must all be immediate")
	}
	if IsImmediate(TagObjectPtr(DataAlignment)) {
		t.Fatal("an object pointer must not be immediate")
	}
}
