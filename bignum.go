package factor

import (
	"math/big"
	"os"
)

// bignum.go: arbitrary-precision integers are an explicit Non-goal of
// the object model itself (spec.md §1: "the numeric tower above
// fixnum is out of scope"); this file is the delegated collaborator
// that lets fixnum arithmetic overflow *somewhere* sane instead of
// wrapping silently. math/big does the actual arbitrary-precision
// work; this file only knows how to freeze/thaw a *big.Int into the
// heap's Bignum object shape (sign byte + big-endian magnitude,
// spec.md §3.2).
//
// Grounded on object.go's TypeBignum sizing formula
// (Align(2*CellSize+cap)); the capacity slot holds 1 + len(magnitude).

// AllocBignum freezes n into a newly allocated Bignum object in the
// nursery and returns its tagged pointer. Callers that might trigger
// GC across this call must have already registered any other live
// roots on vm.DataRoots.
func (vm *VM) AllocBignum(n *big.Int) Cell {
	mag := n.Bytes()
	size := Align(2*CellSize + Cell(1+len(mag)))
	if err := vm.GC.EnsureNurseryRoom(size); err != nil {
		FatalError(vm.stderr(), vm, "out of memory allocating bignum", False)
		os.Exit(1)
	}
	addr := vm.Heap.Nursery.Allot(size)
	vm.Mem.SetCell(addr, MakeHeader(TypeBignum))
	vm.Mem.SetCell(addr+CellSize, TagFixnumVal(int32(1+len(mag))))
	sign := byte(0)
	if n.Sign() < 0 {
		sign = 1
	}
	vm.Mem.SetByte(addr+2*CellSize, sign)
	for i, b := range mag {
		vm.Mem.SetByte(addr+2*CellSize+1+Cell(i), b)
	}
	return TagObjectPtr(addr)
}

// ReadBignum thaws a Bignum object back into a *big.Int.
func ReadBignum(mem *Memory, addr Cell) *big.Int {
	cap := ArrayCapacity(mem, addr)
	sign := mem.GetByte(addr + 2*CellSize)
	mag := make([]byte, cap-1)
	for i := range mag {
		mag[i] = mem.GetByte(addr + 2*CellSize + 1 + Cell(i))
	}
	n := new(big.Int).SetBytes(mag)
	if sign == 1 {
		n.Neg(n)
	}
	return n
}

// ToBigInt widens any numeric tagged value (fixnum or bignum) to a
// *big.Int, the common type arithmetic primitives promote to on
// overflow or mixed operands.
func ToBigInt(mem *Memory, v Cell) *big.Int {
	if Tag(v) == TagFixnum {
		return big.NewInt(int64(UntagFixnum(v)))
	}
	return ReadBignum(mem, Untag(v))
}

// NarrowBigInt produces a fixnum-tagged Cell if n fits, otherwise
// allocates a Bignum object.
func (vm *VM) NarrowBigInt(n *big.Int) Cell {
	if n.IsInt64() {
		i := n.Int64()
		if FixnumFits(i) {
			return TagFixnumVal(int32(i))
		}
	}
	return vm.AllocBignum(n)
}
