package factor

// A Cell is the VM's uniform, machine-word-sized value. On this target
// (32-bit linear-memory WebAssembly) a cell is a uint32: either an
// immediate value or the cell-aligned address of a heap object with its
// low TagBits OR-ed in.
//
// Grounded on _examples/original_source/vm's "cell" typedef and tag
// scheme (TAG/RETAG macros in the real VM headers), simplified to a
// 3-bit tag matching the data alignment chosen below.
type Cell uint32

const (
	// TagBits is the number of low bits of a Cell used as a type tag.
	// DataAlignment (8 bytes) guarantees heap addresses have these bits
	// clear, so tags never collide with an address (invariant H-3).
	TagBits  = 3
	TagMask  = Cell(1<<TagBits - 1)
	TagCount = 1 << TagBits
)

// The closed set of immediate/heap-pointer tags (spec.md §3.1).
const (
	TagFixnum Cell = 0 // untagged value in Cell>>TagBits is a signed fixnum
	TagObject Cell = 1 // untagged address is a heap object; header gives its type
	TagFalse  Cell = 2 // the singleton `false`; only valid cell value with this tag is TagFalse itself
	TagNull   Cell = 3 // the null/absent marker; only valid cell value with this tag is TagNull itself
	// Tags 4-7 are reserved and unused by this VM.
)

// False and Null are the two distinguished immediate singletons
// (spec.md §3.1).
const (
	False = Cell(TagFalse)
	Null  = Cell(TagNull)
)

// DataAlignment is the minimum alignment of any heap object's address
// (invariant H-3: "a small power of two, >= 2 x cell size").
const DataAlignment = 8

// CellSize is the size in bytes of one Cell on this target.
const CellSize = 4

// Align rounds n up to the next multiple of DataAlignment.
func Align(n Cell) Cell {
	return (n + DataAlignment - 1) &^ (DataAlignment - 1)
}

// Tag extracts the low TagBits of c.
func Tag(c Cell) Cell { return c & TagMask }

// Untag clears the tag bits. For an object pointer the result is the
// heap address; a fixnum's payload is read with UntagFixnum instead.
func Untag(c Cell) Cell { return c &^ TagMask }

// TagObjectPtr tags a cell-aligned heap address as an object pointer.
// Panics if addr is not aligned, since that would violate invariant H-3.
func TagObjectPtr(addr Cell) Cell {
	if addr&TagMask != 0 {
		panic("factor: TagObjectPtr: address is not cell-aligned")
	}
	return addr | TagObject
}

// IsImmediate reports whether c carries its entire value inline
// (fixnum, false, or null) rather than pointing into the heap.
func IsImmediate(c Cell) bool {
	t := Tag(c)
	return t == TagFixnum || c == False || c == Null
}

// IsObjectPtr reports whether c is a tagged pointer into the data heap.
func IsObjectPtr(c Cell) bool {
	return Tag(c) == TagObject
}

// ToBoolean implements Factor's "everything but false is true" rule.
func ToBoolean(c Cell) bool { return c != False }

// BoolCell converts a Go bool to the canonical false/true cells. True is
// represented by whatever lives in SpecialObjects[SOCanonicalTrue],
// which the caller passes in as trueObject.
func BoolCell(b bool, trueObject Cell) Cell {
	if b {
		return trueObject
	}
	return False
}

// FixnumBits is the number of usable bits in a fixnum payload.
const FixnumBits = 32 - TagBits

// MaxFixnum and MinFixnum bound the signed range a fixnum can hold
// before T-2 requires overflow to promote to a bignum.
const (
	MaxFixnum = int32(1)<<(FixnumBits-1) - 1
	MinFixnum = -(int32(1) << (FixnumBits - 1))
)

// TagFixnumVal packs a signed integer already known to be in fixnum
// range into a tagged Cell.
func TagFixnumVal(n int32) Cell {
	return Cell(uint32(n)<<TagBits) | TagFixnum
}

// UntagFixnum extracts the signed payload of a fixnum-tagged cell.
// Callers must check Tag(c) == TagFixnum first.
func UntagFixnum(c Cell) int32 {
	return int32(c) >> TagBits
}

// FixnumFits reports whether n can be represented as a fixnum without
// overflow, per invariant T-2.
func FixnumFits(n int64) bool {
	return n >= int64(MinFixnum) && n <= int64(MaxFixnum)
}
