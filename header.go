package factor

// Object headers and per-type layout rules (spec.md §3.2).
//
// Every heap object begins with a header Cell written at its address.
// The header is metadata, not a tagged value: it is read by untagged
// address, never pushed onto a stack. Grounded on
// _examples/original_source/vm's object::header encoding (a type code
// plus free/forwarding bits packed into one cell).

// TypeCode is the closed enumeration of heap object kinds.
type TypeCode uint8

const (
	TypeArray TypeCode = iota
	TypeByteArray
	TypeString
	TypeBignum
	TypeFloat
	TypeWord
	TypeQuotation
	TypeTuple
	TypeWrapper
	TypeAlien
	TypeCallstack
	TypeDLL
	typeCodeCount
)

func (t TypeCode) String() string {
	switch t {
	case TypeArray:
		return "array"
	case TypeByteArray:
		return "byte-array"
	case TypeString:
		return "string"
	case TypeBignum:
		return "bignum"
	case TypeFloat:
		return "float"
	case TypeWord:
		return "word"
	case TypeQuotation:
		return "quotation"
	case TypeTuple:
		return "tuple"
	case TypeWrapper:
		return "wrapper"
	case TypeAlien:
		return "alien"
	case TypeCallstack:
		return "callstack"
	case TypeDLL:
		return "dll"
	default:
		return "invalid-type"
	}
}

// Header bit layout:
//
//	bits [0,6)   type code (up to 64 types; typeCodeCount fits easily)
//	bit  6       free bit: set only while the block sits on a tenured
//	             or code-heap free list
//	bit  7       forwarding bit: set during a copying collection while
//	             the rest of the header cell's high bits hold the
//	             forwarding address shifted by headerForwardAddrShift
//	bits [8,32)  forwarding address payload (only meaningful when the
//	             forwarding bit is set) or, for free blocks, the block
//	             size in cells.
const (
	headerTypeMask        = Cell(0x3F)
	headerFreeBit         = Cell(1 << 6)
	headerForwardBit      = Cell(1 << 7)
	headerForwardAddrShift = 8
)

// MakeHeader builds a fresh, non-free, non-forwarded header cell for t.
func MakeHeader(t TypeCode) Cell {
	return Cell(t) & headerTypeMask
}

// HeaderType decodes the type code from a header cell.
func HeaderType(h Cell) TypeCode {
	return TypeCode(h & headerTypeMask)
}

// HeaderFreeP reports whether the free bit is set (invariant H-2: only
// valid inside tenured and code heaps).
func HeaderFreeP(h Cell) bool { return h&headerFreeBit != 0 }

// HeaderForwardedP reports whether h is a forwarding pointer left
// behind by a copying collection.
func HeaderForwardedP(h Cell) bool { return h&headerForwardBit != 0 }

// MakeForwardHeader builds a header that marks an evacuated object and
// records the new address it was copied to.
func MakeForwardHeader(newAddr Cell) Cell {
	return headerForwardBit | (newAddr >> TagBits << headerForwardAddrShift)
}

// ForwardAddr extracts the address a forwarding header points to.
// Callers must check HeaderForwardedP first.
func ForwardAddr(h Cell) Cell {
	return (h >> headerForwardAddrShift) << TagBits
}

// MakeFreeHeader builds a header for a tenured/code-heap free block of
// the given size in cells.
func MakeFreeHeader(sizeInCells Cell) Cell {
	return headerFreeBit | (sizeInCells << headerForwardAddrShift)
}

// FreeBlockSize extracts the size (in cells) of a free block's header.
// Callers must check HeaderFreeP first.
func FreeBlockSize(h Cell) Cell {
	return h >> headerForwardAddrShift
}

// HeaderValidP reports whether h decodes to a known, non-free type
// code. Used by invariant checks (H-2) and by the full collector's
// sweep/mark validation.
func HeaderValidP(h Cell) bool {
	return !HeaderFreeP(h) && !HeaderForwardedP(h) && HeaderType(h) < typeCodeCount
}
