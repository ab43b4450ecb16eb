package factor

// Layout descriptors (spec.md §3.6, §4.7 "Method dispatch").
//
// A tuple's first slot points to a layout object rather than holding
// slots directly; the layout carries the class word, instance size,
// and echelon (depth in the class hierarchy) that method dispatch
// walks. Grounded on _examples/original_source/vm's tuple_layout and
// dispatch.cpp's nth_superclass/nth_hashcode accessors.

// Layout is the Go-side mirror of a heap-allocated layout object. It is
// itself addressable from the heap (Tuple.LayoutAddr points at one),
// but callers interact with it through the accessors below rather than
// raw slot math, matching the rest of this package's style.
type Layout struct {
	Addr        Cell     // heap address of this layout object
	ClassWord   Cell     // tagged word naming the class
	Size        int      // number of slots an instance of this class carries
	Echelon     int      // depth in the class hierarchy; 0 for root classes
	Superclass  []Cell   // superclass[e] = class cell at echelon e, for e <= Echelon
	Hashcode    []int    // hashcode[e] matching Superclass[e], used to index a hashed alist
}

// NthSuperclass returns the class cell recorded for the given echelon,
// mirroring dispatch.cpp's nth_superclass.
func (l *Layout) NthSuperclass(echelon int) Cell {
	if echelon < 0 || echelon >= len(l.Superclass) {
		return False
	}
	return l.Superclass[echelon]
}

// NthHashcode returns the hashcode recorded for the given echelon,
// mirroring dispatch.cpp's nth_hashcode.
func (l *Layout) NthHashcode(echelon int) int {
	if echelon < 0 || echelon >= len(l.Hashcode) {
		return 0
	}
	return l.Hashcode[echelon]
}
