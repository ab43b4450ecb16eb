package factor

// ObjectStartMap is a per-card index of object boundaries in a
// tenured or aging region (spec.md §3.3, §4.1): card i's byte holds
// either the offset within the card of the first object that begins
// inside it, or objectStartNone if the first object covering this
// card actually began in an earlier card.
type ObjectStartMap struct {
	regionStart Cell
	bytes       []byte
}

const objectStartNone = 0xFF

// NewObjectStartMap creates a map covering size bytes starting at
// regionStart, one byte per CardSize-sized card.
func NewObjectStartMap(regionStart, size Cell) *ObjectStartMap {
	m := &ObjectStartMap{regionStart: regionStart, bytes: make([]byte, (size+CardSize-1)/CardSize)}
	for i := range m.bytes {
		m.bytes[i] = objectStartNone
	}
	return m
}

func (m *ObjectStartMap) cardIndex(addr Cell) int {
	return int((addr - m.regionStart) / CardSize)
}

// RecordObjectStartOffset records that an object begins at obj, but
// only if no earlier object has already claimed that card (spec.md
// §4.1).
func (m *ObjectStartMap) RecordObjectStartOffset(obj Cell) {
	i := m.cardIndex(obj)
	if i < 0 || i >= len(m.bytes) {
		return
	}
	if m.bytes[i] != objectStartNone {
		return
	}
	m.bytes[i] = byte((obj - m.regionStart) % CardSize)
}

// Reset clears the map back to "no object starts recorded anywhere",
// used before UpdateForSweep rebuilds it from scratch.
func (m *ObjectStartMap) Reset() {
	for i := range m.bytes {
		m.bytes[i] = objectStartNone
	}
}

// UpdateForSweep recomputes the map from the live objects in
// [start, end) of the given free-list heap, called once per full
// collection's sweep phase (spec.md §4.1).
func (m *ObjectStartMap) UpdateForSweep(f *FreeListAllocator, start, end Cell) {
	m.Reset()
	addr := start
	for addr < end {
		if f.Mark.MarkedP(addr) {
			m.RecordObjectStartOffset(addr)
			addr += ObjectSize(f.mem, addr)
		} else {
			addr += f.Mark.UnmarkedBlockSize(addr)
		}
	}
}

// FindObjectContainingCard scans backwards from cardIndex until it
// finds a card whose recorded offset is not objectStartNone, then
// walks forward object-by-object to the address of the object that
// overlaps cardIndex's card (spec.md §4.1).
func (m *ObjectStartMap) FindObjectContainingCard(mem *Memory, cardIndex int) Cell {
	i := cardIndex
	for i >= 0 && m.bytes[i] == objectStartNone {
		i--
	}
	if i < 0 {
		return m.regionStart
	}
	addr := m.regionStart + Cell(i)*CardSize + Cell(m.bytes[i])
	target := m.regionStart + Cell(cardIndex)*CardSize
	for addr+ObjectSize(mem, addr) <= target {
		addr += ObjectSize(mem, addr)
	}
	return addr
}
