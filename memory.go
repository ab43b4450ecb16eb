package factor

import "encoding/binary"

// Memory is the VM's flat, 32-bit linear address space: every heap
// region (nursery, aging halves, tenured, code) and every context
// segment is a window into the same []byte, addressed by byte offset.
//
// This mirrors how _examples/hagna-eforth/vm.go and
// _examples/unixdj-forego/forth/vm.go represent Forth memory (a
// []byte plus encoding/binary accessors) rather than Go pointers,
// because spec.md's GC walks raw object headers at arbitrary
// addresses and must be able to treat any Cell as a potential pointer
// without the Go garbage collector getting in the way.
type Memory struct {
	Bytes []byte
}

// NewMemory allocates a zeroed linear memory of the given size in bytes.
func NewMemory(size Cell) *Memory {
	return &Memory{Bytes: make([]byte, size)}
}

// GetCell reads a little-endian Cell at the given byte address.
func (m *Memory) GetCell(addr Cell) Cell {
	return Cell(binary.LittleEndian.Uint32(m.Bytes[addr : addr+4]))
}

// SetCell writes a little-endian Cell at the given byte address.
func (m *Memory) SetCell(addr Cell, v Cell) {
	binary.LittleEndian.PutUint32(m.Bytes[addr:addr+4], uint32(v))
}

// GetByte reads a single byte at the given address.
func (m *Memory) GetByte(addr Cell) byte { return m.Bytes[addr] }

// SetByte writes a single byte at the given address.
func (m *Memory) SetByte(addr Cell, v byte) { m.Bytes[addr] = v }

// Slice returns the raw bytes in [start, end), for bulk copies (string
// and byte-array payloads).
func (m *Memory) Slice(start, end Cell) []byte { return m.Bytes[start:end] }

// Zero clears [start, end) to zero bytes, used by typed allocators
// before writing a header (spec.md §3.9).
func (m *Memory) Zero(start, end Cell) {
	clear(m.Bytes[start:end])
}

// Poison overwrites [start, end) with a recognizable bit pattern, used
// by the bump allocator's defensive mode (spec.md §4.1) so that stray
// reads of freed nursery/aging space fail loudly instead of silently
// returning stale data.
func (m *Memory) Poison(start, end Cell) {
	const pattern = 0xbaadbaad
	addr := start
	for ; addr+4 <= end; addr += 4 {
		m.SetCell(addr, pattern)
	}
	for ; addr < end; addr++ {
		m.SetByte(addr, 0xba)
	}
}

// CopyCells copies n cells from src to dst within the same memory,
// used by compaction and by aging-to-tenured promotion. Regions may
// overlap.
func (m *Memory) CopyCells(dst, src, n Cell) {
	copy(m.Bytes[dst:dst+n*CellSize], m.Bytes[src:src+n*CellSize])
}
