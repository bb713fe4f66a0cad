package bus

// DefaultMMIOBase is the address at which the uncacheable MMIO region
// begins when no override is configured (spec §6 address map).
const DefaultMMIOBase uint32 = 0x20000000

// IsMMIO reports whether addr lies at or above the given MMIO boundary.
// The boundary is a parameter (rather than the hard-coded
// DefaultMMIOBase) so callers can honor spec.md §9 open question (b):
// the boundary may be relocated as long as a single contiguous high
// region remains uncacheable.
func IsMMIO(addr, mmioBase uint32) bool {
	return addr >= mmioBase
}

// MMIOResponder lets a test (or a real peripheral model) supply canned
// read responses for successive accesses to the same MMIO address,
// modeling side-effect-bearing registers such as a UART RX FIFO or a
// status register that changes on every read.
type MMIOResponder interface {
	// ReadMMIO returns the word a read of addr should observe this
	// access. Each call consumes one access; side effects (e.g.
	// draining a FIFO) belong to the implementation.
	ReadMMIO(addr uint32) uint32
	// WriteMMIO commits a byte-strobed write to addr.
	WriteMMIO(addr uint32, data uint32, strb uint8)
}

// SequenceMMIO is an MMIOResponder that returns a fixed sequence of
// values for reads to a single address, repeating the final value once
// exhausted. It is built for tests that need "successive accesses
// return different values" (spec.md §8 scenario 4) without a real
// peripheral model.
type SequenceMMIO struct {
	Addr   uint32
	Values []uint32

	next   int
	writes []mmioWrite
}

type mmioWrite struct {
	Addr uint32
	Data uint32
	Strb uint8
}

// ReadMMIO implements MMIOResponder.
func (m *SequenceMMIO) ReadMMIO(addr uint32) uint32 {
	if addr != m.Addr || len(m.Values) == 0 {
		return 0
	}
	v := m.Values[m.next]
	if m.next < len(m.Values)-1 {
		m.next++
	}
	return v
}

// WriteMMIO implements MMIOResponder, recording the write for inspection.
func (m *SequenceMMIO) WriteMMIO(addr uint32, data uint32, strb uint8) {
	m.writes = append(m.writes, mmioWrite{Addr: addr, Data: data, Strb: strb})
}

// Writes returns the number of writes observed so far.
func (m *SequenceMMIO) Writes() int {
	return len(m.writes)
}
