// Package cacheline holds the cache geometry shared by the I-Cache and
// D-Cache (spec.md §3): both are direct-mapped, 256 sets, 16-byte (4-word)
// lines, and decompose a 32-bit address the same way.
package cacheline

const (
	// LineSize is the line size in bytes: 4 words.
	LineSize = 16
	// WordsPerLine is the number of words refilled per line.
	WordsPerLine = LineSize / 4
	// NumSets is the number of direct-mapped sets.
	NumSets = 256
	// IndexBits is the width of the set-index field.
	IndexBits = 8
)

// Index returns the 8-bit set-index field of a 32-bit address.
func Index(addr uint32) uint32 {
	return (addr >> 4) & 0xFF
}

// WordOffset returns the 2-bit in-line word offset of a 32-bit address.
func WordOffset(addr uint32) uint32 {
	return (addr >> 2) & 0x3
}

// ByteOffset returns the 2-bit in-word byte offset of a 32-bit address.
func ByteOffset(addr uint32) uint32 {
	return addr & 0x3
}

// LineBase returns the address of the first byte of the line containing
// addr, i.e. addr with the low 4 bits cleared.
func LineBase(addr uint32) uint32 {
	return addr &^ (LineSize - 1)
}
