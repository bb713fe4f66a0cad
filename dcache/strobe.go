package dcache

import "github.com/sarchlab/rv32memsys/cpu"

// Strobe computes the 4-bit WSTRB value for a store of the given width at
// the given byte offset within a word, per the table in spec.md §4.4.
// Mis-aligned half/word stores are undefined and are not handled here; the
// producing pipeline must never issue them.
func Strobe(f3 cpu.Func3, byteOffset uint32) uint8 {
	switch f3 {
	case cpu.Func3Byte:
		return 1 << byteOffset
	case cpu.Func3Half:
		return 0x3 << byteOffset
	case cpu.Func3Word:
		return 0xF
	}
	return 0
}
