// Package bus models the five-channel single-beat handshake protocol that
// connects each cache controller to its downstream memory slave: AR/R for
// reads, AW/W/B for writes.
package bus

// RespCode is the two-bit response code carried on R and B.
type RespCode uint8

// Response codes. Only RespOKAY is ever produced by MemorySlave; the others
// exist so callers can express "not implemented" without inventing a
// different type.
const (
	RespOKAY RespCode = iota
	RespEXOKAY
	RespSLVERR
	RespDECERR
)

// ARRequest is the read-address channel, driven by a bus master.
type ARRequest struct {
	Valid bool
	Addr  uint32
}

// RResponse is the read-data channel, driven by a bus slave.
type RResponse struct {
	Valid bool
	Data  uint32
	Resp  RespCode
}

// AWRequest is the write-address channel, driven by a bus master.
type AWRequest struct {
	Valid bool
	Addr  uint32
}

// WRequest is the write-data channel, driven by a bus master.
// Strb is a 4-bit per-byte write mask: bit i set means byte i of Data is
// written; bit i clear means byte i is preserved.
type WRequest struct {
	Valid bool
	Data  uint32
	Strb  uint8
}

// BResponse is the write-response channel, driven by a bus slave.
type BResponse struct {
	Valid bool
	Resp  RespCode
}

// MasterRequest bundles everything a bus master (a cache controller) drives
// toward its downstream (an arbiter or a slave) in a single cycle.
type MasterRequest struct {
	AR     ARRequest
	AW     AWRequest
	W      WRequest
	RReady bool
	BReady bool
}

// SlaveResponse bundles everything a bus slave drives back toward its
// upstream (an arbiter or a master) in a single cycle.
type SlaveResponse struct {
	ARReady bool
	AWReady bool
	WReady  bool
	R       RResponse
	B       BResponse
}

// ReadMasterRequest is the subset of MasterRequest a read-only master (the
// I-Cache) drives: it never asserts AW, W, or BReady (spec.md §4.5 ties
// those dead at the arbiter).
type ReadMasterRequest struct {
	AR     ARRequest
	RReady bool
}

// ReadSlaveResponse is the subset of SlaveResponse a read-only master
// observes.
type ReadSlaveResponse struct {
	ARReady bool
	R       RResponse
}

// Handshake reports whether a transfer occurs this cycle on a channel whose
// master asserts valid and whose slave asserts ready. This is the single
// primitive reused across all five channels (AR, R, AW, W, B); the channel
// being handshaked has no bearing on the rule itself.
func Handshake(valid, ready bool) bool {
	return valid && ready
}
