package bus

// MemorySlave is a word-addressed backing store with one cycle of read
// latency and byte-strobe masked writes (spec.md §4.2). It always reports
// RespOKAY on both R and B; it has no concept of an error response.
//
// At most one read and one write may be outstanding at a time, which holds
// automatically in this design because each cache controller (the only
// masters, via the arbiter) issues at most one outstanding transaction.
type MemorySlave struct {
	words map[uint32]uint32

	// Registered state for the one-cycle read pipeline: a read that
	// handshakes on AR this cycle produces R.Valid the following cycle.
	pendingRead bool
	pendingWord uint32
	pendingAddr uint32

	// AW and W are accepted independently, as the spec allows (§4.4
	// "slaves that accept AW and W independently or together"): each
	// latches on its own handshake and the write commits as soon as both
	// halves are present, whichever cycle that happens to be.
	awLatched bool
	awAddr    uint32
	wLatched  bool
	wData     uint32
	wStrb     uint8

	// pendingWrite is set the cycle a write commits; B.Valid follows one
	// cycle later, consistent with the one-cycle response latency used
	// for reads.
	pendingWrite bool

	// mmio, when set, takes over reads and writes at or above mmioBase
	// instead of the words map, modeling a peripheral register rather
	// than plain memory.
	mmio     MMIOResponder
	mmioBase uint32
	hasMMIO  bool
}

// NewMemorySlave creates an empty memory slave. Unwritten words read as
// zero.
func NewMemorySlave() *MemorySlave {
	return &MemorySlave{words: make(map[uint32]uint32)}
}

// Preload sets the word at a byte address directly, for test fixture setup.
// addr must be word-aligned.
func (m *MemorySlave) Preload(addr uint32, word uint32) {
	m.words[addr>>2] = word
}

// PreloadBytes writes successive bytes starting at addr, read-modify-write
// per word, for test fixtures that specify memory as a byte sequence.
func (m *MemorySlave) PreloadBytes(addr uint32, data []byte) {
	for i, b := range data {
		a := addr + uint32(i)
		word := m.words[a>>2]
		shift := (a & 3) * 8
		word = (word &^ (0xFF << shift)) | uint32(b)<<shift
		m.words[a>>2] = word
	}
}

// ReadWord returns the word at a byte address, for test assertions.
func (m *MemorySlave) ReadWord(addr uint32) uint32 {
	return m.words[addr>>2]
}

// SetMMIO routes every access at or above mmioBase to responder instead of
// the words map, letting a test (or a real peripheral model) supply
// side-effecting reads and writes over the same one-word bus protocol.
func (m *MemorySlave) SetMMIO(mmioBase uint32, responder MMIOResponder) {
	m.mmio = responder
	m.mmioBase = mmioBase
	m.hasMMIO = true
}

// Respond computes this cycle's slave-side signals given the signals the
// arbiter is currently driving toward the slave. It is purely combinational:
// it reads only the slave's registered state and does not mutate it.
func (m *MemorySlave) Respond(req MasterRequest) SlaveResponse {
	resp := SlaveResponse{
		ARReady: true,
		AWReady: true,
		WReady:  true,
	}

	if m.pendingRead {
		resp.R = RResponse{Valid: true, Data: m.pendingWord, Resp: RespOKAY}
	}
	if m.pendingWrite {
		resp.B = BResponse{Valid: true, Resp: RespOKAY}
	}

	return resp
}

// Commit advances the slave's registered state given the request it was
// offered and the response it computed via Respond in the same cycle. It
// must be called exactly once per cycle, after every other component has
// observed this cycle's Respond output.
func (m *MemorySlave) Commit(req MasterRequest, resp SlaveResponse) {
	// Retire the read that was pending this cycle: R handshakes here iff
	// the master kept RReady asserted, which it must per the handshake
	// rules (valid stays high until the transfer completes).
	if m.pendingRead && Handshake(resp.R.Valid, req.RReady) {
		m.pendingRead = false
	}
	if m.pendingWrite && Handshake(resp.B.Valid, req.BReady) {
		m.pendingWrite = false
	}

	// A fresh AR handshake this cycle begins a new one-cycle read; R.Valid
	// rises next cycle per §4.2.
	if Handshake(req.AR.Valid, resp.ARReady) {
		m.pendingRead = true
		m.pendingAddr = req.AR.Addr
		if m.isMMIO(req.AR.Addr) {
			m.pendingWord = m.mmio.ReadMMIO(req.AR.Addr)
		} else {
			m.pendingWord = m.words[req.AR.Addr>>2]
		}
	}

	if Handshake(req.AW.Valid, resp.AWReady) {
		m.awLatched = true
		m.awAddr = req.AW.Addr
	}
	if Handshake(req.W.Valid, resp.WReady) {
		m.wLatched = true
		m.wData = req.W.Data
		m.wStrb = req.W.Strb
	}
	if m.awLatched && m.wLatched {
		if m.isMMIO(m.awAddr) {
			m.mmio.WriteMMIO(m.awAddr, m.wData, m.wStrb)
		} else {
			m.writeMasked(m.awAddr, m.wData, m.wStrb)
		}
		m.awLatched = false
		m.wLatched = false
		m.pendingWrite = true
	}
}

func (m *MemorySlave) isMMIO(addr uint32) bool {
	return m.hasMMIO && IsMMIO(addr, m.mmioBase)
}

func (m *MemorySlave) writeMasked(addr uint32, data uint32, strb uint8) {
	word := m.words[addr>>2]
	for i := 0; i < 4; i++ {
		if strb&(1<<uint(i)) != 0 {
			shift := uint(i) * 8
			word = (word &^ (0xFF << shift)) | (data & (0xFF << shift))
		}
	}
	m.words[addr>>2] = word
}
