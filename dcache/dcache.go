// Package dcache implements the write-through, no-write-allocate data
// cache controller described in spec.md §4.4: an 8-state machine covering
// cacheable refill, MMIO bypass, and the write sequence.
package dcache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/rv32memsys/bus"
	"github.com/sarchlab/rv32memsys/cacheline"
	"github.com/sarchlab/rv32memsys/cpu"
)

// State is the controller's current phase, represented as an explicit
// tagged variant per spec.md §9 Design Notes.
type State int

const (
	// IdleCompare is the decision hub: on cpu_req, forks by cpu_we and
	// is_mmio.
	IdleCompare State = iota
	// RefillRequest is the AR phase of a cacheable read miss refill.
	RefillRequest
	// RefillWait is the R phase of refill; loops WordsPerLine times.
	RefillWait
	// UpdateTag is the atomic tag+valid commit at line completion.
	UpdateTag
	// ReadMMIO is the single-word AR phase for an uncacheable read.
	ReadMMIO
	// ReadMMIOWait is the single-word R phase; data is forwarded
	// combinationally to the CPU and the cache is left untouched.
	ReadMMIOWait
	// WriteBus drives AW and W concurrently with independent completion
	// flags.
	WriteBus
	// WaitBValid awaits the B response before releasing the stall.
	WaitBValid
)

// Statistics holds the D-Cache's running counters.
type Statistics struct {
	Hits      uint64
	Misses    uint64
	Refills   uint64
	Writes    uint64
	MMIOReads uint64
}

// Cache is the D-Cache controller. Zero value is not usable; build with
// New.
type Cache struct {
	dir  *akitacache.DirectoryImpl
	data [][cacheline.WordsPerLine]uint32

	mmioBase uint32

	state     State
	missBase  uint32
	missIndex uint32
	refillCnt int

	// refilled marks the IdleCompare cycle right after UpdateTag, in which
	// the CPU's held request is the access whose miss was already counted.
	refilled bool

	waddr         uint32
	wdata         uint32
	wstrb         uint8
	awDone, wDone bool
	writeDone     bool

	mmioAddr uint32

	stats Statistics
}

// New creates an empty D-Cache using the default MMIO boundary
// (bus.DefaultMMIOBase).
func New() *Cache {
	return NewWithMMIOBase(bus.DefaultMMIOBase)
}

// NewWithMMIOBase creates an empty D-Cache with a relocated MMIO boundary,
// per spec.md §9 open question (b).
func NewWithMMIOBase(mmioBase uint32) *Cache {
	return &Cache{
		dir: akitacache.NewDirectory(
			cacheline.NumSets, 1, cacheline.LineSize,
			akitacache.NewLRUVictimFinder(),
		),
		data:     make([][cacheline.WordsPerLine]uint32, cacheline.NumSets),
		mmioBase: mmioBase,
	}
}

// Stats returns the running counters.
func (c *Cache) Stats() Statistics { return c.stats }

// ResetStats clears the running counters without touching cache contents.
func (c *Cache) ResetStats() { c.stats = Statistics{} }

// Reset invalidates the cache and clears controller state.
func (c *Cache) Reset() {
	c.dir.Reset()
	c.state = IdleCompare
	c.stats = Statistics{}
}

func (c *Cache) lookup(addr uint32) bool {
	block := c.dir.Lookup(0, uint64(cacheline.LineBase(addr)))
	return block != nil && block.IsValid
}

func (c *Cache) writeLine(idx int, wordOffset uint32, data uint32, strb uint8) {
	word := c.data[idx][wordOffset]
	for i := 0; i < 4; i++ {
		if strb&(1<<uint(i)) != 0 {
			shift := uint(i) * 8
			word = (word &^ (0xFF << shift)) | (data & (0xFF << shift))
		}
	}
	c.data[idx][wordOffset] = word
}

// DriveBus computes this cycle's outgoing AR/AW/W/RReady/BReady signals
// from the controller's current registered state alone.
func (c *Cache) DriveBus() bus.MasterRequest {
	var req bus.MasterRequest

	switch c.state {
	case RefillRequest:
		req.AR = bus.ARRequest{Valid: true, Addr: c.missBase + uint32(c.refillCnt)*4}
	case RefillWait:
		req.RReady = true
	case ReadMMIO:
		req.AR = bus.ARRequest{Valid: true, Addr: c.mmioAddr}
	case ReadMMIOWait:
		req.RReady = true
	case WriteBus:
		if !c.awDone {
			req.AW = bus.AWRequest{Valid: true, Addr: c.waddr}
		}
		if !c.wDone {
			req.W = bus.WRequest{Valid: true, Data: c.wdata, Strb: c.wstrb}
		}
	case WaitBValid:
		req.BReady = true
	}

	return req
}

// Step advances the controller by one cycle given the CPU's request and the
// bus.SlaveResponse the arbiter routed to this cache this cycle (the output
// of DriveBus fed through the arbiter and slave). It commits the next
// registered state and returns the CPU-facing response for this cycle.
func (c *Cache) Step(req cpu.MemRequest, resp bus.SlaveResponse) cpu.MemResponse {
	switch c.state {
	case IdleCompare:
		return c.stepIdleCompare(req)

	case RefillRequest:
		if bus.Handshake(true, resp.ARReady) {
			c.state = RefillWait
		}
		return cpu.MemResponse{Stall: true}

	case RefillWait:
		if bus.Handshake(resp.R.Valid, true) {
			c.data[c.missIndex][c.refillCnt] = resp.R.Data
			if c.refillCnt == cacheline.WordsPerLine-1 {
				c.state = UpdateTag
			} else {
				c.refillCnt++
				c.state = RefillRequest
			}
		}
		return cpu.MemResponse{Stall: true}

	case UpdateTag:
		block := c.dir.FindVictim(uint64(c.missBase))
		block.Tag = uint64(c.missBase)
		block.IsValid = true
		c.dir.Visit(block)
		c.stats.Refills++
		c.refilled = true
		c.state = IdleCompare
		return cpu.MemResponse{Stall: true}

	case ReadMMIO:
		if bus.Handshake(true, resp.ARReady) {
			c.state = ReadMMIOWait
		}
		return cpu.MemResponse{Stall: true}

	case ReadMMIOWait:
		if bus.Handshake(resp.R.Valid, true) {
			c.state = IdleCompare
			return cpu.MemResponse{Data: resp.R.Data}
		}
		return cpu.MemResponse{Stall: true}

	case WriteBus:
		if !c.awDone && bus.Handshake(true, resp.AWReady) {
			c.awDone = true
		}
		if !c.wDone && bus.Handshake(true, resp.WReady) {
			c.wDone = true
		}
		if c.awDone && c.wDone {
			c.state = WaitBValid
		}
		return cpu.MemResponse{Stall: true}

	case WaitBValid:
		if bus.Handshake(resp.B.Valid, true) {
			c.state = IdleCompare
			c.writeDone = true
		}
		return cpu.MemResponse{Stall: true}
	}

	return cpu.MemResponse{}
}

func (c *Cache) stepIdleCompare(req cpu.MemRequest) cpu.MemResponse {
	replay := c.refilled
	c.refilled = false

	if !req.Req {
		return cpu.MemResponse{}
	}

	// The CPU holds a write request steady until it sees Stall=false; this
	// is that following cycle for the write WaitBValid just committed. Its
	// completion was already applied to the bus and, if it hit, to the
	// cache array, so it must not be replayed here.
	if req.We && c.writeDone {
		c.writeDone = false
		return cpu.MemResponse{}
	}

	mmio := bus.IsMMIO(req.Addr, c.mmioBase)

	if req.We {
		strb := Strobe(req.Func3, cacheline.ByteOffset(req.Addr))
		c.waddr, c.wdata, c.wstrb = req.Addr, req.WData, strb

		// Write-through, no-write-allocate: a write hit updates the
		// cache array in place; a write miss (or an MMIO address)
		// leaves the array untouched (spec.md §3 invariant 5).
		if !mmio && c.lookup(req.Addr) {
			idx := cacheline.Index(req.Addr)
			c.writeLine(int(idx), cacheline.WordOffset(req.Addr), req.WData, strb)
		}

		c.awDone, c.wDone = false, false
		c.stats.Writes++
		c.state = WriteBus
		return cpu.MemResponse{Stall: true}
	}

	if mmio {
		c.mmioAddr = req.Addr
		c.stats.MMIOReads++
		c.state = ReadMMIO
		return cpu.MemResponse{Stall: true}
	}

	if c.lookup(req.Addr) {
		if !replay {
			c.stats.Hits++
		}
		idx := cacheline.Index(req.Addr)
		return cpu.MemResponse{Data: c.data[idx][cacheline.WordOffset(req.Addr)]}
	}

	c.stats.Misses++
	c.missBase = cacheline.LineBase(req.Addr)
	c.missIndex = cacheline.Index(req.Addr)
	c.refillCnt = 0
	c.state = RefillRequest
	return cpu.MemResponse{Stall: true}
}
