// Package icache implements the read-only instruction cache controller
// described in spec.md §4.3: a direct-mapped cache whose refill sequencer is
// an explicit 4-state machine driving the AR/R channels of bus.
package icache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/rv32memsys/bus"
	"github.com/sarchlab/rv32memsys/cacheline"
	"github.com/sarchlab/rv32memsys/cpu"
)

// State is the controller's current phase. It is represented as an explicit
// tagged variant rather than a collection of booleans, per spec.md §9
// Design Notes ("Finite state machines").
type State int

const (
	// IdleCompare is the hit/miss decision hub.
	IdleCompare State = iota
	// RefillRequest drives AR for the word at miss_base+refill_cnt*4.
	RefillRequest
	// RefillWait drives R.Ready and waits for the matching R handshake.
	RefillWait
	// UpdateTag commits tag+valid atomically once all 4 words have
	// landed.
	UpdateTag
)

// Statistics holds the I-Cache's running counters.
type Statistics struct {
	Hits    uint64
	Misses  uint64
	Refills uint64
}

// Cache is the I-Cache controller. Zero value is not usable; build with
// New.
type Cache struct {
	dir  *akitacache.DirectoryImpl
	data [][cacheline.WordsPerLine]uint32

	state     State
	missBase  uint32
	missIndex uint32
	refillCnt int

	// refilled marks the IdleCompare cycle right after UpdateTag, in which
	// the CPU's held request is the access whose miss was already counted.
	refilled bool

	stats Statistics
}

// New creates an empty I-Cache. All lines start invalid, per spec.md §3
// invariant 3.
func New() *Cache {
	return &Cache{
		dir: akitacache.NewDirectory(
			cacheline.NumSets, 1, cacheline.LineSize,
			akitacache.NewLRUVictimFinder(),
		),
		data: make([][cacheline.WordsPerLine]uint32, cacheline.NumSets),
	}
}

// Stats returns the running hit/miss/refill counters.
func (c *Cache) Stats() Statistics { return c.stats }

// ResetStats clears the running counters without touching cache contents.
func (c *Cache) ResetStats() { c.stats = Statistics{} }

// Reset invalidates the cache and clears controller state, as on a CPU
// reset (spec.md §3 invariant 3).
func (c *Cache) Reset() {
	c.dir.Reset()
	c.state = IdleCompare
	c.stats = Statistics{}
}

func (c *Cache) lookup(addr uint32) bool {
	block := c.dir.Lookup(0, uint64(cacheline.LineBase(addr)))
	return block != nil && block.IsValid
}

// DriveBus computes this cycle's outgoing AR/RReady signals from the
// controller's current registered state alone. It is purely combinational
// and must be called before the bus request is routed through the arbiter
// to the slave, so that Step can be given the resulting response.
func (c *Cache) DriveBus() bus.ReadMasterRequest {
	switch c.state {
	case RefillRequest:
		return bus.ReadMasterRequest{
			AR: bus.ARRequest{Valid: true, Addr: c.missBase + uint32(c.refillCnt)*4},
		}
	case RefillWait:
		return bus.ReadMasterRequest{RReady: true}
	}
	return bus.ReadMasterRequest{}
}

// Step advances the controller by one cycle given the CPU's request and the
// bus response the arbiter routed to this cache this cycle (the output of
// DriveBus fed through the arbiter and slave). It commits the next
// registered state and returns the CPU-facing response for this cycle.
func (c *Cache) Step(req cpu.IFetchRequest, resp bus.ReadSlaveResponse) cpu.IFetchResponse {
	switch c.state {
	case IdleCompare:
		replay := c.refilled
		c.refilled = false
		if !req.Req {
			return cpu.IFetchResponse{}
		}
		if c.lookup(req.Addr) {
			if !replay {
				c.stats.Hits++
			}
			idx := cacheline.Index(req.Addr)
			return cpu.IFetchResponse{Data: c.data[idx][cacheline.WordOffset(req.Addr)]}
		}
		c.stats.Misses++
		c.missBase = cacheline.LineBase(req.Addr)
		c.missIndex = cacheline.Index(req.Addr)
		c.refillCnt = 0
		c.state = RefillRequest
		return cpu.IFetchResponse{Stall: true}

	case RefillRequest:
		if bus.Handshake(true, resp.ARReady) {
			c.state = RefillWait
		}
		return cpu.IFetchResponse{Stall: true}

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
		return cpu.IFetchResponse{Stall: true}

	case UpdateTag:
		block := c.dir.FindVictim(uint64(c.missBase))
		block.Tag = uint64(c.missBase)
		block.IsValid = true
		c.dir.Visit(block)
		c.stats.Refills++
		c.refilled = true
		c.state = IdleCompare
		return cpu.IFetchResponse{Stall: true}
	}

	return cpu.IFetchResponse{}
}
