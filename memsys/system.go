// Package memsys wraps the I-Cache, D-Cache, arbiter, and memory slave into
// the single two-level cache subsystem spec.md describes, presenting one
// Tick per cycle to the CPU the same way timing/core.Core wraps a pipeline.
package memsys

import (
	"github.com/sarchlab/rv32memsys/arbiter"
	"github.com/sarchlab/rv32memsys/bus"
	"github.com/sarchlab/rv32memsys/config"
	"github.com/sarchlab/rv32memsys/cpu"
	"github.com/sarchlab/rv32memsys/dcache"
	"github.com/sarchlab/rv32memsys/icache"
)

// Stats aggregates the running counters of every component in the
// subsystem, for reporting by cmd/rv32memsim.
type Stats struct {
	Cycles uint64

	ICacheHits    uint64
	ICacheMisses  uint64
	ICacheRefills uint64

	DCacheHits      uint64
	DCacheMisses    uint64
	DCacheRefills   uint64
	DCacheWrites    uint64
	DCacheMMIOReads uint64
}

// System is the two-level cache subsystem: an I-Cache and a D-Cache sharing
// one memory slave through a fixed-priority arbiter.
type System struct {
	ICache *icache.Cache
	DCache *dcache.Cache
	Memory *bus.MemorySlave

	arb *arbiter.Arbiter

	cycles uint64
}

// New builds a System from a SystemConfig and a backing memory slave. The
// caller retains the *bus.MemorySlave to preload contents before ticking.
func New(cfg *config.SystemConfig, mem *bus.MemorySlave) *System {
	if cfg == nil {
		cfg = config.Default()
	}

	return &System{
		ICache: icache.New(),
		DCache: dcache.NewWithMMIOBase(cfg.MMIOBase),
		Memory: mem,
		arb:    arbiter.New(),
	}
}

// Reset clears both caches, the arbiter, and the cycle counter. The
// backing memory slave's contents are left untouched.
func (s *System) Reset() {
	s.ICache.Reset()
	s.DCache.Reset()
	s.arb.Reset()
	s.cycles = 0
}

// Stats returns the subsystem's aggregated running counters.
func (s *System) Stats() Stats {
	ic := s.ICache.Stats()
	dc := s.DCache.Stats()
	return Stats{
		Cycles:          s.cycles,
		ICacheHits:      ic.Hits,
		ICacheMisses:    ic.Misses,
		ICacheRefills:   ic.Refills,
		DCacheHits:      dc.Hits,
		DCacheMisses:    dc.Misses,
		DCacheRefills:   dc.Refills,
		DCacheWrites:    dc.Writes,
		DCacheMMIOReads: dc.MMIOReads,
	}
}

// Tick advances the whole subsystem by one cycle: it drives both caches'
// bus requests from their current registered state, arbitrates them onto
// the memory slave, and commits every component's next state before
// returning the CPU-facing responses for this cycle.
//
// The Stall flags of the two responses are reported independently, per spec.md's
// requirement that the I-Cache and D-Cache each expose their own stall
// wire to the frontend and backend respectively (they do not share a
// pipeline stage and must not be forced to stall in lockstep).
func (s *System) Tick(ifetch cpu.IFetchRequest, mem cpu.MemRequest) (cpu.IFetchResponse, cpu.MemResponse) {
	s.cycles++

	m0 := s.ICache.DriveBus()
	m1 := s.DCache.DriveBus()

	routed := s.arb.Route(m0, m1)
	slaveResp := s.Memory.Respond(routed)

	grant := s.arb.Grant(m0, m1)

	var m0Resp, m1ReadResp bus.ReadSlaveResponse
	switch grant {
	case 0:
		m0Resp = arbiter.ReadSlaveView(slaveResp)
		m1ReadResp = arbiter.Ungranted()
	case 1:
		m0Resp = arbiter.Ungranted()
		m1ReadResp = arbiter.ReadSlaveView(slaveResp)
	default:
		m0Resp = arbiter.Ungranted()
		m1ReadResp = arbiter.Ungranted()
	}

	m1Resp := bus.SlaveResponse{
		ARReady: m1ReadResp.ARReady,
		R:       m1ReadResp.R,
		AWReady: slaveResp.AWReady,
		WReady:  slaveResp.WReady,
		B:       slaveResp.B,
	}

	ifetchResp := s.ICache.Step(ifetch, m0Resp)
	memResp := s.DCache.Step(mem, m1Resp)

	s.arb.Step(m0, m1, slaveResp)
	s.Memory.Commit(routed, slaveResp)

	return ifetchResp, memResp
}
