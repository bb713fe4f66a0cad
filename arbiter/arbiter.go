// Package arbiter implements the fixed-priority read arbiter that lets the
// I-Cache and D-Cache share a single downstream memory slave, per spec.md
// §4.5. Only the read channels are arbitrated: the D-Cache is the only
// master ever granted the write channels, so AW/W/B pass through to it
// directly and the I-Cache's write side is tied permanently dead.
package arbiter

import "github.com/sarchlab/rv32memsys/bus"

// State is the arbiter's current grant, an explicit tagged variant per
// spec.md §9 Design Notes.
type State int

const (
	// Idle holds no grant; it samples both masters' AR.Valid combinationally
	// every cycle.
	Idle State = iota
	// ReadM0 grants the read channel to the I-Cache until its AR/R sequence
	// completes.
	ReadM0
	// ReadM1 grants the read channel to the D-Cache until its AR/R sequence
	// completes.
	ReadM1
)

// Arbiter multiplexes two masters' read requests onto one slave and passes
// the D-Cache's write requests straight through. m0 is the I-Cache (read
// only); m1 is the D-Cache. m1 wins ties, per spec.md §4.5.
type Arbiter struct {
	state State
}

// New creates an arbiter in the Idle state.
func New() *Arbiter {
	return &Arbiter{}
}

// Reset returns the arbiter to Idle.
func (a *Arbiter) Reset() {
	a.state = Idle
}

// Route combines the two masters' requests into the single request the
// slave observes this cycle; Grant reports which master (if either) holds
// the read grant. It is purely combinational over the arbiter's current
// registered state.
//
// m0 is the I-Cache's read-only request; m1 is the D-Cache's full request
// (it alone may assert AW/W/BReady).
func (a *Arbiter) Route(m0 bus.ReadMasterRequest, m1 bus.MasterRequest) bus.MasterRequest {
	out := bus.MasterRequest{
		AW:     m1.AW,
		W:      m1.W,
		BReady: m1.BReady,
	}

	switch a.grantedMaster(m0, m1) {
	case 0:
		out.AR = m0.AR
		out.RReady = m0.RReady
	case 1:
		out.AR = m1.AR
		out.RReady = m1.RReady
	}

	return out
}

// grantedMaster reports which master's AR/RReady the slave observes this
// cycle: 0 for the I-Cache, 1 for the D-Cache, -1 for neither. It mirrors
// the transition logic Step commits, so Route and Step always agree on the
// cycle a grant takes effect.
func (a *Arbiter) grantedMaster(m0 bus.ReadMasterRequest, m1 bus.MasterRequest) int {
	switch a.state {
	case ReadM0:
		return 0
	case ReadM1:
		return 1
	default:
		if m1.AR.Valid {
			return 1
		}
		if m0.AR.Valid {
			return 0
		}
		return -1
	}
}

// Grant reports which master the arbiter is routing to the slave this
// cycle: 0 for the I-Cache, 1 for the D-Cache, -1 for neither. Callers use
// it to decide which master's Step should see the slave's real response and
// which should see ungranted (a zero-value ReadSlaveResponse, since an
// ungranted master's AR was never actually presented to the slave).
func (a *Arbiter) Grant(m0 bus.ReadMasterRequest, m1 bus.MasterRequest) int {
	return a.grantedMaster(m0, m1)
}

// ungranted is the response an ungranted master observes: its AR was never
// routed to the slave, so it must not see a handshake.
var ungranted = bus.ReadSlaveResponse{}

// ReadSlaveView returns the read-only projection of a SlaveResponse that a
// granted read master observes; an ungranted master must be given
// Ungranted() instead.
func ReadSlaveView(resp bus.SlaveResponse) bus.ReadSlaveResponse {
	return bus.ReadSlaveResponse{ARReady: resp.ARReady, R: resp.R}
}

// Ungranted returns the response an ungranted read master observes this
// cycle: no handshake, regardless of what the slave actually reports.
func Ungranted() bus.ReadSlaveResponse {
	return ungranted
}

// Step advances the arbiter's registered grant state given the same
// requests Route saw this cycle and the slave's response to the routed
// request. A grant is held across the whole AR-then-R sequence and is only
// released the cycle the matching R handshakes: the granted master stops
// asserting AR once its own AR handshakes and only asserts RReady while it
// waits for R, so releasing on AR would hand the channel to the other
// master before the in-flight read's data has been returned.
func (a *Arbiter) Step(m0 bus.ReadMasterRequest, m1 bus.MasterRequest, resp bus.SlaveResponse) {
	switch a.grantedMaster(m0, m1) {
	case 0:
		if bus.Handshake(resp.R.Valid, m0.RReady) {
			a.state = Idle
		} else {
			a.state = ReadM0
		}
	case 1:
		if bus.Handshake(resp.R.Valid, m1.RReady) {
			a.state = Idle
		} else {
			a.state = ReadM1
		}
	default:
		a.state = Idle
	}
}
