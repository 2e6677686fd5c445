package network

import (
	"github.com/automoto/stunsync/shared/gamemath"
	"gonum.org/v1/gonum/spatial/r2"
)

// catchUpEpsilon absorbs float drift when the remaining catch-up time is
// counted down in tick-sized steps.
const catchUpEpsilon = 1e-9

// CatchUpMirror presents a passive entity on a client. While the local stun
// view holds it stays frozen; when the view releases it runs a private
// simulation for two round trips so it lands where the server has it, then
// tracks the server directly.
type CatchUpMirror struct {
	extent float64
	bounds gamemath.Bounds

	started    bool
	wasStunned bool
	frozenVel  r2.Vec
	rendered   r2.Vec

	simPos    r2.Vec
	simVel    r2.Vec
	remaining float64 // Seconds of catch-up simulation left
	steps     int     // Catch-up ticks run in the current cycle
}

// NewCatchUpMirror creates a mirror for a body of the given extent.
func NewCatchUpMirror(extent float64, bounds gamemath.Bounds) *CatchUpMirror {
	return &CatchUpMirror{extent: extent, bounds: bounds}
}

// Update advances the mirror by one local tick and returns the position to
// render. stunned is the local predicted stun view; authPos and authVel are
// the latest authoritative state; rtt is in seconds.
func (m *CatchUpMirror) Update(stunned bool, authPos, authVel r2.Vec, rtt, dt float64) r2.Vec {
	if !m.started {
		m.started = true
		m.rendered = authPos
	}

	if stunned {
		if !m.wasStunned {
			m.frozenVel = authVel
			m.remaining = 0
		}
		m.wasStunned = true
		return m.rendered
	}

	if m.wasStunned {
		m.wasStunned = false
		m.simPos = m.rendered
		m.simVel = m.frozenVel
		m.remaining = 2 * rtt
		m.steps = 0
	}

	if m.remaining > catchUpEpsilon {
		m.remaining -= dt
		m.simPos, m.simVel = gamemath.StepPassive(m.simPos, m.simVel, dt, m.extent, m.bounds)
		m.steps++
		m.rendered = m.simPos
		return m.rendered
	}

	m.remaining = 0
	m.rendered = authPos
	return m.rendered
}

// CatchingUp reports whether the private simulation is running.
func (m *CatchUpMirror) CatchingUp() bool { return m.remaining > catchUpEpsilon }

// Frozen reports whether the mirror is holding for a stun.
func (m *CatchUpMirror) Frozen() bool { return m.wasStunned }

// CatchUpSteps is the number of catch-up ticks run since the last stun ended.
func (m *CatchUpMirror) CatchUpSteps() int { return m.steps }

// Rendered is the position returned by the last Update.
func (m *CatchUpMirror) Rendered() r2.Vec { return m.rendered }
