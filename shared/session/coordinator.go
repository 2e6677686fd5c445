package session

// State is the wire-safe view of the authoritative stun.
type State struct {
	Stunned    bool
	FramesLeft int
	Duration   float64
}

// Coordinator tracks both stun views for one session. The server only uses
// the authoritative half; a client only writes the predicted half and feeds
// what it hears from the server through ObserveAuthoritative.
type Coordinator struct {
	duration float64
	frames   int

	authoritative StunTimer
	began         bool
	observed      bool

	predicted StunTimer
	awaiting  uint32 // Sequence of a local trigger the server has not echoed yet
}

// NewCoordinator sizes stun windows from duration and the fixed tick length.
func NewCoordinator(duration, dt float64) *Coordinator {
	return &Coordinator{
		duration: duration,
		frames:   FramesFor(duration, dt),
	}
}

// Frames is the number of ticks frozen after the tick a stun begins on.
func (c *Coordinator) Frames() int { return c.frames }

// Duration is the configured stun length in seconds.
func (c *Coordinator) Duration() float64 { return c.duration }

// BeginTick ages the authoritative window and clears the began edge. The
// simulator calls it once at the start of every tick.
func (c *Coordinator) BeginTick() {
	c.began = false
	c.authoritative.BeginTick()
}

// TriggerAuthoritative starts an authoritative stun on the current tick.
// Triggers while a stun is running are ignored.
func (c *Coordinator) TriggerAuthoritative() bool {
	if !c.authoritative.Trigger(c.frames) {
		return false
	}
	c.began = true
	return true
}

// BeginPredictedTick ages the predicted window. Clients call it once at the
// start of every local tick.
func (c *Coordinator) BeginPredictedTick() {
	c.predicted.BeginTick()
}

// TriggerPredicted starts the predicted view immediately for a stun the
// local player initiated with input seq.
func (c *Coordinator) TriggerPredicted(seq uint32) bool {
	if !c.predicted.Trigger(c.frames) {
		return false
	}
	c.awaiting = seq
	return true
}

// ObserveAuthoritative records the stun flag from a server snapshot along
// with the sequence the server had consumed from this client when that stun
// began. A rising edge starts the predicted view unless startSeq is the local
// trigger, i.e. the server echoing it. A start past the trigger means the
// trigger was lost or ignored and will never be echoed. It reports whether
// the predicted view was started.
func (c *Coordinator) ObserveAuthoritative(stunned bool, startSeq uint32) bool {
	rising := stunned && !c.observed
	c.observed = stunned
	if !rising {
		return false
	}
	if c.awaiting != 0 {
		switch {
		case startSeq == c.awaiting:
			c.awaiting = 0
			return false
		case startSeq > c.awaiting:
			c.awaiting = 0
		}
	}
	return c.predicted.Trigger(c.frames)
}

// AwaitingEcho reports whether a local trigger is still unconfirmed.
func (c *Coordinator) AwaitingEcho() bool { return c.awaiting != 0 }

// CarryPredicted replaces the predicted window with one that freezes the
// current tick and frames more; negative frames end it.
func (c *Coordinator) CarryPredicted(frames int) {
	c.predicted.Carry(frames)
}

// IsAuthoritativelyStunned reports the server's view: the live timer on the
// server, the last observed flag on a client.
func (c *Coordinator) IsAuthoritativelyStunned() bool {
	return c.authoritative.Active() || c.observed
}

// IsPredictedLocally reports the client's predicted view.
func (c *Coordinator) IsPredictedLocally() bool { return c.predicted.Active() }

// PredictedFramesLeft is the remaining predicted freeze after this tick.
func (c *Coordinator) PredictedFramesLeft() int { return c.predicted.FramesLeft() }

// StunJustBegan is true only during the tick an authoritative stun started.
func (c *Coordinator) StunJustBegan() bool { return c.began }

// Phase reports the authoritative phase.
func (c *Coordinator) Phase() Phase {
	if c.IsAuthoritativelyStunned() {
		return Stunned
	}
	return Idle
}

// State snapshots the authoritative view for publication.
func (c *Coordinator) State() State {
	return State{
		Stunned:    c.authoritative.Active(),
		FramesLeft: c.authoritative.FramesLeft(),
		Duration:   c.duration,
	}
}
