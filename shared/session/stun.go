// Package session models the global freeze ("stun") that every peer applies.
// The server owns the authoritative view; each client owns a predicted view
// that may start before the server confirms and end before it releases.
package session

import "math"

// Phase is the coarse stun state.
type Phase uint8

const (
	Idle Phase = iota
	Stunned
)

func (p Phase) String() string {
	if p == Stunned {
		return "stunned"
	}
	return "idle"
}

// FramesFor converts a stun duration into the number of ticks that stay
// frozen after the tick the stun began on.
func FramesFor(duration, dt float64) int {
	if duration <= 0 || dt <= 0 {
		return 0
	}
	return int(math.Round(duration / dt))
}

// StunTimer counts a single stun window in ticks. A stun triggered on tick T
// freezes T and the following FramesLeft ticks.
type StunTimer struct {
	active     bool
	framesLeft int
}

// Trigger starts a window of frames ticks after the current one. It reports
// false and changes nothing when a window is already running.
func (t *StunTimer) Trigger(frames int) bool {
	if t.active {
		return false
	}
	t.active = true
	t.framesLeft = frames
	return true
}

// BeginTick ages the window by one tick. It reports true on the tick the
// window closes.
func (t *StunTimer) BeginTick() bool {
	if !t.active {
		return false
	}
	if t.framesLeft <= 0 {
		t.active = false
		t.framesLeft = 0
		return true
	}
	t.framesLeft--
	return false
}

// Carry replaces the window with one that freezes the current tick and
// frames more. Negative values clear the timer.
func (t *StunTimer) Carry(frames int) {
	if frames < 0 {
		t.Clear()
		return
	}
	t.active = true
	t.framesLeft = frames
}

// Clear ends the window immediately.
func (t *StunTimer) Clear() {
	t.active = false
	t.framesLeft = 0
}

func (t *StunTimer) Active() bool    { return t.active }
func (t *StunTimer) FramesLeft() int { return t.framesLeft }
