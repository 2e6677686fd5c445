package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 1.0 / 60.0

func TestFramesFor(t *testing.T) {
	assert.Equal(t, 60, FramesFor(1, tick))
	assert.Equal(t, 6, FramesFor(0.1, tick))
	assert.Equal(t, 0, FramesFor(0, tick))
	assert.Equal(t, 0, FramesFor(1, 0))
}

func TestStunTimerFreezesTriggerTickPlusFrames(t *testing.T) {
	var timer StunTimer
	require.True(t, timer.Trigger(3))

	frozen := 1 // trigger tick
	for i := 0; i < 10; i++ {
		timer.BeginTick()
		if timer.Active() {
			frozen++
		}
	}
	assert.Equal(t, 4, frozen)
}

func TestStunTimerIgnoresRetrigger(t *testing.T) {
	var timer StunTimer
	require.True(t, timer.Trigger(5))
	timer.BeginTick()
	assert.False(t, timer.Trigger(5))
	assert.Equal(t, 4, timer.FramesLeft())
}

func TestStunTimerCarry(t *testing.T) {
	var timer StunTimer
	timer.Carry(2)
	assert.True(t, timer.Active())
	assert.Equal(t, 2, timer.FramesLeft())

	timer.Carry(-1)
	assert.False(t, timer.Active())
}

func TestCoordinatorAuthoritativeCycle(t *testing.T) {
	c := NewCoordinator(0.05, tick) // 3 frames
	require.Equal(t, 3, c.Frames())

	c.BeginTick()
	assert.Equal(t, Idle, c.Phase())
	require.True(t, c.TriggerAuthoritative())
	assert.True(t, c.StunJustBegan())
	assert.True(t, c.State().Stunned)
	assert.Equal(t, Stunned, c.Phase())

	c.BeginTick()
	assert.False(t, c.StunJustBegan(), "edge lasts one tick")
	assert.True(t, c.IsAuthoritativelyStunned())
	assert.False(t, c.TriggerAuthoritative(), "no extension while stunned")

	c.BeginTick()
	c.BeginTick()
	assert.True(t, c.IsAuthoritativelyStunned())
	c.BeginTick()
	assert.False(t, c.IsAuthoritativelyStunned())
	assert.Equal(t, "idle", c.Phase().String())
}

func TestCoordinatorLocalTriggerIsConfirmedNotRepeated(t *testing.T) {
	c := NewCoordinator(0.05, tick)
	require.True(t, c.TriggerPredicted(5))
	assert.True(t, c.IsPredictedLocally())
	assert.True(t, c.AwaitingEcho())
	assert.False(t, c.IsAuthoritativelyStunned(), "prediction leads the server")

	for i := 0; i < 5; i++ {
		c.BeginPredictedTick()
	}
	require.False(t, c.IsPredictedLocally())

	// the server echo arrives after the local window closed
	assert.False(t, c.ObserveAuthoritative(true, 5))
	assert.False(t, c.IsPredictedLocally())
	assert.False(t, c.AwaitingEcho())
	assert.True(t, c.IsAuthoritativelyStunned())
	assert.Equal(t, Stunned, c.Phase())
}

func TestCoordinatorRemoteStunStartsPrediction(t *testing.T) {
	c := NewCoordinator(0.05, tick)
	assert.True(t, c.ObserveAuthoritative(true, 3))
	assert.True(t, c.IsPredictedLocally())
	assert.False(t, c.ObserveAuthoritative(true, 3), "only the rising edge counts")

	c.ObserveAuthoritative(false, 3)
	assert.False(t, c.IsAuthoritativelyStunned())
	assert.Equal(t, Idle, c.Phase())
}

func TestCoordinatorLostTriggerDoesNotHideRemoteStun(t *testing.T) {
	c := NewCoordinator(0.05, tick)
	require.True(t, c.TriggerPredicted(5))
	for i := 0; i < c.Frames()+1; i++ {
		c.BeginPredictedTick()
	}
	require.False(t, c.IsPredictedLocally())

	// another player's stun began after the server consumed seq 9; ours was lost
	assert.True(t, c.ObserveAuthoritative(true, 9))
	assert.True(t, c.IsPredictedLocally())
	assert.False(t, c.AwaitingEcho())
}

func TestCoordinatorEarlierRemoteStunKeepsWaiting(t *testing.T) {
	c := NewCoordinator(0.05, tick)
	require.True(t, c.TriggerPredicted(5))
	for i := 0; i < c.Frames()+1; i++ {
		c.BeginPredictedTick()
	}

	// a remote stun that began before our trigger reached the server
	assert.True(t, c.ObserveAuthoritative(true, 3))
	assert.True(t, c.AwaitingEcho())
	c.ObserveAuthoritative(false, 3)
	for i := 0; i < c.Frames()+1; i++ {
		c.BeginPredictedTick()
	}

	assert.False(t, c.ObserveAuthoritative(true, 5), "our own stun, already shown")
	assert.False(t, c.AwaitingEcho())
}
