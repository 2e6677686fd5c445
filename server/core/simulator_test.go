package core

import (
	"math/rand"
	"testing"

	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/shared/tuning"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func testConfig() *tuning.Config {
	cfg := tuning.Default()
	cfg.Circles = nil
	return cfg
}

func right(seq uint32) messages.PlayerInput {
	return messages.NewPlayerInput(seq, r2.Vec{X: 1}, false)
}

func find(t *testing.T, snap *messages.Snapshot, id uint32) messages.EntityState {
	t.Helper()
	e, ok := snap.Find(id)
	require.True(t, ok, "entity %d missing", id)
	return e
}

func TestSimulatorFirstTick(t *testing.T) {
	sim := NewSimulator(testConfig(), nil)
	id := sim.AddControlled(r2.Vec{})

	require.True(t, sim.Enqueue(id, right(1)))
	snap := sim.Step()

	e := find(t, snap, id)
	assert.InDelta(t, 5.0/60, e.X, 1e-12)
	assert.InDelta(t, 0, e.Y, 1e-12)
	assert.InDelta(t, 5, e.VX, 1e-12)
	assert.Equal(t, uint32(1), e.HighestProcessed)
	assert.Equal(t, uint64(1), snap.Tick)
}

func TestSimulatorClampsControlledAtEdge(t *testing.T) {
	sim := NewSimulator(testConfig(), nil)
	id := sim.AddControlled(r2.Vec{})

	var snap *messages.Snapshot
	for seq := uint32(1); seq <= 120; seq++ {
		require.True(t, sim.Enqueue(id, right(seq)))
		snap = sim.Step()
	}

	e := find(t, snap, id)
	assert.Equal(t, 9.0, e.X)
	assert.Equal(t, 5.0, e.VX, "controlled bodies clamp without reflecting")
}

func TestSimulatorReflectsPassive(t *testing.T) {
	sim := NewSimulator(testConfig(), nil)
	id := sim.AddPassive(r2.Vec{X: 8.95}, r2.Vec{X: 5}, 1)

	snap := sim.Step()
	e := find(t, snap, id)
	assert.Equal(t, 9.0, e.X)
	assert.Equal(t, -5.0, e.VX)

	snap = sim.Step()
	e = find(t, snap, id)
	assert.InDelta(t, 9-5.0/60, e.X, 1e-12)
	assert.Equal(t, -5.0, e.VX)
}

func TestSimulatorDroppedInputDoesNotMove(t *testing.T) {
	sim := NewSimulator(testConfig(), nil)
	id := sim.AddControlled(r2.Vec{X: 1, Y: 2})

	require.True(t, sim.Enqueue(id, right(1)))
	sim.Step()
	snap := sim.Step()

	e := find(t, snap, id)
	assert.InDelta(t, 1+5.0/60, e.X, 1e-12)
	assert.Equal(t, 0.0, e.VX)
	assert.Equal(t, uint32(1), e.HighestProcessed)
}

func TestSimulatorAckIsMonotonic(t *testing.T) {
	sim := NewSimulator(testConfig(), nil)
	id := sim.AddControlled(r2.Vec{})

	for _, seq := range []uint32{5, 3, 5, 4} {
		require.True(t, sim.Enqueue(id, right(seq)))
	}

	var highest []uint32
	var snap *messages.Snapshot
	for i := 0; i < 4; i++ {
		snap = sim.Step()
		highest = append(highest, find(t, snap, id).HighestProcessed)
	}

	assert.Equal(t, []uint32{5, 5, 5, 5}, highest)
	assert.InDelta(t, 4*5.0/60, find(t, snap, id).X, 1e-12, "late inputs still move")
}

func TestSimulatorStunFreezesWorld(t *testing.T) {
	cfg := testConfig()
	cfg.Stun.Duration = 0.05 // 3 frames at 60Hz
	sim := NewSimulator(cfg, nil)
	a := sim.AddControlled(r2.Vec{})
	b := sim.AddControlled(r2.Vec{X: -3})
	p := sim.AddPassive(r2.Vec{Y: 4}, r2.Vec{Y: 2}, 0.5)

	require.True(t, sim.Enqueue(a, messages.NewPlayerInput(1, r2.Vec{X: 1}, true)))
	require.True(t, sim.Enqueue(b, right(7)))
	snap := sim.Step()

	require.True(t, snap.Stun.Stunned)
	assert.True(t, sim.Stun().StunJustBegan())
	assert.Equal(t, uint32(1), find(t, snap, a).StunStartSeq)
	assert.Equal(t, uint32(7), find(t, snap, b).StunStartSeq)
	assert.Equal(t, 0.0, find(t, snap, a).X, "the trigger tick is frozen")
	assert.Equal(t, 4.0, find(t, snap, p).Y)

	for seq := uint32(2); seq <= 4; seq++ {
		require.True(t, sim.Enqueue(a, right(seq)))
		snap = sim.Step()
		assert.True(t, snap.Stun.Stunned)
		assert.False(t, sim.Stun().StunJustBegan())
		assert.Equal(t, 0.0, find(t, snap, a).X)
		assert.Equal(t, seq, find(t, snap, a).HighestProcessed, "inputs are consumed while frozen")
	}
	assert.Equal(t, -3.0, find(t, snap, b).X)
	assert.Equal(t, 4.0, find(t, snap, p).Y)

	require.True(t, sim.Enqueue(a, right(5)))
	snap = sim.Step()
	assert.False(t, snap.Stun.Stunned)
	assert.InDelta(t, 5.0/60, find(t, snap, a).X, 1e-12)
	assert.InDelta(t, 4+2.0/60, find(t, snap, p).Y, 1e-12)
	assert.Equal(t, uint32(1), find(t, snap, a).StunStartSeq)
}

func TestSimulatorRetriggerIgnoredWhileStunned(t *testing.T) {
	cfg := testConfig()
	cfg.Stun.Duration = 0.05
	sim := NewSimulator(cfg, nil)
	id := sim.AddControlled(r2.Vec{})

	sim.Enqueue(id, messages.NewPlayerInput(1, r2.Vec{}, true))
	sim.Step()
	sim.Enqueue(id, messages.NewPlayerInput(2, r2.Vec{}, true))
	snap := sim.Step()

	assert.False(t, sim.Stun().StunJustBegan())
	assert.Equal(t, uint32(1), find(t, snap, id).StunStartSeq)
}

func TestSimulatorStaysInBounds(t *testing.T) {
	cfg := tuning.Default()
	sim := NewSimulator(cfg, nil)
	for _, c := range cfg.Circles {
		sim.AddPassive(r2.Vec{X: c.X, Y: c.Y}, r2.Vec{X: c.VX, Y: c.VY}, c.Radius)
	}
	ids := []uint32{sim.AddControlled(r2.Vec{}), sim.AddControlled(r2.Vec{X: 5, Y: 5})}

	rng := rand.New(rand.NewSource(3))
	bounds := cfg.Bounds()
	for seq := uint32(1); seq <= 600; seq++ {
		for _, id := range ids {
			dir := r2.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}
			sim.Enqueue(id, messages.NewPlayerInput(seq, dir, rng.Intn(200) == 0))
		}
		snap := sim.Step()
		for _, e := range snap.Entities {
			require.True(t, bounds.Contains(e.Position(), e.Extent), "tick %d entity %d at %v", snap.Tick, e.ID, e.Position())
		}
	}
}

func TestSimulatorMailboxOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.Server.InputQueue = 2
	metrics := NewMetrics()
	sim := NewSimulator(cfg, metrics)
	id := sim.AddControlled(r2.Vec{})

	assert.True(t, sim.Enqueue(id, right(1)))
	assert.True(t, sim.Enqueue(id, right(2)))
	assert.False(t, sim.Enqueue(id, right(3)))
	assert.False(t, sim.Enqueue(99, right(1)), "unknown entity")

	sim.Step()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InputsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InputsConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Players))
}

func TestSimulatorRemove(t *testing.T) {
	metrics := NewMetrics()
	sim := NewSimulator(testConfig(), metrics)
	id := sim.AddControlled(r2.Vec{})
	sim.Step()
	require.Len(t, sim.Snapshot().Entities, 1)

	assert.True(t, sim.Remove(id))
	assert.False(t, sim.Remove(id))
	assert.False(t, sim.Enqueue(id, right(1)))

	snap := sim.Step()
	assert.Empty(t, snap.Entities)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Players))
}

func TestSimulatorSnapshotSortedAndImmutable(t *testing.T) {
	sim := NewSimulator(testConfig(), nil)
	p := sim.AddPassive(r2.Vec{}, r2.Vec{X: 1}, 1)
	c := sim.AddControlled(r2.Vec{X: 3})

	first := sim.Step()
	second := sim.Step()

	require.Len(t, first.Entities, 2)
	assert.Equal(t, []uint32{p, c}, []uint32{first.Entities[0].ID, first.Entities[1].ID})
	assert.InDelta(t, 1.0/60, find(t, first, p).X, 1e-12)
	assert.InDelta(t, 2.0/60, find(t, second, p).X, 1e-12)
}

func TestSimulatorStunMetrics(t *testing.T) {
	metrics := NewMetrics()
	sim := NewSimulator(testConfig(), metrics)
	id := sim.AddControlled(r2.Vec{})

	sim.Enqueue(id, messages.NewPlayerInput(1, r2.Vec{}, true))
	sim.Step()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Stuns))
}
