package gamemath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

const tick = 1.0 / 60.0

var arena = Bounds{HalfW: 10, HalfH: 10}

func TestStepControlledSingleTick(t *testing.T) {
	got := StepControlled(r2.Vec{}, r2.Vec{X: 1}, 5, tick, 1, arena)
	assert.InDelta(t, 5.0/60.0, got.X, 1e-12)
	assert.Equal(t, 0.0, got.Y)
}

func TestStepControlledClampsAtEdge(t *testing.T) {
	pos := r2.Vec{}
	for i := 0; i < 200; i++ {
		pos = StepControlled(pos, r2.Vec{X: 1}, 5, tick, 1, arena)
	}
	assert.Equal(t, 9.0, pos.X)

	pos = StepControlled(pos, r2.Vec{X: 1}, 5, tick, 1, arena)
	assert.Equal(t, 9.0, pos.X, "further ticks stay clamped")
}

func TestStepPassiveReflectsOnce(t *testing.T) {
	pos, vel := r2.Vec{X: 8.95}, r2.Vec{X: 5}
	flips := 0
	for i := 0; i < 10; i++ {
		prev := vel.X
		pos, vel = StepPassive(pos, vel, tick, 1, arena)
		if math.Signbit(prev) != math.Signbit(vel.X) {
			flips++
		}
	}
	assert.Equal(t, 1, flips)
	assert.Equal(t, -5.0, vel.X)
	assert.Equal(t, 0.0, vel.Y, "only the crossed axis is reflected")
}

func TestReflectCornerFlipsBothAxes(t *testing.T) {
	pos, vel := arena.Reflect(r2.Vec{X: -9.5, Y: 9.5}, r2.Vec{X: -2, Y: 3}, 1)
	assert.Equal(t, r2.Vec{X: -9, Y: 9}, pos)
	assert.Equal(t, r2.Vec{X: 2, Y: -3}, vel)
}

func TestBoundsInvariantRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ctrl := r2.Vec{}
	pass, vel := r2.Vec{X: 2, Y: -3}, r2.Vec{X: 11, Y: -7}
	for i := 0; i < 5000; i++ {
		in := NormalizeIntent(r2.Vec{X: float64(rng.Intn(3) - 1), Y: float64(rng.Intn(3) - 1)})
		ctrl = StepControlled(ctrl, in, 40, tick, 1, arena)
		pass, vel = StepPassive(pass, vel, tick, 1.5, arena)

		require.True(t, arena.Contains(ctrl, 1), "controlled escaped at tick %d: %v", i, ctrl)
		require.True(t, arena.Contains(pass, 1.5), "passive escaped at tick %d: %v", i, pass)
		require.InDelta(t, math.Hypot(11, 7), r2.Norm(vel), 1e-9, "speed is preserved by reflection")
	}
}

func TestNormalizeIntent(t *testing.T) {
	assert.Equal(t, r2.Vec{}, NormalizeIntent(r2.Vec{}))

	d := NormalizeIntent(r2.Vec{X: 1, Y: 1})
	assert.InDelta(t, 1.0, r2.Norm(d), 1e-12)
	assert.InDelta(t, d.X, d.Y, 1e-12)
}
