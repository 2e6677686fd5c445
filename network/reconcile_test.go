package network

import (
	"testing"

	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

const dt = 1.0 / 60.0

func testMotion() gamemath.Motion {
	return gamemath.Motion{
		Speed:  5,
		Extent: 1,
		Dt:     dt,
		Bounds: gamemath.NewBounds(r2.Vec{X: 10, Y: 10}),
	}
}

type rig struct {
	stun *session.Coordinator
	pred *Predictor
	rec  *Reconciler
}

// newRig builds a client core with a three-frame stun.
func newRig(spawn r2.Vec) *rig {
	stun := session.NewCoordinator(0.05, dt)
	pred := NewPredictor(testMotion(), stun, 64, spawn)
	return &rig{stun: stun, pred: pred, rec: NewReconciler(pred, stun, DefaultEpsilon)}
}

func (r *rig) tick(intent r2.Vec, trigger bool) {
	r.stun.BeginPredictedTick()
	r.pred.Step(intent, trigger)
}

func (r *rig) predicted(t *testing.T, seq uint32) r2.Vec {
	t.Helper()
	rec, ok := r.pred.Buffer.Get(seq)
	require.True(t, ok, "seq %d not retained", seq)
	return rec.Predicted
}

func TestPredictorFirstTick(t *testing.T) {
	r := newRig(r2.Vec{})
	r.stun.BeginPredictedTick()
	in := r.pred.Step(r2.Vec{X: 1}, false)

	assert.Equal(t, uint32(1), in.Sequence)
	assert.Equal(t, 1.0, in.X)
	assert.InDelta(t, 5.0/60.0, r.pred.RenderPosition().X, 1e-12)
	assert.Zero(t, r.pred.RenderPosition().Y)
}

func TestPredictorNormalisesDiagonal(t *testing.T) {
	r := newRig(r2.Vec{})
	in := r.pred.Step(r2.Vec{X: 1, Y: 1}, false)
	assert.InDelta(t, 1.0, r2.Norm(in.Direction()), 1e-12)
}

func TestPredictorStartsFromAuthoritativeWhenEmpty(t *testing.T) {
	r := newRig(r2.Vec{})
	r.pred.SetAuthoritative(r2.Vec{X: 2, Y: -3})
	assert.Equal(t, r2.Vec{X: 2, Y: -3}, r.pred.RenderPosition())

	r.pred.Step(r2.Vec{Y: 1}, false)
	assert.InDelta(t, -3+5.0/60.0, r.pred.RenderPosition().Y, 1e-12)
}

func TestPredictorLocalStunForcesZeroInput(t *testing.T) {
	r := newRig(r2.Vec{})
	var sent []bool
	for i := 1; i <= 8; i++ {
		r.stun.BeginPredictedTick()
		in := r.pred.Step(r2.Vec{X: 1}, i == 3)
		sent = append(sent, in.X == 0)
	}

	// trigger tick plus three frames
	assert.Equal(t, []bool{false, false, true, true, true, true, false, false}, sent)
	assert.Equal(t, r.predicted(t, 2), r.predicted(t, 6))
	rec, _ := r.pred.Buffer.Get(3)
	assert.True(t, rec.StunStart)
	assert.True(t, rec.Frozen)
}

func TestReconcileWithinEpsilonKeepsPrediction(t *testing.T) {
	r := newRig(r2.Vec{})
	for i := 0; i < 5; i++ {
		r.tick(r2.Vec{X: 1}, false)
	}
	before := r.predicted(t, 5)

	auth := r2.Add(r.predicted(t, 2), r2.Vec{Y: 0.05})
	assert.False(t, r.rec.Reconcile(Ack{Position: auth, HighestProcessed: 2}))
	assert.Equal(t, 4, r.pred.Buffer.Len())
	assert.Equal(t, before, r.predicted(t, 5))
}

func TestReconcileThresholdIsStrict(t *testing.T) {
	r := newRig(r2.Vec{})
	r.tick(r2.Vec{}, false)
	r.tick(r2.Vec{}, false)
	// zero input keeps every prediction at the origin
	assert.False(t, r.rec.Reconcile(Ack{Position: r2.Vec{X: DefaultEpsilon}, HighestProcessed: 1}))
	assert.True(t, r.rec.Reconcile(Ack{Position: r2.Vec{X: DefaultEpsilon + 1e-6}, HighestProcessed: 1}))
}

func TestReconcileConvergesToIndependentReplay(t *testing.T) {
	r := newRig(r2.Vec{})
	intents := []r2.Vec{
		{X: 1}, {X: 1}, {Y: 1}, {X: -1, Y: 1}, {}, {Y: -1},
		{X: 1, Y: -1}, {X: 1}, {X: 1}, {Y: 1},
	}
	for _, in := range intents {
		r.tick(in, false)
	}

	anchor := r2.Vec{X: 2, Y: 1}
	require.True(t, r.rec.Reconcile(Ack{Position: anchor, HighestProcessed: 3}))

	m := testMotion()
	want := anchor
	for _, in := range intents[3:] {
		want = m.Step(want, gamemath.NormalizeIntent(in))
	}
	got := r.pred.RenderPosition()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
	assert.Equal(t, anchor, r.predicted(t, 3))
	assert.Equal(t, uint64(1), r.rec.Corrections())

	// the corrected buffer now agrees with the same ack
	assert.False(t, r.rec.Reconcile(Ack{Position: anchor, HighestProcessed: 3}))
}

func TestReconcileNeedsTwoRecords(t *testing.T) {
	r := newRig(r2.Vec{})
	for i := 0; i < 3; i++ {
		r.tick(r2.Vec{X: 1}, false)
	}
	assert.False(t, r.rec.Reconcile(Ack{Position: r2.Vec{X: 5}, HighestProcessed: 3}))
	assert.Equal(t, 1, r.pred.Buffer.Len())
	assert.InDelta(t, 3*5.0/60.0, r.pred.Buffer.At(0).Predicted.X, 1e-12, "no correction applied")
}

func TestReconcileIgnoresStaleAck(t *testing.T) {
	r := newRig(r2.Vec{})
	for i := 0; i < 6; i++ {
		r.tick(r2.Vec{X: 1}, false)
	}
	require.False(t, r.rec.Reconcile(Ack{Position: r.predicted(t, 4), HighestProcessed: 4}))
	assert.False(t, r.rec.Reconcile(Ack{Position: r2.Vec{X: -7}, HighestProcessed: 2}))
	assert.Equal(t, uint32(4), r.rec.LastAck())
	head, _ := r.pred.Buffer.Head()
	assert.Equal(t, uint32(4), head.Sequence)
}

func TestReconcileSkipsUnprocessedHead(t *testing.T) {
	r := newRig(r2.Vec{})
	r.tick(r2.Vec{X: 1}, false)
	r.tick(r2.Vec{X: 1}, false)
	// nothing consumed yet: no record matches the ack
	assert.False(t, r.rec.Reconcile(Ack{Position: r2.Vec{X: 3}, HighestProcessed: 0}))
	assert.Equal(t, 2, r.pred.Buffer.Len())
}

func TestReconcileReplaysRemoteStunWindow(t *testing.T) {
	r := newRig(r2.Vec{})
	for i := 0; i < 10; i++ {
		r.tick(r2.Vec{X: 1}, false)
	}

	auth := r2.Add(r.predicted(t, 2), r2.Vec{X: 0.5})
	require.True(t, r.rec.Reconcile(Ack{Position: auth, HighestProcessed: 2, StunStartSeq: 4}))

	step := 5.0 / 60.0
	assert.InDelta(t, auth.X+step, r.predicted(t, 3).X, 1e-9)
	for seq := uint32(4); seq <= 7; seq++ {
		assert.InDelta(t, auth.X+step, r.predicted(t, seq).X, 1e-9, "seq %d frozen", seq)
		rec, _ := r.pred.Buffer.Get(seq)
		assert.True(t, rec.Frozen)
	}
	assert.InDelta(t, auth.X+4*step, r.pred.RenderPosition().X, 1e-9)
	assert.False(t, r.stun.IsPredictedLocally(), "window closed inside the buffer")
}

func TestReconcileCarriesFrozenFramesPastTail(t *testing.T) {
	r := newRig(r2.Vec{})
	for i := 0; i < 10; i++ {
		r.tick(r2.Vec{X: 1}, false)
	}

	auth := r2.Add(r.predicted(t, 2), r2.Vec{X: -0.5})
	require.True(t, r.rec.Reconcile(Ack{Position: auth, HighestProcessed: 2, StunStartSeq: 9}))

	step := 5.0 / 60.0
	assert.InDelta(t, auth.X+6*step, r.pred.RenderPosition().X, 1e-9)
	require.True(t, r.stun.IsPredictedLocally())
	assert.Equal(t, 2, r.stun.PredictedFramesLeft())

	// the carried frames keep the next two ticks frozen, then motion resumes
	r.tick(r2.Vec{X: 1}, false)
	r.tick(r2.Vec{X: 1}, false)
	assert.InDelta(t, auth.X+6*step, r.pred.RenderPosition().X, 1e-9)
	r.tick(r2.Vec{X: 1}, false)
	assert.InDelta(t, auth.X+7*step, r.pred.RenderPosition().X, 1e-9)
}

func TestReconcileLocalStunReplay(t *testing.T) {
	r := newRig(r2.Vec{})
	for i := 1; i <= 7; i++ {
		r.tick(r2.Vec{X: 1}, i == 3)
	}

	auth := r2.Vec{X: 0.5}
	require.True(t, r.rec.Reconcile(Ack{Position: auth, HighestProcessed: 2, StunStartSeq: 3}))
	for seq := uint32(3); seq <= 6; seq++ {
		assert.Equal(t, auth, r.predicted(t, seq))
	}
	assert.InDelta(t, 0.5+5.0/60.0, r.pred.RenderPosition().X, 1e-9)
	assert.False(t, r.stun.IsPredictedLocally())
}

func TestReconcileStunStartingOnClampTick(t *testing.T) {
	r := newRig(r2.Vec{X: 8.9})
	for i := 0; i < 8; i++ {
		r.tick(r2.Vec{X: 1}, false)
	}
	require.Equal(t, 9.0, r.predicted(t, 2).X, "prediction clamps at the wall")

	// the server stunned on the tick that would have clamped
	auth := r2.Vec{X: 8.95, Y: 0.5}
	require.True(t, r.rec.Reconcile(Ack{Position: auth, HighestProcessed: 1, StunStartSeq: 2}))

	for seq := uint32(2); seq <= 5; seq++ {
		assert.Equal(t, auth, r.predicted(t, seq), "seq %d frozen before the clamp", seq)
	}
	assert.Equal(t, r2.Vec{X: 9, Y: 0.5}, r.predicted(t, 6))
	assert.Equal(t, r2.Vec{X: 9, Y: 0.5}, r.pred.RenderPosition())
	for _, rec := range r.pred.Buffer.Records() {
		assert.LessOrEqual(t, rec.Predicted.X, 9.0)
	}
}

func TestReconcileLateAckStillFreezesWindow(t *testing.T) {
	r := newRig(r2.Vec{})
	for i := 0; i < 10; i++ {
		r.tick(r2.Vec{X: 1}, false)
	}

	// the stun start itself is already acknowledged and trimmed
	auth := r2.Vec{X: 1}
	require.True(t, r.rec.Reconcile(Ack{Position: auth, HighestProcessed: 5, StunStartSeq: 3}))
	assert.Equal(t, auth, r.predicted(t, 6), "seq 6 is the last frozen one")
	assert.InDelta(t, 1+4*5.0/60.0, r.pred.RenderPosition().X, 1e-9)
}
