package network

import (
	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/shared/session"
	"gonum.org/v1/gonum/spatial/r2"
)

// Predictor forecasts the locally controlled entity ahead of the server. It
// owns the prediction buffer and shares the stun coordinator with the
// reconciler and mirrors of the same client.
type Predictor struct {
	Buffer *PredictionBuffer

	motion  gamemath.Motion
	stun    *session.Coordinator
	authPos r2.Vec // Last known authoritative position
}

// NewPredictor creates a predictor starting at spawn.
func NewPredictor(motion gamemath.Motion, stun *session.Coordinator, capacity int, spawn r2.Vec) *Predictor {
	return &Predictor{
		Buffer:  NewPredictionBuffer(capacity),
		motion:  motion,
		stun:    stun,
		authPos: spawn,
	}
}

// Step runs one local tick: a stun trigger starts the predicted view at
// once, a stunned view forces zero input, and the input is integrated from
// the newest prediction with the same rule the server uses. It returns the
// message to transmit. Callers age the stun views before calling Step.
func (p *Predictor) Step(intent r2.Vec, triggerStun bool) messages.PlayerInput {
	stunStart := false
	if triggerStun {
		stunStart = p.stun.TriggerPredicted(p.Buffer.NextSeq())
	}

	dir := gamemath.NormalizeIntent(intent)
	frozen := p.stun.IsPredictedLocally()
	applied := dir
	if frozen {
		applied = r2.Vec{}
	}

	from := p.authPos
	if tail, ok := p.Buffer.Tail(); ok {
		from = tail.Predicted
	}
	next := from
	if !frozen {
		next = p.motion.Step(from, applied)
	}

	seq := p.Buffer.Append(applied, next, stunStart, frozen)
	return messages.NewPlayerInput(seq, applied, triggerStun)
}

// SetAuthoritative records the latest authoritative position; it seeds
// prediction whenever the buffer is empty.
func (p *Predictor) SetAuthoritative(pos r2.Vec) {
	p.authPos = pos
}

// RenderPosition is where the local entity is drawn: the newest prediction,
// or the authoritative position before anything was predicted.
func (p *Predictor) RenderPosition() r2.Vec {
	if tail, ok := p.Buffer.Tail(); ok {
		return tail.Predicted
	}
	return p.authPos
}

// Motion returns the integration parameters.
func (p *Predictor) Motion() gamemath.Motion { return p.motion }
