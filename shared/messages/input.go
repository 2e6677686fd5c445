package messages

import "gonum.org/v1/gonum/spatial/r2"

// PlayerInput is sent from client to server every local tick. The sequence
// number is the client's tick counter and is never reused; the server echoes
// the highest one it consumed so the client can reconcile its prediction.
type PlayerInput struct {
	Sequence  uint32  // Incrementing ID for reconciliation
	X, Y      float64 // Normalised movement direction
	Stun      bool    // Trigger edge for the global stun
	Timestamp int64   // Client timestamp (Unix ms)
}

// NewPlayerInput builds an input for seq from a direction.
func NewPlayerInput(seq uint32, dir r2.Vec, stun bool) PlayerInput {
	return PlayerInput{
		Sequence: seq,
		X:        dir.X,
		Y:        dir.Y,
		Stun:     stun,
	}
}

// Direction returns the movement direction as a vector.
func (p PlayerInput) Direction() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Ping is sent by clients to measure round-trip time.
type Ping struct {
	SentAt int64 // Client clock, Unix ns
}

// Pong echoes a Ping back to its sender.
type Pong struct {
	SentAt int64
}
