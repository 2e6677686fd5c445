package messages

import (
	"github.com/automoto/stunsync/shared/session"
	"gonum.org/v1/gonum/spatial/r2"
)

// EntityKind tags what drives an entity.
type EntityKind uint8

const (
	KindControlled EntityKind = iota + 1 // input-driven, predicted by its owner
	KindPassive                          // velocity-driven, server-simulated
)

func (k EntityKind) String() string {
	switch k {
	case KindControlled:
		return "controlled"
	case KindPassive:
		return "passive"
	}
	return "unknown"
}

// EntityState is one entity's authoritative state inside a Snapshot.
type EntityState struct {
	ID     uint32
	Kind   EntityKind
	X, Y   float64
	VX, VY float64
	Extent float64

	// Controlled entities only.
	HighestProcessed uint32 // Highest input sequence the server consumed
	StunStartSeq     uint32 // Sequence consumed on the tick the last stun began
}

// Position returns the entity position as a vector.
func (e EntityState) Position() r2.Vec { return r2.Vec{X: e.X, Y: e.Y} }

// Velocity returns the entity velocity as a vector.
func (e EntityState) Velocity() r2.Vec { return r2.Vec{X: e.VX, Y: e.VY} }

// Snapshot is the complete authoritative state after one server tick. A
// snapshot is immutable once published; readers never see a partial tick.
type Snapshot struct {
	Tick     uint64
	Stun     session.State
	Entities []EntityState
}

// Find returns the entity with the given id.
func (s *Snapshot) Find(id uint32) (EntityState, bool) {
	if s == nil {
		return EntityState{}, false
	}
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntityState{}, false
}
