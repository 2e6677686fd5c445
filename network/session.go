package network

import (
	"sort"
	"sync/atomic"

	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/shared/session"
	"gonum.org/v1/gonum/spatial/r2"
)

// SessionConfig describes the local player and the shared motion rules. It
// is normally built from a JoinAccepted.
type SessionConfig struct {
	EntityID       uint32
	Motion         gamemath.Motion
	StunDuration   float64
	Epsilon        float64
	BufferCapacity int
	Spawn          r2.Vec
}

// SessionConfigFromJoin builds a SessionConfig from the server's join reply.
// Zero epsilon or capacity fall back to the reconciler and buffer defaults.
func SessionConfigFromJoin(msg messages.JoinAccepted) SessionConfig {
	return SessionConfig{
		EntityID: msg.EntityID,
		Motion: gamemath.Motion{
			Speed:  msg.Speed,
			Extent: msg.Extent,
			Dt:     1 / float64(msg.TickRate),
			Bounds: gamemath.Bounds{HalfW: msg.HalfW, HalfH: msg.HalfH},
		},
		StunDuration:   msg.StunDuration,
		Epsilon:        msg.Epsilon,
		BufferCapacity: msg.BufferCapacity,
		Spawn:          r2.Vec{X: msg.SpawnX, Y: msg.SpawnY},
	}
}

// View is one entity as the client should draw it.
type View struct {
	ID       uint32
	Kind     messages.EntityKind
	Position r2.Vec
	Extent   float64
	Owned    bool
	Frozen   bool // Held by the local stun view
	Catching bool // Running catch-up simulation
}

// ClientSession ties together the client-side pieces for one connection:
// prediction and reconciliation for the owned entity, catch-up mirrors for
// passive ones and the predicted stun view.
type ClientSession struct {
	cfg SessionConfig

	Stun       *session.Coordinator
	Predictor  *Predictor
	Reconciler *Reconciler
	RTT        *RTTEstimator

	pending atomic.Pointer[messages.Snapshot]
	applied *messages.Snapshot
	mirrors map[uint32]*CatchUpMirror
	views   []View
	ticks   uint64
}

// NewClientSession creates a session. rtt may be shared with the connection
// that answers pings; nil creates a private estimator.
func NewClientSession(cfg SessionConfig, rtt *RTTEstimator) *ClientSession {
	if rtt == nil {
		rtt = NewRTTEstimator(defaultRTTWindow, defaultRTT)
	}
	stun := session.NewCoordinator(cfg.StunDuration, cfg.Motion.Dt)
	pred := NewPredictor(cfg.Motion, stun, cfg.BufferCapacity, cfg.Spawn)
	return &ClientSession{
		cfg:        cfg,
		Stun:       stun,
		Predictor:  pred,
		Reconciler: NewReconciler(pred, stun, cfg.Epsilon),
		RTT:        rtt,
		mirrors:    make(map[uint32]*CatchUpMirror),
	}
}

// Offer hands a snapshot to the session. It is safe from any goroutine; only
// the newest snapshot offered before the next Tick is applied.
func (s *ClientSession) Offer(snap *messages.Snapshot) {
	for {
		cur := s.pending.Load()
		if cur != nil && cur.Tick >= snap.Tick {
			return
		}
		if s.pending.CompareAndSwap(cur, snap) {
			return
		}
	}
}

// Tick runs one local fixed step and returns the input to send. The stun
// view is aged, the owned entity predicted, any new snapshot reconciled and
// the passive mirrors advanced.
func (s *ClientSession) Tick(intent r2.Vec, triggerStun bool) messages.PlayerInput {
	s.ticks++
	s.Stun.BeginPredictedTick()
	input := s.Predictor.Step(intent, triggerStun)

	if snap := s.pending.Swap(nil); snap != nil {
		s.apply(snap)
	}
	s.rebuildViews()
	return input
}

func (s *ClientSession) apply(snap *messages.Snapshot) {
	if s.applied != nil && snap.Tick <= s.applied.Tick {
		return
	}
	s.applied = snap
	own, ok := snap.Find(s.cfg.EntityID)
	s.Stun.ObserveAuthoritative(snap.Stun.Stunned, own.StunStartSeq)

	if ok {
		s.Reconciler.Reconcile(Ack{
			Position:         own.Position(),
			HighestProcessed: own.HighestProcessed,
			StunStartSeq:     own.StunStartSeq,
		})
	}
}

func (s *ClientSession) rebuildViews() {
	s.views = s.views[:0]
	if s.applied == nil {
		s.views = append(s.views, View{
			ID:       s.cfg.EntityID,
			Kind:     messages.KindControlled,
			Position: s.Predictor.RenderPosition(),
			Extent:   s.cfg.Motion.Extent,
			Owned:    true,
			Frozen:   s.Stun.IsPredictedLocally(),
		})
		return
	}

	stunned := s.Stun.IsPredictedLocally()
	rtt := s.RTT.Estimate()
	seen := make(map[uint32]bool, len(s.applied.Entities))

	for _, e := range s.applied.Entities {
		seen[e.ID] = true
		v := View{ID: e.ID, Kind: e.Kind, Extent: e.Extent}
		switch {
		case e.ID == s.cfg.EntityID:
			v.Position = s.Predictor.RenderPosition()
			v.Owned = true
			v.Frozen = stunned
		case e.Kind == messages.KindPassive:
			m, ok := s.mirrors[e.ID]
			if !ok {
				m = NewCatchUpMirror(e.Extent, s.cfg.Motion.Bounds)
				s.mirrors[e.ID] = m
			}
			v.Position = m.Update(stunned, e.Position(), e.Velocity(), rtt, s.cfg.Motion.Dt)
			v.Frozen = m.Frozen()
			v.Catching = m.CatchingUp()
		default:
			v.Position = e.Position()
		}
		s.views = append(s.views, v)
	}

	for id := range s.mirrors {
		if !seen[id] {
			delete(s.mirrors, id)
		}
	}
	sort.Slice(s.views, func(i, j int) bool { return s.views[i].ID < s.views[j].ID })
}

// Views returns the entities to draw after the last Tick. The slice is
// reused by the next Tick.
func (s *ClientSession) Views() []View { return s.views }

// Own returns the view of the locally controlled entity.
func (s *ClientSession) Own() (View, bool) {
	for _, v := range s.views {
		if v.Owned {
			return v, true
		}
	}
	return View{}, false
}

// Applied is the last snapshot reconciled against, or nil.
func (s *ClientSession) Applied() *messages.Snapshot { return s.applied }

// Ticks is the number of local steps run.
func (s *ClientSession) Ticks() uint64 { return s.ticks }

// EntityID is the id of the locally controlled entity.
func (s *ClientSession) EntityID() uint32 { return s.cfg.EntityID }
