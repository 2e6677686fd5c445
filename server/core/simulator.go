package core

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/shared/netcomponents"
	"github.com/automoto/stunsync/shared/session"
	"github.com/automoto/stunsync/shared/tuning"
	"github.com/automoto/stunsync/tags"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	controlledQuery = donburi.NewQuery(filter.Contains(tags.Controlled, netcomponents.NetBody))
	passiveQuery    = donburi.NewQuery(filter.Contains(tags.Passive, netcomponents.NetBody))
)

// Simulator owns the authoritative state of every entity. Step and the
// entity lifecycle methods belong to the loop goroutine; Enqueue and
// Snapshot may be called from anywhere.
type Simulator struct {
	world  donburi.World
	motion gamemath.Motion
	stun   *session.Coordinator
	queue  int

	mu        sync.RWMutex
	mailboxes map[uint32]chan messages.PlayerInput

	entities map[uint32]donburi.Entity
	session  donburi.Entity
	nextID   uint32
	tick     uint64
	snapshot atomic.Pointer[messages.Snapshot]
	metrics  *Metrics
}

// NewSimulator builds an empty world with its session entity. metrics may be nil.
func NewSimulator(cfg *tuning.Config, metrics *Metrics) *Simulator {
	s := &Simulator{
		world: donburi.NewWorld(),
		motion: gamemath.Motion{
			Speed:  cfg.Player.Speed,
			Extent: cfg.Player.Extent,
			Dt:     cfg.TickDuration(),
			Bounds: cfg.Bounds(),
		},
		stun:      session.NewCoordinator(cfg.Stun.Duration, cfg.TickDuration()),
		queue:     cfg.Server.InputQueue,
		mailboxes: make(map[uint32]chan messages.PlayerInput),
		entities:  make(map[uint32]donburi.Entity),
		metrics:   metrics,
	}

	s.session = s.world.Create(tags.Session, netcomponents.NetSession)
	netcomponents.NetSession.Set(s.world.Entry(s.session), &netcomponents.NetSessionData{
		Stun: s.stun.State(),
	})
	s.publish()
	return s
}

// AddControlled spawns an input-driven entity and opens its mailbox. Entity
// changes are published immediately so Snapshot always reflects the world.
func (s *Simulator) AddControlled(spawn r2.Vec) uint32 {
	spawn = s.motion.Bounds.Clamp(spawn, s.motion.Extent)
	id := s.create(tags.Controlled, messages.KindControlled, spawn, r2.Vec{}, s.motion.Extent, netcomponents.NetAck)

	s.mu.Lock()
	s.mailboxes[id] = make(chan messages.PlayerInput, s.queue)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Players.Inc()
	}
	return id
}

// AddPassive spawns a velocity-driven entity.
func (s *Simulator) AddPassive(pos, vel r2.Vec, extent float64) uint32 {
	pos = s.motion.Bounds.Clamp(pos, extent)
	return s.create(tags.Passive, messages.KindPassive, pos, vel, extent)
}

func (s *Simulator) create(tag donburi.IComponentType, kind messages.EntityKind, pos, vel r2.Vec, extent float64, extra ...donburi.IComponentType) uint32 {
	s.nextID++
	id := s.nextID

	comps := append([]donburi.IComponentType{
		tag,
		netcomponents.NetBody,
		netcomponents.NetPosition,
		netcomponents.NetVelocity,
	}, extra...)
	entity := s.world.Create(comps...)
	entry := s.world.Entry(entity)

	netcomponents.NetBody.Set(entry, &netcomponents.NetBodyData{ID: id, Kind: kind, Extent: extent})
	position := netcomponents.PositionOf(pos)
	velocity := netcomponents.VelocityOf(vel)
	netcomponents.NetPosition.Set(entry, &position)
	netcomponents.NetVelocity.Set(entry, &velocity)

	s.entities[id] = entity
	s.publish()
	return id
}

// Remove deletes an entity and closes its mailbox.
func (s *Simulator) Remove(id uint32) bool {
	entity, ok := s.entities[id]
	if !ok {
		return false
	}
	delete(s.entities, id)

	s.mu.Lock()
	_, controlled := s.mailboxes[id]
	delete(s.mailboxes, id)
	s.mu.Unlock()

	if s.world.Valid(entity) {
		s.world.Remove(entity)
	}
	if controlled && s.metrics != nil {
		s.metrics.Players.Dec()
	}
	s.publish()
	return true
}

// Enqueue hands an input to a controlled entity's mailbox in arrival order.
// A full mailbox or an unknown entity drops the input, which the tick then
// treats as no movement.
func (s *Simulator) Enqueue(id uint32, in messages.PlayerInput) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mb, ok := s.mailboxes[id]
	if !ok {
		return false
	}
	select {
	case mb <- in:
		return true
	default:
		if s.metrics != nil {
			s.metrics.InputsDropped.Inc()
		}
		return false
	}
}

type consumed struct {
	entry *donburi.Entry
	dir   r2.Vec
}

// Step advances the world by one tick: at most one input is consumed per
// controlled entity, a stun intent starts the global freeze, and nothing
// moves while the freeze holds. It returns the published snapshot.
func (s *Simulator) Step() *messages.Snapshot {
	s.tick++
	s.stun.BeginTick()

	var moves []consumed
	controlledQuery.Each(s.world, func(entry *donburi.Entry) {
		body := netcomponents.NetBody.Get(entry)
		ack := netcomponents.NetAck.Get(entry)

		c := consumed{entry: entry}
		if in, ok := s.dequeue(body.ID); ok {
			ack.Advance(in.Sequence)
			c.dir = in.Direction()
			if in.Stun && s.stun.TriggerAuthoritative() {
				if s.metrics != nil {
					s.metrics.Stuns.Inc()
				}
			}
			if s.metrics != nil {
				s.metrics.InputsConsumed.Inc()
			}
		}
		moves = append(moves, c)
	})

	if s.stun.StunJustBegan() {
		for _, c := range moves {
			ack := netcomponents.NetAck.Get(c.entry)
			ack.StunStartSeq = ack.HighestProcessed
		}
	}

	if !s.stun.IsAuthoritativelyStunned() {
		for _, c := range moves {
			pos := netcomponents.NetPosition.Get(c.entry)
			vel := netcomponents.NetVelocity.Get(c.entry)
			next := s.motion.Step(pos.Vec(), c.dir)
			*pos = netcomponents.PositionOf(next)
			*vel = netcomponents.VelocityOf(r2.Scale(s.motion.Speed, c.dir))
		}

		passiveQuery.Each(s.world, func(entry *donburi.Entry) {
			body := netcomponents.NetBody.Get(entry)
			pos := netcomponents.NetPosition.Get(entry)
			vel := netcomponents.NetVelocity.Get(entry)
			p, v := gamemath.StepPassive(pos.Vec(), vel.Vec(), s.motion.Dt, body.Extent, s.motion.Bounds)
			*pos = netcomponents.PositionOf(p)
			*vel = netcomponents.VelocityOf(v)
		})
	}

	sess := netcomponents.NetSession.Get(s.world.Entry(s.session))
	sess.Tick = s.tick
	sess.Stun = s.stun.State()

	if s.metrics != nil {
		s.metrics.Ticks.Inc()
	}
	return s.publish()
}

func (s *Simulator) dequeue(id uint32) (messages.PlayerInput, bool) {
	s.mu.RLock()
	mb := s.mailboxes[id]
	s.mu.RUnlock()

	select {
	case in := <-mb:
		return in, true
	default:
		return messages.PlayerInput{}, false
	}
}

// publish builds an immutable snapshot of the current tick and swaps it in.
func (s *Simulator) publish() *messages.Snapshot {
	snap := &messages.Snapshot{
		Tick: s.tick,
		Stun: s.stun.State(),
	}
	collect := func(entry *donburi.Entry) {
		body := netcomponents.NetBody.Get(entry)
		pos := netcomponents.NetPosition.Get(entry)
		vel := netcomponents.NetVelocity.Get(entry)
		e := messages.EntityState{
			ID:     body.ID,
			Kind:   body.Kind,
			X:      pos.X,
			Y:      pos.Y,
			VX:     vel.SpeedX,
			VY:     vel.SpeedY,
			Extent: body.Extent,
		}
		if entry.HasComponent(netcomponents.NetAck) {
			ack := netcomponents.NetAck.Get(entry)
			e.HighestProcessed = ack.HighestProcessed
			e.StunStartSeq = ack.StunStartSeq
		}
		snap.Entities = append(snap.Entities, e)
	}
	controlledQuery.Each(s.world, collect)
	passiveQuery.Each(s.world, collect)
	sortEntities(snap.Entities)

	s.snapshot.Store(snap)
	return snap
}

func sortEntities(es []messages.EntityState) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

// Snapshot returns the latest published snapshot. Safe from any goroutine.
func (s *Simulator) Snapshot() *messages.Snapshot { return s.snapshot.Load() }

// World returns the ECS world. Only the loop goroutine may touch it.
func (s *Simulator) World() donburi.World { return s.world }

// Entity returns the donburi entity behind id.
func (s *Simulator) Entity(id uint32) (donburi.Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// SessionEntity is the entity carrying the session component.
func (s *Simulator) SessionEntity() donburi.Entity { return s.session }

// Motion returns the controlled-entity integration parameters.
func (s *Simulator) Motion() gamemath.Motion { return s.motion }

// Stun exposes the authoritative stun coordinator.
func (s *Simulator) Stun() *session.Coordinator { return s.stun }

// Tick is the number of steps run.
func (s *Simulator) Tick() uint64 { return s.tick }
