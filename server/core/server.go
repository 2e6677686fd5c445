package core

import (
	"fmt"
	"log"
	"sync"

	"github.com/automoto/stunsync/shared/leveldata"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/shared/netcomponents"
	"github.com/automoto/stunsync/shared/tuning"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/spatial/r2"
)

const commandQueueSize = 64

// Peer is a connected client as the server sees it. *router.NetworkClient
// satisfies it.
type Peer interface {
	Id() string
	SendMessage(msg any) error
}

// Syncer replicates entities to clients.
type Syncer interface {
	Track(world donburi.World, entity donburi.Entity) error
	Flush() error
}

type esyncSyncer struct{}

func (esyncSyncer) Track(world donburi.World, entity donburi.Entity) error {
	entry := world.Entry(entity)
	if entry.HasComponent(netcomponents.NetSession) {
		return srvsync.NetworkSync(world, &entity, netcomponents.NetSession)
	}
	comps := []any{netcomponents.NetBody, netcomponents.NetPosition, netcomponents.NetVelocity}
	if entry.HasComponent(netcomponents.NetAck) {
		comps = append(comps, netcomponents.NetAck)
	}
	return srvsync.NetworkSync(world, &entity, comps...)
}

func (esyncSyncer) Flush() error { return srvsync.DoSync() }

// Options configure a Server beyond the shared tuning.
type Options struct {
	Name       string
	Version    string // Required client version, empty accepts any
	MaxPlayers int    // 0 means unlimited
	Arena      *leveldata.Arena
	Metrics    *Metrics
}

type command interface{ isCommand() }

type joinCommand struct {
	peer Peer
	req  messages.JoinRequest
}

type leaveCommand struct{ peer Peer }

func (joinCommand) isCommand()  {}
func (leaveCommand) isCommand() {}

// Server manages the simulator and client connections
type Server struct {
	cfg        *tuning.Config
	opts       Options
	sim        *Simulator
	loop       *GameLoop
	syncer     Syncer
	spawns     *SpawnPlanner
	spectators *SpectatorHub
	transport  *transports.WsServerTransport

	commands chan command

	// Track which network client owns which entity
	clientEntities map[string]uint32
	mu             sync.RWMutex
}

// NewServer creates a game server replicating over necs.
func NewServer(cfg *tuning.Config, opts Options) (*Server, error) {
	s, err := newServer(cfg, opts, esyncSyncer{})
	if err != nil {
		return nil, err
	}
	srvsync.UseEsync(s.sim.World())
	if err := s.trackExisting(); err != nil {
		return nil, err
	}
	s.setupRouterCallbacks()
	return s, nil
}

// NewLocalServer creates a server that replicates through syncer instead of
// necs. Nothing listens; callers drive Join, HandleInput and Loop().Step.
func NewLocalServer(cfg *tuning.Config, opts Options, syncer Syncer) (*Server, error) {
	s, err := newServer(cfg, opts, syncer)
	if err != nil {
		return nil, err
	}
	if err := s.trackExisting(); err != nil {
		return nil, err
	}
	return s, nil
}

func newServer(base *tuning.Config, opts Options, syncer Syncer) (*Server, error) {
	cfg := *base
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = "stunsync"
	}

	var spawnPoints []r2.Vec
	if opts.Arena != nil {
		cfg.Arena.HalfWidth = opts.Arena.HalfW
		cfg.Arena.HalfHeight = opts.Arena.HalfH
		cfg.Circles = make([]tuning.CircleConfig, 0, len(opts.Arena.Circles))
		for _, c := range opts.Arena.Circles {
			cfg.Circles = append(cfg.Circles, tuning.CircleConfig{
				X: c.Position.X, Y: c.Position.Y,
				VX: c.Velocity.X, VY: c.Velocity.Y,
				Radius: c.Radius,
			})
		}
		spawnPoints = opts.Arena.PlayerSpawns
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("arena %s: %w", opts.Arena.Name, err)
		}
	}

	s := &Server{
		cfg:            &cfg,
		opts:           opts,
		sim:            NewSimulator(&cfg, opts.Metrics),
		syncer:         syncer,
		spawns:         NewSpawnPlanner(cfg.Bounds(), spawnPoints),
		spectators:     NewSpectatorHub(),
		commands:       make(chan command, commandQueueSize),
		clientEntities: make(map[string]uint32),
	}
	s.loop = NewGameLoop(s, cfg.TickRate, cfg.BroadcastEvery())

	for _, c := range cfg.Circles {
		s.sim.AddPassive(r2.Vec{X: c.X, Y: c.Y}, r2.Vec{X: c.VX, Y: c.VY}, c.Radius)
	}
	return s, nil
}

// trackExisting replicates the session entity and the passive bodies.
func (s *Server) trackExisting() error {
	world := s.sim.World()
	if err := s.syncer.Track(world, s.sim.SessionEntity()); err != nil {
		return fmt.Errorf("sync session: %w", err)
	}
	for _, e := range s.sim.Snapshot().Entities {
		entity, _ := s.sim.Entity(e.ID)
		if err := s.syncer.Track(world, entity); err != nil {
			return fmt.Errorf("sync entity %d: %w", e.ID, err)
		}
	}
	return nil
}

// Start begins the server on the given port
func (s *Server) Start(port uint) error {
	// Start game loop
	go s.loop.Run()

	// Create and start WebSocket transport
	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() {
	s.loop.Stop()
}

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		log.Printf("[server] client connected: %s", client.Id())
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		if err != nil {
			log.Printf("[server] client %s disconnected with error: %v", client.Id(), err)
		} else {
			log.Printf("[server] client %s disconnected", client.Id())
		}
		s.submit(leaveCommand{peer: client})
	})

	router.On(func(client *router.NetworkClient, req messages.JoinRequest) {
		s.submit(joinCommand{peer: client, req: req})
	})

	router.On(func(client *router.NetworkClient, input messages.PlayerInput) {
		s.HandleInput(client, input)
	})

	router.On(func(client *router.NetworkClient, ping messages.Ping) {
		if err := client.SendMessage(messages.Pong{SentAt: ping.SentAt}); err != nil {
			log.Printf("[server] pong to %s: %v", client.Id(), err)
		}
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		log.Printf("[server] client error: %v", err)
	})
}

func (s *Server) submit(cmd command) {
	select {
	case s.commands <- cmd:
	default:
		log.Printf("[server] command queue full, dropping %T", cmd)
	}
}

// HandleInput routes an input to the sender's mailbox. Safe from any goroutine.
func (s *Server) HandleInput(peer Peer, input messages.PlayerInput) bool {
	s.mu.RLock()
	id, ok := s.clientEntities[peer.Id()]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return s.sim.Enqueue(id, input)
}

// Join queues a join request; it is applied on the next tick.
func (s *Server) Join(peer Peer, req messages.JoinRequest) { s.submit(joinCommand{peer: peer, req: req}) }

// Leave queues the removal of peer's entity.
func (s *Server) Leave(peer Peer) { s.submit(leaveCommand{peer: peer}) }

// ProcessCommands applies queued joins and leaves. Called by the loop
// before each tick so the world is only touched from one goroutine.
func (s *Server) ProcessCommands() {
	for {
		select {
		case cmd := <-s.commands:
			switch c := cmd.(type) {
			case joinCommand:
				s.join(c.peer, c.req)
			case leaveCommand:
				s.leave(c.peer)
			}
		default:
			return
		}
	}
}

func (s *Server) join(peer Peer, req messages.JoinRequest) {
	if reason := s.rejectReason(peer, req); reason != "" {
		log.Printf("[server] rejecting %s: %s", peer.Id(), reason)
		if err := peer.SendMessage(messages.JoinRejected{Reason: reason}); err != nil {
			log.Printf("[server] send rejection: %v", err)
		}
		return
	}

	spawn := s.spawns.Pick(s.sim.Snapshot().Entities, s.cfg.Player.Extent)
	id := s.sim.AddControlled(spawn)
	entity, _ := s.sim.Entity(id)
	if err := s.syncer.Track(s.sim.World(), entity); err != nil {
		log.Printf("[server] failed to set up network sync for %s: %v", peer.Id(), err)
		s.sim.Remove(id)
		return
	}

	s.mu.Lock()
	s.clientEntities[peer.Id()] = id
	s.mu.Unlock()

	b := s.cfg.Bounds()
	err := peer.SendMessage(messages.JoinAccepted{
		EntityID:       id,
		ServerName:     s.opts.Name,
		TickRate:       s.cfg.TickRate,
		Speed:          s.cfg.Player.Speed,
		Extent:         s.cfg.Player.Extent,
		HalfW:          b.HalfW,
		HalfH:          b.HalfH,
		StunDuration:   s.cfg.Stun.Duration,
		SpawnX:         spawn.X,
		SpawnY:         spawn.Y,
		Epsilon:        s.cfg.Reconcile.Epsilon,
		BufferCapacity: s.cfg.Reconcile.BufferCapacity,
	})
	if err != nil {
		log.Printf("[server] send join accepted: %v", err)
	}
	log.Printf("[server] %q joined as entity %d at (%.2f, %.2f)", req.PlayerName, id, spawn.X, spawn.Y)
}

func (s *Server) rejectReason(peer Peer, req messages.JoinRequest) string {
	s.mu.RLock()
	_, joined := s.clientEntities[peer.Id()]
	players := len(s.clientEntities)
	s.mu.RUnlock()

	switch {
	case joined:
		return "already joined"
	case s.opts.Version != "" && req.Version != s.opts.Version:
		return fmt.Sprintf("version mismatch: server %s, client %s", s.opts.Version, req.Version)
	case s.opts.MaxPlayers > 0 && players >= s.opts.MaxPlayers:
		return "server full"
	}
	return ""
}

func (s *Server) leave(peer Peer) {
	s.mu.Lock()
	id, ok := s.clientEntities[peer.Id()]
	delete(s.clientEntities, peer.Id())
	s.mu.Unlock()

	if ok && s.sim.Remove(id) {
		log.Printf("[server] entity %d removed for %s", id, peer.Id())
	}
}

// broadcast replicates the world to clients and spectators.
func (s *Server) broadcast() {
	if err := s.syncer.Flush(); err != nil {
		log.Printf("[server] sync error: %v", err)
	}
	s.spectators.Publish(s.sim.Snapshot())
}

// Simulator returns the authoritative simulator.
func (s *Server) Simulator() *Simulator { return s.sim }

// Spectators returns the spectator hub for mounting on an HTTP mux.
func (s *Server) Spectators() *SpectatorHub { return s.spectators }

// Loop returns the game loop.
func (s *Server) Loop() *GameLoop { return s.loop }

// PlayerCount returns the number of connected players
func (s *Server) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clientEntities)
}
