// Package harness runs the authoritative server and a set of predicting
// clients in one process, connected by lossy in-memory links, and records
// how far each client's prediction strays from the server.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/automoto/stunsync/network"
	"github.com/automoto/stunsync/server/core"
	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/messages"
	"github.com/automoto/stunsync/shared/transport"
	"github.com/automoto/stunsync/shared/tuning"
	"github.com/gocarina/gocsv"
	"github.com/yohamta/donburi"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// intentPeriod is how many ticks a scripted client holds one direction.
const intentPeriod = 30

var directions = []r2.Vec{
	{}, {X: 1}, {X: -1}, {Y: 1}, {Y: -1},
	{X: 1, Y: 1}, {X: -1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1},
}

// Options shape a run.
type Options struct {
	Clients   int
	Link      transport.Options // Used for both directions of every client
	StunEvery int               // Ticks between scripted stun triggers per client, 0 disables
	Seed      int64
	Metrics   *core.Metrics
}

// Sample is one client's state after one tick.
type Sample struct {
	Tick        uint64  `csv:"tick"`
	Client      int     `csv:"client"`
	Entity      uint32  `csv:"entity"`
	Seq         uint32  `csv:"seq"`
	Ack         uint32  `csv:"ack"`
	Buffered    int     `csv:"buffered"`
	PredX       float64 `csv:"pred_x"`
	PredY       float64 `csv:"pred_y"`
	AuthX       float64 `csv:"auth_x"`
	AuthY       float64 `csv:"auth_y"`
	Error       float64 `csv:"error"`
	Corrections uint64  `csv:"corrections"`
	LocalStun   bool    `csv:"local_stun"`
	ServerStun  bool    `csv:"server_stun"`
	CatchingUp  int     `csv:"catching_up"`
}

// peer stands in for a websocket connection on the server side.
type peer struct {
	id string

	mu      sync.Mutex
	replies []any
}

func (p *peer) Id() string { return p.id }

func (p *peer) SendMessage(msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, msg)
	return nil
}

func (p *peer) accepted() (messages.JoinAccepted, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.replies {
		switch msg := r.(type) {
		case messages.JoinAccepted:
			return msg, nil
		case messages.JoinRejected:
			return messages.JoinAccepted{}, fmt.Errorf("%s rejected: %s", p.id, msg.Reason)
		}
	}
	return messages.JoinAccepted{}, fmt.Errorf("%s: no join reply", p.id)
}

type client struct {
	index   int
	peer    *peer
	session *network.ClientSession
	up      *transport.Link[messages.PlayerInput]
	down    *transport.Link[*messages.Snapshot]
	rng     *rand.Rand
	intent  r2.Vec
	lastSeq uint32
}

// Harness is a server plus its clients, advanced one tick at a time.
type Harness struct {
	opts    Options
	server  *core.Server
	clients []*client
	tick    uint64
}

// New starts a server from cfg and joins opts.Clients scripted clients.
func New(cfg *tuning.Config, opts Options) (*Harness, error) {
	if opts.Clients < 1 {
		return nil, errors.New("harness: need at least one client")
	}
	h := &Harness{opts: opts}

	server, err := core.NewLocalServer(cfg, core.Options{Name: "harness", Metrics: opts.Metrics}, h)
	if err != nil {
		return nil, err
	}
	h.server = server

	peers := make([]*peer, opts.Clients)
	for i := range peers {
		peers[i] = &peer{id: fmt.Sprintf("bot-%d", i)}
		server.Join(peers[i], messages.JoinRequest{PlayerName: peers[i].id})
	}
	server.ProcessCommands()

	// Seed the estimator with the round trip the links will produce.
	dt := cfg.TickDuration()
	rtt := time.Duration(float64(2*opts.Link.Delay+opts.Link.Jitter) * dt * float64(time.Second))

	for i, p := range peers {
		join, err := p.accepted()
		if err != nil {
			return nil, err
		}
		sc := network.SessionConfigFromJoin(join)

		up := opts.Link
		up.Seed = opts.Seed + int64(2*i)
		down := opts.Link
		down.Seed = opts.Seed + int64(2*i+1)

		h.clients = append(h.clients, &client{
			index:   i,
			peer:    p,
			session: network.NewClientSession(sc, network.NewRTTEstimator(0, rtt)),
			up:      transport.NewLink[messages.PlayerInput](up),
			down:    transport.NewLink[*messages.Snapshot](down),
			rng:     rand.New(rand.NewSource(opts.Seed + int64(i))),
		})
	}
	return h, nil
}

// Track satisfies core.Syncer; every entity is part of the snapshot.
func (h *Harness) Track(donburi.World, donburi.Entity) error { return nil }

// Flush delivers the current snapshot onto every client's downlink.
func (h *Harness) Flush() error {
	snap := h.server.Simulator().Snapshot()
	for _, c := range h.clients {
		c.down.Send(snap)
	}
	return nil
}

// Step advances every peer by one tick. Scripted clients wander and trigger
// stuns unless idle, in which case they stand still.
func (h *Harness) Step(idle bool) []Sample {
	h.tick++

	for _, c := range h.clients {
		intent, trigger := h.script(c, idle)
		in := c.session.Tick(intent, trigger)
		c.lastSeq = in.Sequence
		c.up.Send(in)
	}

	for _, c := range h.clients {
		c.up.Advance()
		for _, in := range c.up.Drain() {
			h.server.HandleInput(c.peer, in)
		}
	}

	h.server.Loop().Step()

	for _, c := range h.clients {
		c.down.Advance()
		for _, snap := range c.down.Drain() {
			c.session.Offer(snap)
		}
	}
	return h.sample()
}

func (h *Harness) script(c *client, idle bool) (r2.Vec, bool) {
	if idle {
		return r2.Vec{}, false
	}
	if (h.tick+uint64(c.index)*7)%intentPeriod == 1 {
		c.intent = directions[c.rng.Intn(len(directions))]
	}
	trigger := false
	if every := uint64(h.opts.StunEvery); every > 0 {
		trigger = (h.tick+uint64(c.index)*13)%every == 0
	}
	return c.intent, trigger
}

func (h *Harness) sample() []Sample {
	auth := h.server.Simulator().Snapshot()
	out := make([]Sample, 0, len(h.clients))
	for _, c := range h.clients {
		s := Sample{
			Tick:        h.tick,
			Client:      c.index,
			Entity:      c.session.EntityID(),
			Seq:         c.lastSeq,
			Ack:         c.session.Reconciler.LastAck(),
			Buffered:    c.session.Predictor.Buffer.Len(),
			Corrections: c.session.Reconciler.Corrections(),
			LocalStun:   c.session.Stun.IsPredictedLocally(),
			ServerStun:  auth.Stun.Stunned,
		}
		pred := c.session.Predictor.RenderPosition()
		s.PredX, s.PredY = pred.X, pred.Y
		if e, ok := auth.Find(s.Entity); ok {
			s.AuthX, s.AuthY = e.X, e.Y
			s.Error = gamemath.Distance(pred, e.Position())
		}
		for _, v := range c.session.Views() {
			if v.Catching {
				s.CatchingUp++
			}
		}
		out = append(out, s)
	}
	return out
}

// Run plays active ticks of scripted input followed by idle ticks of
// standing still, returning every sample.
func (h *Harness) Run(ctx context.Context, active, idle int) ([]Sample, error) {
	samples := make([]Sample, 0, (active+idle)*len(h.clients))
	for i := 0; i < active+idle; i++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		samples = append(samples, h.Step(i >= active)...)
	}
	return samples, nil
}

// Server exposes the authoritative server.
func (h *Harness) Server() *core.Server { return h.server }

// Session returns client i's session.
func (h *Harness) Session(i int) *network.ClientSession { return h.clients[i].session }

// Summary condenses a run.
type Summary struct {
	MeanError   float64
	MaxError    float64
	FinalError  float64 // Largest error on the last tick
	Corrections uint64
}

// Summarize reduces samples to a Summary.
func Summarize(samples []Sample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	errs := make([]float64, len(samples))
	last := samples[len(samples)-1].Tick
	var sum Summary
	for i, s := range samples {
		errs[i] = s.Error
		if s.Tick == last {
			sum.FinalError = max(sum.FinalError, s.Error)
			sum.Corrections += s.Corrections
		}
	}
	sum.MeanError = stat.Mean(errs, nil)
	sum.MaxError = floats.Max(errs)
	return sum
}

// WriteCSV writes samples with a header row.
func WriteCSV(w io.Writer, samples []Sample) error {
	return gocsv.Marshal(samples, w)
}
