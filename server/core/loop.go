package core

import (
	"log"
	"sync"
	"time"
)

// GameLoop drives the server at a fixed tick rate and broadcasts every
// broadcastEvery ticks.
type GameLoop struct {
	server         *Server
	tickRate       int
	broadcastEvery int
	ticks          uint64

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewGameLoop(server *Server, tickRate, broadcastEvery int) *GameLoop {
	if broadcastEvery < 1 {
		broadcastEvery = 1
	}
	return &GameLoop{
		server:         server,
		tickRate:       tickRate,
		broadcastEvery: broadcastEvery,
		stopChan:       make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	defer close(g.done)
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	log.Printf("[loop] started at %d ticks/second, broadcasting every %d", g.tickRate, g.broadcastEvery)

	for {
		select {
		case <-g.stopChan:
			log.Println("[loop] stopped")
			return
		case <-ticker.C:
			g.Step()
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (g *GameLoop) Stop() {
	g.stopOnce.Do(func() { close(g.stopChan) })
}

// Done is closed once Run has returned.
func (g *GameLoop) Done() <-chan struct{} { return g.done }

// Step runs one tick: queued commands, the simulation step, then a
// broadcast when one is due.
func (g *GameLoop) Step() {
	start := time.Now()
	g.server.ProcessCommands()
	g.server.sim.Step()
	g.ticks++
	if g.ticks%uint64(g.broadcastEvery) == 0 {
		g.server.broadcast()
	}
	if m := g.server.opts.Metrics; m != nil {
		m.TickSeconds.Observe(time.Since(start).Seconds())
	}
}
