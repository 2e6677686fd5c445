// Package transport provides an in-process stand-in for the network: a
// one-way link that delays, drops and reorders messages on a tick clock.
// Tests and the headless harness use it in place of the websocket transport.
package transport

import (
	"math/rand"
	"sort"
	"sync"
)

// Options shape a Link.
type Options struct {
	Delay    int     // Ticks between Send and delivery
	Jitter   int     // Extra random delay in [0, Jitter]; reorders messages
	DropRate float64 // Probability in [0, 1) that a message is lost
	Capacity int     // In-flight and delivered message bound per direction
	Seed     int64
}

type inFlight[T any] struct {
	due   int64
	order uint64
	msg   T
}

// Link is a bounded, lossy, latent one-way channel. Send may be called from
// any goroutine; Advance is driven by the receiver's tick loop.
type Link[T any] struct {
	mu       sync.Mutex
	opts     Options
	rng      *rand.Rand
	now      int64
	sent     uint64
	pending  []inFlight[T]
	out      chan T
	dropped  uint64
	overflow uint64
}

// NewLink builds a link. Capacity defaults to 256.
func NewLink[T any](opts Options) *Link[T] {
	if opts.Capacity <= 0 {
		opts.Capacity = 256
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	return &Link[T]{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
		out:  make(chan T, opts.Capacity),
	}
}

// Send puts msg on the wire. It reports false when the message was lost to
// the drop rate or a full link; the sender is never blocked.
func (l *Link[T]) Send(msg T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.opts.DropRate > 0 && l.rng.Float64() < l.opts.DropRate {
		l.dropped++
		return false
	}
	if len(l.pending) >= l.opts.Capacity {
		l.overflow++
		return false
	}
	delay := int64(l.opts.Delay)
	if l.opts.Jitter > 0 {
		delay += int64(l.rng.Intn(l.opts.Jitter + 1))
	}
	l.sent++
	l.pending = append(l.pending, inFlight[T]{due: l.now + delay, order: l.sent, msg: msg})
	return true
}

// Advance moves the link clock forward one tick and delivers every message
// that has come due onto the receive channel.
func (l *Link[T]) Advance() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now++
	if len(l.pending) == 0 {
		return
	}
	sort.SliceStable(l.pending, func(i, j int) bool {
		if l.pending[i].due != l.pending[j].due {
			return l.pending[i].due < l.pending[j].due
		}
		return l.pending[i].order < l.pending[j].order
	})
	n := 0
	for n < len(l.pending) && l.pending[n].due <= l.now {
		select {
		case l.out <- l.pending[n].msg:
		default:
			l.overflow++
		}
		n++
	}
	l.pending = append(l.pending[:0], l.pending[n:]...)
}

// C is the receive side of the link.
func (l *Link[T]) C() <-chan T { return l.out }

// Drain returns every delivered message, non-blocking.
func (l *Link[T]) Drain() []T {
	return drainChan(l.out)
}

// Stats reports messages lost to the drop rate and to full buffers.
func (l *Link[T]) Stats() (dropped, overflow uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped, l.overflow
}

func drainChan[T any](ch <-chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
