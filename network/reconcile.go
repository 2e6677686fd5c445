package network

import (
	"log"
	"sort"
	"time"

	"github.com/automoto/stunsync/shared/gamemath"
	"github.com/automoto/stunsync/shared/session"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultEpsilon is the divergence tolerated before a correction replays the
// buffer.
const DefaultEpsilon = 0.1

const correctionLogInterval = time.Second

// Ack is the server's answer for the locally controlled entity.
type Ack struct {
	Position         r2.Vec
	HighestProcessed uint32
	StunStartSeq     uint32 // Sequence consumed on the tick the latest stun began, 0 if none
}

// Reconciler compares predictions with the server and replays buffered
// inputs from the authoritative anchor when they diverge.
type Reconciler struct {
	predictor *Predictor
	stun      *session.Coordinator
	epsilon   float64

	lastAck   uint32
	lastStart uint32 // Latest stun start known from the server
	windows   []stunWindow

	corrections uint64
	lastLog     time.Time
}

// NewReconciler creates a reconciler for predictor. Non-positive epsilon
// falls back to DefaultEpsilon.
func NewReconciler(predictor *Predictor, stun *session.Coordinator, epsilon float64) *Reconciler {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Reconciler{
		predictor: predictor,
		stun:      stun,
		epsilon:   epsilon,
	}
}

// Reconcile applies one acknowledgment. It reports whether the buffer was
// rebuilt. Acks older than the newest one seen are ignored.
func (r *Reconciler) Reconcile(ack Ack) bool {
	if ack.HighestProcessed < r.lastAck {
		return false
	}
	r.lastAck = ack.HighestProcessed
	r.predictor.SetAuthoritative(ack.Position)

	buf := r.predictor.Buffer
	if ack.StunStartSeq > r.lastStart {
		r.lastStart = ack.StunStartSeq
		buf.MarkStunStart(ack.StunStartSeq)
		r.addWindow(ack.StunStartSeq)
	}

	buf.Trim(ack.HighestProcessed)
	if buf.Len() < 2 {
		return false
	}
	head, _ := buf.Head()
	if head.Sequence != ack.HighestProcessed {
		return false
	}

	diff := gamemath.Distance(ack.Position, head.Predicted)
	if diff <= r.epsilon {
		return false
	}

	r.replay(ack.Position)
	r.corrections++
	if time.Since(r.lastLog) >= correctionLogInterval {
		r.lastLog = time.Now()
		log.Printf("[reconcile] seq %d diverged by %.3f, replayed %d inputs", head.Sequence, diff, buf.Len()-1)
	}
	return true
}

// stunWindow is the inclusive range of sequences a stun freezes.
type stunWindow struct {
	start, end uint32
}

func (w stunWindow) contains(seq uint32) bool { return seq >= w.start && seq <= w.end }

// addWindow records a stun beginning at start. A start inside a known window
// is a retrigger and changes nothing; windows starting inside the new one
// are dropped for the same reason.
func (r *Reconciler) addWindow(start uint32) {
	for _, w := range r.windows {
		if w.contains(start) {
			return
		}
	}
	nw := stunWindow{start: start, end: start + uint32(r.stun.Frames())}
	kept := r.windows[:0]
	for _, w := range r.windows {
		if !nw.contains(w.start) {
			kept = append(kept, w)
		}
	}
	kept = append(kept, nw)
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	r.windows = kept
}

// pruneWindows forgets windows that closed before seq.
func (r *Reconciler) pruneWindows(seq uint32) {
	kept := r.windows[:0]
	for _, w := range r.windows {
		if w.end >= seq {
			kept = append(kept, w)
		}
	}
	r.windows = kept
}

func (r *Reconciler) frozen(seq uint32) bool {
	for _, w := range r.windows {
		if w.contains(seq) {
			return true
		}
	}
	return false
}

// replay rebuilds every retained record from anchor. A stun-start record and
// the Frames() records after it are held in place; the part of that window
// past the tail is handed to the predicted stun view.
func (r *Reconciler) replay(anchor r2.Vec) {
	buf := r.predictor.Buffer
	motion := r.predictor.Motion()

	head := buf.At(0)
	r.pruneWindows(head.Sequence)
	head.Predicted = anchor
	if head.StunStart {
		r.addWindow(head.Sequence)
	}
	head.Frozen = r.frozen(head.Sequence)

	prev := anchor
	for i := 1; i < buf.Len(); i++ {
		rec := buf.At(i)
		if rec.StunStart {
			r.addWindow(rec.Sequence)
		}
		rec.Frozen = r.frozen(rec.Sequence)
		if !rec.Frozen {
			prev = motion.Step(prev, rec.Input)
		}
		rec.Predicted = prev
	}

	if len(r.windows) == 0 {
		return
	}
	tail := buf.At(buf.Len() - 1)
	last := r.windows[len(r.windows)-1]
	if last.end > tail.Sequence {
		r.stun.CarryPredicted(int(last.end - tail.Sequence))
	} else {
		r.stun.CarryPredicted(-1)
	}
}

// Corrections reports how many replays have run.
func (r *Reconciler) Corrections() uint64 { return r.corrections }

// LastAck is the highest acknowledged sequence seen.
func (r *Reconciler) LastAck() uint32 { return r.lastAck }
