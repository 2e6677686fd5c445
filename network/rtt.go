package network

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	defaultRTTWindow = 16
	defaultRTT       = 100 * time.Millisecond
)

// RTTEstimator keeps a sliding window of round-trip samples. Pongs arrive on
// the network goroutine while the tick loop reads the estimate.
type RTTEstimator struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
	initial float64
}

// NewRTTEstimator creates an estimator averaging the last size samples and
// reporting initial until the first one arrives.
func NewRTTEstimator(size int, initial time.Duration) *RTTEstimator {
	if size <= 0 {
		size = defaultRTTWindow
	}
	if initial <= 0 {
		initial = defaultRTT
	}
	return &RTTEstimator{
		samples: make([]float64, 0, size),
		initial: initial.Seconds(),
	}
}

// Observe records one round trip. Negative samples are discarded.
func (e *RTTEstimator) Observe(rtt time.Duration) {
	if rtt < 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.full {
		e.samples = append(e.samples, rtt.Seconds())
		e.full = len(e.samples) == cap(e.samples)
		return
	}
	e.samples[e.next] = rtt.Seconds()
	e.next = (e.next + 1) % len(e.samples)
}

// ObservePong records the round trip of a ping sent at sentAt (Unix ns).
func (e *RTTEstimator) ObservePong(sentAt int64, now time.Time) {
	e.Observe(now.Sub(time.Unix(0, sentAt)))
}

// Estimate returns the mean round trip in seconds.
func (e *RTTEstimator) Estimate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.samples) == 0 {
		return e.initial
	}
	return stat.Mean(e.samples, nil)
}

// Duration returns the estimate as a time.Duration.
func (e *RTTEstimator) Duration() time.Duration {
	return time.Duration(e.Estimate() * float64(time.Second))
}
