package core

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the server's prometheus collectors. Each Metrics owns its
// registry so several servers can run in one process.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks          prometheus.Counter
	InputsConsumed prometheus.Counter
	InputsDropped  prometheus.Counter
	Stuns          prometheus.Counter
	Players        prometheus.Gauge
	TickSeconds    prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stunsync_ticks_total",
			Help: "Simulation ticks run.",
		}),
		InputsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stunsync_inputs_consumed_total",
			Help: "Player inputs consumed by the simulator.",
		}),
		InputsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stunsync_inputs_dropped_total",
			Help: "Player inputs dropped because a mailbox was full.",
		}),
		Stuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stunsync_stuns_total",
			Help: "Authoritative stuns started.",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stunsync_players",
			Help: "Controlled entities in the world.",
		}),
		TickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stunsync_tick_seconds",
			Help:    "Wall time spent in one tick.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
	}
	m.Registry.MustRegister(
		m.Ticks,
		m.InputsConsumed,
		m.InputsDropped,
		m.Stuns,
		m.Players,
		m.TickSeconds,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
