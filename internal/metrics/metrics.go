package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the consult service.
type Metrics struct {
	registry *prometheus.Registry

	SessionsCreatedTotal *prometheus.CounterVec
	SessionsEvictedTotal prometheus.Counter
	ChatTurnsTotal       *prometheus.CounterVec
	ModelLatency         prometheus.Histogram
}

// New creates and registers all collectors on a private registry.
// activeSessions is sampled on every scrape.
func New(activeSessions func() int) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "consult",
				Name:      "sessions_created_total",
				Help:      "Total number of sessions created",
			},
			[]string{"source"},
		),
		SessionsEvictedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "consult",
				Name:      "sessions_evicted_total",
				Help:      "Total number of idle sessions evicted",
			},
		),
		ChatTurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "consult",
				Name:      "chat_turns_total",
				Help:      "Total number of chat turns by outcome",
			},
			[]string{"status"},
		),
		ModelLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "consult",
				Name:      "model_latency_seconds",
				Help:      "Latency of chat model calls in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
			},
		),
	}

	registry.MustRegister(
		m.SessionsCreatedTotal,
		m.SessionsEvictedTotal,
		m.ChatTurnsTotal,
		m.ModelLatency,
	)
	if activeSessions != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "consult",
				Name:      "sessions_active",
				Help:      "Number of sessions currently held in memory",
			},
			func() float64 { return float64(activeSessions()) },
		))
	}

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
