// Package metrics defines the Prometheus instrumentation for the bot:
// inbound event counts, generation latency and failures, pending-store size
// and prompt token usage.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates the Prometheus metrics for the relay.
type Metrics struct {
	registry *prometheus.Registry

	// EventsTotal counts inbound conversation events by type
	// (reset, text, selection).
	EventsTotal *prometheus.CounterVec

	// GenerationDuration tracks outbound generation call latency per mode.
	GenerationDuration *prometheus.HistogramVec

	// GenerationErrors counts generation failures by error kind.
	GenerationErrors *prometheus.CounterVec

	// PendingEntries is the number of texts currently awaiting a mode choice.
	PendingEntries prometheus.Gauge

	// PromptTokens observes the token size of built prompts.
	PromptTokens prometheus.Histogram

	// BreakerState reflects the generation circuit breaker state
	// (0=closed, 1=half-open, 2=open).
	BreakerState prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slangbridge_events_total",
				Help: "Total number of inbound conversation events by type",
			},
			[]string{"event"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slangbridge_generation_duration_seconds",
				Help:    "Duration of generation calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		GenerationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slangbridge_generation_errors_total",
				Help: "Total number of generation failures by error kind",
			},
			[]string{"kind"},
		),
		PendingEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "slangbridge_pending_entries",
				Help: "Number of pending texts awaiting a mode choice",
			},
		),
		PromptTokens: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "slangbridge_prompt_tokens",
				Help:    "Token count of built generation prompts",
				Buckets: prometheus.ExponentialBuckets(16, 2, 10),
			},
		),
		BreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "slangbridge_breaker_state",
				Help: "Generation circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
		),
	}

	// Register default Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Handler returns a handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
