// Package metrics exposes Prometheus instrumentation for the kiosk.
// A nil *Collector is valid and records nothing, which keeps tests free of
// registry bookkeeping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups every metric the kiosk records.
type Collector struct {
	transactions      *prometheus.CounterVec
	droppedSubmits    *prometheus.CounterVec
	apiLatency        *prometheus.HistogramVec
	lookups           *prometheus.CounterVec
	catalogSyncs      *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
	activeSessions    prometheus.Gauge
	validationRejects *prometheus.CounterVec
}

// NewCollector creates the collector and registers it on reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	c := &Collector{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transaction pairs by kind and final state",
		}, []string{"kind", "state"}),
		droppedSubmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_dropped_total",
			Help:      "Submissions dropped because another one was in flight",
		}, []string{"desk"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "note_api_request_duration_seconds",
			Help:      "Note API request latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint", "status"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Alias lookups by outcome (queried, unchanged, stale, cleared, error)",
		}, []string{"outcome"}),
		catalogSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_syncs_total",
			Help:      "Button catalog synchronisations by result",
		}, []string{"result"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "note_api_circuit_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Kiosk sessions currently held in memory",
		}),
		validationRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Submissions rejected client-side before any request",
		}, []string{"desk"}),
	}

	reg.MustRegister(
		c.transactions,
		c.droppedSubmits,
		c.apiLatency,
		c.lookups,
		c.catalogSyncs,
		c.breakerState,
		c.activeSessions,
		c.validationRejects,
	)

	return c
}

// RecordTransaction counts one settled transaction pair.
func (c *Collector) RecordTransaction(kind, state string) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(kind, state).Inc()
}

// RecordDroppedSubmission counts a submission refused by the re-entrancy lock.
func (c *Collector) RecordDroppedSubmission(desk string) {
	if c == nil {
		return
	}
	c.droppedSubmits.WithLabelValues(desk).Inc()
}

// RecordValidationRejection counts a submission refused by client-side validation.
func (c *Collector) RecordValidationRejection(desk string) {
	if c == nil {
		return
	}
	c.validationRejects.WithLabelValues(desk).Inc()
}

// ObserveAPICall records the latency of one note API call.
func (c *Collector) ObserveAPICall(endpoint, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.apiLatency.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

// RecordLookup counts one lookup by outcome.
func (c *Collector) RecordLookup(outcome string) {
	if c == nil {
		return
	}
	c.lookups.WithLabelValues(outcome).Inc()
}

// RecordCatalogSync counts one catalog synchronisation.
func (c *Collector) RecordCatalogSync(result string) {
	if c == nil {
		return
	}
	c.catalogSyncs.WithLabelValues(result).Inc()
}

// SetBreakerState publishes the circuit breaker state.
func (c *Collector) SetBreakerState(name string, state float64) {
	if c == nil {
		return
	}
	c.breakerState.WithLabelValues(name).Set(state)
}

// SetActiveSessions publishes the number of live sessions.
func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.activeSessions.Set(float64(n))
}
