// Package metrics exposes Prometheus collectors for money-moving operations.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harvestline"

// Idempotency outcomes
const (
	OutcomeExecuted = "executed"
	OutcomeReplayed = "replayed"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// Recorder owns a private registry and the collectors registered on it
type Recorder struct {
	registry *prometheus.Registry

	ledgerEntries      *prometheus.CounterVec
	idempotentRequests *prometheus.CounterVec
	approvalEvents     *prometheus.CounterVec
	payoutsDistributed prometheus.Counter
	operationDuration  *prometheus.HistogramVec
}

// New creates a recorder with all collectors registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ledgerEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "entries_total",
				Help:      "Total number of balanced ledger entries written.",
			},
			[]string{"type"},
		),
		idempotentRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "idempotency",
				Name:      "requests_total",
				Help:      "Idempotent requests by scope and outcome.",
			},
			[]string{"scope", "outcome"},
		),
		approvalEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "approval",
				Name:      "events_total",
				Help:      "Two-person approval requests and decisions.",
			},
			[]string{"action", "event"},
		),
		payoutsDistributed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "distributions_total",
				Help:      "Completed payout distributions.",
			},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "core",
				Name:      "operation_duration_seconds",
				Help:      "Duration of core operations including their transaction.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"operation", "status"},
		),
	}

	r.registry.MustRegister(
		r.ledgerEntries,
		r.idempotentRequests,
		r.approvalEvents,
		r.payoutsDistributed,
		r.operationDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns an HTTP handler exposing the registered metrics
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// EntryWritten counts a committed-or-pending ledger entry of the given type
func (r *Recorder) EntryWritten(entryType string) {
	if r == nil {
		return
	}
	r.ledgerEntries.WithLabelValues(entryType).Inc()
}

// Idempotency counts an idempotent request outcome
func (r *Recorder) Idempotency(scope, outcome string) {
	if r == nil {
		return
	}
	r.idempotentRequests.WithLabelValues(scope, outcome).Inc()
}

// Approval counts an approval lifecycle event (requested, approved, rejected)
func (r *Recorder) Approval(action, event string) {
	if r == nil {
		return
	}
	r.approvalEvents.WithLabelValues(action, event).Inc()
}

// PayoutDistributed counts a completed distribution
func (r *Recorder) PayoutDistributed() {
	if r == nil {
		return
	}
	r.payoutsDistributed.Inc()
}

// ObserveOperation records how long an operation took
func (r *Recorder) ObserveOperation(operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.operationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}
