// Package metrics exposes prometheus collectors for notebook runs, for
// callers that embed the engine in long-lived services. The CLI runs
// without them; a nil *Metrics disables collection.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's run collectors.
type Metrics struct {
	cellsExecuted *prometheus.CounterVec
	runAborts     prometheus.Counter
	cellDuration  prometheus.Histogram
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cellsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nbrun",
			Name:      "cells_executed_total",
			Help:      "Code cells executed, by terminal reply status.",
		}, []string{"status"}),
		runAborts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nbrun",
			Name:      "run_aborts_total",
			Help:      "Notebook runs aborted before the last cell.",
		}),
		cellDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nbrun",
			Name:      "cell_duration_seconds",
			Help:      "Wall time per executed code cell.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
}

// ObserveCell records one executed cell. Nil-safe.
func (m *Metrics) ObserveCell(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cellsExecuted.WithLabelValues(status).Inc()
	m.cellDuration.Observe(elapsed.Seconds())
}

// RunAborted records a run that stopped before its last cell. Nil-safe.
func (m *Metrics) RunAborted() {
	if m == nil {
		return
	}
	m.runAborts.Inc()
}
