// Package metrics records per-stage pipeline counters on a private Prometheus
// registry and optionally pushes them to a Pushgateway when a run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Row-drop reasons.
const (
	ReasonUnmatched = "unmatched"
	ReasonUnscored  = "unscored"
	ReasonRemainder = "batch_remainder"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	rows          *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	failures      *prometheus.CounterVec
}

// New registers the pipeline collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toxicprep_rows_total",
				Help: "Rows produced per stage and table",
			},
			[]string{"stage", "table"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toxicprep_rows_dropped_total",
				Help: "Rows discarded, by reason",
			},
			[]string{"reason"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toxicprep_stage_duration_seconds",
				Help:    "Wall time of each pipeline stage",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
			},
			[]string{"stage"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toxicprep_stage_failures_total",
				Help: "Failed pipeline stages",
			},
			[]string{"stage"},
		),
	}
	m.registry.MustRegister(m.rows, m.dropped, m.stageDuration, m.failures)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Rows adds n produced rows for a stage and table.
func (m *Metrics) Rows(stage, table string, n int) {
	m.rows.WithLabelValues(stage, table).Add(float64(n))
}

// Dropped adds n discarded rows for a reason.
func (m *Metrics) Dropped(reason string, n int) {
	m.dropped.WithLabelValues(reason).Add(float64(n))
}

// ObserveStage records the duration of a stage and counts it as failed when
// err is non-nil.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(stage).Inc()
	}
}

// Push sends every collector to the Pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
