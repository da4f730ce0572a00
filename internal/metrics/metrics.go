// Package metrics exposes Prometheus instruments for sync runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics is nil-safe: a nil receiver records nothing.
type SyncMetrics struct {
	runDuration *prometheus.HistogramVec
	rows        *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

// NewSyncMetrics registers the instruments on reg. A nil reg yields nil metrics.
func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &SyncMetrics{
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shipsync_run_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"success"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shipsync_rows_total",
			Help: "Rows processed, by outcome",
		}, []string{"outcome"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shipsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}

	for _, c := range []prometheus.Collector{m.runDuration, m.rows, m.lastSuccess} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *SyncMetrics) RecordRun(duration time.Duration, finishedAt time.Time, success bool) {
	if m == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
		m.lastSuccess.Set(float64(finishedAt.Unix()))
	}
	m.runDuration.WithLabelValues(label).Observe(duration.Seconds())
}

func (m *SyncMetrics) RecordRow(outcome string) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(outcome).Inc()
}
