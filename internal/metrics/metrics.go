// Package metrics exposes audit run counters in the Prometheus text format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orderaudit/internal/domain"
)

// Run outcome labels besides the recorded RunStatus values.
const (
	StatusRejected = "rejected"
	StatusAborted  = "aborted"
)

// Metrics holds the audit collectors and the registry they are served from.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	files    *prometheus.CounterVec
}

// New creates a registry with the audit collectors plus Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderaudit_runs_total",
			Help: "Audit runs by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderaudit_run_duration_seconds",
			Help:    "Audit run duration by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderaudit_files_processed_total",
			Help: "Order exports scored, by template type.",
		}, []string{"template_type"}),
	}
	m.registry.MustRegister(
		m.runs, m.duration, m.files,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun counts one run with its outcome and duration.
func (m *Metrics) ObserveRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ObserveFiles counts the scored exports of a recorded run.
func (m *Metrics) ObserveFiles(results []domain.FileScoreResult) {
	if m == nil {
		return
	}
	for _, r := range results {
		tmpl := r.TemplateType
		if tmpl == "" {
			tmpl = "unknown"
		}
		m.files.WithLabelValues(tmpl).Inc()
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
