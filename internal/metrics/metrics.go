// Package metrics records validation runs as Prometheus metrics. Runs are
// short-lived, so the registry is written to a node-exporter textfile
// instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sceneqc/internal/report"
)

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	prims        *prometheus.CounterVec
	findings     *prometheus.CounterVec
	primDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRun      *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		prims: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sceneqc",
			Name:      "primitives_total",
			Help:      "Primitives evaluated, by status and kind.",
		}, []string{"status", "kind"}),
		findings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sceneqc",
			Name:      "findings_total",
			Help:      "Findings reported, by severity and reason code.",
		}, []string{"severity", "reason"}),
		primDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sceneqc",
			Name:      "primitive_duration_seconds",
			Help:      "Time spent evaluating one primitive.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sceneqc",
			Name:      "runs_total",
			Help:      "Validation runs, by result.",
		}, []string{"result"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sceneqc",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a whole validation run.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sceneqc",
			Name:      "last_run_primitives",
			Help:      "Primitive counts of the most recent run, by status.",
		}, []string{"status"}),
	}
}

// Registry exposes the registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObservePrim matches walker.Options.Observe. Safe for concurrent use.
func (m *Metrics) ObservePrim(r report.PrimResult, d time.Duration) {
	kind := string(r.Kind)
	if kind == "" {
		kind = "none"
	}
	m.prims.WithLabelValues(string(r.Status), kind).Inc()
	m.primDuration.WithLabelValues(kind).Observe(d.Seconds())
	for _, f := range r.Findings {
		m.findings.WithLabelValues(string(f.Severity), string(f.Reason)).Inc()
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(r *report.Report, d time.Duration) {
	result := "pass"
	if !r.OK() {
		result = "fail"
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(d.Seconds())
	s := r.Summary
	m.lastRun.WithLabelValues(string(report.StatusPass)).Set(float64(s.Pass))
	m.lastRun.WithLabelValues(string(report.StatusFail)).Set(float64(s.Fail))
	m.lastRun.WithLabelValues(string(report.StatusSkipped)).Set(float64(s.Skipped))
	m.lastRun.WithLabelValues(string(report.StatusSkippedWithError)).Set(float64(s.SkippedWithError))
}

// RunFailed counts a run that could not produce a report.
func (m *Metrics) RunFailed() {
	m.runs.WithLabelValues("error").Inc()
}

// WriteFile writes the registry in text exposition format, atomically.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
