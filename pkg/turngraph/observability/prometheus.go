package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements MetricsRecorder on a Prometheus registry.
// The HTTP server exposes the same registry on /metrics.
type PrometheusRecorder struct {
	stepExecutions *prometheus.CounterVec
	stepErrors     *prometheus.CounterVec
	stepLatency    *prometheus.HistogramVec
	routes         *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	runs           *prometheus.CounterVec
	runLatency     prometheus.Histogram
	runSteps       prometheus.Histogram
}

var _ MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates the collectors and registers them on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		stepExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turngraph",
			Name:      "step_executions_total",
			Help:      "Number of step executions.",
		}, []string{"step"}),
		stepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turngraph",
			Name:      "step_errors_total",
			Help:      "Number of failed step executions.",
		}, []string{"step"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "turngraph",
			Name:      "step_duration_seconds",
			Help:      "Step execution latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"step"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turngraph",
			Name:      "routes_total",
			Help:      "Route labels returned by decision steps.",
		}, []string{"step", "label"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turngraph",
			Name:      "fallbacks_total",
			Help:      "Failed steps recovered by a fallback result.",
		}, []string{"step"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turngraph",
			Name:      "runs_total",
			Help:      "Completed runs by outcome.",
		}, []string{"success"}),
		runLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "turngraph",
			Name:      "run_duration_seconds",
			Help:      "Run latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		runSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "turngraph",
			Name:      "run_steps",
			Help:      "Steps executed per run.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
	}

	for _, c := range []prometheus.Collector{
		r.stepExecutions, r.stepErrors, r.stepLatency, r.routes,
		r.fallbacks, r.runs, r.runLatency, r.runSteps,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RecordStepExecution records a step execution.
func (r *PrometheusRecorder) RecordStepExecution(_ context.Context, step string, duration time.Duration, err error) {
	r.stepExecutions.WithLabelValues(step).Inc()
	r.stepLatency.WithLabelValues(step).Observe(duration.Seconds())
	if err != nil {
		r.stepErrors.WithLabelValues(step).Inc()
	}
}

// RecordRoute records a decision label.
func (r *PrometheusRecorder) RecordRoute(_ context.Context, step, label string) {
	r.routes.WithLabelValues(step, label).Inc()
}

// RecordFallback records a recovered step.
func (r *PrometheusRecorder) RecordFallback(_ context.Context, step string) {
	r.fallbacks.WithLabelValues(step).Inc()
}

// RecordRun records a run completion.
func (r *PrometheusRecorder) RecordRun(_ context.Context, success bool, steps int, duration time.Duration) {
	r.runs.WithLabelValues(strconv.FormatBool(success)).Inc()
	r.runLatency.Observe(duration.Seconds())
	r.runSteps.Observe(float64(steps))
}
