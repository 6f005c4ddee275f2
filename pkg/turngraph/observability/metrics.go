package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records turngraph metrics.
// Use NewMetricsRecorder() for OTel, NewPrometheusRecorder() for a
// Prometheus registry, or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStepExecution records a step execution with its duration and error status.
	RecordStepExecution(ctx context.Context, step string, duration time.Duration, err error)

	// RecordRoute records the label a decision step returned.
	RecordRoute(ctx context.Context, step, label string)

	// RecordFallback records a failed step recovered by its fallback.
	RecordFallback(ctx context.Context, step string)

	// RecordRun records a run completion.
	RecordRun(ctx context.Context, success bool, steps int, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stepExecutions metric.Int64Counter
	stepLatency    metric.Float64Histogram
	stepErrors     metric.Int64Counter
	routes         metric.Int64Counter
	fallbacks      metric.Int64Counter
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	runSteps       metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter("turngraph"))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	m := &otelMetrics{}
	var err error

	if m.stepExecutions, err = meter.Int64Counter("turngraph.step.executions",
		metric.WithDescription("Number of step executions"),
	); err != nil {
		return nil, err
	}
	if m.stepLatency, err = meter.Float64Histogram("turngraph.step.latency_ms",
		metric.WithDescription("Step execution latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.stepErrors, err = meter.Int64Counter("turngraph.step.errors",
		metric.WithDescription("Number of step execution errors"),
	); err != nil {
		return nil, err
	}
	if m.routes, err = meter.Int64Counter("turngraph.step.routes",
		metric.WithDescription("Route labels returned by decision steps"),
	); err != nil {
		return nil, err
	}
	if m.fallbacks, err = meter.Int64Counter("turngraph.step.fallbacks",
		metric.WithDescription("Failed steps recovered by a fallback result"),
	); err != nil {
		return nil, err
	}
	if m.runs, err = meter.Int64Counter("turngraph.runs",
		metric.WithDescription("Number of runs"),
	); err != nil {
		return nil, err
	}
	if m.runLatency, err = meter.Float64Histogram("turngraph.run.latency_ms",
		metric.WithDescription("Run latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.runSteps, err = meter.Int64Histogram("turngraph.run.steps",
		metric.WithDescription("Steps executed per run"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMeterRecorder is like NewMetricsRecorder but uses the given meter.
func NewMeterRecorder(meter metric.Meter) (MetricsRecorder, error) {
	m, err := newOtelMetrics(meter)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *otelMetrics) RecordStepExecution(ctx context.Context, step string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("step", step))
	m.stepExecutions.Add(ctx, 1, attrs)
	m.stepLatency.Record(ctx, Milliseconds(duration), attrs)
	if err != nil {
		m.stepErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordRoute(ctx context.Context, step, label string) {
	m.routes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("label", label),
	))
}

func (m *otelMetrics) RecordFallback(ctx context.Context, step string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
}

func (m *otelMetrics) RecordRun(ctx context.Context, success bool, steps int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, Milliseconds(duration), attrs)
	m.runSteps.Record(ctx, int64(steps), attrs)
}
