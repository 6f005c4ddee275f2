// Package observability provides logging, metrics and tracing hooks for
// turngraph runs.
//
// Logging uses slog. Metrics are recorded through OpenTelemetry or a
// Prometheus registry, and tracing through OpenTelemetry. Every recorder has
// a no-op implementation that the engine uses when nothing is configured.
package observability

import (
	"log/slog"
	"time"
)

// StepLogger returns logger enriched with run and step context.
func StepLogger(logger *slog.Logger, runID, step string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("step", step),
	)
}

// LogRunStart logs the start of a run.
func LogRunStart(logger *slog.Logger, graph, runID, entry string) {
	if logger == nil {
		return
	}
	logger.Info("turn run starting",
		slog.String("graph", graph),
		slog.String("run_id", runID),
		slog.String("entry", entry),
	)
}

// LogRunComplete logs successful run completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, steps int, last string) {
	if logger == nil {
		return
	}
	logger.Info("turn run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", steps),
		slog.String("terminal", last),
	)
}

// LogRunError logs run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastStep string) {
	if logger == nil {
		return
	}
	logger.Error("turn run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_step", lastStep),
	)
}

// LogStepStart logs step execution start.
func LogStepStart(logger *slog.Logger, step, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("step", step),
		slog.String("kind", kind),
	)
}

// LogStepComplete logs successful step completion and where the run goes next.
func LogStepComplete(logger *slog.Logger, step string, durationMs float64, result, next string) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("step", step),
		slog.Float64("duration_ms", durationMs),
		slog.String("result", result),
		slog.String("next", next),
	)
}

// LogStepError logs step execution error.
func LogStepError(logger *slog.Logger, step string, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}

// LogStepRecovered logs a failed step whose fallback result was used.
func LogStepRecovered(logger *slog.Logger, step string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("step failed, using fallback",
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts d to fractional milliseconds for log fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
