package main

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// logSpans writes every finished span to the debug log.
type logSpans struct {
	logger *slog.Logger
}

var _ sdktrace.SpanProcessor = (*logSpans)(nil)

func newLogSpans(logger *slog.Logger) *logSpans {
	return &logSpans{logger: logger}
}

func (p *logSpans) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *logSpans) OnEnd(s sdktrace.ReadOnlySpan) {
	attrs := []any{
		"span", s.Name(),
		"trace_id", s.SpanContext().TraceID().String(),
		"duration_ms", float64(s.EndTime().Sub(s.StartTime()).Microseconds()) / 1000,
		"status", s.Status().Code.String(),
	}
	for _, kv := range s.Attributes() {
		attrs = append(attrs, string(kv.Key), kv.Value.Emit())
	}
	p.logger.Debug("span", attrs...)
}

func (p *logSpans) Shutdown(context.Context) error   { return nil }
func (p *logSpans) ForceFlush(context.Context) error { return nil }
