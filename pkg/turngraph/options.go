package turngraph

import (
	"log/slog"

	"github.com/randalmurphal/turngraph/pkg/turngraph/observability"
)

// DefaultMaxSteps is the step budget used when WithMaxSteps is not given.
const DefaultMaxSteps = 64

type compileConfig struct {
	name      string
	mergeMode MergeMode
	acyclic   bool
}

func defaultCompileConfig() compileConfig {
	return compileConfig{mergeMode: MergeOverlay}
}

// CompileOption configures compilation.
type CompileOption func(*compileConfig)

// WithMergeMode fixes how step results are merged for every run.
// Default: MergeOverlay.
func WithMergeMode(m MergeMode) CompileOption {
	return func(c *compileConfig) {
		c.mergeMode = m
	}
}

// WithAcyclic makes Compile reject graphs that contain a cycle.
func WithAcyclic() CompileOption {
	return func(c *compileConfig) {
		c.acyclic = true
	}
}

// WithName names the graph in logs, spans and diagrams.
func WithName(name string) CompileOption {
	return func(c *compileConfig) {
		c.name = name
	}
}

type runConfig struct {
	maxSteps       int
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps: DefaultMaxSteps,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the maximum number of step executions per run.
// Default: DefaultMaxSteps. Values below 1 are ignored.
//
// A run that reaches the limit fails with *StepBudgetExceededError.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithRunLogger enables run and step lifecycle logging.
// Steps always log through ctx.Logger(); this controls the engine's own logs.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics records step and run metrics. A nil recorder disables metrics.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m == nil {
			m = observability.NoopMetrics{}
		}
		c.metrics = m
	}
}

// WithTracing enables span creation. A nil manager uses the global OTel provider.
func WithTracing(sm observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if sm == nil {
			sm = observability.NewSpanManager()
		}
		c.spans = sm
		c.tracingEnabled = true
	}
}
