package turngraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/turngraph/pkg/turngraph/observability"
)

// Context provides execution context to steps.
// It extends context.Context with a logger and run metadata.
//
// The executor derives a Context per step with Step() set and the logger
// enriched with run_id and step.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and step context.
	// Never returns nil.
	Logger() *slog.Logger

	// RunID returns the unique identifier for this run.
	RunID() string

	// Step returns the step being executed, or "" outside a step.
	Step() string
}

type executionContext struct {
	context.Context

	logger *slog.Logger
	runID  string
	step   string
}

func (c *executionContext) Logger() *slog.Logger { return c.logger }
func (c *executionContext) RunID() string        { return c.runID }
func (c *executionContext) Step() string         { return c.step }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunID sets the run identifier. If not set, a UUID is generated.
func WithRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := turngraph.NewContext(context.Background(),
//	    turngraph.WithLogger(logger),
//	    turngraph.WithRunID("session-42/turn-3"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// withStep returns a context for executing step, carrying parent for
// cancellation and span propagation.
func withStep(ctx Context, parent context.Context, step string) Context {
	return &executionContext{
		Context: parent,
		logger:  observability.StepLogger(ctx.Logger(), ctx.RunID(), step),
		runID:   ctx.RunID(),
		step:    step,
	}
}
