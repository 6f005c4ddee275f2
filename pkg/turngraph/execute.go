package turngraph

import (
	"context"
	"errors"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/turngraph/pkg/turngraph/observability"
)

// RunResult is the outcome of a run. Run returns a non-nil RunResult for
// every run that started, successful or not.
type RunResult struct {
	// State is the final state, or the state after the last successful
	// merge when the run failed.
	State *State
	// Trace records every executed step in order.
	Trace Trace
	// RunID identifies the run in logs and spans.
	RunID string
}

// Run executes one turn starting at the entry step.
//
// mode chooses whether the caller's state is left untouched (PureValue) or
// updated after every merge (InPlace). There is no default.
//
// Execution flow:
//  1. Check the step budget and cancellation
//  2. Execute the current step on a snapshot of the state
//  3. Merge its result and record a trace entry
//  4. Stop at a terminal, otherwise route to the next step
//
// Run-time failures are returned as *RunError, which carries the partial
// state and trace; the specific cause is available through errors.As.
// Misuse detected before the first step (nil context or state, foreign
// schema, unset mode) returns a nil RunResult.
//
// Example:
//
//	ctx := turngraph.NewContext(context.Background())
//	res, err := runnable.Run(ctx, state, turngraph.PureValue)
//	if err != nil {
//	    // res.State and res.Trace show how far the turn got
//	}
func (r *Runnable) Run(ctx Context, state *State, mode StateMode, opts ...RunOption) (res *RunResult, runErr error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if state == nil {
		return nil, ErrNilState
	}
	if state.schema != r.schema {
		return nil, ErrSchemaMismatch
	}
	if mode != PureValue && mode != InPlace {
		return nil, ErrStateModeRequired
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := ctx.RunID()
	done := observability.TimedOperation()
	observability.LogRunStart(cfg.logger, r.name, runID, r.entry)

	var execCtx context.Context = ctx
	if cfg.tracingEnabled {
		var runSpan trace.Span
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, r.name, runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	res, runErr = r.run(execCtx, ctx, state, mode, &cfg)
	res.RunID = runID

	elapsed := done()
	cfg.metrics.RecordRun(ctx, runErr == nil, len(res.Trace), elapsed)

	last, _ := res.Trace.Last()
	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, observability.Milliseconds(elapsed), last.Step)
	} else {
		observability.LogRunComplete(cfg.logger, runID, observability.Milliseconds(elapsed), len(res.Trace), last.Step)
	}
	return res, runErr
}

// run is the step loop. tracingCtx carries span context; ctx is the caller's
// Context.
func (r *Runnable) run(tracingCtx context.Context, ctx Context, initial *State, mode StateMode, cfg *runConfig) (*RunResult, error) {
	working := initial
	if mode == PureValue {
		working = initial.Clone()
	}

	var tr Trace
	fail := func(err error) (*RunResult, error) {
		return &RunResult{State: working, Trace: tr}, &RunError{Err: err, State: working, Trace: tr}
	}

	current := r.entry
	for {
		if len(tr) >= cfg.maxSteps {
			return fail(&StepBudgetExceededError{Limit: cfg.maxSteps, Next: current})
		}

		select {
		case <-ctx.Done():
			return fail(&CancellationError{Step: current, Cause: ctx.Err()})
		default:
		}

		s := r.steps[current]
		observability.LogStepStart(cfg.logger, current, s.kind.String())

		stepTracingCtx := tracingCtx
		var stepSpan trace.Span
		if cfg.tracingEnabled {
			stepTracingCtx, stepSpan = cfg.spans.StartStepSpan(tracingCtx, current, s.kind.String())
		}
		stepCtx := withStep(ctx, stepTracingCtx, current)

		stepDone := observability.TimedOperation()
		result, stepErr := r.invoke(stepCtx, s, working)
		elapsed := stepDone()
		cfg.metrics.RecordStepExecution(stepTracingCtx, current, elapsed, stepErr)

		entry := TraceEntry{Step: current, Kind: s.kind}

		if stepErr != nil {
			if cancelled := ctx.Err(); cancelled != nil && errors.Is(stepErr, cancelled) {
				r.endStep(cfg, stepSpan, stepErr)
				entry.Summary, entry.Err = "error", stepErr
				tr = append(tr, entry)
				return fail(&CancellationError{Step: current, Cause: cancelled, WasExecuting: true})
			}
			if s.fallback == nil {
				observability.LogStepError(cfg.logger, current, stepErr)
				r.endStep(cfg, stepSpan, stepErr)
				entry.Summary, entry.Err = "error", stepErr
				tr = append(tr, entry)
				return fail(stepErr)
			}
			observability.LogStepRecovered(cfg.logger, current, stepErr)
			cfg.metrics.RecordFallback(stepTracingCtx, current)
			var fbErr error
			result, fbErr = r.invokeFallback(stepCtx, s, working, stepErr)
			if fbErr != nil {
				observability.LogStepError(cfg.logger, current, fbErr)
				r.endStep(cfg, stepSpan, fbErr)
				entry.Summary, entry.Err = "error", fbErr
				tr = append(tr, entry)
				return fail(fbErr)
			}
			entry.Recovered, entry.Err = true, stepErr
		}

		next, changed, err := r.apply(s, working, result)
		if err != nil {
			err = &StepExecutionError{Step: current, Cause: err}
			observability.LogStepError(cfg.logger, current, err)
			r.endStep(cfg, stepSpan, err)
			entry.Summary, entry.Err = "error", err
			tr = append(tr, entry)
			return fail(err)
		}
		if mode == InPlace {
			initial.assign(next)
			working = initial
		} else {
			working = next
		}

		entry.Summary = result.summary()
		entry.Fields = changed
		entry.Label = result.label

		if s.kind == KindDecision {
			cfg.metrics.RecordRoute(stepTracingCtx, current, result.label)
			cfg.spans.AddSpanEvent(stepTracingCtx, "route", attribute.String("label", result.label))
		}

		if r.terminal[current] {
			r.endStep(cfg, stepSpan, nil)
			observability.LogStepComplete(cfg.logger, current, observability.Milliseconds(elapsed), entry.Summary, "")
			tr = append(tr, entry)
			return &RunResult{State: working, Trace: tr}, nil
		}

		to, err := r.route(s, result)
		if err != nil {
			r.endStep(cfg, stepSpan, err)
			tr = append(tr, entry)
			return fail(err)
		}
		entry.Next = to
		tr = append(tr, entry)

		r.endStep(cfg, stepSpan, nil)
		observability.LogStepComplete(cfg.logger, current, observability.Milliseconds(elapsed), entry.Summary, to)
		current = to
	}
}

func (r *Runnable) endStep(cfg *runConfig, span trace.Span, err error) {
	if cfg.tracingEnabled {
		cfg.spans.EndSpanWithError(span, err)
	}
}

// invoke executes a single step on a snapshot with panic recovery.
func (r *Runnable) invoke(ctx Context, s *step, state *State) (result StepResult, err error) {
	defer recoverStep(s.name, &result, &err)

	result, err = s.fn(ctx, state.Clone())
	if err != nil {
		return StepResult{}, &StepExecutionError{Step: s.name, Cause: err}
	}
	return result, nil
}

// invokeFallback runs the step's fallback under the same recovery as invoke.
func (r *Runnable) invokeFallback(ctx Context, s *step, state *State, cause error) (result StepResult, err error) {
	defer recoverStep(s.name, &result, &err)

	return s.fallback(ctx, state.Clone(), cause), nil
}

func recoverStep(name string, result *StepResult, err *error) {
	if p := recover(); p != nil {
		*result = StepResult{}
		*err = &StepExecutionError{
			Step: name,
			Cause: &PanicError{
				Step:  name,
				Value: p,
				Stack: string(debug.Stack()),
			},
		}
	}
}

// apply checks the result against the step kind and merges it.
func (r *Runnable) apply(s *step, working *State, result StepResult) (*State, []string, error) {
	switch s.kind {
	case KindDecision:
		if result.kind != resultRoute || result.label == "" {
			return nil, nil, ErrMissingRouteLabel
		}
	case KindAction:
		if result.kind == resultRoute {
			return nil, nil, ErrUnexpectedRoute
		}
	}
	return merge(r.mergeMode, working, result, s.writes)
}

// route resolves the step to run after s.
func (r *Runnable) route(s *step, result StepResult) (string, error) {
	if s.kind == KindAction {
		return r.edges[s.name], nil
	}
	table := r.routes[s.name]
	if to, ok := table[result.label]; ok {
		return to, nil
	}
	if to, ok := table[DefaultRoute]; ok {
		return to, nil
	}
	return "", &UnknownRouteLabelError{Step: s.name, Label: result.label}
}
