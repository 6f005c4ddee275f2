/*
Package turngraph executes one conversational turn as a walk over a
compiled graph of steps.

# Overview

A turn is a small workflow: parse the user message, decide what to do,
call out to an API, compose a reply. turngraph lets you declare that
workflow once as a graph, validates it at compile time, and runs it with
a predictable, traceable executor.

  - A Schema declares the state fields; a State holds their values.
  - Action steps return state changes and follow one unconditional edge.
  - Decision steps return a route label, resolved through a conditional
    table registered with AddConditionalEdges.
  - Compile checks entry, terminals, edges, labels and reachability and
    returns an immutable Runnable.
  - Run executes from the entry step until a terminal step completes.

# Basic Usage

	schema := turngraph.NewSchema("user_message", "intent", "reply")

	parse := func(ctx turngraph.Context, s *turngraph.State) (turngraph.StepResult, error) {
	    msg := turngraph.ValueOr(s, "user_message", "")
	    return turngraph.Partial(turngraph.Update{"intent": classify(msg)}), nil
	}

	runnable, err := turngraph.NewGraph(schema).
	    AddAction("parse", parse, turngraph.Writes("intent")).
	    AddAction("answer", answer, turngraph.Writes("reply")).
	    AddEdge("parse", "answer").
	    SetEntry("parse").
	    AddTerminal("answer").
	    Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := turngraph.NewContext(context.Background())
	state := schema.MustState(map[string]any{"user_message": "SF が好き"})
	res, err := runnable.Run(ctx, state, turngraph.PureValue)

# Results and Merging

Steps never mutate the state they receive. They return one of:

  - Partial(update): overlay the named fields. A nil value leaves a field
    unchanged; Clear removes it.
  - Full(state): a complete replacement state.
  - Route(label) or RouteWith(label, update): decision steps only.
  - NoChange().

The merge mode is fixed per Runnable with WithMergeMode. MergeOverlay (the
default) accepts Partial and Full results; MergeReplace accepts only Full
results and fails the step otherwise.

# State Ownership

Run requires an explicit StateMode. PureValue leaves the caller's State
untouched and returns a new one in RunResult.State. InPlace writes every
merge back into the caller's instance, so a failed run leaves it at the
last successful merge.

# Errors

Compile returns all definition problems joined together. Inspect them with
errors.As (*DuplicateStepError, *UnknownStepError, *InvalidStepKindError,
*GraphValidationError) or errors.Is with the validation sentinels
(ErrCycle, ErrDeadEnd, ErrUnreachableTerminal, ...).

Run returns *RunError for run-time failures. It carries the partial State
and Trace, and unwraps to the cause: *StepExecutionError,
*UnknownRouteLabelError, *StepBudgetExceededError or *CancellationError.

Steps registered with Fallible or FallbackResult recover from their own
errors and panics; the trace marks them Recovered.

# Loops and Budgets

Cycles are allowed unless the graph is compiled WithAcyclic(). Every run
is bounded by a step budget (DefaultMaxSteps, change with WithMaxSteps).

# Observability

Pass WithRunLogger, WithMetrics and WithTracing to Run to record
structured logs, metrics (OpenTelemetry or Prometheus) and spans. Steps
log through ctx.Logger(), which carries run_id and step.

# Visualization

Runnable.Mermaid renders the graph as a Mermaid flowchart, optionally
highlighting the steps a trace visited.
*/
package turngraph
