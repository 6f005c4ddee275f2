package turngraph

import (
	"context"
	"fmt"
	"sync"
)

// turnSchema is the state used across tests.
var turnSchema = NewSchema("message", "intent", "items", "reply", "count", "log")

func newState(values map[string]any) *State {
	return turnSchema.MustState(values)
}

func testCtx() Context {
	return NewContext(context.Background())
}

// recorder collects step invocations.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// setStep returns an action that sets field to value.
func setStep(rec *recorder, name, field string, value any) StepFunc {
	return func(ctx Context, s *State) (StepResult, error) {
		if rec != nil {
			rec.add(name)
		}
		return Partial(Update{field: value}), nil
	}
}

// noopStep returns an action that changes nothing.
func noopStep(rec *recorder, name string) StepFunc {
	return func(ctx Context, s *State) (StepResult, error) {
		if rec != nil {
			rec.add(name)
		}
		return NoChange(), nil
	}
}

// routeStep returns a decision that always routes to label.
func routeStep(rec *recorder, name, label string) StepFunc {
	return func(ctx Context, s *State) (StepResult, error) {
		if rec != nil {
			rec.add(name)
		}
		return Route(label), nil
	}
}

// failStep returns an action that fails with err.
func failStep(err error) StepFunc {
	return func(ctx Context, s *State) (StepResult, error) {
		return StepResult{}, err
	}
}

// panicStep returns an action that panics with v.
func panicStep(v any) StepFunc {
	return func(ctx Context, s *State) (StepResult, error) {
		panic(v)
	}
}

// countStep increments the count field.
func countStep(ctx Context, s *State) (StepResult, error) {
	n := ValueOr(s, "count", 0)
	return Partial(Update{"count": n + 1}), nil
}

// linearGraph builds parse -> fetch -> answer.
func linearGraph(rec *recorder) *Graph {
	return NewGraph(turnSchema).
		AddAction("parse", setStep(rec, "parse", "intent", "recommend")).
		AddAction("fetch", setStep(rec, "fetch", "items", []string{"Arrival", "Dune"})).
		AddAction("answer", func(ctx Context, s *State) (StepResult, error) {
			rec.add("answer")
			items, _ := Value[[]string](s, "items")
			return Partial(Update{"reply": fmt.Sprintf("%d picks", len(items))}), nil
		}).
		AddEdge("parse", "fetch").
		AddEdge("fetch", "answer").
		SetEntry("parse").
		AddTerminal("answer")
}

// branchingGraph builds parse -> route -{clarify|fetch}-> ... -> answer.
func branchingGraph(rec *recorder, label string) *Graph {
	return NewGraph(turnSchema).
		AddAction("parse", noopStep(rec, "parse")).
		AddDecision("route", routeStep(rec, "route", label), Labels("clarify", "fetch")).
		AddAction("clarify", setStep(rec, "clarify", "reply", "what genre?")).
		AddAction("fetch", setStep(rec, "fetch", "items", []string{"Alien"})).
		AddAction("rank", noopStep(rec, "rank")).
		AddAction("answer", noopStep(rec, "answer")).
		AddEdge("parse", "route").
		AddConditionalEdges("route", map[string]string{
			"clarify": "clarify",
			"fetch":   "fetch",
		}).
		AddEdge("fetch", "rank").
		AddEdge("rank", "answer").
		AddEdge("clarify", "answer").
		SetEntry("parse").
		AddTerminal("answer")
}
