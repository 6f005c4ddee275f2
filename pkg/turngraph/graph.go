package turngraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for turn workflows.
// Use NewGraph to create one, chain AddAction, AddDecision, AddEdge,
// AddConditionalEdges, SetEntry and AddTerminal, then call Compile() to get
// an immutable Runnable that can be shared.
//
// Structural mistakes such as duplicate names or routes from an action step
// are recorded and reported together by Compile.
//
// Example:
//
//	schema := turngraph.NewSchema("user_message", "intent", "reply")
//	g := turngraph.NewGraph(schema).
//	    AddAction("parse", parse, turngraph.Writes("intent")).
//	    AddAction("answer", answer, turngraph.Writes("reply")).
//	    AddEdge("parse", "answer").
//	    SetEntry("parse").
//	    AddTerminal("answer")
//
//	runnable, err := g.Compile()
type Graph struct {
	mu        sync.Mutex
	schema    *Schema
	steps     map[string]*step
	order     []string
	edges     map[string][]string
	routes    map[string]map[string]string
	routeFrom []string
	entry     string
	terminals []string
	errs      []error
}

// NewGraph creates a new graph builder over schema.
//
// Panics if schema is nil.
func NewGraph(schema *Schema) *Graph {
	if schema == nil {
		panic("turngraph: schema cannot be nil")
	}
	return &Graph{
		schema: schema,
		steps:  make(map[string]*step),
		edges:  make(map[string][]string),
		routes: make(map[string]map[string]string),
	}
}

// AddStep registers a named step of the given kind.
// Returns the graph for method chaining.
//
// Panics if name is empty or contains whitespace, kind is invalid, or fn is
// nil. A duplicate name is reported by Compile as *DuplicateStepError.
func (g *Graph) AddStep(name string, kind StepKind, fn StepFunc, opts ...StepOption) *Graph {
	if name == "" {
		panic("turngraph: step name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n\r") {
		panic("turngraph: step name cannot contain whitespace")
	}
	if kind != KindAction && kind != KindDecision {
		panic(fmt.Sprintf("turngraph: invalid kind for step %s", name))
	}
	if fn == nil {
		panic("turngraph: step function cannot be nil")
	}

	s := &step{name: name, kind: kind, fn: fn}
	for _, opt := range opts {
		opt(s)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.steps[name]; exists {
		g.errs = append(g.errs, &DuplicateStepError{Name: name})
		return g
	}
	g.steps[name] = s
	g.order = append(g.order, name)
	return g
}

// AddAction registers an action step.
func (g *Graph) AddAction(name string, fn StepFunc, opts ...StepOption) *Graph {
	return g.AddStep(name, KindAction, fn, opts...)
}

// AddDecision registers a decision step.
func (g *Graph) AddDecision(name string, fn StepFunc, opts ...StepOption) *Graph {
	return g.AddStep(name, KindDecision, fn, opts...)
}

// AddEdge adds an unconditional edge.
// Edge validation happens at Compile() time, so steps may be added in any order.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdges adds route label to step mappings for a decision step.
// Calling it again for the same step extends the table; mapping one label
// to two different targets is reported by Compile.
func (g *Graph) AddConditionalEdges(from string, routes map[string]string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	table, ok := g.routes[from]
	if !ok {
		table = make(map[string]string, len(routes))
		g.routes[from] = table
		g.routeFrom = append(g.routeFrom, from)
	}
	for label, to := range routes {
		if prev, dup := table[label]; dup && prev != to {
			g.errs = append(g.errs, &GraphValidationError{
				Reason:  ErrDuplicateRoute,
				Details: fmt.Sprintf("%s: label %q maps to %s and %s", from, label, prev, to),
			})
			continue
		}
		table[label] = to
	}
	return g
}

// SetEntry sets the step where every run starts.
func (g *Graph) SetEntry(name string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entry = name
	return g
}

// AddTerminal marks steps after which a run ends.
func (g *Graph) AddTerminal(names ...string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range names {
		dup := false
		for _, t := range g.terminals {
			if t == n {
				dup = true
				break
			}
		}
		if !dup {
			g.terminals = append(g.terminals, n)
		}
	}
	return g
}
