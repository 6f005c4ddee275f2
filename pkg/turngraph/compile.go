package turngraph

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Compile validates the graph and creates an immutable Runnable.
// Multiple errors are joined together; use errors.Is with the validation
// sentinels or errors.As with the error types to inspect them.
//
// Validation checks:
//  1. Registration errors (duplicate steps, conflicting routes)
//  2. Entry and terminals are set and registered
//  3. Edge and route endpoints are registered
//  4. Actions have at most one unconditional edge; decisions route only
//     through their table; terminals have no outgoing edges
//  5. Every non-terminal step has an outgoing edge
//  6. Declared writes and labels are consistent with schema and table
//  7. Every terminal is reachable from the entry, and every reachable step
//     can reach a terminal
//  8. No cycles, when compiled WithAcyclic()
//
// Steps unreachable from the entry are logged as warnings but do not cause
// compilation to fail.
func (g *Graph) Compile(opts ...CompileOption) (*Runnable, error) {
	cfg := defaultCompileConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	errs := append([]error(nil), g.errs...)

	terminal := make(map[string]bool, len(g.terminals))
	for _, t := range g.terminals {
		terminal[t] = true
	}

	anchorsOK := true
	if g.entry == "" {
		errs = append(errs, &GraphValidationError{Reason: ErrNoEntry})
		anchorsOK = false
	} else if _, ok := g.steps[g.entry]; !ok {
		errs = append(errs, &UnknownStepError{Name: g.entry, Role: "entry"})
		anchorsOK = false
	}
	if len(g.terminals) == 0 {
		errs = append(errs, &GraphValidationError{Reason: ErrNoTerminal})
		anchorsOK = false
	}
	for _, t := range g.terminals {
		if _, ok := g.steps[t]; !ok {
			errs = append(errs, &UnknownStepError{Name: t, Role: "terminal"})
			anchorsOK = false
		}
	}

	errs = append(errs, g.validateEdges(terminal)...)
	errs = append(errs, g.validateRoutes(terminal)...)
	errs = append(errs, g.validateSteps(terminal)...)

	if len(errs) == 0 && anchorsOK {
		errs = append(errs, g.validateReachability(terminal)...)
		if cfg.acyclic {
			if cycle := g.findCycle(); cycle != nil {
				errs = append(errs, &GraphValidationError{
					Reason:  ErrCycle,
					Details: strings.Join(cycle, " -> "),
				})
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g.build(cfg, terminal), nil
}

func (g *Graph) validateEdges(terminal map[string]bool) []error {
	var errs []error
	for _, from := range slices.Sorted(maps.Keys(g.edges)) {
		targets := g.edges[from]
		s, ok := g.steps[from]
		if !ok {
			errs = append(errs, &UnknownStepError{Name: from, Role: "edge source"})
		}
		for _, to := range targets {
			if _, ok := g.steps[to]; !ok {
				errs = append(errs, &UnknownStepError{Name: to, Role: "edge target"})
			}
		}
		if !ok {
			continue
		}
		switch {
		case terminal[from]:
			errs = append(errs, &GraphValidationError{Reason: ErrTerminalEdges, Details: from})
		case s.kind == KindDecision:
			errs = append(errs, &GraphValidationError{Reason: ErrDecisionEdge, Details: from})
		case len(targets) > 1:
			errs = append(errs, &GraphValidationError{
				Reason:  ErrAmbiguousEdge,
				Details: fmt.Sprintf("%s -> [%s]", from, strings.Join(targets, ", ")),
			})
		}
	}
	return errs
}

func (g *Graph) validateRoutes(terminal map[string]bool) []error {
	var errs []error
	for _, from := range g.routeFrom {
		table := g.routes[from]
		s, ok := g.steps[from]
		if !ok {
			errs = append(errs, &UnknownStepError{Name: from, Role: "route source"})
		} else if s.kind != KindDecision {
			errs = append(errs, &InvalidStepKindError{Name: from, Kind: s.kind, Want: KindDecision})
		} else if terminal[from] {
			errs = append(errs, &GraphValidationError{Reason: ErrTerminalEdges, Details: from})
		}
		for _, label := range slices.Sorted(maps.Keys(table)) {
			if label == "" {
				errs = append(errs, &GraphValidationError{Reason: ErrEmptyLabel, Details: from})
			}
			if _, ok := g.steps[table[label]]; !ok {
				errs = append(errs, &UnknownStepError{Name: table[label], Role: "route target"})
			}
		}
	}
	return errs
}

func (g *Graph) validateSteps(terminal map[string]bool) []error {
	var errs []error
	for _, name := range g.order {
		s := g.steps[name]
		if !terminal[name] {
			switch s.kind {
			case KindAction:
				if len(g.edges[name]) == 0 {
					errs = append(errs, &GraphValidationError{Reason: ErrDeadEnd, Details: name})
				}
			case KindDecision:
				if len(g.routes[name]) == 0 {
					errs = append(errs, &GraphValidationError{Reason: ErrDeadEnd, Details: name})
				}
			}
		}
		for _, f := range slices.Sorted(maps.Keys(s.writes)) {
			if !g.schema.Has(f) {
				errs = append(errs, &GraphValidationError{
					Reason:  ErrUnknownField,
					Details: fmt.Sprintf("step %s writes %s", name, f),
				})
			}
		}
		if s.kind == KindDecision && len(g.routes[name]) > 0 {
			table := g.routes[name]
			_, hasDefault := table[DefaultRoute]
			for _, label := range s.labels {
				if _, ok := table[label]; !ok && !hasDefault {
					errs = append(errs, &GraphValidationError{
						Reason:  ErrMissingRoute,
						Details: fmt.Sprintf("%s: %q", name, label),
					})
				}
			}
		}
	}
	return errs
}

// successors returns the possible next steps of name, deduplicated and sorted.
func (g *Graph) successors(name string) []string {
	seen := make(map[string]bool)
	for _, to := range g.edges[name] {
		seen[to] = true
	}
	for _, to := range g.routes[name] {
		seen[to] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

func (g *Graph) validateReachability(terminal map[string]bool) []error {
	var errs []error

	reachable := map[string]bool{g.entry: true}
	queue := []string{g.entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if terminal[current] {
			continue
		}
		for _, next := range g.successors(current) {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, t := range g.terminals {
		if !reachable[t] {
			errs = append(errs, &GraphValidationError{Reason: ErrUnreachableTerminal, Details: t})
		}
	}

	// Reverse propagation from terminals.
	canFinish := make(map[string]bool, len(g.terminals))
	for _, t := range g.terminals {
		canFinish[t] = true
	}
	for changed := true; changed; {
		changed = false
		for _, name := range g.order {
			if canFinish[name] {
				continue
			}
			for _, next := range g.successors(name) {
				if canFinish[next] {
					canFinish[name] = true
					changed = true
					break
				}
			}
		}
	}

	for _, name := range g.order {
		if !reachable[name] {
			slog.Warn("step is unreachable from entry", "step", name)
			continue
		}
		if !canFinish[name] {
			errs = append(errs, &GraphValidationError{Reason: ErrNoPathToTerminal, Details: name})
		}
	}
	return errs
}

// findCycle returns the first cycle found by depth-first search, as a path
// that starts and ends on the same step, or nil.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	colour := make(map[string]int, len(g.steps))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		colour[name] = grey
		stack = append(stack, name)
		for _, next := range g.successors(name) {
			switch colour[next] {
			case grey:
				i := slices.Index(stack, next)
				cycle = append(append([]string(nil), stack[i:]...), next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		colour[name] = black
		return false
	}

	roots := append([]string{g.entry}, g.order...)
	for _, name := range roots {
		if colour[name] == white && visit(name) {
			return cycle
		}
	}
	return nil
}

// build creates the immutable Runnable from the builder state.
func (g *Graph) build(cfg compileConfig, terminal map[string]bool) *Runnable {
	steps := make(map[string]*step, len(g.steps))
	for name, s := range g.steps {
		cp := *s
		cp.writes = maps.Clone(s.writes)
		cp.labels = slices.Clone(s.labels)
		steps[name] = &cp
	}

	edges := make(map[string]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = targets[0]
	}

	routes := make(map[string]map[string]string, len(g.routes))
	for from, table := range g.routes {
		routes[from] = maps.Clone(table)
	}

	return &Runnable{
		name:      cfg.name,
		schema:    g.schema,
		steps:     steps,
		order:     slices.Clone(g.order),
		edges:     edges,
		routes:    routes,
		entry:     g.entry,
		terminals: slices.Clone(g.terminals),
		terminal:  maps.Clone(terminal),
		mergeMode: cfg.mergeMode,
		acyclic:   cfg.acyclic,
	}
}
