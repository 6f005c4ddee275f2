package turngraph

import (
	"maps"
	"slices"
)

// Runnable is an immutable, executable turn graph.
// It is created by calling Compile() on a Graph builder.
//
// Runnable is safe for concurrent Run() calls. The graph structure cannot
// be modified after compilation.
//
// Use the introspection methods (StepNames, Successors, Routes, ...) to
// examine the graph for debugging or visualization.
type Runnable struct {
	name      string
	schema    *Schema
	steps     map[string]*step
	order     []string
	edges     map[string]string
	routes    map[string]map[string]string
	entry     string
	terminals []string
	terminal  map[string]bool
	mergeMode MergeMode
	acyclic   bool
}

// Name returns the graph name set with WithName, or "".
func (r *Runnable) Name() string {
	return r.name
}

// Schema returns the state schema the graph was compiled against.
func (r *Runnable) Schema() *Schema {
	return r.schema
}

// Entry returns the entry step name.
func (r *Runnable) Entry() string {
	return r.entry
}

// Terminals returns the terminal step names in registration order.
func (r *Runnable) Terminals() []string {
	return slices.Clone(r.terminals)
}

// IsTerminal reports whether name is a terminal step.
func (r *Runnable) IsTerminal(name string) bool {
	return r.terminal[name]
}

// StepNames returns all step names in registration order.
func (r *Runnable) StepNames() []string {
	return slices.Clone(r.order)
}

// HasStep checks if a step exists in the graph.
func (r *Runnable) HasStep(name string) bool {
	_, ok := r.steps[name]
	return ok
}

// Kind returns the kind of the named step.
func (r *Runnable) Kind(name string) (StepKind, bool) {
	s, ok := r.steps[name]
	if !ok {
		return 0, false
	}
	return s.kind, true
}

// Description returns the text attached with Describe.
func (r *Runnable) Description(name string) string {
	if s, ok := r.steps[name]; ok {
		return s.desc
	}
	return ""
}

// Successors returns every step that can follow name, sorted.
// Returns nil for terminals and unknown steps.
func (r *Runnable) Successors(name string) []string {
	if to, ok := r.edges[name]; ok {
		return []string{to}
	}
	table, ok := r.routes[name]
	if !ok {
		return nil
	}
	seen := make(map[string]bool, len(table))
	for _, to := range table {
		seen[to] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

// Routes returns a copy of the conditional table of a decision step.
func (r *Runnable) Routes(name string) map[string]string {
	return maps.Clone(r.routes[name])
}

// MergeMode returns the merge mode fixed at compile time.
func (r *Runnable) MergeMode() MergeMode {
	return r.mergeMode
}

// Acyclic reports whether the graph was compiled WithAcyclic().
func (r *Runnable) Acyclic() bool {
	return r.acyclic
}
