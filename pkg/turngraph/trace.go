package turngraph

// TraceEntry records one executed step.
type TraceEntry struct {
	// Step is the step name.
	Step string
	// Kind is the step kind.
	Kind StepKind
	// Summary describes the result shape: full, partial, route, route+partial,
	// no-change or error.
	Summary string
	// Fields lists the state fields the merge changed, in schema order.
	Fields []string
	// Label is the route label returned by a decision step.
	Label string
	// Next is the step chosen to run after this one, "" at the end of a run.
	Next string
	// Recovered is true when the step failed and its fallback result was used.
	Recovered bool
	// Err is the step failure, for failed and recovered steps.
	Err error
}

// Trace is the ordered record of a run.
type Trace []TraceEntry

// Steps returns the executed step names in order.
func (t Trace) Steps() []string {
	out := make([]string, len(t))
	for i, e := range t {
		out[i] = e.Step
	}
	return out
}

// Visited reports whether step appears in the trace.
func (t Trace) Visited(step string) bool {
	for _, e := range t {
		if e.Step == step {
			return true
		}
	}
	return false
}

// Last returns the final entry.
func (t Trace) Last() (TraceEntry, bool) {
	if len(t) == 0 {
		return TraceEntry{}, false
	}
	return t[len(t)-1], true
}
