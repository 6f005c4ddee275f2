package turngraph

// DefaultRoute is the reserved route label used when a decision returns a
// label missing from its conditional table. It applies only when the graph
// registers it explicitly.
const DefaultRoute = "default"

// StepKind distinguishes steps that produce state from steps that route.
type StepKind int

const (
	// KindAction steps return state changes and follow a single unconditional edge.
	KindAction StepKind = iota + 1

	// KindDecision steps return a route label resolved through a conditional table.
	KindDecision
)

// String returns the kind name.
func (k StepKind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindDecision:
		return "decision"
	default:
		return "invalid"
	}
}

// StepFunc is the signature for all step functions.
// Steps receive the execution context and a snapshot of the current state,
// and return a StepResult describing the change (and route, for decisions).
//
// The snapshot is private to the call. Writing to it has no effect on the
// run; return Partial or Full instead.
//
// Example:
//
//	func parse(ctx turngraph.Context, s *turngraph.State) (turngraph.StepResult, error) {
//	    msg, _ := turngraph.Value[string](s, "user_message")
//	    return turngraph.Partial(turngraph.Update{"intent": classify(msg)}), nil
//	}
type StepFunc func(ctx Context, state *State) (StepResult, error)

// FallbackFunc produces a substitute result for a fallible step that failed.
type FallbackFunc func(ctx Context, state *State, err error) StepResult

type step struct {
	name     string
	kind     StepKind
	fn       StepFunc
	writes   map[string]bool
	labels   []string
	fallback FallbackFunc
	desc     string
}

// StepOption configures a step at registration.
type StepOption func(*step)

// Writes restricts the fields the step's partial updates may touch.
// Compile rejects fields the schema does not declare.
func Writes(fields ...string) StepOption {
	return func(s *step) {
		if s.writes == nil {
			s.writes = make(map[string]bool, len(fields))
		}
		for _, f := range fields {
			s.writes[f] = true
		}
	}
}

// Labels declares every label a decision step may return. Compile then
// checks each has a route (or that DefaultRoute is registered).
func Labels(labels ...string) StepOption {
	return func(s *step) {
		s.labels = append(s.labels, labels...)
	}
}

// Fallible makes step failures recoverable. When the step returns an error
// or panics, fb supplies the result and the run continues.
func Fallible(fb FallbackFunc) StepOption {
	return func(s *step) {
		s.fallback = fb
	}
}

// FallbackResult is Fallible with a fixed substitute result.
func FallbackResult(res StepResult) StepOption {
	return Fallible(func(Context, *State, error) StepResult { return res })
}

// Describe attaches a human-readable description used by diagrams.
func Describe(text string) StepOption {
	return func(s *step) {
		s.desc = text
	}
}
