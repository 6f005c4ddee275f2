package turngraph

type resultKind uint8

const (
	resultNoChange resultKind = iota
	resultFull
	resultPartial
	resultRoute
)

// Update is a partial state update keyed by declared field name.
// A nil value leaves the field unchanged; Clear removes it.
type Update map[string]any

// StepResult is what a step returns to the executor.
//
// Build one with Full, Partial, Route, RouteWith or NoChange. The zero value
// is NoChange.
type StepResult struct {
	kind   resultKind
	state  *State
	update Update
	label  string
}

// Full returns a result that replaces the whole state.
func Full(s *State) StepResult {
	return StepResult{kind: resultFull, state: s}
}

// Partial returns a result that overlays the given fields.
func Partial(u Update) StepResult {
	return StepResult{kind: resultPartial, update: u}
}

// Route returns a decision result carrying only a route label.
func Route(label string) StepResult {
	return StepResult{kind: resultRoute, label: label}
}

// RouteWith returns a decision result carrying a route label and a partial update.
func RouteWith(label string, u Update) StepResult {
	return StepResult{kind: resultRoute, label: label, update: u}
}

// NoChange returns a result that leaves the state as is.
func NoChange() StepResult {
	return StepResult{}
}

// Label returns the route label, or "" for non-route results.
func (r StepResult) Label() string {
	return r.label
}

// IsRoute reports whether the result carries a route label.
func (r StepResult) IsRoute() bool {
	return r.kind == resultRoute
}

func (r StepResult) summary() string {
	switch r.kind {
	case resultFull:
		return "full"
	case resultPartial:
		return "partial"
	case resultRoute:
		if len(r.update) > 0 {
			return "route+partial"
		}
		return "route"
	default:
		return "no-change"
	}
}
