package layout

import (
	"github.com/randalmurphal/turngraph/pkg/turngraph"
	"github.com/randalmurphal/turngraph/pkg/turngraph/registry"
)

// StepSpec is a catalog entry: the code behind a step name.
type StepSpec struct {
	Kind    turngraph.StepKind
	Fn      turngraph.StepFunc
	Options []turngraph.StepOption
}

// Action returns a StepSpec for an action step.
func Action(fn turngraph.StepFunc, opts ...turngraph.StepOption) StepSpec {
	return StepSpec{Kind: turngraph.KindAction, Fn: fn, Options: opts}
}

// Decision returns a StepSpec for a decision step.
func Decision(fn turngraph.StepFunc, opts ...turngraph.StepOption) StepSpec {
	return StepSpec{Kind: turngraph.KindDecision, Fn: fn, Options: opts}
}

// Catalog maps the names layouts use to step implementations.
type Catalog = registry.Registry[string, StepSpec]

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return registry.New[string, StepSpec]()
}
