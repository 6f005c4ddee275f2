package layout

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/randalmurphal/turngraph/pkg/turngraph"
	"github.com/randalmurphal/turngraph/pkg/turngraph/expr"
)

// KindMismatchError reports a step whose declared kind differs from its
// catalog entry.
type KindMismatchError struct {
	Step     string
	Declared string
	Catalog  turngraph.StepKind
}

// Error implements the error interface.
func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("layout: step %s declared %s but catalog entry is %s", e.Step, e.Declared, e.Catalog)
}

// Build turns the definition into a graph builder plus the compile options
// it declares. Layout errors are joined; structural validation is left to
// Compile on the returned graph.
func (d *Definition) Build(schema *turngraph.Schema, catalog *Catalog) (*turngraph.Graph, []turngraph.CompileOption, error) {
	var errs []error

	mode, err := turngraph.ParseMergeMode(d.Merge)
	if err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	}
	opts := []turngraph.CompileOption{turngraph.WithMergeMode(mode)}
	if d.Name != "" {
		opts = append(opts, turngraph.WithName(d.Name))
	}
	if d.Acyclic {
		opts = append(opts, turngraph.WithAcyclic())
	}

	g := turngraph.NewGraph(schema)
	for i, sd := range d.Steps {
		if sd.Name == "" {
			errs = append(errs, fmt.Errorf("layout: step %d has no name", i))
			continue
		}
		if err := d.addStep(g, schema, catalog, sd); err != nil {
			errs = append(errs, err)
		}
	}

	if d.Entry != "" {
		g.SetEntry(d.Entry)
	}
	g.AddTerminal(d.Terminals...)

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return g, opts, nil
}

// Compile builds and compiles the definition. extra options apply after the
// layout's own.
func (d *Definition) Compile(schema *turngraph.Schema, catalog *Catalog, extra ...turngraph.CompileOption) (*turngraph.Runnable, error) {
	g, opts, err := d.Build(schema, catalog)
	if err != nil {
		return nil, err
	}
	return g.Compile(append(opts, extra...)...)
}

func (d *Definition) addStep(g *turngraph.Graph, schema *turngraph.Schema, catalog *Catalog, sd StepDef) error {
	var opts []turngraph.StepOption
	if len(sd.Writes) > 0 {
		opts = append(opts, turngraph.Writes(sd.Writes...))
	}
	if sd.Description != "" {
		opts = append(opts, turngraph.Describe(sd.Description))
	}

	if len(sd.Rules) > 0 || sd.Otherwise != "" {
		return d.addRuleDecision(g, schema, sd, opts)
	}

	use := sd.Use
	if use == "" {
		use = sd.Name
	}
	spec, err := catalog.Find(use)
	if err != nil {
		return fmt.Errorf("layout: step %s: %w", sd.Name, err)
	}
	if sd.Kind != "" && sd.Kind != spec.Kind.String() {
		return &KindMismatchError{Step: sd.Name, Declared: sd.Kind, Catalog: spec.Kind}
	}

	g.AddStep(sd.Name, spec.Kind, spec.Fn, append(slices.Clone(spec.Options), opts...)...)
	if sd.Next != "" {
		g.AddEdge(sd.Name, sd.Next)
	}
	if len(sd.Routes) > 0 {
		g.AddConditionalEdges(sd.Name, sd.Routes)
	}
	return nil
}

type rule struct {
	prog  *expr.Program
	route string
}

func (d *Definition) addRuleDecision(g *turngraph.Graph, schema *turngraph.Schema, sd StepDef, opts []turngraph.StepOption) error {
	if sd.Kind != "" && sd.Kind != turngraph.KindDecision.String() {
		return &KindMismatchError{Step: sd.Name, Declared: sd.Kind, Catalog: turngraph.KindDecision}
	}
	if sd.Next != "" {
		return fmt.Errorf("layout: rule step %s cannot have next", sd.Name)
	}

	var errs []error
	rules := make([]rule, 0, len(sd.Rules))
	labels := make([]string, 0, len(sd.Rules)+1)
	for i, rd := range sd.Rules {
		prog, err := expr.Compile(rd.When)
		if err != nil {
			errs = append(errs, fmt.Errorf("layout: step %s rule %d: %w", sd.Name, i, err))
			continue
		}
		for _, id := range prog.Identifiers() {
			if !schema.Has(id) {
				errs = append(errs, fmt.Errorf("layout: step %s rule %d: %w", sd.Name, i, &turngraph.UnknownFieldError{Field: id}))
			}
		}
		if rd.Route == "" {
			errs = append(errs, fmt.Errorf("layout: step %s rule %d: %w", sd.Name, i, turngraph.ErrEmptyLabel))
			continue
		}
		rules = append(rules, rule{prog: prog, route: rd.Route})
		labels = append(labels, rd.Route)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	fallback := sd.Otherwise
	if fallback == "" {
		fallback = turngraph.DefaultRoute
	}
	labels = append(labels, fallback)
	labels = slices.Compact(slices.Sorted(slices.Values(labels)))

	routes := sd.Routes
	if len(routes) == 0 {
		routes = make(map[string]string, len(labels))
		for _, l := range labels {
			if l != turngraph.DefaultRoute {
				routes[l] = l
			}
		}
	}

	opts = append(opts, turngraph.Labels(labels...))
	g.AddDecision(sd.Name, ruleDecision(rules, fallback), opts...)
	if len(routes) > 0 {
		g.AddConditionalEdges(sd.Name, maps.Clone(routes))
	}
	return nil
}

func ruleDecision(rules []rule, fallback string) turngraph.StepFunc {
	return func(ctx turngraph.Context, s *turngraph.State) (turngraph.StepResult, error) {
		for _, r := range rules {
			ok, err := r.prog.Eval(s)
			if err != nil {
				return turngraph.StepResult{}, err
			}
			if ok {
				ctx.Logger().Debug("rule matched", "when", r.prog.String(), "route", r.route)
				return turngraph.Route(r.route), nil
			}
		}
		return turngraph.Route(fallback), nil
	}
}
