package turngraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_LinearGraph(t *testing.T) {
	r, err := linearGraph(&recorder{}).Compile()
	require.NoError(t, err)

	assert.Equal(t, "parse", r.Entry())
	assert.Equal(t, []string{"answer"}, r.Terminals())
	assert.Equal(t, []string{"parse", "fetch", "answer"}, r.StepNames())
	assert.Equal(t, []string{"fetch"}, r.Successors("parse"))
	assert.Nil(t, r.Successors("answer"))
	assert.Equal(t, MergeOverlay, r.MergeMode())
}

func TestCompile_BranchingGraph(t *testing.T) {
	r, err := branchingGraph(nil, "fetch").Compile(WithName("turn"))
	require.NoError(t, err)

	kind, ok := r.Kind("route")
	require.True(t, ok)
	assert.Equal(t, KindDecision, kind)
	assert.Equal(t, []string{"clarify", "fetch"}, r.Successors("route"))
	assert.Equal(t, map[string]string{"clarify": "clarify", "fetch": "fetch"}, r.Routes("route"))
	assert.Equal(t, "turn", r.Name())

	_, ok = r.Kind("missing")
	assert.False(t, ok)
}

func TestCompile_SingleStepGraph(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("only", noopStep(nil, "only")).
		SetEntry("only").
		AddTerminal("only").
		Compile()
	assert.NoError(t, err)
}

func TestCompile_DuplicateStep(t *testing.T) {
	_, err := linearGraph(&recorder{}).
		AddAction("fetch", noopStep(nil, "fetch")).
		Compile()

	var dse *DuplicateStepError
	require.ErrorAs(t, err, &dse)
	assert.Equal(t, "fetch", dse.Name)
}

func TestCompile_NoEntry(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		AddTerminal("a").
		Compile()
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestCompile_NoTerminal(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		SetEntry("a").
		Compile()
	assert.ErrorIs(t, err, ErrNoTerminal)
}

func TestCompile_UnknownReferences(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		AddEdge("a", "ghost").
		AddEdge("phantom", "a").
		SetEntry("nowhere").
		AddTerminal("missing").
		Compile()
	require.Error(t, err)

	var roles []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var use *UnknownStepError
		if errors.As(e, &use) {
			roles = append(roles, use.Role+":"+use.Name)
		}
	}
	assert.ElementsMatch(t, []string{
		"entry:nowhere",
		"terminal:missing",
		"edge target:ghost",
		"edge source:phantom",
	}, roles)
}

func TestCompile_ConditionalEdgesOnAction(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		AddAction("b", noopStep(nil, "b")).
		AddEdge("a", "b").
		AddConditionalEdges("a", map[string]string{"x": "b"}).
		SetEntry("a").
		AddTerminal("b").
		Compile()

	var ike *InvalidStepKindError
	require.ErrorAs(t, err, &ike)
	assert.Equal(t, "a", ike.Name)
	assert.Equal(t, KindAction, ike.Kind)
	assert.Equal(t, KindDecision, ike.Want)
}

func TestCompile_DecisionWithUnconditionalEdge(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddDecision("d", routeStep(nil, "d", "x")).
		AddAction("b", noopStep(nil, "b")).
		AddEdge("d", "b").
		SetEntry("d").
		AddTerminal("b").
		Compile()
	assert.ErrorIs(t, err, ErrDecisionEdge)
}

func TestCompile_AmbiguousEdge(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		AddAction("b", noopStep(nil, "b")).
		AddAction("c", noopStep(nil, "c")).
		AddEdge("a", "b").
		AddEdge("a", "c").
		SetEntry("a").
		AddTerminal("b", "c").
		Compile()
	assert.ErrorIs(t, err, ErrAmbiguousEdge)
}

func TestCompile_TerminalWithEdges(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		AddAction("b", noopStep(nil, "b")).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntry("a").
		AddTerminal("b").
		Compile()
	assert.ErrorIs(t, err, ErrTerminalEdges)
}

func TestCompile_DeadEnd(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		AddDecision("d", routeStep(nil, "d", "x")).
		AddAction("end", noopStep(nil, "end")).
		AddEdge("a", "end").
		SetEntry("a").
		AddTerminal("end").
		Compile()

	var gve *GraphValidationError
	require.ErrorAs(t, err, &gve)
	assert.ErrorIs(t, err, ErrDeadEnd)
	assert.Equal(t, "d", gve.Details)
}

func TestCompile_UnreachableTerminal(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		AddAction("b", noopStep(nil, "b")).
		AddAction("island", noopStep(nil, "island")).
		AddEdge("a", "b").
		SetEntry("a").
		AddTerminal("b", "island").
		Compile()

	var gve *GraphValidationError
	require.ErrorAs(t, err, &gve)
	assert.ErrorIs(t, err, ErrUnreachableTerminal)
	assert.Equal(t, "island", gve.Details)
}

func TestCompile_NoPathToTerminal(t *testing.T) {
	// loop1 <-> loop2 never reaches end.
	_, err := NewGraph(turnSchema).
		AddDecision("start", routeStep(nil, "start", "done")).
		AddAction("loop1", noopStep(nil, "loop1")).
		AddAction("loop2", noopStep(nil, "loop2")).
		AddAction("end", noopStep(nil, "end")).
		AddConditionalEdges("start", map[string]string{"done": "end", "spin": "loop1"}).
		AddEdge("loop1", "loop2").
		AddEdge("loop2", "loop1").
		SetEntry("start").
		AddTerminal("end").
		Compile()
	assert.ErrorIs(t, err, ErrNoPathToTerminal)
}

func TestCompile_CyclesAllowedByDefault(t *testing.T) {
	g := NewGraph(turnSchema).
		AddAction("work", countStep).
		AddDecision("check", routeStep(nil, "check", "again")).
		AddAction("end", noopStep(nil, "end")).
		AddEdge("work", "check").
		AddConditionalEdges("check", map[string]string{"again": "work", "done": "end"}).
		SetEntry("work").
		AddTerminal("end")

	_, err := g.Compile()
	require.NoError(t, err)

	_, err = g.Compile(WithAcyclic())
	var gve *GraphValidationError
	require.ErrorAs(t, err, &gve)
	assert.ErrorIs(t, err, ErrCycle)
	assert.Equal(t, "work -> check -> work", gve.Details)
}

func TestCompile_WritesUnknownField(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a"), Writes("intent", "mood")).
		SetEntry("a").
		AddTerminal("a").
		Compile()
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestCompile_DeclaredLabelsNeedRoutes(t *testing.T) {
	build := func(routes map[string]string) error {
		_, err := NewGraph(turnSchema).
			AddDecision("d", routeStep(nil, "d", "a"), Labels("a", "b")).
			AddAction("x", noopStep(nil, "x")).
			AddConditionalEdges("d", routes).
			SetEntry("d").
			AddTerminal("x").
			Compile()
		return err
	}

	assert.ErrorIs(t, build(map[string]string{"a": "x"}), ErrMissingRoute)
	assert.NoError(t, build(map[string]string{"a": "x", "b": "x"}))
	assert.NoError(t, build(map[string]string{"a": "x", DefaultRoute: "x"}))
}

func TestCompile_RouteLabelConflicts(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddDecision("d", routeStep(nil, "d", "a")).
		AddAction("x", noopStep(nil, "x")).
		AddAction("y", noopStep(nil, "y")).
		AddConditionalEdges("d", map[string]string{"a": "x", "": "x"}).
		AddConditionalEdges("d", map[string]string{"a": "y"}).
		AddEdge("y", "x").
		SetEntry("d").
		AddTerminal("x").
		Compile()
	assert.ErrorIs(t, err, ErrDuplicateRoute)
	assert.ErrorIs(t, err, ErrEmptyLabel)
}

func TestCompile_MultipleErrorsReturned(t *testing.T) {
	_, err := NewGraph(turnSchema).
		AddAction("a", noopStep(nil, "a")).
		AddAction("a", noopStep(nil, "a")).
		AddEdge("a", "ghost").
		Compile()
	require.Error(t, err)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(joined.Unwrap()), 4)
}

func TestCompile_RecompileIsIndependent(t *testing.T) {
	g := linearGraph(&recorder{})
	first, err := g.Compile()
	require.NoError(t, err)

	g.AddAction("extra", noopStep(nil, "extra"))
	second, err := g.Compile()
	require.NoError(t, err)

	assert.False(t, first.HasStep("extra"))
	assert.True(t, second.HasStep("extra"))
}

func TestAddStep_Panics(t *testing.T) {
	g := NewGraph(turnSchema)
	assert.Panics(t, func() { g.AddAction("", noopStep(nil, "")) })
	assert.Panics(t, func() { g.AddAction("a b", noopStep(nil, "")) })
	assert.Panics(t, func() { g.AddAction("a", nil) })
	assert.Panics(t, func() { g.AddStep("a", StepKind(9), noopStep(nil, "")) })
	assert.Panics(t, func() { NewGraph(nil) })
}
