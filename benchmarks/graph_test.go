package benchmarks

import (
	"testing"

	"github.com/randalmurphal/turngraph/pkg/turngraph"
)

var schema = turngraph.NewSchema("value", "label")

// noopStep does minimal work to measure framework overhead.
func noopStep(ctx turngraph.Context, s *turngraph.State) (turngraph.StepResult, error) {
	return turngraph.NoChange(), nil
}

// incStep bumps the counter with a partial update.
func incStep(ctx turngraph.Context, s *turngraph.State) (turngraph.StepResult, error) {
	return turngraph.Partial(turngraph.Update{"value": turngraph.ValueOr(s, "value", 0) + 1}), nil
}

// BenchmarkNewGraph measures graph creation overhead.
func BenchmarkNewGraph(b *testing.B) {
	for i := 0; i < b.N; i++ {
		turngraph.NewGraph(schema)
	}
}

// BenchmarkAddAction measures step registration overhead.
func BenchmarkAddAction(b *testing.B) {
	for i := 0; i < b.N; i++ {
		turngraph.NewGraph(schema).AddAction("step", noopStep)
	}
}

// BenchmarkAddAction_100 measures registering 100 steps.
func BenchmarkAddAction_100(b *testing.B) {
	for i := 0; i < b.N; i++ {
		g := turngraph.NewGraph(schema)
		for j := 0; j < 100; j++ {
			g.AddAction(stepName(j), noopStep)
		}
	}
}

// BenchmarkCompile_Linear_5 compiles a 5-step linear graph.
func BenchmarkCompile_Linear_5(b *testing.B) {
	benchCompile(b, buildLinearGraph(5))
}

// BenchmarkCompile_Linear_50 compiles a 50-step linear graph.
func BenchmarkCompile_Linear_50(b *testing.B) {
	benchCompile(b, buildLinearGraph(50))
}

// BenchmarkCompile_Linear_100_Acyclic includes cycle detection.
func BenchmarkCompile_Linear_100_Acyclic(b *testing.B) {
	benchCompile(b, buildLinearGraph(100), turngraph.WithAcyclic())
}

// BenchmarkCompile_Branching compiles a graph with a decision step.
func BenchmarkCompile_Branching(b *testing.B) {
	benchCompile(b, buildBranchingGraph())
}

// BenchmarkMermaid renders a 50-step graph.
func BenchmarkMermaid(b *testing.B) {
	r := mustCompile(buildLinearGraph(50))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Mermaid(nil)
	}
}

// Helper functions

func benchCompile(b *testing.B, g *turngraph.Graph, opts ...turngraph.CompileOption) {
	b.Helper()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.Compile(opts...); err != nil {
			b.Fatal(err)
		}
	}
}

func stepName(n int) string {
	return string(rune('a'+n%26)) + string(rune('0'+n/26%10))
}

func mustCompile(g *turngraph.Graph, opts ...turngraph.CompileOption) *turngraph.Runnable {
	r, err := g.Compile(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func buildLinearGraph(n int) *turngraph.Graph {
	g := turngraph.NewGraph(schema)
	for i := 0; i < n; i++ {
		g.AddAction(stepName(i), incStep)
	}
	for i := 0; i < n-1; i++ {
		g.AddEdge(stepName(i), stepName(i+1))
	}
	return g.SetEntry(stepName(0)).AddTerminal(stepName(n - 1))
}

func buildBranchingGraph() *turngraph.Graph {
	parity := func(ctx turngraph.Context, s *turngraph.State) (turngraph.StepResult, error) {
		if turngraph.ValueOr(s, "value", 0)%2 == 0 {
			return turngraph.RouteWith("even", turngraph.Update{"label": "even"}), nil
		}
		return turngraph.RouteWith("odd", turngraph.Update{"label": "odd"}), nil
	}

	return turngraph.NewGraph(schema).
		AddDecision("start", parity, turngraph.Labels("even", "odd")).
		AddAction("even", noopStep).
		AddAction("odd", noopStep).
		AddAction("merge", noopStep).
		AddConditionalEdges("start", map[string]string{"even": "even", "odd": "odd"}).
		AddEdge("even", "merge").
		AddEdge("odd", "merge").
		SetEntry("start").
		AddTerminal("merge")
}

func buildLoopGraph(iterations int) *turngraph.Graph {
	check := func(ctx turngraph.Context, s *turngraph.State) (turngraph.StepResult, error) {
		if turngraph.ValueOr(s, "value", 0) >= iterations {
			return turngraph.Route("done"), nil
		}
		return turngraph.Route("loop"), nil
	}

	return turngraph.NewGraph(schema).
		AddAction("loop", incStep).
		AddDecision("check", check).
		AddAction("done", noopStep).
		AddEdge("loop", "check").
		AddConditionalEdges("check", map[string]string{"loop": "loop", "done": "done"}).
		SetEntry("loop").
		AddTerminal("done")
}
