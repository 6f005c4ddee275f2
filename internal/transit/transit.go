// Package transit answers train status questions for Tokyo operators.
//
// The workflow is parse_user -> route -> fetch_status -> answer, compiled
// in replace mode: every step returns the complete next state.
package transit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/turngraph/pkg/turngraph"
)

// State fields.
const (
	FieldQuery    = "query"
	FieldOperator = "operator"
	FieldStatus   = "status"
	FieldAnswer   = "answer"
)

// Route labels.
const (
	routeKnown   = "known"
	routeUnknown = "unknown"
)

// Schema is the transit state schema.
var Schema = turngraph.NewSchema(FieldQuery, FieldOperator, FieldStatus, FieldAnswer)

// Apology is the answer when no operator or record was found.
const Apology = "申し訳ありません、対象路線が特定できませんでした。"

// keywords are checked in order; the first hit wins.
var keywords = []struct {
	word     string
	operator string
}{
	{"丸ノ内", OperatorTokyoMetro},
	{"メトロ", OperatorTokyoMetro},
	{"都営", OperatorToei},
}

// OperatorFor returns the operator named by query, or "".
func OperatorFor(query string) string {
	for _, k := range keywords {
		if strings.Contains(query, k.word) {
			return k.operator
		}
	}
	return ""
}

// Format renders a record as a reply.
func Format(info Info) string {
	return fmt.Sprintf("【%s 現在】%s", info.Date, info.Text.Ja())
}

// Bot runs the transit workflow.
type Bot struct {
	runnable *turngraph.Runnable
	logger   *slog.Logger
	runOpts  []turngraph.RunOption
}

// New compiles the workflow over provider.
func New(provider Provider, logger *slog.Logger, runOpts ...turngraph.RunOption) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r, err := NewGraph(provider).Compile(
		turngraph.WithName("transit"),
		turngraph.WithMergeMode(turngraph.MergeReplace),
		turngraph.WithAcyclic(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile transit graph: %w", err)
	}
	return &Bot{runnable: r, logger: logger, runOpts: runOpts}, nil
}

// Runnable exposes the compiled workflow.
func (b *Bot) Runnable() *turngraph.Runnable {
	return b.runnable
}

// Ask answers one question.
func (b *Bot) Ask(ctx context.Context, query string) (string, turngraph.Trace, error) {
	st := Schema.MustState(map[string]any{FieldQuery: query})
	res, err := b.runnable.Run(turngraph.NewContext(ctx, turngraph.WithLogger(b.logger)), st, turngraph.PureValue, b.runOpts...)
	if err != nil {
		var trace turngraph.Trace
		if res != nil {
			trace = res.Trace
		}
		return "", trace, err
	}
	return turngraph.ValueOr(res.State, FieldAnswer, Apology), res.Trace, nil
}

// NewGraph builds the uncompiled workflow.
func NewGraph(provider Provider) *turngraph.Graph {
	return turngraph.NewGraph(Schema).
		AddAction("parse_user", parseUser,
			turngraph.Describe("Map line keywords to an operator")).
		AddDecision("route", route,
			turngraph.Labels(routeKnown, routeUnknown)).
		AddAction("fetch_status", fetchStatus(provider),
			turngraph.Describe("Look up current train information"),
			turngraph.Fallible(func(ctx turngraph.Context, _ *turngraph.State, err error) turngraph.StepResult {
				ctx.Logger().Warn("train information unavailable", "error", err)
				return turngraph.NoChange()
			})).
		AddAction("answer", answer).
		AddEdge("parse_user", "route").
		AddConditionalEdges("route", map[string]string{
			routeKnown:   "fetch_status",
			routeUnknown: "answer",
		}).
		AddEdge("fetch_status", "answer").
		SetEntry("parse_user").
		AddTerminal("answer")
}

// next returns a copy of st with field set.
func next(st *turngraph.State, field string, v any) (turngraph.StepResult, error) {
	out := st.Clone()
	if err := out.Set(field, v); err != nil {
		return turngraph.StepResult{}, err
	}
	return turngraph.Full(out), nil
}

func parseUser(ctx turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	q, _ := turngraph.Value[string](st, FieldQuery)
	op := OperatorFor(q)
	if op == "" {
		return turngraph.NoChange(), nil
	}
	ctx.Logger().Debug("operator detected", "operator", op)
	return next(st, FieldOperator, op)
}

func route(_ turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	if st.Has(FieldOperator) {
		return turngraph.Route(routeKnown), nil
	}
	return turngraph.Route(routeUnknown), nil
}

func fetchStatus(p Provider) turngraph.StepFunc {
	return func(ctx turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
		op, _ := turngraph.Value[string](st, FieldOperator)
		infos, err := p.TrainInformation(ctx, op)
		if err != nil {
			return turngraph.StepResult{}, err
		}
		if len(infos) == 0 {
			return turngraph.NoChange(), nil
		}
		return next(st, FieldStatus, infos[0])
	}
}

func answer(_ turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	if info, ok := turngraph.Value[Info](st, FieldStatus); ok {
		return next(st, FieldAnswer, Format(info))
	}
	return next(st, FieldAnswer, Apology)
}
