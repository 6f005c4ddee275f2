package moviebot

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/randalmurphal/turngraph/internal/llm"
	"github.com/randalmurphal/turngraph/internal/tmdb"
	"github.com/randalmurphal/turngraph/pkg/turngraph"
	"github.com/randalmurphal/turngraph/pkg/turngraph/layout"
	"github.com/randalmurphal/turngraph/pkg/turngraph/template"
)

// State fields.
const (
	FieldUserMessage     = "user_message"
	FieldProfile         = "profile"
	FieldNeedMoreInfo    = "need_more_info"
	FieldTeachingSnippet = "teaching_snippet"
	FieldPendingQuestion = "pending_question"
	FieldRecommendations = "recommendations"
	FieldAnswer          = "answer"
)

// Route labels of the decide step.
const (
	RouteClarify = "ask_clarify"
	RouteTeach   = "teach_user"
	RouteFetch   = "fetch_movies"
)

// Schema is the movie bot state schema.
var Schema = turngraph.NewSchema(
	FieldUserMessage,
	FieldProfile,
	FieldNeedMoreInfo,
	FieldTeachingSnippet,
	FieldPendingQuestion,
	FieldRecommendations,
	FieldAnswer,
)

// MovieSource finds candidate movies.
type MovieSource interface {
	Discover(ctx context.Context, q tmdb.DiscoverQuery) ([]tmdb.Movie, error)
}

var errEmptyCompletion = errors.New("empty completion")

type steps struct {
	cfg    Config
	movies MovieSource
	llm    llm.Client
	msgs   *template.Catalog
}

// catalog registers every step implementation by name.
func (s *steps) catalog() *layout.Catalog {
	c := layout.NewCatalog()
	c.MustRegister("parse_user", layout.Action(s.parseUser,
		turngraph.Writes(FieldProfile, FieldNeedMoreInfo, FieldTeachingSnippet),
		turngraph.Describe("Read genres, rating floor and questions from the message")))
	c.MustRegister("decide", layout.Decision(decide,
		turngraph.Labels(RouteClarify, RouteTeach, RouteFetch)))
	c.MustRegister("ask_clarify", layout.Action(s.askClarify,
		turngraph.Writes(FieldPendingQuestion, FieldRecommendations)))
	c.MustRegister("teach_user", layout.Action(s.teachUser,
		turngraph.Writes(FieldTeachingSnippet),
		turngraph.Fallible(s.teachFallback)))
	c.MustRegister("fetch_movies", layout.Action(s.fetchMovies,
		turngraph.Writes(FieldRecommendations, FieldNeedMoreInfo, FieldPendingQuestion),
		turngraph.FallbackResult(turngraph.NoChange()),
		turngraph.Describe("Discover movies for the liked genres")))
	c.MustRegister("rank_movies", layout.Action(s.rankMovies,
		turngraph.Writes(FieldRecommendations)))
	c.MustRegister("answer", layout.Action(s.answer,
		turngraph.Writes(FieldAnswer, FieldPendingQuestion, FieldTeachingSnippet, FieldRecommendations)))
	c.Freeze()
	return c
}

func profileOf(st *turngraph.State) (Profile, error) {
	return DecodeProfile(st.Get(FieldProfile))
}

func (s *steps) parseUser(ctx turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	msg := turngraph.ValueOr(st, FieldUserMessage, "")
	prof, err := profileOf(st)
	if err != nil {
		return turngraph.StepResult{}, err
	}

	in := ParseIntent(msg)
	prof = prof.Merge(in)
	if prof.Language == "" {
		prof.Language = s.cfg.Language
	}
	ctx.Logger().Debug("message parsed",
		"liked", in.Liked, "disliked", in.Disliked, "term", in.Term, "min_rating", in.MinRating)

	u := turngraph.Update{
		FieldProfile:      prof,
		FieldNeedMoreInfo: prof.Empty() && in.Term == "",
	}
	if in.Term != "" {
		u[FieldTeachingSnippet] = in.Term
	}
	return turngraph.Partial(u), nil
}

// decide is the coded equivalent of the embedded layout's rule step.
func decide(_ turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	if turngraph.ValueOr(st, FieldNeedMoreInfo, false) {
		return turngraph.Route(RouteClarify), nil
	}
	recs, _ := turngraph.Value[[]tmdb.Movie](st, FieldRecommendations)
	if turngraph.ValueOr(st, FieldTeachingSnippet, "") != "" && len(recs) == 0 {
		return turngraph.Route(RouteTeach), nil
	}
	return turngraph.Route(RouteFetch), nil
}

func (s *steps) askClarify(_ turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	u := turngraph.Update{FieldRecommendations: turngraph.Clear}
	if turngraph.ValueOr(st, FieldPendingQuestion, "") == "" {
		q, err := s.msgs.Render(MsgClarify, template.Map{})
		if err != nil {
			return turngraph.StepResult{}, err
		}
		u[FieldPendingQuestion] = q
	}
	return turngraph.Partial(u), nil
}

func (s *steps) teachUser(ctx turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	term := turngraph.ValueOr(st, FieldTeachingSnippet, "")
	if s.llm == nil {
		return s.teachFromTemplate(term)
	}

	prompt, err := s.msgs.Render(MsgTeachPrompt, template.Map{"term": term})
	if err != nil {
		return turngraph.StepResult{}, err
	}
	resp, err := s.llm.Complete(ctx, llm.Prompt(s.criticSystem(), prompt))
	if err != nil {
		return turngraph.StepResult{}, err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return turngraph.StepResult{}, errEmptyCompletion
	}
	return turngraph.Partial(turngraph.Update{FieldTeachingSnippet: text}), nil
}

func (s *steps) teachFromTemplate(term string) (turngraph.StepResult, error) {
	text, err := s.msgs.Render(MsgTeach, template.Map{"term": term})
	if err != nil {
		return turngraph.StepResult{}, err
	}
	return turngraph.Partial(turngraph.Update{FieldTeachingSnippet: text}), nil
}

func (s *steps) teachFallback(ctx turngraph.Context, st *turngraph.State, err error) turngraph.StepResult {
	res, rerr := s.teachFromTemplate(turngraph.ValueOr(st, FieldTeachingSnippet, ""))
	if rerr != nil {
		ctx.Logger().Warn("teach template failed", "error", rerr)
		return turngraph.NoChange()
	}
	return res
}

func (s *steps) fetchMovies(ctx turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	prof, err := profileOf(st)
	if err != nil {
		return turngraph.StepResult{}, err
	}
	if len(prof.LikedGenres) == 0 {
		q, err := s.msgs.Render(MsgClarify, template.Map{})
		if err != nil {
			return turngraph.StepResult{}, err
		}
		return turngraph.Partial(turngraph.Update{
			FieldNeedMoreInfo:    true,
			FieldPendingQuestion: q,
		}), nil
	}

	q := tmdb.DiscoverQuery{
		Language:      cmp.Or(prof.Language, s.cfg.Language),
		WithGenres:    prof.LikedGenres,
		WithoutGenres: prof.DislikedGenres,
		MinRating:     prof.MinRating,
	}
	movies, err := s.movies.Discover(ctx, q)
	if err != nil {
		return turngraph.StepResult{}, err
	}
	ctx.Logger().Debug("movies discovered", "query", q.String(), "count", len(movies))
	if len(movies) == 0 {
		return turngraph.NoChange(), nil
	}
	return turngraph.Partial(turngraph.Update{FieldRecommendations: movies}), nil
}

func (s *steps) rankMovies(_ turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	recs, ok := turngraph.Value[[]tmdb.Movie](st, FieldRecommendations)
	if !ok {
		return turngraph.NoChange(), nil
	}
	prof, err := profileOf(st)
	if err != nil {
		return turngraph.StepResult{}, err
	}
	ranked := Rank(recs, prof, s.cfg.MaxResults)
	if len(ranked) == 0 {
		return turngraph.Partial(turngraph.Update{FieldRecommendations: turngraph.Clear}), nil
	}
	return turngraph.Partial(turngraph.Update{FieldRecommendations: ranked}), nil
}

// Rank drops movies in disliked genres or below the rating floor, orders the
// rest by vote average then popularity, and keeps at most limit.
// A limit of zero or less keeps everything.
func Rank(movies []tmdb.Movie, prof Profile, limit int) []tmdb.Movie {
	out := make([]tmdb.Movie, 0, len(movies))
	for _, m := range movies {
		if prof.MinRating > 0 && m.VoteAverage < prof.MinRating {
			continue
		}
		if slices.ContainsFunc(m.GenreIDs, func(g int) bool { return slices.Contains(prof.DislikedGenres, g) }) {
			continue
		}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b tmdb.Movie) int {
		if c := cmp.Compare(b.VoteAverage, a.VoteAverage); c != 0 {
			return c
		}
		return cmp.Compare(b.Popularity, a.Popularity)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *steps) answer(ctx turngraph.Context, st *turngraph.State) (turngraph.StepResult, error) {
	pending := turngraph.ValueOr(st, FieldPendingQuestion, "")
	snippet := turngraph.ValueOr(st, FieldTeachingSnippet, "")
	recs, _ := turngraph.Value[[]tmdb.Movie](st, FieldRecommendations)

	var reply string
	var err error
	switch {
	case pending != "":
		reply = pending
	case snippet != "" && len(recs) == 0:
		reply = snippet
	case len(recs) > 0:
		reply, err = s.recommendations(ctx, turngraph.ValueOr(st, FieldUserMessage, ""), recs, snippet)
	default:
		reply, err = s.msgs.Render(MsgNotFound, template.Map{})
	}
	if err != nil {
		return turngraph.StepResult{}, err
	}

	return turngraph.Partial(turngraph.Update{
		FieldAnswer:          reply,
		FieldPendingQuestion: turngraph.Clear,
		FieldTeachingSnippet: turngraph.Clear,
		FieldRecommendations: turngraph.Clear,
	}), nil
}

func (s *steps) recommendations(ctx turngraph.Context, query string, recs []tmdb.Movie, snippet string) (string, error) {
	header, err := s.msgs.Render(MsgRecommendHeader, template.Map{})
	if err != nil {
		return "", err
	}
	lines := []string{header}
	for _, m := range recs {
		line, err := s.msgs.Render(MsgRecommendItem, template.Map{
			"title":    m.DisplayTitle(),
			"year":     m.Year(),
			"overview": truncate(oneLine(m.Overview), s.cfg.OverviewRunes),
			"rating":   m.VoteAverage,
		})
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	if snippet != "" {
		trivia, err := s.msgs.Render(MsgTrivia, template.Map{"snippet": snippet})
		if err != nil {
			return "", err
		}
		lines = append(lines, trivia)
	}
	reply := strings.Join(lines, "\n")

	if s.cfg.Critic && s.llm != nil {
		reply += "\n\n" + s.critique(ctx, query, recs)
	}
	return reply, nil
}

// critique asks the model for a short review of the candidates. Failures
// produce the critic_failed message instead of failing the turn.
func (s *steps) critique(ctx turngraph.Context, query string, recs []tmdb.Movie) string {
	titles := make([]string, len(recs))
	for i, m := range recs {
		titles[i] = "- " + m.DisplayTitle()
	}
	failed, _ := s.msgs.Render(MsgCriticFailed, template.Map{})

	prompt, err := s.msgs.Render(MsgCriticPrompt, template.Map{"query": query, "list": titles})
	if err != nil {
		ctx.Logger().Warn("critic prompt failed", "error", err)
		return failed
	}
	resp, err := s.llm.Complete(ctx, llm.Prompt(s.criticSystem(), prompt))
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		ctx.Logger().Warn("critic unavailable", "error", err)
		return failed
	}
	return strings.TrimSpace(resp.Content)
}

func (s *steps) criticSystem() string {
	text, _ := s.msgs.Text(MsgCriticSystem)
	return text
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
// oneLine collapses runs of whitespace, newlines included, to single spaces.
func oneLine(s string) string { return strings.Join(strings.Fields(s), " ") }

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
