// Package moviebot is a Japanese-language movie recommendation bot.
//
// Each user message is one run of a compiled workflow:
//
//	parse_user -> decide -> ask_clarify | teach_user | fetch_movies -> rank_movies -> answer
//
// The workflow shape comes from an embedded YAML layout that can be replaced
// by configuration; step implementations come from a fixed catalog. Only the
// user's Profile survives between turns, through a session.Store.
package moviebot

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/randalmurphal/turngraph/internal/llm"
	"github.com/randalmurphal/turngraph/internal/session"
	"github.com/randalmurphal/turngraph/pkg/turngraph"
	"github.com/randalmurphal/turngraph/pkg/turngraph/layout"
)

//go:embed layout.yaml
var defaultLayout []byte

// DefaultLayout returns the built-in workflow layout.
func DefaultLayout() []byte {
	return append([]byte(nil), defaultLayout...)
}

// ErrEmptyMessage is returned by Turn for blank input.
var ErrEmptyMessage = errors.New("moviebot: empty message")

// Config tunes the bot. Zero fields take defaults.
type Config struct {
	// Language is the TMDB response language.
	Language string `mapstructure:"language"`
	// MaxResults caps the recommendations in one reply.
	MaxResults int `mapstructure:"max_results"`
	// OverviewRunes truncates each overview.
	OverviewRunes int `mapstructure:"overview_runes"`
	// Layout is a YAML layout file replacing the embedded one.
	Layout string `mapstructure:"layout"`
	// Messages overrides reply templates by name.
	Messages map[string]string `mapstructure:"messages"`
	// MaxSteps overrides the layout's step budget.
	MaxSteps int `mapstructure:"max_steps"`
	// Critic appends a model-written review to recommendations.
	Critic bool `mapstructure:"critic"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{Language: "ja-JP", MaxResults: 5, OverviewRunes: 60}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.MaxResults <= 0 {
		c.MaxResults = d.MaxResults
	}
	if c.OverviewRunes <= 0 {
		c.OverviewRunes = d.OverviewRunes
	}
	return c
}

// Deps are the bot's collaborators.
type Deps struct {
	// Movies is required.
	Movies MovieSource
	// LLM is optional. Without it terms are explained from a template and
	// Config.Critic has no effect.
	LLM llm.Client
	// Store defaults to a memory store.
	Store session.Store
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// RunOptions are appended to every run (metrics, tracing).
	RunOptions []turngraph.RunOption
}

// Reply is the outcome of one turn.
type Reply struct {
	SessionID string
	Text      string
	Trace     turngraph.Trace
	RunID     string
	// Turn counts the session's completed turns, this one included.
	Turn    int
	Profile Profile
}

// Bot runs turns against persisted sessions. Turns of one session are
// serialized; different sessions run concurrently.
type Bot struct {
	runnable *turngraph.Runnable
	runOpts  []turngraph.RunOption
	store    session.Store
	logger   *slog.Logger
	locks    *sessionLocks
}

// New builds the bot and compiles its workflow.
func New(cfg Config, deps Deps) (*Bot, error) {
	if deps.Movies == nil {
		return nil, errors.New("moviebot: movie source is required")
	}
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Store == nil {
		deps.Store = session.NewMemoryStore()
	}

	def, err := LoadLayout(cfg.Layout)
	if err != nil {
		return nil, err
	}
	r, err := Compile(def, cfg, deps)
	if err != nil {
		return nil, err
	}

	runOpts := def.RunOptions()
	if cfg.MaxSteps > 0 {
		runOpts = append(runOpts, turngraph.WithMaxSteps(cfg.MaxSteps))
	}
	runOpts = append(runOpts, turngraph.WithRunLogger(deps.Logger))
	runOpts = append(runOpts, deps.RunOptions...)

	return &Bot{
		runnable: r,
		runOpts:  runOpts,
		store:    deps.Store,
		logger:   deps.Logger,
		locks:    newSessionLocks(),
	}, nil
}

// LoadLayout reads the layout at path, or the embedded one when path is empty.
func LoadLayout(path string) (*layout.Definition, error) {
	if path == "" {
		return layout.Parse(defaultLayout)
	}
	return layout.Load(path)
}

// Compile binds def to the bot's step catalog.
func Compile(def *layout.Definition, cfg Config, deps Deps) (*turngraph.Runnable, error) {
	cfg = cfg.withDefaults()
	msgs, err := newMessages(cfg.Messages)
	if err != nil {
		return nil, fmt.Errorf("moviebot: %w", err)
	}
	s := &steps{cfg: cfg, movies: deps.Movies, llm: deps.LLM, msgs: msgs}
	r, err := def.Compile(Schema, s.catalog())
	if err != nil {
		return nil, fmt.Errorf("moviebot: compile layout %q: %w", def.Name, err)
	}
	return r, nil
}

// Runnable exposes the compiled workflow.
func (b *Bot) Runnable() *turngraph.Runnable {
	return b.runnable
}

// Store returns the session store.
func (b *Bot) Store() session.Store {
	return b.store
}

// Turn answers message within session id. A failed run leaves the stored
// session unchanged.
func (b *Bot) Turn(ctx context.Context, id, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if id == "" {
		return nil, session.ErrEmptyID
	}

	defer b.locks.lock(id)()

	rec, err := session.LoadOrNew(ctx, b.store, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	prof, err := DecodeProfile(rec.State[FieldProfile])
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	st := Schema.MustState(map[string]any{
		FieldUserMessage: message,
		FieldProfile:     prof,
	})
	runID := id + "/" + strconv.Itoa(rec.Turns+1)
	tctx := turngraph.NewContext(ctx,
		turngraph.WithLogger(b.logger.With("session", id)),
		turngraph.WithRunID(runID))

	res, err := b.runnable.Run(tctx, st, turngraph.PureValue, b.runOpts...)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	prof, err = DecodeProfile(res.State.Get(FieldProfile))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	rec.State = map[string]any{FieldProfile: prof}
	rec.Turns++
	rec.LastRunID = res.RunID
	if err := b.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}

	return &Reply{
		SessionID: id,
		Text:      turngraph.ValueOr(res.State, FieldAnswer, ""),
		Trace:     res.Trace,
		RunID:     res.RunID,
		Turn:      rec.Turns,
		Profile:   prof,
	}, nil
}

// Reset forgets session id.
func (b *Bot) Reset(ctx context.Context, id string) error {
	defer b.locks.lock(id)()

	if err := b.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("reset session %s: %w", id, err)
	}
	return nil
}

// Close closes the session store.
func (b *Bot) Close() error {
	return b.store.Close()
}
