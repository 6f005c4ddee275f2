package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/randalmurphal/turngraph/internal/llm"
	"github.com/randalmurphal/turngraph/internal/moviebot"
	"github.com/randalmurphal/turngraph/internal/session"
	"github.com/randalmurphal/turngraph/internal/settings"
	"github.com/randalmurphal/turngraph/internal/tmdb"
	"github.com/randalmurphal/turngraph/internal/transit"
	"github.com/randalmurphal/turngraph/pkg/turngraph"
	tgerrors "github.com/randalmurphal/turngraph/pkg/turngraph/errors"
	"github.com/randalmurphal/turngraph/pkg/turngraph/observability"
)

// app holds everything a command needs.
type app struct {
	settings settings.Settings
	logger   *slog.Logger
	registry *prometheus.Registry
	movie    *moviebot.Bot
	transit  *transit.Bot
	tracer   *sdktrace.TracerProvider
}

// newApp wires the bots described by s. Logs go to logw.
func newApp(ctx context.Context, s settings.Settings, logw io.Writer) (*app, error) {
	a := &app{
		settings: s,
		logger:   s.Log.NewLogger(logw),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	runOpts, err := a.runOptions()
	if err != nil {
		return nil, err
	}

	store, err := session.Open(ctx, s.Session)
	if err != nil {
		return nil, err
	}

	movies, err := a.movieSource()
	if err != nil {
		store.Close()
		return nil, err
	}

	a.movie, err = moviebot.New(s.Bot, moviebot.Deps{
		Movies:     movies,
		LLM:        a.llmClient(),
		Store:      store,
		Logger:     a.logger,
		RunOptions: runOpts,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	a.transit, err = transit.New(a.trainSource(), a.logger, runOpts...)
	if err != nil {
		a.movie.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) runOptions() ([]turngraph.RunOption, error) {
	var opts []turngraph.RunOption
	if a.settings.Metrics.Enabled {
		rec, err := observability.NewPrometheusRecorder(a.registry)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts, turngraph.WithMetrics(rec))
	}
	if a.settings.Metrics.Tracing {
		a.tracer = sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(newLogSpans(a.logger)),
		)
		opts = append(opts, turngraph.WithTracing(observability.NewSpanManagerWithProvider(a.tracer)))
	}
	return opts, nil
}

func (a *app) movieSource() (moviebot.MovieSource, error) {
	t := a.settings.TMDB
	if t.Stub {
		a.logger.Info("using sample movie catalogue")
		return &tmdb.Stub{Movies: tmdb.SampleMovies()}, nil
	}
	if t.APIKey == "" {
		return nil, &tgerrors.ConfigError{Key: "tmdb.api_key", Message: "required unless tmdb.stub is set"}
	}
	opts := []tmdb.Option{tmdb.WithLogger(a.logger)}
	if t.BaseURL != "" {
		opts = append(opts, tmdb.WithBaseURL(t.BaseURL))
	}
	return tmdb.New(t.APIKey, opts...), nil
}

func (a *app) trainSource() transit.Provider {
	o := a.settings.ODPT
	if o.Stub || o.Token == "" {
		return transit.NewStub()
	}
	opts := []transit.ClientOption{transit.WithLogger(a.logger)}
	if o.Endpoint != "" {
		opts = append(opts, transit.WithEndpoint(o.Endpoint))
	}
	return transit.NewClient(o.Token, opts...)
}

// llmClient returns nil when the model is disabled; the bot then uses
// templates only.
func (a *app) llmClient() llm.Client {
	l := a.settings.LLM
	if !l.Enabled {
		return nil
	}
	retry := tgerrors.NoRetry
	if l.Retries > 0 {
		retry = tgerrors.DefaultRetry
		retry.MaxAttempts = l.Retries + 1
	}
	return llm.NewCommand(
		llm.WithPath(l.Command),
		llm.WithModel(l.Model),
		llm.WithTimeout(l.Timeout),
		llm.WithRetry(retry),
	)
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	errs = append(errs, a.movie.Close())
	return errors.Join(errs...)
}
