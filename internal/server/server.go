// Package server exposes the bots over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randalmurphal/turngraph/internal/moviebot"
	"github.com/randalmurphal/turngraph/internal/session"
	"github.com/randalmurphal/turngraph/pkg/turngraph"
)

// Turner runs conversational turns.
type Turner interface {
	Turn(ctx context.Context, id, message string) (*moviebot.Reply, error)
	Reset(ctx context.Context, id string) error
}

// Asker answers one-shot questions.
type Asker interface {
	Ask(ctx context.Context, query string) (string, turngraph.Trace, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	bot         Turner
	transit     Asker
	gatherer    prometheus.Gatherer
	logger      *slog.Logger
	turnTimeout time.Duration
}

// Option configures the server.
type Option func(*Server)

// WithTransit mounts POST /v1/transit.
func WithTransit(a Asker) Option {
	return func(s *Server) { s.transit = a }
}

// WithGatherer serves g on /metrics. Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTurnTimeout bounds each turn. Zero means no limit.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Server) { s.turnTimeout = d }
}

// NewHandler creates the HTTP handler.
func NewHandler(bot Turner, opts ...Option) http.Handler {
	s := &Server{
		bot:      bot,
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", s.createSession)
		r.Post("/sessions/{id}/turns", s.turn)
		r.Delete("/sessions/{id}", s.deleteSession)
		if s.transit != nil {
			r.Post("/transit", s.ask)
		}
	})
	return r
}

// TurnRequest is the body of POST /v1/sessions/{id}/turns.
type TurnRequest struct {
	Input string `json:"input"`
}

// TurnResponse is the result of a turn.
type TurnResponse struct {
	SessionID string       `json:"session_id"`
	Reply     string       `json:"reply"`
	Turn      int          `json:"turn,omitempty"`
	RunID     string       `json:"run_id,omitempty"`
	Trace     []TraceEntry `json:"trace"`
}

// TraceEntry is the JSON form of turngraph.TraceEntry.
type TraceEntry struct {
	Step      string   `json:"step"`
	Kind      string   `json:"kind"`
	Summary   string   `json:"summary"`
	Fields    []string `json:"fields,omitempty"`
	Label     string   `json:"label,omitempty"`
	Next      string   `json:"next,omitempty"`
	Recovered bool     `json:"recovered,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func traceJSON(t turngraph.Trace) []TraceEntry {
	out := make([]TraceEntry, len(t))
	for i, e := range t {
		out[i] = TraceEntry{
			Step:      e.Step,
			Kind:      e.Kind.String(),
			Summary:   e.Summary,
			Fields:    e.Fields,
			Label:     e.Label,
			Next:      e.Next,
			Recovered: e.Recovered,
		}
		if e.Err != nil {
			out[i].Error = e.Err.Error()
		}
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": uuid.NewString()})
}

func (s *Server) turn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	reply, err := s.bot.Turn(ctx, id, req.Input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TurnResponse{
		SessionID: reply.SessionID,
		Reply:     reply.Text,
		Turn:      reply.Turn,
		RunID:     reply.RunID,
		Trace:     traceJSON(reply.Trace),
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, trace, err := s.transit.Ask(r.Context(), req.Input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TurnResponse{Reply: reply, Trace: traceJSON(trace)})
}

// fail maps err to a status code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, moviebot.ErrEmptyMessage), errors.Is(err, session.ErrEmptyID):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away
		status = 499
	}
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
	writeError(w, status, err.Error())
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", float64(time.Since(start).Microseconds())/1000,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
