// Package settings loads turnbot configuration from a file and the
// environment.
package settings

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/turngraph/internal/moviebot"
	"github.com/randalmurphal/turngraph/internal/session"
	"github.com/randalmurphal/turngraph/pkg/turngraph/config"
)

// EnvPrefix marks turnbot variables: TURNBOT_SERVER__ADDR sets server.addr.
const EnvPrefix = "TURNBOT_"

// Settings is the complete application configuration.
type Settings struct {
	Log     Log             `mapstructure:"log"`
	Server  Server          `mapstructure:"server"`
	Session session.Config  `mapstructure:"session"`
	TMDB    TMDB            `mapstructure:"tmdb"`
	ODPT    ODPT            `mapstructure:"odpt"`
	LLM     LLM             `mapstructure:"llm"`
	Bot     moviebot.Config `mapstructure:"bot"`
	Metrics Metrics         `mapstructure:"metrics"`
}

// Log configures the slog handler.
type Log struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// TurnTimeout bounds a single turn.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
}

// TMDB configures the movie source.
type TMDB struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	// Stub serves the built-in sample catalogue instead of calling TMDB.
	Stub bool `mapstructure:"stub"`
}

// ODPT configures the train information source.
type ODPT struct {
	Token    string `mapstructure:"token"`
	Endpoint string `mapstructure:"endpoint"`
	Stub     bool   `mapstructure:"stub"`
}

// LLM configures the optional command-line model client.
type LLM struct {
	Enabled bool          `mapstructure:"enabled"`
	Command string        `mapstructure:"command"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// Metrics toggles run instrumentation.
type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
	Tracing bool `mapstructure:"tracing"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Log:     Log{Level: "info", Format: "text"},
		Server:  Server{Addr: ":8080", ReadTimeout: 10 * time.Second, WriteTimeout: 60 * time.Second, TurnTimeout: 45 * time.Second},
		Session: session.Config{Driver: "memory"},
		TMDB:    TMDB{Stub: true},
		ODPT:    ODPT{Stub: true},
		LLM:     LLM{Command: "claude", Timeout: 30 * time.Second, Retries: 1},
		Bot:     moviebot.DefaultConfig(),
		Metrics: Metrics{Enabled: true},
	}
}

// Load layers defaults, the file at path (if any) and environ, later layers
// winning. environ holds "KEY=value" entries; besides TURNBOT_ variables it
// honours TMDB_API_KEY, ODPT_TOKEN and USE_STUB.
func Load(path string, environ []string) (Settings, error) {
	cfg := config.New(nil)
	if path != "" {
		file, err := config.FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		cfg = file
	}
	cfg = cfg.Merge(shortEnv(environ)).Merge(config.FromEnv(EnvPrefix, environ))
	return FromConfig(cfg)
}

// FromConfig decodes cfg over the defaults.
func FromConfig(cfg config.Config) (Settings, error) {
	s := Default()
	if err := cfg.Decode(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// shortEnv maps the conventional variable names onto config keys.
func shortEnv(environ []string) config.Config {
	cfg := config.New(nil)
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch key {
		case "TMDB_API_KEY":
			cfg = cfg.Set("tmdb.api_key", val)
		case "ODPT_TOKEN":
			cfg = cfg.Set("odpt.token", val)
		case "USE_STUB":
			cfg = cfg.Set("tmdb.stub", val).Set("odpt.stub", val)
		}
	}
	return cfg
}

// Validate reports settings that cannot work.
func (s Settings) Validate() error {
	if _, err := ParseLevel(s.Log.Level); err != nil {
		return err
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("settings: log.format must be text or json, got %q", s.Log.Format)
	}
	switch s.Session.Driver {
	case "", "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("settings: unknown session.driver %q", s.Session.Driver)
	}
	return nil
}

// ParseLevel converts a level name.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("settings: log.level: %w", err)
	}
	return l, nil
}

// NewLogger builds the logger described by s.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
