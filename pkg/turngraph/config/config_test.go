package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/turngraph/pkg/turngraph/config"
)

func nested() config.Config {
	return config.New(map[string]any{
		"name": "turnbot",
		"server": map[string]any{
			"addr":    ":8080",
			"timeout": "30s",
		},
		"engine": map[string]any{
			"max_steps": 32,
			"ratio":     0.5,
			"tracing":   true,
		},
		"genres": []any{"sf", "horror"},
		"a.b":    "literal",
	})
}

// TestNew verifies Config creation from maps.
func TestNew(t *testing.T) {
	for _, data := range []map[string]any{nil, {}, {"key": "value"}} {
		assert.NotNil(t, config.New(data).Raw())
	}
}

// TestAccessors verifies typed extraction with dotted paths and defaults.
func TestAccessors(t *testing.T) {
	cfg := nested()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"top-level string", cfg.String("name", "x"), "turnbot"},
		{"nested string", cfg.String("server.addr", ""), ":8080"},
		{"missing string", cfg.String("server.port", "def"), "def"},
		{"wrong type string", cfg.String("engine.max_steps", "def"), "def"},
		{"path through scalar", cfg.String("name.inner", "def"), "def"},
		{"literal dotted key", cfg.String("a.b", ""), "literal"},
		{"duration string", cfg.Duration("server.timeout", 0), 30 * time.Second},
		{"duration seconds", cfg.Duration("engine.max_steps", 0), 32 * time.Second},
		{"duration invalid", cfg.Duration("name", time.Minute), time.Minute},
		{"int", cfg.Int("engine.max_steps", 0), 32},
		{"int from fractional float", cfg.Int("engine.ratio", 7), 7},
		{"float", cfg.Float("engine.ratio", 0), 0.5},
		{"float from int", cfg.Float("engine.max_steps", 0), 32.0},
		{"bool", cfg.Bool("engine.tracing", false), true},
		{"bool missing", cfg.Bool("engine.metrics", true), true},
		{"string slice", cfg.StringSlice("genres", nil), []string{"sf", "horror"}},
		{"any missing", cfg.Any("nope", 42), 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

// TestBool_Strings verifies string booleans from environment overrides.
func TestBool_Strings(t *testing.T) {
	tests := []struct {
		val  string
		want bool
	}{
		{"true", true}, {"TRUE", true}, {"1", true}, {"yes", true},
		{"false", false}, {"0", false}, {"no", false},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			cfg := config.New(map[string]any{"flag": tt.val})
			assert.Equal(t, tt.want, cfg.Bool("flag", !tt.want))
		})
	}
	assert.True(t, config.New(map[string]any{"flag": "maybe"}).Bool("flag", true))
}

// TestStringSlice_MixedTypes returns the default for non-string elements.
func TestStringSlice_MixedTypes(t *testing.T) {
	cfg := config.New(map[string]any{"list": []any{"a", 1}})
	assert.Equal(t, []string{"d"}, cfg.StringSlice("list", []string{"d"}))
}

func TestHasAndSub(t *testing.T) {
	cfg := nested()
	assert.True(t, cfg.Has("server.addr"))
	assert.False(t, cfg.Has("server.nope"))

	sub := cfg.Sub("server")
	assert.Equal(t, ":8080", sub.String("addr", ""))
	assert.Empty(t, cfg.Sub("name").Raw())
}

func TestMergeAndSet(t *testing.T) {
	base := nested()
	over := config.New(map[string]any{
		"server": map[string]any{"addr": ":9090"},
		"name":   "other",
	})

	merged := base.Merge(over)
	assert.Equal(t, ":9090", merged.String("server.addr", ""))
	assert.Equal(t, "30s", merged.String("server.timeout", ""))
	assert.Equal(t, "other", merged.String("name", ""))
	// base is untouched
	assert.Equal(t, ":8080", base.String("server.addr", ""))

	set := base.Set("tmdb.api_key", "k")
	assert.Equal(t, "k", set.String("tmdb.api_key", ""))
	assert.False(t, base.Has("tmdb.api_key"))
}

func TestFromEnv(t *testing.T) {
	cfg := config.FromEnv("TURNBOT_", []string{
		"TURNBOT_TMDB__API_KEY=secret",
		"TURNBOT_ENGINE__MAX_STEPS=16",
		"TURNBOT_LOG_LEVEL=debug",
		"TURNBOT_=ignored",
		"HOME=/root",
		"BROKEN",
	})

	assert.Equal(t, "secret", cfg.String("tmdb.api_key", ""))
	assert.Equal(t, "16", cfg.String("engine.max_steps", ""))
	assert.Equal(t, "debug", cfg.String("log_level", ""))
	assert.False(t, cfg.Has("home"))
}

type settings struct {
	Name   string `mapstructure:"name"`
	Server struct {
		Addr    string        `mapstructure:"addr"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"server"`
	Engine struct {
		MaxSteps int  `mapstructure:"max_steps"`
		Tracing  bool `mapstructure:"tracing"`
	} `mapstructure:"engine"`
	Genres []string `mapstructure:"genres"`
}

func TestDecode(t *testing.T) {
	cfg := nested().Merge(config.FromEnv("T_", []string{
		"T_ENGINE__MAX_STEPS=8",
		"T_ENGINE__TRACING=false",
	}))

	var s settings
	require.NoError(t, cfg.Decode(&s))

	assert.Equal(t, "turnbot", s.Name)
	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, 30*time.Second, s.Server.Timeout)
	assert.Equal(t, 8, s.Engine.MaxSteps)
	assert.False(t, s.Engine.Tracing)
	assert.Equal(t, []string{"sf", "horror"}, s.Genres)
}

func TestDecode_Error(t *testing.T) {
	cfg := config.New(map[string]any{"server": map[string]any{"timeout": "soon"}})
	var s settings
	assert.Error(t, cfg.Decode(&s))
}

func TestFromYAMLAndJSON(t *testing.T) {
	cfg, err := config.FromYAML([]byte("server:\n  addr: \":1\"\nmax: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, ":1", cfg.String("server.addr", ""))
	assert.Equal(t, 3, cfg.Int("max", 0))

	cfg, err = config.FromJSON([]byte(`{"server":{"addr":":2"},"max":4}`))
	require.NoError(t, err)
	assert.Equal(t, ":2", cfg.String("server.addr", ""))
	assert.Equal(t, 4, cfg.Int("max", 0))

	_, err = config.FromYAML([]byte("a: [unclosed"))
	assert.Error(t, err)
	_, err = config.FromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	cfg, err := config.FromFile(write("c.YAML", "name: y\n"))
	require.NoError(t, err)
	assert.Equal(t, "y", cfg.String("name", ""))

	cfg, err = config.FromFile(write("c.json", `{"name":"j"}`))
	require.NoError(t, err)
	assert.Equal(t, "j", cfg.String("name", ""))

	_, err = config.FromFile(write("c.txt", "x"))
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}
