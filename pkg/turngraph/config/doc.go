/*
Package config provides layered, type-safe configuration from YAML, JSON
and environment variables.

# Basic Usage

	cfg := config.New(map[string]any{
	    "server": map[string]any{"addr": ":8080", "timeout": "30s"},
	    "max_steps": 32,
	})

	addr := cfg.String("server.addr", ":9000")              // ":8080"
	timeout := cfg.Duration("server.timeout", time.Second)  // 30s
	steps := cfg.Int("max_steps", 64)                       // 32

Keys are dotted paths into nested maps. Accessors return the default when
the key is missing or the value has the wrong type.

# Layering

Files and environment are merged with Merge, later layers winning:

	file, err := config.FromFile("turnbot.yaml")
	env := config.FromEnv("TURNBOT_", os.Environ())
	cfg := file.Merge(env)

FromEnv maps TURNBOT_TMDB__API_KEY to tmdb.api_key.

# Decoding

Decode fills a struct through mapstructure tags, converting strings from
the environment into numbers, bools and durations:

	var s Settings
	if err := cfg.Decode(&s); err != nil { ... }

# Thread Safety

Config values are never modified in place; Merge and Set return new
Configs. Concurrent reads are safe.
*/
package config
