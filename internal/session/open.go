package session

import (
	"context"
	"fmt"
	"time"
)

// Config selects and configures a store.
type Config struct {
	// Driver is "memory", "sqlite" or "redis". Empty means memory.
	Driver string `mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `mapstructure:"path"`

	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Open creates the store described by cfg. Redis connectivity is checked
// with a ping.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "turnbot.db"
		}
		return NewSQLiteStore(path)
	case "redis":
		addr := cfg.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		var opts []RedisOption
		if cfg.Prefix != "" {
			opts = append(opts, WithPrefix(cfg.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, WithTTL(cfg.TTL))
		}
		s := NewRedisStore(addr, cfg.Password, cfg.DB, opts...)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect redis %s: %w", addr, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}
