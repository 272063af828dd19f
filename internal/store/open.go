package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joelkehle/macro-onboarding/internal/config"
)

// Backends is the opened session store and profile sink for a config.
// They may be the same value.
type Backends struct {
	Sessions SessionStore
	Profiles ProfileSink
	closers  []func() error
}

func (b *Backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the backends for cfg. The redis driver keeps sessions in
// Redis and completed profiles in SQLite when sqlite_path is set, or in
// memory otherwise.
func Open(ctx context.Context, cfg config.StoreConfig) (*Backends, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		mem := NewMemoryStore()
		return &Backends{Sessions: mem, Profiles: mem, closers: []func() error{mem.Close}}, nil
	case config.DriverSQLite, "":
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backends{Sessions: s, Profiles: s, closers: []func() error{s.Close}}, nil
	case config.DriverRedis:
		rs, err := NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		})
		if err != nil {
			return nil, err
		}
		b := &Backends{Sessions: rs, closers: []func() error{rs.Close}}
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			b.Profiles = NewMemoryStore()
			return b, nil
		}
		profiles, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("profile store: %w", err)
		}
		b.Profiles = profiles
		b.closers = append(b.closers, profiles.Close)
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
