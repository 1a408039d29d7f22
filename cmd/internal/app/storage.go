package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"wedding/cmd/internal/guestbook"
)

// Storage is the opened guestbook store and the handles needed to probe and release it.
type Storage struct {
	Store guestbook.Store
	// Kind is "postgres", "sqlite" or "memory".
	Kind       string
	Persistent bool

	ping func(context.Context) error
	pool *pgxpool.Pool
}

// OpenStorage picks Postgres when a database URL is set, then SQLite, else memory.
func OpenStorage(ctx context.Context, cfg Config, log Logger) (*Storage, error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st, err := guestbook.NewPostgresStore(pool, guestbook.WithSchema(cfg.DBSchema))
		if err != nil {
			pool.Close()
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := st.Migrate(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema, "migrated", cfg.MigrateOnStart)
		return &Storage{
			Store:      st,
			Kind:       "postgres",
			Persistent: true,
			ping:       func(ctx context.Context) error { return PingDB(ctx, pool, 2*time.Second) },
			pool:       pool,
		}, nil

	case cfg.SQLitePath != "":
		st, err := guestbook.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		log.Info("db.enabled.sqlite_store", "path", cfg.SQLitePath)
		return &Storage{Store: st, Kind: "sqlite", Persistent: true, ping: st.Ping}, nil

	default:
		log.Info("db.disabled.inmemory_store")
		return &Storage{Store: guestbook.NewMemoryStore(), Kind: "memory"}, nil
	}
}

// Ping reports whether the backing database is reachable. Memory storage is always ready.
func (s *Storage) Ping(ctx context.Context) error {
	if s == nil || s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the store and, for Postgres, the pool the store borrows.
func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.Store != nil {
		err = s.Store.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
