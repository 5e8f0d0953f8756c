// Package sqlstore is the concrete, dialect-aware relational Store backing
// the engine's persistence layer (model.Store). It supports PostgreSQL,
// MySQL, and SQLite over database/sql, sharing *sql.DB handles through a
// DBPool keyed by DSN.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rollbackagent/engine/pkg/model"
)

// Store implements model.Store over a single *sql.DB.
type Store struct {
	db      *sql.DB
	dialect string

	users             *userRepo
	externalSessions  *externalSessionRepo
	internalSessions  *internalSessionRepo
	checkpoints       *checkpointRepo
	track             *trackRepo

	pool *DBPool
}

// Open creates (or reuses, via pool) a connection for cfg, bootstraps the
// schema, and returns a ready-to-use Store.
func Open(ctx context.Context, cfg *DatabaseConfig, pool *DBPool) (*Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sqlstore: invalid config: %w", err)
	}

	sqlDB, err := pool.Get(cfg)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}

	s := &Store{
		db:      sqlDB,
		dialect: cfg.Dialect(),
		pool:    pool,
	}
	s.users = &userRepo{s: s}
	s.externalSessions = &externalSessionRepo{s: s}
	s.internalSessions = &internalSessionRepo{s: s}
	s.checkpoints = &checkpointRepo{s: s}
	s.track = &trackRepo{s: s}

	if err := s.bootstrap(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Users() model.UserRepository                     { return s.users }
func (s *Store) ExternalSessions() model.ExternalSessionRepository { return s.externalSessions }
func (s *Store) InternalSessions() model.InternalSessionRepository { return s.internalSessions }
func (s *Store) Checkpoints() model.CheckpointRepository          { return s.checkpoints }
func (s *Store) Track() model.TrackRepository                     { return s.track }

// Close is a no-op: the store's *sql.DB belongs to its DBPool, which may
// be shared by other Stores opened from the same DSN. Connections are
// released only by closing the DBPool.
func (s *Store) Close() error {
	return nil
}
