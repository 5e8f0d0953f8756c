package sqlstore

import (
	"context"
	"fmt"
)

// pkColumn returns the dialect's auto-incrementing primary key column
// declaration.
func (s *Store) pkColumn() string {
	switch s.dialect {
	case "postgres":
		return "id BIGSERIAL PRIMARY KEY"
	case "mysql":
		return "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	default: // sqlite
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// timestampType returns the dialect's timestamp column type.
func (s *Store) timestampType() string {
	switch s.dialect {
	case "postgres":
		return "TIMESTAMPTZ"
	case "mysql":
		return "DATETIME"
	default:
		return "TIMESTAMP"
	}
}

// bootstrap creates every table and index the core requires, using
// CREATE TABLE IF NOT EXISTS and separate CREATE INDEX IF NOT EXISTS
// statements (SQLite does not accept named index clauses inline).
func (s *Store) bootstrap(ctx context.Context) error {
	ts := s.timestampType()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			%s,
			username VARCHAR(255) NOT NULL UNIQUE,
			credential_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, s.pkColumn(), ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS external_sessions (
			%s,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			display_name VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			current_internal_session_id BIGINT,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, s.pkColumn(), ts, ts),

		`CREATE INDEX IF NOT EXISTS idx_external_sessions_user ON external_sessions(user_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS internal_sessions (
			%s,
			external_session_id BIGINT NOT NULL REFERENCES external_sessions(id) ON DELETE CASCADE,
			model_session_id VARCHAR(255) NOT NULL,
			state TEXT NOT NULL,
			history TEXT NOT NULL,
			is_current BOOLEAN NOT NULL DEFAULT FALSE,
			checkpoint_counter INT NOT NULL DEFAULT 0,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, s.pkColumn(), ts, ts),

		// Required index: (external_session_id) on internal sessions.
		`CREATE INDEX IF NOT EXISTS idx_internal_sessions_external ON internal_sessions(external_session_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS checkpoints (
			%s,
			internal_session_id BIGINT NOT NULL REFERENCES internal_sessions(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			is_auto BOOLEAN NOT NULL DEFAULT FALSE,
			state TEXT NOT NULL,
			history TEXT NOT NULL,
			metadata TEXT NOT NULL,
			created_at %s NOT NULL
		)`, s.pkColumn(), ts),

		// Required index: (internal_session_id, created_at DESC) on checkpoints.
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_session_created ON checkpoints(internal_session_id, created_at DESC)`,
		// Required index: (internal_session_id, is_auto) on checkpoints, for pruning.
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_session_auto ON checkpoints(internal_session_id, is_auto)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tool_invocation_records (
			%s,
			internal_session_id BIGINT NOT NULL REFERENCES internal_sessions(id) ON DELETE CASCADE,
			position INT NOT NULL,
			tool_name VARCHAR(255) NOT NULL,
			args TEXT NOT NULL,
			result TEXT,
			success BOOLEAN NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at %s NOT NULL
		)`, s.pkColumn(), ts),

		`CREATE INDEX IF NOT EXISTS idx_track_session_position ON tool_invocation_records(internal_session_id, position)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: bootstrap: %w", err)
		}
	}
	return nil
}
