package sqlstore

import (
	"context"
	"time"

	"github.com/rollbackagent/engine/pkg/model"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, u *model.User) (*model.User, error) {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	query := r.s.rebind(`INSERT INTO users (username, credential_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`)
	res, err := r.s.db.ExecContext(ctx, query, u.Username, u.CredentialHash, u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	u.ID = id
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := r.s.rebind(`SELECT id, username, credential_hash, is_admin, created_at, updated_at
		FROM users WHERE id = ?`)
	return r.scanOne(r.s.db.QueryRowContext(ctx, query, id))
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := r.s.rebind(`SELECT id, username, credential_hash, is_admin, created_at, updated_at
		FROM users WHERE username = ?`)
	return r.scanOne(r.s.db.QueryRowContext(ctx, query, username))
}

func (r *userRepo) scanOne(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.CredentialHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &u, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	query := r.s.rebind(`UPDATE users SET username = ?, credential_hash = ?, is_admin = ?, updated_at = ?
		WHERE id = ?`)
	res, err := r.s.db.ExecContext(ctx, query, u.Username, u.CredentialHash, u.IsAdmin, u.UpdatedAt, u.ID)
	if err != nil {
		return translateErr(err)
	}
	return requireRowsAffected(res)
}

// DeleteCascade removes the user and every external session, internal
// session, checkpoint, and track record it owns, in one transaction. This
// is explicit rather than delegated to the schema's ON DELETE CASCADE
// declarations: SQLite enforces foreign keys only when the connection has
// PRAGMA foreign_keys=ON (see dbpool.go), and a transactional sweep here
// keeps the cascade correct regardless of which dialect or PRAGMA state a
// given connection ends up with.
func (r *userRepo) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const internalSessionsOfUser = `SELECT id FROM internal_sessions WHERE external_session_id IN (
		SELECT id FROM external_sessions WHERE user_id = ?)`

	stmts := []string{
		r.s.rebind(`DELETE FROM tool_invocation_records WHERE internal_session_id IN (` + internalSessionsOfUser + `)`),
		r.s.rebind(`DELETE FROM checkpoints WHERE internal_session_id IN (` + internalSessionsOfUser + `)`),
		r.s.rebind(`DELETE FROM internal_sessions WHERE external_session_id IN (SELECT id FROM external_sessions WHERE user_id = ?)`),
		r.s.rebind(`DELETE FROM external_sessions WHERE user_id = ?`),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return translateErr(err)
		}
	}

	res, err := tx.ExecContext(ctx, r.s.rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return translateErr(err)
	}
	if err := requireRowsAffected(res); err != nil {
		return err
	}

	return tx.Commit()
}
