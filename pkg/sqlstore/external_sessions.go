package sqlstore

import (
	"context"
	"time"

	"github.com/rollbackagent/engine/pkg/model"
)

type externalSessionRepo struct {
	s *Store
}

func (r *externalSessionRepo) Create(ctx context.Context, es *model.ExternalSession) (*model.ExternalSession, error) {
	now := time.Now().UTC()
	es.CreatedAt, es.UpdatedAt = now, now
	es.Active = true

	query := r.s.rebind(`INSERT INTO external_sessions
		(user_id, display_name, active, current_internal_session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	res, err := r.s.db.ExecContext(ctx, query, es.UserID, es.DisplayName, es.Active,
		es.CurrentInternalSessionID, es.CreatedAt, es.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	es.ID = id
	return es, nil
}

func (r *externalSessionRepo) GetByID(ctx context.Context, id int64) (*model.ExternalSession, error) {
	query := r.s.rebind(`SELECT id, user_id, display_name, active, current_internal_session_id, created_at, updated_at
		FROM external_sessions WHERE id = ?`)
	es, err := scanExternalSession(r.s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	children, err := r.childIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	es.InternalSessionIDs = children
	return es, nil
}

func (r *externalSessionRepo) childIDs(ctx context.Context, externalSessionID int64) ([]int64, error) {
	query := r.s.rebind(`SELECT id FROM internal_sessions WHERE external_session_id = ? ORDER BY created_at ASC, id ASC`)
	rows, err := r.s.db.QueryContext(ctx, query, externalSessionID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *externalSessionRepo) ListByUser(ctx context.Context, userID int64) ([]*model.ExternalSession, error) {
	query := r.s.rebind(`SELECT id, user_id, display_name, active, current_internal_session_id, created_at, updated_at
		FROM external_sessions WHERE user_id = ? ORDER BY created_at ASC`)
	rows, err := r.s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*model.ExternalSession
	for rows.Next() {
		es, err := scanExternalSession(rows)
		if err != nil {
			return nil, err
		}
		children, err := r.childIDs(ctx, es.ID)
		if err != nil {
			return nil, err
		}
		es.InternalSessionIDs = children
		out = append(out, es)
	}
	return out, rows.Err()
}

func scanExternalSession(row rowScanner) (*model.ExternalSession, error) {
	var es model.ExternalSession
	var current *int64
	err := row.Scan(&es.ID, &es.UserID, &es.DisplayName, &es.Active, &current, &es.CreatedAt, &es.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	es.CurrentInternalSessionID = current
	return &es, nil
}

func (r *externalSessionRepo) AppendInternalSession(ctx context.Context, externalSessionID, internalSessionID int64, makeCurrent bool) error {
	if !makeCurrent {
		return nil
	}
	return r.SetCurrentInternalSession(ctx, externalSessionID, internalSessionID)
}

func (r *externalSessionRepo) SetCurrentInternalSession(ctx context.Context, externalSessionID, internalSessionID int64) error {
	query := r.s.rebind(`UPDATE external_sessions SET current_internal_session_id = ?, updated_at = ? WHERE id = ?`)
	res, err := r.s.db.ExecContext(ctx, query, internalSessionID, time.Now().UTC(), externalSessionID)
	if err != nil {
		return translateErr(err)
	}
	return requireRowsAffected(res)
}

// DeleteCascade removes the external session and every internal session,
// checkpoint, and track record beneath it, in one transaction. See
// userRepo.DeleteCascade for why this does not rely on schema-level
// ON DELETE CASCADE.
func (r *externalSessionRepo) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const internalSessionsOfExternal = `SELECT id FROM internal_sessions WHERE external_session_id = ?`

	stmts := []string{
		r.s.rebind(`DELETE FROM tool_invocation_records WHERE internal_session_id IN (` + internalSessionsOfExternal + `)`),
		r.s.rebind(`DELETE FROM checkpoints WHERE internal_session_id IN (` + internalSessionsOfExternal + `)`),
		r.s.rebind(`DELETE FROM internal_sessions WHERE external_session_id = ?`),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return translateErr(err)
		}
	}

	res, err := tx.ExecContext(ctx, r.s.rebind(`DELETE FROM external_sessions WHERE id = ?`), id)
	if err != nil {
		return translateErr(err)
	}
	if err := requireRowsAffected(res); err != nil {
		return err
	}

	return tx.Commit()
}
