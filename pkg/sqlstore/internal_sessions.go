package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/rollbackagent/engine/pkg/model"
)

type internalSessionRepo struct {
	s *Store
}

func (r *internalSessionRepo) Create(ctx context.Context, is *model.InternalSession) (*model.InternalSession, error) {
	return r.createTx(ctx, r.s.db, is)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *internalSessionRepo) createTx(ctx context.Context, ex execer, is *model.InternalSession) (*model.InternalSession, error) {
	now := time.Now().UTC()
	is.CreatedAt, is.UpdatedAt = now, now

	stateJSON, err := marshalState(is.State)
	if err != nil {
		return nil, err
	}
	historyJSON, err := marshalHistory(is.History)
	if err != nil {
		return nil, err
	}

	query := r.s.rebind(`INSERT INTO internal_sessions
		(external_session_id, model_session_id, state, history, is_current, checkpoint_counter, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	res, err := ex.ExecContext(ctx, query, is.ExternalSessionID, is.ModelSessionID, stateJSON, historyJSON,
		is.IsCurrent, is.CheckpointCounter, is.CreatedAt, is.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	is.ID = id
	return is, nil
}

func (r *internalSessionRepo) GetByID(ctx context.Context, id int64) (*model.InternalSession, error) {
	query := r.s.rebind(`SELECT id, external_session_id, model_session_id, state, history, is_current, checkpoint_counter, created_at, updated_at
		FROM internal_sessions WHERE id = ?`)
	return scanInternalSession(r.s.db.QueryRowContext(ctx, query, id))
}

func (r *internalSessionRepo) ListByExternalSession(ctx context.Context, externalSessionID int64) ([]*model.InternalSession, error) {
	query := r.s.rebind(`SELECT id, external_session_id, model_session_id, state, history, is_current, checkpoint_counter, created_at, updated_at
		FROM internal_sessions WHERE external_session_id = ? ORDER BY created_at ASC, id ASC`)
	rows, err := r.s.db.QueryContext(ctx, query, externalSessionID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*model.InternalSession
	for rows.Next() {
		is, err := scanInternalSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, is)
	}
	return out, rows.Err()
}

func (r *internalSessionRepo) GetCurrent(ctx context.Context, externalSessionID int64) (*model.InternalSession, error) {
	query := r.s.rebind(`SELECT id, external_session_id, model_session_id, state, history, is_current, checkpoint_counter, created_at, updated_at
		FROM internal_sessions WHERE external_session_id = ? AND is_current = true`)
	return scanInternalSession(r.s.db.QueryRowContext(ctx, query, externalSessionID))
}

func scanInternalSession(row rowScanner) (*model.InternalSession, error) {
	var is model.InternalSession
	var stateJSON, historyJSON string
	err := row.Scan(&is.ID, &is.ExternalSessionID, &is.ModelSessionID, &stateJSON, &historyJSON,
		&is.IsCurrent, &is.CheckpointCounter, &is.CreatedAt, &is.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	is.State, err = unmarshalState(stateJSON)
	if err != nil {
		return nil, err
	}
	is.History, err = unmarshalHistory(historyJSON)
	if err != nil {
		return nil, err
	}
	return &is, nil
}

func (r *internalSessionRepo) Update(ctx context.Context, is *model.InternalSession) error {
	is.UpdatedAt = time.Now().UTC()
	stateJSON, err := marshalState(is.State)
	if err != nil {
		return err
	}
	historyJSON, err := marshalHistory(is.History)
	if err != nil {
		return err
	}

	query := r.s.rebind(`UPDATE internal_sessions SET state = ?, history = ?, checkpoint_counter = ?, updated_at = ?
		WHERE id = ?`)
	res, err := r.s.db.ExecContext(ctx, query, stateJSON, historyJSON, is.CheckpointCounter, is.UpdatedAt, is.ID)
	if err != nil {
		return translateErr(err)
	}
	return requireRowsAffected(res)
}

func (r *internalSessionRepo) SetCurrent(ctx context.Context, externalSessionID, internalSessionID int64) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	demote := r.s.rebind(`UPDATE internal_sessions SET is_current = false, updated_at = ? WHERE external_session_id = ? AND is_current = true`)
	if _, err := tx.ExecContext(ctx, demote, now, externalSessionID); err != nil {
		return translateErr(err)
	}

	promote := r.s.rebind(`UPDATE internal_sessions SET is_current = true, updated_at = ? WHERE id = ? AND external_session_id = ?`)
	res, err := tx.ExecContext(ctx, promote, now, internalSessionID, externalSessionID)
	if err != nil {
		return translateErr(err)
	}
	if err := requireRowsAffected(res); err != nil {
		return err
	}

	pointer := r.s.rebind(`UPDATE external_sessions SET current_internal_session_id = ?, updated_at = ? WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, pointer, internalSessionID, now, externalSessionID); err != nil {
		return translateErr(err)
	}

	return tx.Commit()
}
