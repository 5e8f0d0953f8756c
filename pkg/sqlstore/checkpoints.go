package sqlstore

import (
	"context"
	"time"

	"github.com/rollbackagent/engine/pkg/model"
)

type checkpointRepo struct {
	s *Store
}

func (r *checkpointRepo) Create(ctx context.Context, c *model.Checkpoint) (*model.Checkpoint, error) {
	return r.createTx(ctx, r.s.db, c)
}

func (r *checkpointRepo) createTx(ctx context.Context, ex execer, c *model.Checkpoint) (*model.Checkpoint, error) {
	c.CreatedAt = time.Now().UTC()

	stateJSON, err := marshalState(c.State)
	if err != nil {
		return nil, err
	}
	historyJSON, err := marshalHistory(c.History)
	if err != nil {
		return nil, err
	}
	metaJSON, err := marshalState(c.Metadata)
	if err != nil {
		return nil, err
	}

	query := r.s.rebind(`INSERT INTO checkpoints (internal_session_id, name, is_auto, state, history, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	res, err := ex.ExecContext(ctx, query, c.InternalSessionID, c.Name, c.IsAuto, stateJSON, historyJSON, metaJSON, c.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

func (r *checkpointRepo) GetByID(ctx context.Context, id int64) (*model.Checkpoint, error) {
	query := r.s.rebind(`SELECT id, internal_session_id, name, is_auto, state, history, metadata, created_at
		FROM checkpoints WHERE id = ?`)
	return scanCheckpoint(r.s.db.QueryRowContext(ctx, query, id))
}

func (r *checkpointRepo) ListByInternalSession(ctx context.Context, internalSessionID int64, filter model.CheckpointFilter) ([]*model.Checkpoint, error) {
	query := `SELECT id, internal_session_id, name, is_auto, state, history, metadata, created_at
		FROM checkpoints WHERE internal_session_id = ?`
	args := []any{internalSessionID}
	if filter.AutoOnly != nil {
		query += ` AND is_auto = ?`
		args = append(args, *filter.AutoOnly)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*model.Checkpoint
	for rows.Next() {
		c, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCheckpoint(row rowScanner) (*model.Checkpoint, error) {
	var c model.Checkpoint
	var stateJSON, historyJSON, metaJSON string
	err := row.Scan(&c.ID, &c.InternalSessionID, &c.Name, &c.IsAuto, &stateJSON, &historyJSON, &metaJSON, &c.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	if c.State, err = unmarshalState(stateJSON); err != nil {
		return nil, err
	}
	if c.History, err = unmarshalHistory(historyJSON); err != nil {
		return nil, err
	}
	if c.Metadata, err = unmarshalState(metaJSON); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *checkpointRepo) Delete(ctx context.Context, id int64) error {
	query := r.s.rebind(`DELETE FROM checkpoints WHERE id = ?`)
	res, err := r.s.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateErr(err)
	}
	return requireRowsAffected(res)
}

// PruneAuto deletes every automatic checkpoint of internalSessionID except
// the keepLatest most recent, ordered by created_at DESC. Manual
// checkpoints are excluded by the is_auto = true filter.
func (r *checkpointRepo) PruneAuto(ctx context.Context, internalSessionID int64, keepLatest int) (int, error) {
	if keepLatest < 1 {
		keepLatest = 1
	}

	selectIDs := r.s.rebind(`SELECT id FROM checkpoints WHERE internal_session_id = ? AND is_auto = true
		ORDER BY created_at DESC, id DESC`)
	rows, err := r.s.db.QueryContext(ctx, selectIDs, internalSessionID)
	if err != nil {
		return 0, translateErr(err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(ids) <= keepLatest {
		return 0, nil
	}
	toDelete := ids[keepLatest:]

	deleted := 0
	deleteQuery := r.s.rebind(`DELETE FROM checkpoints WHERE id = ?`)
	for _, id := range toDelete {
		if _, err := r.s.db.ExecContext(ctx, deleteQuery, id); err != nil {
			return deleted, translateErr(err)
		}
		deleted++
	}
	return deleted, nil
}
