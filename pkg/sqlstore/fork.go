package sqlstore

import (
	"context"
	"time"

	"github.com/rollbackagent/engine/pkg/model"
)

// ForkInternalSession creates a new internal session under
// externalSessionID, seeded with deep copies of seedState/seedHistory,
// copies every checkpoint of source whose CreatedAt <= asOf.CreatedAt into
// the new session (lineage preservation, spec.md §4.5 step 4), and marks
// the new session current. All of this runs inside one transaction so a
// caller never observes a partially-forked external session.
func (s *Store) ForkInternalSession(ctx context.Context, externalSessionID int64, source *model.InternalSession, seedState map[string]any, seedHistory []model.Turn, asOf model.Checkpoint) (*model.InternalSession, []*model.Checkpoint, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	newSession := &model.InternalSession{
		ExternalSessionID: externalSessionID,
		ModelSessionID:    source.ModelSessionID,
		State:             model.DeepCopyState(seedState),
		History:           model.DeepCopyHistory(seedHistory),
		IsCurrent:         false,
	}
	if _, err := s.internalSessions.createTx(ctx, tx, newSession); err != nil {
		return nil, nil, err
	}

	sourceCheckpoints, err := s.listCheckpointsTx(ctx, tx, source.ID)
	if err != nil {
		return nil, nil, err
	}

	var copied []*model.Checkpoint
	for _, c := range sourceCheckpoints {
		if c.CreatedAt.After(asOf.CreatedAt) {
			continue
		}
		clone := &model.Checkpoint{
			InternalSessionID: newSession.ID,
			Name:              c.Name,
			IsAuto:            c.IsAuto,
			State:             model.DeepCopyState(c.State),
			History:           model.DeepCopyHistory(c.History),
			Metadata:          model.DeepCopyMetadata(c.Metadata),
		}
		if _, err := s.checkpoints.createTx(ctx, tx, clone); err != nil {
			return nil, nil, err
		}
		copied = append(copied, clone)
	}

	now := time.Now().UTC()
	demote := s.rebind(`UPDATE internal_sessions SET is_current = false, updated_at = ? WHERE external_session_id = ? AND is_current = true`)
	if _, err := tx.ExecContext(ctx, demote, now, externalSessionID); err != nil {
		return nil, nil, translateErr(err)
	}
	promote := s.rebind(`UPDATE internal_sessions SET is_current = true, updated_at = ? WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, promote, now, newSession.ID); err != nil {
		return nil, nil, translateErr(err)
	}
	pointer := s.rebind(`UPDATE external_sessions SET current_internal_session_id = ?, updated_at = ? WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, pointer, newSession.ID, now, externalSessionID); err != nil {
		return nil, nil, translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	newSession.IsCurrent = true
	return newSession, copied, nil
}

func (s *Store) listCheckpointsTx(ctx context.Context, ex execer, internalSessionID int64) ([]*model.Checkpoint, error) {
	query := s.rebind(`SELECT id, internal_session_id, name, is_auto, state, history, metadata, created_at
		FROM checkpoints WHERE internal_session_id = ? ORDER BY created_at ASC, id ASC`)
	rows, err := ex.QueryContext(ctx, query, internalSessionID)
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
