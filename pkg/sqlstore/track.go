package sqlstore

import (
	"context"
	"time"

	"github.com/rollbackagent/engine/pkg/model"
)

type trackRepo struct {
	s *Store
}

func (r *trackRepo) Append(ctx context.Context, rec *model.ToolInvocationRecord) (*model.ToolInvocationRecord, error) {
	rec.CreatedAt = time.Now().UTC()

	argsJSON, err := marshalState(rec.Args)
	if err != nil {
		return nil, err
	}
	resultJSON, err := marshalAny(rec.Result)
	if err != nil {
		return nil, err
	}

	// Position is assigned as the current track length, so records are
	// appended with a strictly increasing, gap-free index.
	length, err := r.Len(ctx, rec.InternalSessionID)
	if err != nil {
		return nil, err
	}
	rec.Position = length

	query := r.s.rebind(`INSERT INTO tool_invocation_records
		(internal_session_id, position, tool_name, args, result, success, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	res, err := r.s.db.ExecContext(ctx, query, rec.InternalSessionID, rec.Position, rec.ToolName,
		argsJSON, resultJSON, rec.Success, rec.ErrorMessage, rec.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	rec.ID = id
	return rec, nil
}

func (r *trackRepo) ListByInternalSession(ctx context.Context, internalSessionID int64) ([]*model.ToolInvocationRecord, error) {
	query := r.s.rebind(`SELECT id, internal_session_id, position, tool_name, args, result, success, error_message, created_at
		FROM tool_invocation_records WHERE internal_session_id = ? ORDER BY position ASC`)
	rows, err := r.s.db.QueryContext(ctx, query, internalSessionID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*model.ToolInvocationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row rowScanner) (*model.ToolInvocationRecord, error) {
	var rec model.ToolInvocationRecord
	var argsJSON, resultJSON string
	err := row.Scan(&rec.ID, &rec.InternalSessionID, &rec.Position, &rec.ToolName, &argsJSON, &resultJSON,
		&rec.Success, &rec.ErrorMessage, &rec.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	if rec.Args, err = unmarshalState(argsJSON); err != nil {
		return nil, err
	}
	if rec.Result, err = unmarshalAny(resultJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *trackRepo) Len(ctx context.Context, internalSessionID int64) (int, error) {
	query := r.s.rebind(`SELECT COUNT(*) FROM tool_invocation_records WHERE internal_session_id = ?`)
	var n int
	if err := r.s.db.QueryRowContext(ctx, query, internalSessionID).Scan(&n); err != nil {
		return 0, translateErr(err)
	}
	return n, nil
}

func (r *trackRepo) TruncateTo(ctx context.Context, internalSessionID int64, index int) error {
	query := r.s.rebind(`DELETE FROM tool_invocation_records WHERE internal_session_id = ? AND position >= ?`)
	_, err := r.s.db.ExecContext(ctx, query, internalSessionID, index)
	return translateErr(err)
}
