package tooltrack

import (
	"context"

	"github.com/rollbackagent/engine/pkg/model"
)

// ReverseOutcome reports the result of invoking one record's reverse
// handler during RollbackFrom.
type ReverseOutcome struct {
	Record  *model.ToolInvocationRecord
	Skipped bool // reserved checkpoint tool, failed forward, or no reverse registered
	Success bool
	Error   error
}

// Track is the per-internal-session ordered invocation log described in
// spec.md §4.2. It is never shared across orchestrators: one Track exists
// per live internal session.
type Track struct {
	registry *Registry
	store    model.TrackRepository
	sessID   int64
}

func NewTrack(registry *Registry, store model.TrackRepository, internalSessionID int64) *Track {
	return &Track{registry: registry, store: store, sessID: internalSessionID}
}

// Record appends an immutable record to the Track. The Track's length
// increases by exactly one, including for failed forward invocations
// (recorded with success=false, result=nil); reverse is skipped for those
// at rollback time.
func (t *Track) Record(ctx context.Context, name string, args map[string]any, result any, success bool, errMsg string) (*model.ToolInvocationRecord, error) {
	rec := &model.ToolInvocationRecord{
		InternalSessionID: t.sessID,
		ToolName:          name,
		Args:              args,
		Result:            result,
		Success:           success,
		ErrorMessage:      errMsg,
	}
	return t.store.Append(ctx, rec)
}

// Len returns the current Track length.
func (t *Track) Len(ctx context.Context) (int, error) {
	return t.store.Len(ctx, t.sessID)
}

// RollbackFrom reverses every record at positions [index, len-1] in
// reverse order. Records whose tool name is a reserved checkpoint tool,
// whose forward call failed, or whose tool has no registered reverse are
// skipped (reported, not fatal). Every attempt runs even if an earlier
// one errors; the Track is truncated to length index only after every
// attempt has been made.
func (t *Track) RollbackFrom(ctx context.Context, index int) ([]ReverseOutcome, error) {
	records, err := t.store.ListByInternalSession(ctx, t.sessID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > len(records) {
		return nil, model.ErrInvalidStateTransition
	}

	toReverse := records[index:]
	outcomes := make([]ReverseOutcome, 0, len(toReverse))

	for i := len(toReverse) - 1; i >= 0; i-- {
		rec := toReverse[i]
		outcomes = append(outcomes, t.reverseOne(ctx, rec))
	}

	if err := t.store.TruncateTo(ctx, t.sessID, index); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (t *Track) reverseOne(ctx context.Context, rec *model.ToolInvocationRecord) ReverseOutcome {
	if ReservedCheckpointTools[rec.ToolName] {
		return ReverseOutcome{Record: rec, Skipped: true}
	}
	if !rec.Success {
		return ReverseOutcome{Record: rec, Skipped: true}
	}

	spec, ok := t.registry.Get(rec.ToolName)
	if !ok || spec.Reverse == nil {
		return ReverseOutcome{Record: rec, Skipped: true, Success: false, Error: model.ErrInvalidRegistration}
	}

	if err := spec.Reverse(ctx, rec.Args, rec.Result); err != nil {
		return ReverseOutcome{Record: rec, Success: false, Error: err}
	}
	return ReverseOutcome{Record: rec, Success: true}
}

// Redo iterates the current Track in index order, invoking forward
// handlers with the recorded args and appending new records for each
// result. Checkpoint-tool entries are re-executed like any other record.
// Redo does not erase prior records.
func (t *Track) Redo(ctx context.Context) ([]*model.ToolInvocationRecord, error) {
	records, err := t.store.ListByInternalSession(ctx, t.sessID)
	if err != nil {
		return nil, err
	}

	var appended []*model.ToolInvocationRecord
	for _, rec := range records {
		spec, ok := t.registry.Get(rec.ToolName)
		if !ok {
			continue
		}
		result, err := spec.Forward(ctx, rec.Args)
		success := err == nil
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		newRec, appendErr := t.Record(ctx, rec.ToolName, rec.Args, result, success, errMsg)
		if appendErr != nil {
			return appended, appendErr
		}
		appended = append(appended, newRec)
	}
	return appended, nil
}
