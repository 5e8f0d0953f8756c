// Package sessionmgr implements spec.md §4.3's Session Manager: creating,
// forking, and resuming internal sessions under an external session, and
// snapshotting their state into checkpoints.
package sessionmgr

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rollbackagent/engine/pkg/model"
)

// Manager implements the internal-session lifecycle operations. It never
// deletes internal sessions implicitly; removal is cascade-only through
// the external session.
type Manager struct {
	store model.Store
}

func NewManager(store model.Store) *Manager {
	return &Manager{store: store}
}

// NewInternalSession creates a fresh internal session, marks it current
// (demoting any prior current one under the same external session), and
// returns it. The model-layer session id is a fresh UUID, stable for the
// lifetime of this take; the session's own id is the store's integer
// primary key.
func (m *Manager) NewInternalSession(ctx context.Context, externalSessionID int64, initialState map[string]any) (*model.InternalSession, error) {
	is := &model.InternalSession{
		ExternalSessionID: externalSessionID,
		ModelSessionID:    uuid.NewString(),
		State:             model.DeepCopyState(initialState),
		History:           []model.Turn{},
	}

	created, err := m.store.InternalSessions().Create(ctx, is)
	if err != nil {
		return nil, err
	}
	if err := m.store.InternalSessions().SetCurrent(ctx, externalSessionID, created.ID); err != nil {
		return nil, err
	}
	created.IsCurrent = true
	return created, nil
}

// Resume loads and marks current the given internal session, or, if
// internalSessionID is nil, the external session's existing current
// pointer. It fails with model.ErrNotFound if the id is unknown or does
// not belong to the external session.
func (m *Manager) Resume(ctx context.Context, externalSessionID int64, internalSessionID *int64) (*model.InternalSession, error) {
	if internalSessionID == nil {
		return m.store.InternalSessions().GetCurrent(ctx, externalSessionID)
	}

	is, err := m.store.InternalSessions().GetByID(ctx, *internalSessionID)
	if err != nil {
		return nil, err
	}
	if is.ExternalSessionID != externalSessionID {
		return nil, model.ErrNotFound
	}
	if err := m.store.InternalSessions().SetCurrent(ctx, externalSessionID, is.ID); err != nil {
		return nil, err
	}
	is.IsCurrent = true
	return is, nil
}

// AppendTurn appends a conversation turn with the wall-clock timestamp.
func (m *Manager) AppendTurn(ctx context.Context, internalSessionID int64, role model.Role, content string) error {
	is, err := m.store.InternalSessions().GetByID(ctx, internalSessionID)
	if err != nil {
		return err
	}
	is.History = append(is.History, model.Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return m.store.InternalSessions().Update(ctx, is)
}

// Snapshot constructs a Checkpoint by deep-copying the internal session's
// current state and history, stamps trackIndex into its metadata,
// increments the internal session's checkpoint counter, persists both,
// and returns the checkpoint.
func (m *Manager) Snapshot(ctx context.Context, internalSessionID int64, name string, isAuto bool, trackIndex int) (*model.Checkpoint, error) {
	is, err := m.store.InternalSessions().GetByID(ctx, internalSessionID)
	if err != nil {
		return nil, err
	}

	cp := &model.Checkpoint{
		InternalSessionID: internalSessionID,
		Name:              name,
		IsAuto:            isAuto,
		State:             model.DeepCopyState(is.State),
		History:           model.DeepCopyHistory(is.History),
		Metadata: map[string]any{
			model.MetadataTrackPositionKey: trackIndex,
		},
	}

	created, err := m.store.Checkpoints().Create(ctx, cp)
	if err != nil {
		return nil, err
	}

	is.CheckpointCounter++
	if err := m.store.InternalSessions().Update(ctx, is); err != nil {
		return nil, err
	}

	return created, nil
}
