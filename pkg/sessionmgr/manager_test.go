package sessionmgr

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rollbackagent/engine/pkg/model"
	"github.com/rollbackagent/engine/pkg/sqlstore"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *sqlstore.Store, int64) {
	t.Helper()
	cfg := &sqlstore.DatabaseConfig{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "engine.db")}
	pool := sqlstore.NewDBPool()
	t.Cleanup(func() { _ = pool.Close() })

	store, err := sqlstore.Open(context.Background(), cfg, pool)
	require.NoError(t, err)

	u, err := store.Users().Create(context.Background(), &model.User{Username: "alice", CredentialHash: "h"})
	require.NoError(t, err)
	es, err := store.ExternalSessions().Create(context.Background(), &model.ExternalSession{UserID: u.ID, DisplayName: "main"})
	require.NoError(t, err)

	return NewManager(store), store, es.ID
}

func TestNewInternalSessionMarksCurrent(t *testing.T) {
	mgr, store, esID := newTestManager(t)
	ctx := context.Background()

	first, err := mgr.NewInternalSession(ctx, esID, map[string]any{"k": "v"})
	require.NoError(t, err)
	require.True(t, first.IsCurrent)

	second, err := mgr.NewInternalSession(ctx, esID, nil)
	require.NoError(t, err)
	require.True(t, second.IsCurrent)

	reloadedFirst, err := store.InternalSessions().GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, reloadedFirst.IsCurrent, "creating a new internal session must demote the prior current one")
}

func TestResumeWithoutIDUsesCurrentPointer(t *testing.T) {
	mgr, _, esID := newTestManager(t)
	ctx := context.Background()

	created, err := mgr.NewInternalSession(ctx, esID, nil)
	require.NoError(t, err)

	resumed, err := mgr.Resume(ctx, esID, nil)
	require.NoError(t, err)
	require.Equal(t, created.ID, resumed.ID)
}

func TestResumeRejectsForeignSession(t *testing.T) {
	mgr, store, esID := newTestManager(t)
	ctx := context.Background()

	otherUser, err := store.Users().Create(ctx, &model.User{Username: "bob", CredentialHash: "h"})
	require.NoError(t, err)
	otherES, err := store.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: otherUser.ID, DisplayName: "other"})
	require.NoError(t, err)
	foreign, err := mgr.NewInternalSession(ctx, otherES.ID, nil)
	require.NoError(t, err)

	_, err = mgr.Resume(ctx, esID, &foreign.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAppendTurnAndSnapshot(t *testing.T) {
	mgr, store, esID := newTestManager(t)
	ctx := context.Background()

	is, err := mgr.NewInternalSession(ctx, esID, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.AppendTurn(ctx, is.ID, model.RoleUser, "I'm Alice"))
	require.NoError(t, mgr.AppendTurn(ctx, is.ID, model.RoleAssistant, "Nice to meet you, Alice"))

	cp, err := mgr.Snapshot(ctx, is.ID, "manual-1", false, 3)
	require.NoError(t, err)
	require.Len(t, cp.History, 2)
	require.Equal(t, 3, cp.TrackPosition())

	reloaded, err := store.InternalSessions().GetByID(ctx, is.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.CheckpointCounter)
}

func TestSnapshotIsPure(t *testing.T) {
	mgr, _, esID := newTestManager(t)
	ctx := context.Background()

	is, err := mgr.NewInternalSession(ctx, esID, map[string]any{"count": 1})
	require.NoError(t, err)
	require.NoError(t, mgr.AppendTurn(ctx, is.ID, model.RoleUser, "hello"))

	a, err := mgr.Snapshot(ctx, is.ID, "a", false, 0)
	require.NoError(t, err)
	b, err := mgr.Snapshot(ctx, is.ID, "b", false, 0)
	require.NoError(t, err)

	require.Equal(t, a.State, b.State)
	require.Equal(t, a.History, b.History)
}
