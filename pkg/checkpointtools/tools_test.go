package checkpointtools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rollbackagent/engine/pkg/model"
	"github.com/rollbackagent/engine/pkg/sessionmgr"
	"github.com/rollbackagent/engine/pkg/sqlstore"
	"github.com/rollbackagent/engine/pkg/tooltrack"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (Deps, *sqlstore.Store, int64) {
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

	mgr := sessionmgr.NewManager(store)
	is, err := mgr.NewInternalSession(context.Background(), es.ID, nil)
	require.NoError(t, err)

	trackLen := 0
	d := Deps{
		Store:     store,
		Manager:   mgr,
		SessionID: func() int64 { return is.ID },
		TrackLen:  func(ctx context.Context) (int, error) { return trackLen, nil },
		DefaultKeepLatest: 5,
	}
	return d, store, is.ID
}

func toolByName(tools []*tooltrack.ToolSpec, name string) *tooltrack.ToolSpec {
	for _, t := range tools {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func TestBuiltinToolsAreAllReservedAndReverseless(t *testing.T) {
	d, _, _ := setup(t)
	for _, spec := range BuiltinTools(d) {
		if !tooltrack.ReservedCheckpointTools[spec.Name] {
			t.Errorf("tool %q not in reserved checkpoint-tool set", spec.Name)
		}
		if spec.Reverse != nil {
			t.Errorf("tool %q has a reverse handler, want none", spec.Name)
		}
		if err := spec.Validate(); err != nil {
			t.Errorf("tool %q failed Validate(): %v", spec.Name, err)
		}
	}
}

func TestCreateAndListCheckpoints(t *testing.T) {
	d, _, _ := setup(t)
	ctx := context.Background()
	tools := BuiltinTools(d)

	create := toolByName(tools, "create_checkpoint")
	_, err := create.Forward(ctx, map[string]any{"name": "A"})
	require.NoError(t, err)
	_, err = create.Forward(ctx, map[string]any{"name": "B"})
	require.NoError(t, err)

	list := toolByName(tools, "list_checkpoints")
	result, err := list.Forward(ctx, nil)
	require.NoError(t, err)
	summaries := result.([]checkpointSummary)
	require.Len(t, summaries, 2)
	require.Equal(t, "B", summaries[0].Name) // newest first
}

func TestRollbackToCheckpointByNameSubstringNewestFirst(t *testing.T) {
	d, _, sessID := setup(t)
	ctx := context.Background()
	tools := BuiltinTools(d)

	create := toolByName(tools, "create_checkpoint")
	create.Forward(ctx, map[string]any{"name": "before-lunch"})
	create.Forward(ctx, map[string]any{"name": "after-lunch"})

	rollback := toolByName(tools, "rollback_to_checkpoint")
	result, err := rollback.Forward(ctx, map[string]any{"id_or_name": "lunch"})
	require.NoError(t, err)

	m := result.(map[string]any)
	gotID := m["checkpoint_id"].(int64)

	all, err := d.Store.Checkpoints().ListByInternalSession(ctx, sessID, model.CheckpointFilter{})
	require.NoError(t, err)
	require.Equal(t, all[0].ID, gotID, "should match the newest checkpoint whose name contains the substring")

	sess, err := d.Store.InternalSessions().GetByID(ctx, sessID)
	require.NoError(t, err)
	require.Equal(t, true, sess.State[RollbackStateRequestedKey])
}

func TestDeleteCheckpointRejectsForeignSession(t *testing.T) {
	d, store, _ := setup(t)
	ctx := context.Background()

	otherUser, _ := store.Users().Create(ctx, &model.User{Username: "other", CredentialHash: "h"})
	otherES, _ := store.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: otherUser.ID, DisplayName: "other"})
	otherIS, _ := store.InternalSessions().Create(ctx, &model.InternalSession{ExternalSessionID: otherES.ID})
	foreignCp, err := store.Checkpoints().Create(ctx, &model.Checkpoint{InternalSessionID: otherIS.ID, Name: "foreign"})
	require.NoError(t, err)

	tools := BuiltinTools(d)
	del := toolByName(tools, "delete_checkpoint")
	_, err = del.Forward(ctx, map[string]any{"id": foreignCp.ID})
	require.Error(t, err)
}

func TestCleanupAutoCheckpointsNoOpWhenUnderLimit(t *testing.T) {
	d, _, sessID := setup(t)
	ctx := context.Background()

	_, err := d.Store.Checkpoints().Create(ctx, &model.Checkpoint{InternalSessionID: sessID, IsAuto: true})
	require.NoError(t, err)

	tools := BuiltinTools(d)
	cleanup := toolByName(tools, "cleanup_auto_checkpoints")
	result, err := cleanup.Forward(ctx, map[string]any{"keep_latest": 5})
	require.NoError(t, err)
	require.Equal(t, 0, result.(map[string]any)["deleted"])
}
