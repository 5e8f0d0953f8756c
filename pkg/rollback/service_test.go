package rollback

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rollbackagent/engine/internal/testtool"
	"github.com/rollbackagent/engine/pkg/model"
	"github.com/rollbackagent/engine/pkg/sessionmgr"
	"github.com/rollbackagent/engine/pkg/sqlstore"
	"github.com/rollbackagent/engine/pkg/tooltrack"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *sqlstore.Store
	mgr      *sessionmgr.Manager
	registry *tooltrack.Registry
	track    *tooltrack.Track
	esID     int64
	isID     int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dbCfg := &sqlstore.DatabaseConfig{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "engine.db")}
	pool := sqlstore.NewDBPool()
	t.Cleanup(func() { _ = pool.Close() })
	store, err := sqlstore.Open(ctx, dbCfg, pool)
	require.NoError(t, err)

	u, err := store.Users().Create(ctx, &model.User{Username: "alice", CredentialHash: "h"})
	require.NoError(t, err)
	es, err := store.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: u.ID, DisplayName: "main"})
	require.NoError(t, err)

	mgr := sessionmgr.NewManager(store)
	is, err := mgr.NewInternalSession(ctx, es.ID, nil)
	require.NoError(t, err)

	reg := tooltrack.NewRegistry()
	track := tooltrack.NewTrack(reg, store.Track(), is.ID)

	return &fixture{store: store, mgr: mgr, registry: reg, track: track, esID: es.ID, isID: is.ID}
}

// TestRollbackPreservesLineage grounds spec.md scenario S2: checkpoints
// taken before the rollback target remain reachable from the fork,
// checkpoints taken after it do not.
func TestRollbackPreservesLineage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.mgr.Snapshot(ctx, f.isID, "A", false, 0)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	b, err := f.mgr.Snapshot(ctx, f.isID, "B", false, 0)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.mgr.Snapshot(ctx, f.isID, "C", false, 0)
	require.NoError(t, err)
	_ = a

	svc := NewService(f.store, f.registry, nil)
	result, err := svc.Rollback(ctx, f.esID, b.ID, false)
	require.NoError(t, err)

	require.Len(t, result.CopiedCheckpoints, 2) // A and B, not C
	names := []string{result.CopiedCheckpoints[0].Name, result.CopiedCheckpoints[1].Name}
	require.ElementsMatch(t, []string{"A", "B"}, names)

	newSession, err := f.store.InternalSessions().GetByID(ctx, result.NewInternalSession.ID)
	require.NoError(t, err)
	require.True(t, newSession.IsCurrent)

	oldSession, err := f.store.InternalSessions().GetByID(ctx, f.isID)
	require.NoError(t, err)
	require.False(t, oldSession.IsCurrent)
}

// TestRollbackReversesToolsInReverseOrder grounds spec.md scenario S1/S4:
// reversible tools fire their reverse handler in LIFO order when a
// rollback requests reverseTools=true.
func TestRollbackReversesToolsInReverseOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeA := testtool.NewCreateFileTool(dir)
	require.NoError(t, f.registry.Register(writeA))

	cp, err := f.mgr.Snapshot(ctx, f.isID, "before-writes", false, 0)
	require.NoError(t, err)

	_, err = writeA.Forward(ctx, map[string]any{"path": "a.txt"})
	require.NoError(t, err)
	_, err = f.track.Record(ctx, writeA.Name, map[string]any{"path": "a.txt"}, "ok", true, "")
	require.NoError(t, err)

	_, err = writeA.Forward(ctx, map[string]any{"path": "b.txt"})
	require.NoError(t, err)
	_, err = f.track.Record(ctx, writeA.Name, map[string]any{"path": "b.txt"}, "ok", true, "")
	require.NoError(t, err)

	require.True(t, testtool.Exists(dir, "a.txt"))
	require.True(t, testtool.Exists(dir, "b.txt"))

	svc := NewService(f.store, f.registry, nil)
	result, err := svc.Rollback(ctx, f.esID, cp.ID, true)
	require.NoError(t, err)

	require.False(t, testtool.Exists(dir, "a.txt"))
	require.False(t, testtool.Exists(dir, "b.txt"))
	require.Len(t, result.ReverseOutcomes, 2)
	require.True(t, result.ReverseOutcomes[0].Success) // b.txt reversed first
	require.True(t, result.ReverseOutcomes[1].Success)
	require.Equal(t, "b.txt", result.ReverseOutcomes[0].Record.Args["path"])
	require.Equal(t, "a.txt", result.ReverseOutcomes[1].Record.Args["path"])
}

// TestRollbackContinuesPastReverseFailure grounds spec.md scenario S4: a
// failing reverse handler does not abort the rest of the rollback.
func TestRollbackContinuesPastReverseFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := t.TempDir()

	doomed := testtool.NewAlwaysFailReverseTool("doomed")
	writeA := testtool.NewCreateFileTool(dir)
	require.NoError(t, f.registry.Register(doomed))
	require.NoError(t, f.registry.Register(writeA))

	cp, err := f.mgr.Snapshot(ctx, f.isID, "start", false, 0)
	require.NoError(t, err)

	_, err = doomed.Forward(ctx, nil)
	require.NoError(t, err)
	_, err = f.track.Record(ctx, doomed.Name, nil, "done", true, "")
	require.NoError(t, err)

	_, err = writeA.Forward(ctx, map[string]any{"path": "c.txt"})
	require.NoError(t, err)
	_, err = f.track.Record(ctx, writeA.Name, map[string]any{"path": "c.txt"}, "ok", true, "")
	require.NoError(t, err)

	events := make(chan Event, 8)
	svc := NewService(f.store, f.registry, events)
	result, err := svc.Rollback(ctx, f.esID, cp.ID, true)
	require.NoError(t, err, "a failing reverse handler must not abort the rollback")

	require.False(t, testtool.Exists(dir, "c.txt"), "later tool's reverse still ran despite the earlier failure")
	require.Len(t, result.ReverseOutcomes, 2)
	require.True(t, result.ReverseOutcomes[0].Success)  // writeA (c.txt) reversed first, succeeds
	require.False(t, result.ReverseOutcomes[1].Success) // doomed reversed second, fails

	sawFailure := false
	for i := 0; i < len(result.ReverseOutcomes); i++ {
		select {
		case ev := <-events:
			if ev.Kind == EventToolReversed && !ev.Success && ev.Error != "" {
				sawFailure = true
			}
		default:
		}
	}
	require.True(t, sawFailure, "expected a tool-reversed event reporting the failure")
}

func TestRollbackUnknownCheckpointFails(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, f.registry, nil)
	_, err := svc.Rollback(context.Background(), f.esID, 999999, false)
	require.Error(t, err)
}

func TestRollbackRejectsForeignExternalSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cp, err := f.mgr.Snapshot(ctx, f.isID, "start", false, 0)
	require.NoError(t, err)

	otherUser, err := f.store.Users().Create(ctx, &model.User{Username: "mallory", CredentialHash: "h"})
	require.NoError(t, err)
	otherES, err := f.store.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: otherUser.ID, DisplayName: "other"})
	require.NoError(t, err)

	svc := NewService(f.store, f.registry, nil)
	_, err = svc.Rollback(ctx, otherES.ID, cp.ID, false)
	require.ErrorIs(t, err, model.ErrNotFound)
}
