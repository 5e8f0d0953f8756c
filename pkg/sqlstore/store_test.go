package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rollbackagent/engine/pkg/model"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &DatabaseConfig{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "engine.db"),
	}
	pool := NewDBPool()
	t.Cleanup(func() { _ = pool.Close() })

	s, err := Open(context.Background(), cfg, pool)
	require.NoError(t, err)
	return s
}

func TestStore_UserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Users().Create(ctx, &model.User{Username: "alice", CredentialHash: "hashed"})
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	got, err := s.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = s.Users().GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.Users().Create(ctx, &model.User{Username: "alice", CredentialHash: "other"})
	require.ErrorIs(t, err, model.ErrIntegrityViolation)
}

func TestStore_SessionHierarchyAndCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Users().Create(ctx, &model.User{Username: "bob", CredentialHash: "h"})
	require.NoError(t, err)

	es, err := s.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: u.ID, DisplayName: "main"})
	require.NoError(t, err)

	is1, err := s.InternalSessions().Create(ctx, &model.InternalSession{
		ExternalSessionID: es.ID,
		State:             map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	require.NoError(t, s.InternalSessions().SetCurrent(ctx, es.ID, is1.ID))

	is2, err := s.InternalSessions().Create(ctx, &model.InternalSession{ExternalSessionID: es.ID})
	require.NoError(t, err)
	require.NoError(t, s.InternalSessions().SetCurrent(ctx, es.ID, is2.ID))

	current, err := s.InternalSessions().GetCurrent(ctx, es.ID)
	require.NoError(t, err)
	require.Equal(t, is2.ID, current.ID)

	reloaded, err := s.ExternalSessions().GetByID(ctx, es.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.InternalSessionIDs, 2)
	require.NotNil(t, reloaded.CurrentInternalSessionID)
	require.Equal(t, is2.ID, *reloaded.CurrentInternalSessionID)
}

func TestStore_CheckpointPruneRespectsManual(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, _ := s.Users().Create(ctx, &model.User{Username: "carol", CredentialHash: "h"})
	es, _ := s.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: u.ID, DisplayName: "main"})
	is, _ := s.InternalSessions().Create(ctx, &model.InternalSession{ExternalSessionID: es.ID})

	for i := 0; i < 10; i++ {
		_, err := s.Checkpoints().Create(ctx, &model.Checkpoint{
			InternalSessionID: is.ID,
			IsAuto:            true,
			Metadata:          map[string]any{model.MetadataTrackPositionKey: i},
		})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := s.Checkpoints().Create(ctx, &model.Checkpoint{
			InternalSessionID: is.ID,
			Name:              "manual",
			IsAuto:            false,
		})
		require.NoError(t, err)
	}

	deleted, err := s.Checkpoints().PruneAuto(ctx, is.ID, 5)
	require.NoError(t, err)
	require.Equal(t, 5, deleted)

	all, err := s.Checkpoints().ListByInternalSession(ctx, is.ID, model.CheckpointFilter{})
	require.NoError(t, err)
	require.Len(t, all, 8)

	autoOnly := true
	auto, err := s.Checkpoints().ListByInternalSession(ctx, is.ID, model.CheckpointFilter{AutoOnly: &autoOnly})
	require.NoError(t, err)
	require.Len(t, auto, 5)
}

func TestStore_TrackAppendAndTruncate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, _ := s.Users().Create(ctx, &model.User{Username: "dan", CredentialHash: "h"})
	es, _ := s.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: u.ID, DisplayName: "main"})
	is, _ := s.InternalSessions().Create(ctx, &model.InternalSession{ExternalSessionID: es.ID})

	for i := 0; i < 3; i++ {
		_, err := s.Track().Append(ctx, &model.ToolInvocationRecord{
			InternalSessionID: is.ID,
			ToolName:          "create_file",
			Args:              map[string]any{"path": "t.txt"},
			Success:           true,
		})
		require.NoError(t, err)
	}

	n, err := s.Track().Len(ctx, is.ID)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.NoError(t, s.Track().TruncateTo(ctx, is.ID, 1))

	n, err = s.Track().Len(ctx, is.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestStore_ForkInternalSessionPreservesLineage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, _ := s.Users().Create(ctx, &model.User{Username: "erin", CredentialHash: "h"})
	es, _ := s.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: u.ID, DisplayName: "main"})
	source, _ := s.InternalSessions().Create(ctx, &model.InternalSession{ExternalSessionID: es.ID})
	require.NoError(t, s.InternalSessions().SetCurrent(ctx, es.ID, source.ID))

	a, err := s.Checkpoints().Create(ctx, &model.Checkpoint{InternalSessionID: source.ID, Name: "A"})
	require.NoError(t, err)
	b, err := s.Checkpoints().Create(ctx, &model.Checkpoint{InternalSessionID: source.ID, Name: "B"})
	require.NoError(t, err)
	_, err = s.Checkpoints().Create(ctx, &model.Checkpoint{InternalSessionID: source.ID, Name: "C"})
	require.NoError(t, err)
	_ = a

	newSession, copied, err := s.ForkInternalSession(ctx, es.ID, source,
		b.State, b.History, *b)
	require.NoError(t, err)
	require.True(t, newSession.IsCurrent)
	require.Len(t, copied, 2) // A and B, not C

	current, err := s.InternalSessions().GetCurrent(ctx, es.ID)
	require.NoError(t, err)
	require.Equal(t, newSession.ID, current.ID)
}

func seedCascadeFixture(t *testing.T, s *Store) (userID, extID int64) {
	t.Helper()
	ctx := context.Background()

	u, err := s.Users().Create(ctx, &model.User{Username: "frank", CredentialHash: "h"})
	require.NoError(t, err)

	es, err := s.ExternalSessions().Create(ctx, &model.ExternalSession{UserID: u.ID, DisplayName: "main"})
	require.NoError(t, err)

	is, err := s.InternalSessions().Create(ctx, &model.InternalSession{ExternalSessionID: es.ID})
	require.NoError(t, err)
	require.NoError(t, s.InternalSessions().SetCurrent(ctx, es.ID, is.ID))

	for i := 0; i < 3; i++ {
		_, err := s.Checkpoints().Create(ctx, &model.Checkpoint{
			InternalSessionID: is.ID,
			IsAuto:            true,
			Metadata:          map[string]any{model.MetadataTrackPositionKey: i},
		})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := s.Track().Append(ctx, &model.ToolInvocationRecord{
			InternalSessionID: is.ID,
			ToolName:          "create_file",
			Args:              map[string]any{"path": "t.txt"},
			Success:           true,
		})
		require.NoError(t, err)
	}

	return u.ID, es.ID
}

func requireTableEmpty(t *testing.T, s *Store, table, where string, args ...any) {
	t.Helper()
	var n int
	err := s.db.QueryRowContext(context.Background(),
		s.rebind("SELECT COUNT(*) FROM "+table+" WHERE "+where), args...).Scan(&n)
	require.NoError(t, err)
	require.Zerof(t, n, "expected %s to be empty", table)
}

const internalSessionsOfExternalSQL = "internal_session_id IN (SELECT id FROM internal_sessions WHERE external_session_id = ?)"

func TestStore_ExternalSessionDeleteCascadeRemovesDescendants(t *testing.T) {
	s := newTestStore(t)
	_, esID := seedCascadeFixture(t, s)

	require.NoError(t, s.ExternalSessions().DeleteCascade(context.Background(), esID))

	requireTableEmpty(t, s, "tool_invocation_records", internalSessionsOfExternalSQL, esID)
	requireTableEmpty(t, s, "checkpoints", internalSessionsOfExternalSQL, esID)
	requireTableEmpty(t, s, "internal_sessions", "external_session_id = ?", esID)
	requireTableEmpty(t, s, "external_sessions", "id = ?", esID)
}

func TestStore_UserDeleteCascadeRemovesDescendants(t *testing.T) {
	s := newTestStore(t)
	userID, esID := seedCascadeFixture(t, s)

	require.NoError(t, s.Users().DeleteCascade(context.Background(), userID))

	requireTableEmpty(t, s, "tool_invocation_records", internalSessionsOfExternalSQL, esID)
	requireTableEmpty(t, s, "checkpoints", internalSessionsOfExternalSQL, esID)
	requireTableEmpty(t, s, "internal_sessions", "external_session_id = ?", esID)
	requireTableEmpty(t, s, "external_sessions", "user_id = ?", userID)
	requireTableEmpty(t, s, "users", "id = ?", userID)
}
