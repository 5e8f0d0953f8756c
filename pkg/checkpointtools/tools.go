// Package checkpointtools implements the six built-in tools the
// orchestrator always surfaces to the model (spec.md §4.4.3). They form
// the reserved checkpoint-tool set and never require reverse handlers.
package checkpointtools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rollbackagent/engine/pkg/model"
	"github.com/rollbackagent/engine/pkg/sessionmgr"
	"github.com/rollbackagent/engine/pkg/tooltrack"
)

// Deps are the collaborators the built-in tools need. They operate
// directly against the Store and the current internal session rather
// than through the orchestrator, since they have no world effect to
// track or undo.
type Deps struct {
	Store      model.Store
	Manager    *sessionmgr.Manager
	SessionID  func() int64
	TrackLen   func(ctx context.Context) (int, error)
	DefaultKeepLatest int
}

// RollbackStateRequestedKey and RollbackStateCheckpointIDKey are the
// session-state flags rollback_to_checkpoint sets, per spec.md §4.4.3:
// it requests a rollback without performing one from inside a turn.
const (
	RollbackStateRequestedKey     = "rollback_requested"
	RollbackStateCheckpointIDKey  = "rollback_checkpoint_id"
)

type createCheckpointArgs struct {
	Name string `json:"name,omitempty"`
}

type rollbackArgs struct {
	IDOrName string `json:"id_or_name"`
}

type idArgs struct {
	ID int64 `json:"id"`
}

type cleanupArgs struct {
	KeepLatest int `json:"keep_latest,omitempty"`
}

// BuiltinTools returns the reserved checkpoint-tool set bound to d.
func BuiltinTools(d Deps) []*tooltrack.ToolSpec {
	return []*tooltrack.ToolSpec{
		createCheckpointTool(d),
		listCheckpointsTool(d),
		rollbackToCheckpointTool(d),
		deleteCheckpointTool(d),
		getCheckpointInfoTool(d),
		cleanupAutoCheckpointsTool(d),
	}
}

func createCheckpointTool(d Deps) *tooltrack.ToolSpec {
	return &tooltrack.ToolSpec{
		Name:        "create_checkpoint",
		Description: "Creates a manual, named snapshot of the current conversation you can later rewind to.",
		Schema:      tooltrack.GenerateSchema[createCheckpointArgs](),
		Forward: func(ctx context.Context, args map[string]any) (any, error) {
			parsed, err := tooltrack.DecodeArgs[createCheckpointArgs](args)
			if err != nil {
				return nil, err
			}
			trackLen, err := d.TrackLen(ctx)
			if err != nil {
				return nil, err
			}
			cp, err := d.Manager.Snapshot(ctx, d.SessionID(), parsed.Name, false, trackLen)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": cp.ID, "name": cp.Name}, nil
		},
	}
}

type checkpointSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsAuto    bool   `json:"is_auto"`
	CreatedAt string `json:"created_at"`
}

func listCheckpointsTool(d Deps) *tooltrack.ToolSpec {
	return &tooltrack.ToolSpec{
		Name:        "list_checkpoints",
		Description: "Lists checkpoints of the current conversation, newest first.",
		Forward: func(ctx context.Context, args map[string]any) (any, error) {
			checkpoints, err := d.Store.Checkpoints().ListByInternalSession(ctx, d.SessionID(), model.CheckpointFilter{})
			if err != nil {
				return nil, err
			}
			summaries := make([]checkpointSummary, 0, len(checkpoints))
			for _, c := range checkpoints {
				summaries = append(summaries, checkpointSummary{
					ID: c.ID, Name: c.Name, IsAuto: c.IsAuto, CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				})
			}
			return summaries, nil
		},
	}
}

func rollbackToCheckpointTool(d Deps) *tooltrack.ToolSpec {
	return &tooltrack.ToolSpec{
		Name:        "rollback_to_checkpoint",
		Description: "Requests rewinding the conversation to a prior checkpoint, by id or by (case-insensitive substring of) name.",
		Schema:      tooltrack.GenerateSchema[rollbackArgs](),
		Forward: func(ctx context.Context, args map[string]any) (any, error) {
			parsed, err := tooltrack.DecodeArgs[rollbackArgs](args)
			if err != nil {
				return nil, err
			}

			cp, err := resolveCheckpoint(ctx, d, parsed.IDOrName)
			if err != nil {
				return nil, err
			}

			sess, err := d.Store.InternalSessions().GetByID(ctx, d.SessionID())
			if err != nil {
				return nil, err
			}
			if sess.State == nil {
				sess.State = map[string]any{}
			}
			sess.State[RollbackStateRequestedKey] = true
			sess.State[RollbackStateCheckpointIDKey] = cp.ID
			if err := d.Store.InternalSessions().Update(ctx, sess); err != nil {
				return nil, err
			}

			return map[string]any{"checkpoint_id": cp.ID}, nil
		},
	}
}

// resolveCheckpoint looks up idOrName first as a numeric checkpoint id
// belonging to the current session, then as a case-insensitive substring
// match against manual checkpoint names, newest-first, picking the first
// match (spec.md §8 boundary behavior).
func resolveCheckpoint(ctx context.Context, d Deps, idOrName string) (*model.Checkpoint, error) {
	if id, err := strconv.ParseInt(idOrName, 10, 64); err == nil {
		cp, err := d.Store.Checkpoints().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cp.InternalSessionID != d.SessionID() {
			return nil, model.ErrNotFound
		}
		return cp, nil
	}

	manual := false
	candidates, err := d.Store.Checkpoints().ListByInternalSession(ctx, d.SessionID(), model.CheckpointFilter{AutoOnly: &manual})
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(idOrName)
	for _, c := range candidates { // already newest-first
		if strings.Contains(strings.ToLower(c.Name), needle) {
			return c, nil
		}
	}
	return nil, model.ErrNotFound
}

func deleteCheckpointTool(d Deps) *tooltrack.ToolSpec {
	return &tooltrack.ToolSpec{
		Name:        "delete_checkpoint",
		Description: "Deletes a checkpoint belonging to the current conversation.",
		Schema:      tooltrack.GenerateSchema[idArgs](),
		Forward: func(ctx context.Context, args map[string]any) (any, error) {
			parsed, err := tooltrack.DecodeArgs[idArgs](args)
			if err != nil {
				return nil, err
			}
			cp, err := d.Store.Checkpoints().GetByID(ctx, parsed.ID)
			if err != nil {
				return nil, err
			}
			if cp.InternalSessionID != d.SessionID() {
				return nil, fmt.Errorf("checkpointtools: checkpoint %d does not belong to the current session", parsed.ID)
			}
			if err := d.Store.Checkpoints().Delete(ctx, parsed.ID); err != nil {
				return nil, err
			}
			return map[string]any{"deleted": parsed.ID}, nil
		},
	}
}

func getCheckpointInfoTool(d Deps) *tooltrack.ToolSpec {
	return &tooltrack.ToolSpec{
		Name:        "get_checkpoint_info",
		Description: "Returns metadata for a checkpoint.",
		Schema:      tooltrack.GenerateSchema[idArgs](),
		Forward: func(ctx context.Context, args map[string]any) (any, error) {
			parsed, err := tooltrack.DecodeArgs[idArgs](args)
			if err != nil {
				return nil, err
			}
			cp, err := d.Store.Checkpoints().GetByID(ctx, parsed.ID)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"id":       cp.ID,
				"name":     cp.Name,
				"is_auto":  cp.IsAuto,
				"metadata": cp.Metadata,
			}, nil
		},
	}
}

func cleanupAutoCheckpointsTool(d Deps) *tooltrack.ToolSpec {
	return &tooltrack.ToolSpec{
		Name:        "cleanup_auto_checkpoints",
		Description: "Prunes automatic checkpoints, keeping only the most recent keep_latest (default 5). Manual checkpoints are never pruned.",
		Schema:      tooltrack.GenerateSchema[cleanupArgs](),
		Forward: func(ctx context.Context, args map[string]any) (any, error) {
			parsed, err := tooltrack.DecodeArgs[cleanupArgs](args)
			if err != nil {
				return nil, err
			}
			keep := parsed.KeepLatest
			if keep <= 0 {
				keep = d.DefaultKeepLatest
				if keep <= 0 {
					keep = 5
				}
			}
			deleted, err := d.Store.Checkpoints().PruneAuto(ctx, d.SessionID(), keep)
			if err != nil {
				return nil, err
			}
			return map[string]any{"deleted": deleted}, nil
		},
	}
}
