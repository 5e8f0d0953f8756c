// Package tooltrack holds the tool registration contract and the ordered
// invocation Track (undo/redo log) described in spec.md §4.2.
package tooltrack

import (
	"context"

	"github.com/rollbackagent/engine/pkg/model"
)

// Forward is a tool's primary effect. args is a decoded argument map;
// the return value is opaque to the engine and stored verbatim in the
// Track.
type Forward func(ctx context.Context, args map[string]any) (result any, err error)

// Reverse is a tool's inverse effect, invoked during rollback with the
// original arguments and the forward call's recorded result. Reverse has
// no return value besides error: it is side-effect only.
type Reverse func(ctx context.Context, args map[string]any, result any) error

// ReservedCheckpointTools is the set of built-in tool names that never
// require a Reverse handler because they have no world effect to undo.
var ReservedCheckpointTools = map[string]bool{
	"create_checkpoint":        true,
	"list_checkpoints":         true,
	"rollback_to_checkpoint":   true,
	"delete_checkpoint":        true,
	"get_checkpoint_info":      true,
	"cleanup_auto_checkpoints": true,
}

// ToolSpec is a registration record: spec.md §3's Tool Specification.
type ToolSpec struct {
	Name        string
	Description string
	// Schema is an optional JSON schema for the tool's arguments, used to
	// advertise built-in checkpoint tools to the model client.
	Schema  map[string]any
	Forward Forward
	Reverse Reverse
}

// Validate enforces the registration invariant: a reverse handler is
// required unless the tool's name is in the reserved checkpoint-tool set.
func (s *ToolSpec) Validate() error {
	if s.Name == "" {
		return model.ErrInvalidRegistration
	}
	if s.Forward == nil {
		return model.ErrInvalidRegistration
	}
	if s.Reverse == nil && !ReservedCheckpointTools[s.Name] {
		return model.ErrInvalidRegistration
	}
	return nil
}
