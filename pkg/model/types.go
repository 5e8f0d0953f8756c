// Package model holds the core data types of the checkpoint/rollback engine
// and the repository interfaces the Store satisfies. Types here carry no
// persistence logic; they are plain structs shared by every other package.
package model

import "time"

// Role identifies the speaker of a conversation Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single entry in an internal session's conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// User is the identity and authorization record. CredentialHash is opaque
// to the engine: it is computed and verified entirely by the external
// auth system, never by this package.
type User struct {
	ID             int64
	Username       string
	CredentialHash string
	IsAdmin        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ExternalSession is the user-visible conversation container. It persists
// across rollbacks; CurrentInternalSessionID always names an element of
// InternalSessionIDs, or is nil.
type ExternalSession struct {
	ID                       int64
	UserID                   int64
	DisplayName              string
	Active                   bool
	InternalSessionIDs       []int64
	CurrentInternalSessionID *int64
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// InternalSession is one fork ("take") of a conversation. A new one is
// always created by NewInternalSession, Resume-without-existing, or
// rollback — never mutated into existence.
type InternalSession struct {
	ID                int64
	ExternalSessionID int64
	ModelSessionID    string
	State             map[string]any
	History           []Turn
	IsCurrent         bool
	CheckpointCounter int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Checkpoint is an immutable snapshot of an InternalSession. Metadata
// always carries the int key "tool_track_position" per the engine's
// invariant that every checkpoint knows the Track index it was taken at.
type Checkpoint struct {
	ID                 int64
	InternalSessionID  int64
	Name               string
	IsAuto             bool
	State              map[string]any
	History            []Turn
	Metadata           map[string]any
	CreatedAt          time.Time
}

// MetadataTrackPositionKey is the required key in Checkpoint.Metadata
// carrying the Track index captured at checkpoint creation time.
const MetadataTrackPositionKey = "tool_track_position"

// TrackPosition returns the checkpoint's recorded tool_track_position,
// or 0 if it is missing or not an int-like value.
func (c *Checkpoint) TrackPosition() int {
	if c.Metadata == nil {
		return 0
	}
	switch v := c.Metadata[MetadataTrackPositionKey].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// ToolInvocationRecord is a single entry in a Track: the ordered,
// per-internal-session log of tool invocations used for undo/redo.
type ToolInvocationRecord struct {
	ID                 int64
	InternalSessionID  int64
	Position           int
	ToolName           string
	Args               map[string]any
	Result             any
	Success            bool
	ErrorMessage       string
	CreatedAt          time.Time
}

// DeepCopyState returns a value-equal but independently mutable copy of a
// session state map, used whenever a snapshot or fork must not share
// memory with its source (spec invariant: checkpoints are deep copies).
func DeepCopyState(state map[string]any) map[string]any {
	if state == nil {
		return nil
	}
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return DeepCopyState(vv)
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// DeepCopyHistory returns an independent copy of a conversation history
// slice.
func DeepCopyHistory(history []Turn) []Turn {
	if history == nil {
		return nil
	}
	out := make([]Turn, len(history))
	copy(out, history)
	return out
}

// DeepCopyMetadata returns an independent copy of a metadata bag.
func DeepCopyMetadata(metadata map[string]any) map[string]any {
	return DeepCopyState(metadata)
}
