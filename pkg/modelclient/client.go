// Package modelclient defines the engine's boundary with the external
// language-model provider (spec.md §6). No real provider SDK is wired
// here — see DESIGN.md for why — only the interface and a deterministic
// Fake used throughout the orchestrator and checkpoint-service tests.
package modelclient

import (
	"context"

	"github.com/rollbackagent/engine/pkg/model"
)

// ToolDescriptor is the model-facing view of a registered tool: a name,
// a human-readable description, and an optional argument schema.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ToolCall is one tool invocation the model requested.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Response is the model client's reply to a single turn.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Client is the opaque external model client the orchestrator drives.
// The client is presumed to persist its own per-session message log; the
// orchestrator does not rely on that log for correctness (spec.md §4.4.2).
type Client interface {
	Run(ctx context.Context, sessionID string, message string, history []model.Turn, tools []ToolDescriptor) (Response, error)
}
