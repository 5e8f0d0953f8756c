// Package rollback implements spec.md §4.5's Checkpoint Service: the
// operation that forks a new internal session off a checkpoint, optionally
// reversing the tool effects recorded since it, and returns the new
// internal session with its copied checkpoints. It does not construct an
// orchestrator for the fork.
package rollback

// EventKind identifies the kind of event the rollback service publishes.
type EventKind string

const (
	// EventForked fires once the new internal session exists and is
	// current, carrying its id and the number of checkpoints copied into it.
	EventForked EventKind = "forked"
	// EventToolReversed fires once per attempted reverse handler,
	// including skipped and failed attempts.
	EventToolReversed EventKind = "tool-reversed"
)

// Event is a single rollback occurrence. Only the fields relevant to Kind
// are populated.
type Event struct {
	Kind EventKind

	// forked
	NewInternalSessionID  int64
	CopiedCheckpointCount int

	// tool-reversed
	ToolName string
	Skipped  bool
	Success  bool
	Error    string
}
