package orchestrator

// EventKind identifies the kind of user-visible event the orchestrator
// publishes (spec.md §6, "User-visible events signaled to callers").
type EventKind string

const (
	EventCheckpointCreated EventKind = "checkpoint-created"
	EventToolReversed      EventKind = "tool-reversed"
	EventRollbackRequested EventKind = "rollback-requested"
)

// Event is a single user-visible occurrence. Only the fields relevant to
// Kind are populated.
type Event struct {
	Kind EventKind

	// checkpoint-created
	CheckpointID int64
	Auto         bool

	// tool-reversed
	ToolName string
	Success  bool
	Error    string

	// rollback-requested
	TargetCheckpointID int64
}
