package model

import "context"

// UserRepository persists User records.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	// DeleteCascade removes the user and every external session, internal
	// session, checkpoint, and track record it owns.
	DeleteCascade(ctx context.Context, id int64) error
}

// ExternalSessionRepository persists ExternalSession records.
type ExternalSessionRepository interface {
	Create(ctx context.Context, s *ExternalSession) (*ExternalSession, error)
	GetByID(ctx context.Context, id int64) (*ExternalSession, error)
	ListByUser(ctx context.Context, userID int64) ([]*ExternalSession, error)
	// AppendInternalSession records a newly created internal session id as
	// a child and, if makeCurrent is true, updates CurrentInternalSessionID.
	AppendInternalSession(ctx context.Context, externalSessionID, internalSessionID int64, makeCurrent bool) error
	SetCurrentInternalSession(ctx context.Context, externalSessionID, internalSessionID int64) error
	DeleteCascade(ctx context.Context, id int64) error
}

// InternalSessionRepository persists InternalSession records.
type InternalSessionRepository interface {
	Create(ctx context.Context, s *InternalSession) (*InternalSession, error)
	GetByID(ctx context.Context, id int64) (*InternalSession, error)
	ListByExternalSession(ctx context.Context, externalSessionID int64) ([]*InternalSession, error)
	// GetCurrent returns the single internal session with IsCurrent=true
	// for the given external session, or ErrNotFound if none is current.
	GetCurrent(ctx context.Context, externalSessionID int64) (*InternalSession, error)
	Update(ctx context.Context, s *InternalSession) error
	// SetCurrent marks id as current and demotes any other current
	// internal session under the same external session, atomically.
	SetCurrent(ctx context.Context, externalSessionID, internalSessionID int64) error
}

// CheckpointFilter narrows ListByInternalSession results.
type CheckpointFilter struct {
	// AutoOnly, if non-nil, restricts to IsAuto == *AutoOnly.
	AutoOnly *bool
}

// CheckpointRepository persists Checkpoint records. Checkpoints are
// immutable once written: there is no Update method.
type CheckpointRepository interface {
	Create(ctx context.Context, c *Checkpoint) (*Checkpoint, error)
	GetByID(ctx context.Context, id int64) (*Checkpoint, error)
	// ListByInternalSession returns checkpoints newest-first.
	ListByInternalSession(ctx context.Context, internalSessionID int64, filter CheckpointFilter) ([]*Checkpoint, error)
	Delete(ctx context.Context, id int64) error
	// PruneAuto deletes all automatic checkpoints of internalSessionID
	// except the keepLatest most recent. Manual checkpoints are untouched.
	PruneAuto(ctx context.Context, internalSessionID int64, keepLatest int) (deleted int, err error)
}

// TrackRepository persists ToolInvocationRecord entries. A Track is
// scoped to a single internal session.
type TrackRepository interface {
	Append(ctx context.Context, r *ToolInvocationRecord) (*ToolInvocationRecord, error)
	// ListByInternalSession returns records in position order.
	ListByInternalSession(ctx context.Context, internalSessionID int64) ([]*ToolInvocationRecord, error)
	Len(ctx context.Context, internalSessionID int64) (int, error)
	// TruncateTo deletes every record at position >= index for the given
	// internal session.
	TruncateTo(ctx context.Context, internalSessionID int64, index int) error
}

// Store aggregates the typed repositories and the compound operations
// that must run inside a single transaction (spec.md §4.1).
type Store interface {
	Users() UserRepository
	ExternalSessions() ExternalSessionRepository
	InternalSessions() InternalSessionRepository
	Checkpoints() CheckpointRepository
	Track() TrackRepository

	// ForkInternalSession creates a new internal session under
	// externalSessionID seeded from source (deep-copied state/history),
	// copies every checkpoint of source.ID with CreatedAt <= asOf into the
	// new session, and marks the new session current — all inside one
	// transaction. It returns the new session and the copied checkpoints.
	ForkInternalSession(ctx context.Context, externalSessionID int64, source *InternalSession, seedState map[string]any, seedHistory []Turn, asOf Checkpoint) (*InternalSession, []*Checkpoint, error)

	// Close releases underlying resources (database connections).
	Close() error
}
