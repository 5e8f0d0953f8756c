package model

import "errors"

// Sentinel errors returned by the Store and its repositories. Components
// above the store (sessionmgr, orchestrator, rollback) compare against
// these with errors.Is rather than inspecting driver-specific errors.
var (
	// ErrNotFound is returned when an entity id does not resolve to a row.
	ErrNotFound = errors.New("model: not found")

	// ErrIntegrityViolation is returned when a unique or foreign-key
	// constraint fails (duplicate username, fork of a deleted session).
	ErrIntegrityViolation = errors.New("model: integrity violation")

	// ErrInvalidRegistration is returned when a tool specification is
	// registered without a reverse handler and its name is not in the
	// reserved checkpoint-tool set.
	ErrInvalidRegistration = errors.New("model: invalid tool registration")

	// ErrInvalidStateTransition is returned when an operation would leave
	// the data model in a state one of its invariants forbids — e.g. a
	// rollback whose tool_track_position exceeds the current track length.
	ErrInvalidStateTransition = errors.New("model: invalid state transition")

	// ErrBusy is returned when a Run is already in flight for an internal
	// session and a caller attempts to start a concurrent one.
	ErrBusy = errors.New("model: session busy")
)
