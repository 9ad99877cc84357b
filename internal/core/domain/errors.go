package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable indicates the local cache store could not
	// be opened. Fatal to caching only; callers degrade to direct
	// remote calls.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSyncInProgress indicates a sync pass is already running.
	// Recoverable; the caller should back off and retry.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrOffline indicates a sync pass was requested while the device
	// has no connectivity. No partial attempt is made.
	ErrOffline = errors.New("device is offline")

	// ErrTransport indicates a network or server failure delivering a
	// single action. Recoverable via retry up to the ceiling.
	ErrTransport = errors.New("transport error")

	// ErrVersionConflict indicates the server's current version of a
	// record no longer matches an action's base version. Expected;
	// routed to the conflict resolver, never surfaced raw.
	ErrVersionConflict = errors.New("version conflict")

	// ErrActionFailed indicates an action exhausted its retry ceiling.
	// The action stays queued for manual intervention.
	ErrActionFailed = errors.New("action failed")

	// ErrNotInitialized indicates the offline manager was used before
	// Initialize succeeded.
	ErrNotInitialized = errors.New("offline manager not initialized")
)

// VersionConflictError carries the server's side of a version mismatch.
// It matches ErrVersionConflict under errors.Is.
type VersionConflictError struct {
	// ServerVersion is the record's current version on the server.
	ServerVersion int64

	// ServerData is the record's current payload on the server.
	ServerData json.RawMessage
}

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: server at version %d", e.ServerVersion)
}

// Is reports whether the target is ErrVersionConflict.
func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}
