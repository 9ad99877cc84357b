package domain

import "encoding/json"

// ConflictType classifies how a version conflict was resolved.
type ConflictType string

// Available conflict resolutions.
const (
	// ConflictManual means the conflict could not be resolved
	// automatically. The pending action is held in the queue until an
	// external decision arrives.
	ConflictManual ConflictType = "manual"

	// ConflictServerWins means the server's data replaced the local
	// change and the pending action was discarded.
	ConflictServerWins ConflictType = "server_wins"

	// ConflictClientWins means the local change (possibly merged with
	// server fields) was resubmitted on top of the server's version.
	ConflictClientWins ConflictType = "client_wins"
)

// IsValid returns true if the conflict type is recognised.
func (t ConflictType) IsValid() bool {
	switch t {
	case ConflictManual, ConflictServerWins, ConflictClientWins:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ConflictType) String() string {
	return string(t)
}

// Conflict records one version mismatch detected during a sync pass.
// Conflicts are transient: they exist only in the pass's SyncResult and
// are not persisted beyond reporting.
type Conflict struct {
	// ActionID is the pending action that collided.
	ActionID string

	// Table and RecordID identify the contested record.
	Table    string
	RecordID string

	// Type is the resolver's verdict.
	Type ConflictType

	// ServerVersion is the server's current version of the record.
	ServerVersion int64

	// ServerData is the server's current payload.
	ServerData json.RawMessage

	// ClientData is the pending action's payload.
	ClientData json.RawMessage
}

// Resolution is a conflict resolver's verdict for a single collision.
type Resolution struct {
	// Type determines how the sync pass applies the verdict.
	Type ConflictType

	// Data is the winning payload for client_wins resolutions; the
	// merged document when field-level merging applied.
	Data json.RawMessage
}
