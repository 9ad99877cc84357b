package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// SyncProgress is emitted after each action in a pass.
type SyncProgress struct {
	// Total is the number of actions selected for the pass.
	Total int

	// Completed counts actions accepted or resolved so far.
	Completed int

	// Failed counts actions that hit their retry ceiling this pass.
	Failed int

	// InProgress is true until the pass finishes.
	InProgress bool

	// Percentage is Completed+Failed over Total, 0-100.
	Percentage float64

	// CurrentAction is the ID of the action just attempted.
	CurrentAction string

	// EstimatedTimeRemaining extrapolates from the pass's running
	// average time per action.
	EstimatedTimeRemaining time.Duration
}

// SyncError describes one action-level failure in a pass.
type SyncError struct {
	// ActionID is the failing action, empty for pass-level errors.
	ActionID string

	// Table and RecordID identify the target record, when known.
	Table    string
	RecordID string

	// Message is the failure description. Raw transport errors never
	// cross the component boundary; this is the only surfaced form.
	Message string
}

// SyncResult summarises one completed pass.
type SyncResult struct {
	// Success is true when no action failed terminally.
	Success bool

	// SyncedActions counts actions the server accepted.
	SyncedActions int

	// FailedActions counts actions past their retry ceiling.
	FailedActions int

	// Conflicts lists every version mismatch the pass adjudicated.
	Conflicts []domain.Conflict

	// Errors lists action-level and pass-level failures.
	Errors []SyncError
}

// SyncStatus is the engine's long-lived aggregate state.
type SyncStatus struct {
	// IsRunning is true while a pass is in flight.
	IsRunning bool

	// LastSync is when the last pass completed.
	LastSync time.Time

	// NextScheduledSync is the periodic timer's next fire time.
	NextScheduledSync time.Time

	// TotalActionsSynced counts accepted actions across all passes.
	TotalActionsSynced int

	// TotalConflictsResolved counts adjudicated conflicts across all
	// passes.
	TotalConflictsResolved int

	// AverageSyncTime is the mean pass duration.
	AverageSyncTime time.Duration

	// History holds recent pass summaries, newest first, bounded.
	History []domain.PassRecord
}

// SyncEngine drains the pending action queue against the remote
// service. Exactly one pass runs at a time; a second trigger fails fast
// with domain.ErrSyncInProgress.
type SyncEngine interface {
	// Status returns a snapshot of the engine's aggregate state.
	Status() SyncStatus

	// SyncNow runs one full unfiltered pass.
	SyncNow(ctx context.Context) (*SyncResult, error)

	// SyncWithFilter runs one pass restricted to matching actions;
	// actions outside the filter stay queued untouched.
	SyncWithFilter(ctx context.Context, filter domain.ActionFilter) (*SyncResult, error)

	// OnProgress registers a callback fired after each action of a
	// pass. The returned function unsubscribes.
	OnProgress(fn func(SyncProgress)) (unsubscribe func())

	// OnComplete registers a callback fired exactly once per pass that
	// ran to completion.
	OnComplete(fn func(SyncResult)) (unsubscribe func())

	// OnError registers a callback fired exactly once per pass that
	// aborted. Complete and Error are mutually exclusive per pass.
	OnError(fn func(error)) (unsubscribe func())
}
