package driving

import (
	"context"
	"encoding/json"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// OfflineStatus is the aggregate state published to the UI layer. It is
// recomputed on every relevant event: connectivity transitions, queue
// changes and sync start/stop.
type OfflineStatus struct {
	// IsOffline mirrors the connectivity monitor.
	IsOffline bool

	// LastSync is when the last successful pass completed.
	LastSync time.Time

	// PendingActions counts queued actions, failed ones included.
	PendingActions int

	// CachedDataSize is the approximate cache footprint in bytes.
	CachedDataSize int64

	// SyncInProgress is true while a pass is running.
	SyncInProgress bool
}

// OfflineManager is the application's entry point for offline reads and
// writes. Reads are always served from the last committed cache
// snapshot and never touch the network; writes become pending actions.
//
// The sync engine mutates cached records and queued actions only
// through this interface, never through raw storage.
type OfflineManager interface {
	// Initialize opens the underlying stores. Idempotent. Returns an
	// error wrapping domain.ErrStorageUnavailable when storage cannot
	// be opened; the caller should degrade to direct remote calls.
	Initialize(ctx context.Context) error

	// IsOffline delegates to the connectivity monitor.
	IsOffline() bool

	// GetCachedData serves records from the cache. An empty id returns
	// all non-expired records for the table.
	GetCachedData(ctx context.Context, table, id string) ([]domain.CachedRecord, error)

	// EnqueueAction appends a pending action and republishes the
	// offline status. Missing ID and CreatedAt are assigned. Returns
	// the action's ID.
	EnqueueAction(ctx context.Context, action domain.PendingAction) (string, error)

	// PendingActions returns queued actions matching the filter in
	// sync order.
	PendingActions(ctx context.Context, filter domain.ActionFilter) ([]domain.PendingAction, error)

	// CacheServerRecord overwrites the cached copy of a record with
	// server-confirmed data and version.
	CacheServerRecord(ctx context.Context, table, id string, payload json.RawMessage, version int64) error

	// RemoveCachedRecord drops the cached copy of a record.
	RemoveCachedRecord(ctx context.Context, table, id string) error

	// RemoveAction deletes a confirmed or discarded action.
	RemoveAction(ctx context.Context, id string) error

	// UpdateAction persists changed retry state for an action.
	UpdateAction(ctx context.Context, action domain.PendingAction) error

	// ResetAction clears an action's failed flag and retry count so
	// the next automatic pass picks it up again.
	ResetAction(ctx context.Context, id string) error

	// Status recomputes and returns the aggregate offline status.
	Status(ctx context.Context) (OfflineStatus, error)

	// OnStatusChange registers a callback fired whenever the aggregate
	// status changes. The returned function unsubscribes.
	OnStatusChange(fn func(OfflineStatus)) (unsubscribe func())

	// NoteSyncState is called by the sync engine when a pass starts
	// and stops, so the aggregate status can reflect it.
	NoteSyncState(ctx context.Context, inProgress bool, lastSync time.Time)
}
