package driven

import (
	"context"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// CacheStore persists cached server records keyed by (table, id).
// Expired records are treated as absent; implementations may delete
// them lazily.
type CacheStore interface {
	// Put stores or overwrites the record for its (table, id).
	Put(ctx context.Context, record domain.CachedRecord) error

	// Get retrieves non-expired records. With an empty id it returns
	// all non-expired records for the table.
	Get(ctx context.Context, table, id string) ([]domain.CachedRecord, error)

	// Remove deletes the record for (table, id). Removing an absent
	// record is not an error.
	Remove(ctx context.Context, table, id string) error

	// SizeBytes returns the approximate total size of cached payloads.
	SizeBytes(ctx context.Context) (int64, error)

	// Evict removes oldest-CachedAt records until the store holds at
	// most maxBytes. A maxBytes of zero disables eviction.
	Evict(ctx context.Context, maxBytes int64) error
}
