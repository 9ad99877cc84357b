package domain

import (
	"encoding/json"
	"time"
)

// CachedRecord is a locally cached copy of a server record.
// At most one record exists per (table, id) pair.
type CachedRecord struct {
	// ID is the server-assigned record identifier.
	ID string

	// Table names the collection the record belongs to.
	// The engine treats table names as opaque strings.
	Table string

	// Payload is the record body. The engine never inspects it
	// beyond conflict merging; schema validation is the caller's job.
	Payload json.RawMessage

	// CachedAt is when this copy was written to the cache.
	CachedAt time.Time

	// ExpiresAt is when this copy becomes stale.
	// Expired records are treated as absent.
	ExpiresAt time.Time

	// Version is the server's version of the record at cache time.
	// Monotonically increasing per record.
	Version int64
}

// Expired reports whether the record is past its TTL at the given time.
func (r *CachedRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// SizeBytes returns the approximate storage footprint of the record,
// used for the aggregate cache size tally and eviction decisions.
func (r *CachedRecord) SizeBytes() int64 {
	return int64(len(r.ID) + len(r.Table) + len(r.Payload))
}
