package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// cacheKey identifies a record within the store.
type cacheKey struct {
	table string
	id    string
}

// CacheStore is an in-memory implementation of driven.CacheStore.
// Used by tests and as the degraded mode when durable storage cannot
// be opened.
type CacheStore struct {
	mu      sync.RWMutex
	records map[cacheKey]domain.CachedRecord
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		records: make(map[cacheKey]domain.CachedRecord),
	}
}

// Put stores or overwrites the record for its (table, id).
func (s *CacheStore) Put(_ context.Context, record domain.CachedRecord) error {
	if record.Table == "" || record.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[cacheKey{record.Table, record.ID}] = record
	return nil
}

// Get retrieves non-expired records. Expired records are dropped
// lazily on the way out.
func (s *CacheStore) Get(_ context.Context, table, id string) ([]domain.CachedRecord, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.CachedRecord
	for key, record := range s.records {
		if key.table != table {
			continue
		}
		if id != "" && key.id != id {
			continue
		}
		if record.Expired(now) {
			delete(s.records, key)
			continue
		}
		out = append(out, record)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Remove deletes the record for (table, id).
func (s *CacheStore) Remove(_ context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, cacheKey{table, id})
	return nil
}

// SizeBytes returns the approximate total size of cached payloads.
func (s *CacheStore) SizeBytes(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, record := range s.records {
		total += record.SizeBytes()
	}
	return total, nil
}

// Evict removes oldest-CachedAt records until the store holds at most
// maxBytes.
func (s *CacheStore) Evict(_ context.Context, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	keys := make([]cacheKey, 0, len(s.records))
	for key, record := range s.records {
		total += record.SizeBytes()
		keys = append(keys, key)
	}
	if total <= maxBytes {
		return nil
	}

	sort.Slice(keys, func(i, j int) bool {
		return s.records[keys[i]].CachedAt.Before(s.records[keys[j]].CachedAt)
	})

	for _, key := range keys {
		if total <= maxBytes {
			break
		}
		record := s.records[key]
		total -= record.SizeBytes()
		delete(s.records, key)
	}
	return nil
}
