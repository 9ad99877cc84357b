package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
)

// Ensure SyncLogStore implements the interface.
var _ driven.SyncLogStore = (*SyncLogStore)(nil)

// SyncLogStore is an in-memory implementation of driven.SyncLogStore.
type SyncLogStore struct {
	mu      sync.RWMutex
	records []domain.PassRecord // newest first
}

// NewSyncLogStore creates a new in-memory sync log store.
func NewSyncLogStore() *SyncLogStore {
	return &SyncLogStore{}
}

// Record appends a pass summary.
func (s *SyncLogStore) Record(_ context.Context, record domain.PassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]domain.PassRecord{record}, s.records...)
	return nil
}

// List returns the most recent pass records, newest first.
func (s *SyncLogStore) List(_ context.Context, limit int) ([]domain.PassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	return append([]domain.PassRecord(nil), s.records[:limit]...), nil
}

// Prune removes records beyond the retention limit.
func (s *SyncLogStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep >= 0 && len(s.records) > keep {
		s.records = s.records[:keep]
	}
	return nil
}
