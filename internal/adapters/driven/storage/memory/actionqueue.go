package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
)

// Ensure ActionQueue implements the interface.
var _ driven.ActionQueue = (*ActionQueue)(nil)

// ActionQueue is an in-memory implementation of driven.ActionQueue.
type ActionQueue struct {
	mu      sync.RWMutex
	actions map[string]domain.PendingAction
}

// NewActionQueue creates a new in-memory action queue.
func NewActionQueue() *ActionQueue {
	return &ActionQueue{
		actions: make(map[string]domain.PendingAction),
	}
}

// Enqueue appends an action to the queue.
func (q *ActionQueue) Enqueue(_ context.Context, action domain.PendingAction) error {
	if action.ID == "" {
		return domain.ErrInvalidInput
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions[action.ID] = action
	return nil
}

// Get retrieves an action by ID.
func (q *ActionQueue) Get(_ context.Context, id string) (*domain.PendingAction, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	action, ok := q.actions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &action, nil
}

// List returns actions matching the filter in sync order.
func (q *ActionQueue) List(_ context.Context, filter domain.ActionFilter) ([]domain.PendingAction, error) {
	q.mu.RLock()
	var out []domain.PendingAction
	for _, action := range q.actions {
		if filter.Matches(&action) {
			out = append(out, action)
		}
	}
	q.mu.RUnlock()

	domain.SortActions(out)
	return out, nil
}

// Update persists changed retry state for an existing action.
func (q *ActionQueue) Update(_ context.Context, action domain.PendingAction) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.actions[action.ID]; !ok {
		return domain.ErrNotFound
	}
	q.actions[action.ID] = action
	return nil
}

// Remove deletes an action by ID.
func (q *ActionQueue) Remove(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.actions, id)
	return nil
}

// Count returns the number of queued actions, failed ones included.
func (q *ActionQueue) Count(_ context.Context) (int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.actions), nil
}
