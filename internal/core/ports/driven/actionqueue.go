package driven

import (
	"context"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// ActionQueue persists pending actions. The queue must survive process
// restarts: an action acknowledged to the caller must still be present
// after an unclean shutdown.
type ActionQueue interface {
	// Enqueue appends an action to the queue.
	Enqueue(ctx context.Context, action domain.PendingAction) error

	// Get retrieves an action by ID.
	Get(ctx context.Context, id string) (*domain.PendingAction, error)

	// List returns actions matching the filter, ordered by priority
	// (high to low) then CreatedAt (oldest first).
	List(ctx context.Context, filter domain.ActionFilter) ([]domain.PendingAction, error)

	// Update persists changed retry state for an existing action.
	Update(ctx context.Context, action domain.PendingAction) error

	// Remove deletes an action by ID.
	Remove(ctx context.Context, id string) error

	// Count returns the number of queued actions, failed ones included.
	Count(ctx context.Context) (int, error)
}
