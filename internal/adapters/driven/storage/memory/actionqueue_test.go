package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

func pendingAction(id string, priority domain.Priority, createdAt time.Time) domain.PendingAction {
	return domain.PendingAction{
		ID:        id,
		Table:     "tickets",
		RecordID:  "r-" + id,
		Type:      domain.ActionUpdate,
		Priority:  priority,
		CreatedAt: createdAt,
	}
}

func TestActionQueue_EnqueueAndGet(t *testing.T) {
	q := NewActionQueue()
	ctx := context.Background()

	action := pendingAction("a-1", domain.PriorityMedium, time.Now())
	require.NoError(t, q.Enqueue(ctx, action))

	got, err := q.Get(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, action, *got)

	_, err = q.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActionQueue_EnqueueRequiresID(t *testing.T) {
	q := NewActionQueue()

	err := q.Enqueue(context.Background(), domain.PendingAction{Table: "tickets"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestActionQueue_ListSortsAndFilters(t *testing.T) {
	q := NewActionQueue()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, q.Enqueue(ctx, pendingAction("low", domain.PriorityLow, base)))
	require.NoError(t, q.Enqueue(ctx, pendingAction("high", domain.PriorityHigh, base.Add(time.Minute))))
	require.NoError(t, q.Enqueue(ctx, pendingAction("medium", domain.PriorityMedium, base)))

	actions, err := q.List(ctx, domain.ActionFilter{})
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, "high", actions[0].ID)
	assert.Equal(t, "medium", actions[1].ID)
	assert.Equal(t, "low", actions[2].ID)

	actions, err = q.List(ctx, domain.ActionFilter{Priorities: []domain.Priority{domain.PriorityLow}})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "low", actions[0].ID)
}

func TestActionQueue_ListExcludesFailed(t *testing.T) {
	q := NewActionQueue()
	ctx := context.Background()

	failed := pendingAction("a-1", domain.PriorityMedium, time.Now())
	failed.Failed = true
	require.NoError(t, q.Enqueue(ctx, failed))

	actions, err := q.List(ctx, domain.ActionFilter{})
	require.NoError(t, err)
	assert.Empty(t, actions)

	actions, err = q.List(ctx, domain.ActionFilter{IncludeFailed: true})
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestActionQueue_Update(t *testing.T) {
	q := NewActionQueue()
	ctx := context.Background()

	action := pendingAction("a-1", domain.PriorityMedium, time.Now())
	require.NoError(t, q.Enqueue(ctx, action))

	action.RetryCount = 2
	require.NoError(t, q.Update(ctx, action))

	got, err := q.Get(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)

	err = q.Update(ctx, pendingAction("missing", domain.PriorityMedium, time.Now()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActionQueue_RemoveAndCount(t *testing.T) {
	q := NewActionQueue()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, pendingAction("a-1", domain.PriorityMedium, time.Now())))
	require.NoError(t, q.Enqueue(ctx, pendingAction("a-2", domain.PriorityMedium, time.Now())))

	count, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, q.Remove(ctx, "a-1"))

	count, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Removing an absent action is a no-op.
	require.NoError(t, q.Remove(ctx, "a-1"))
}
