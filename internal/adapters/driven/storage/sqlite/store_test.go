package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestNewStore_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(dir, "syncdesk.db"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "syncdesk.db"), store.Path())
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening the same database must not re-run migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestCacheStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	cache := store.CacheStore()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	record := domain.CachedRecord{
		ID:        "t-1",
		Table:     "tickets",
		Payload:   json.RawMessage(`{"subject":"printer jam"}`),
		CachedAt:  now,
		ExpiresAt: now.Add(time.Hour),
		Version:   3,
	}
	require.NoError(t, cache.Put(ctx, record))

	records, err := cache.Get(ctx, "tickets", "t-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.Payload, records[0].Payload)
	assert.Equal(t, int64(3), records[0].Version)
	assert.True(t, record.CachedAt.Equal(records[0].CachedAt))
	assert.True(t, record.ExpiresAt.Equal(records[0].ExpiresAt))
}

func TestCacheStore_UpsertReplacesExisting(t *testing.T) {
	store := setupTestStore(t)
	cache := store.CacheStore()
	ctx := context.Background()

	now := time.Now().UTC()
	record := domain.CachedRecord{
		ID: "t-1", Table: "tickets",
		Payload: json.RawMessage(`{"v":1}`), CachedAt: now, Version: 1,
	}
	require.NoError(t, cache.Put(ctx, record))

	record.Payload = json.RawMessage(`{"v":2}`)
	record.Version = 2
	require.NoError(t, cache.Put(ctx, record))

	records, err := cache.Get(ctx, "tickets", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].Version)
}

func TestCacheStore_ExpiredRowsPrunedOnGet(t *testing.T) {
	store := setupTestStore(t)
	cache := store.CacheStore()
	ctx := context.Background()

	now := time.Now().UTC()
	stale := domain.CachedRecord{
		ID: "t-1", Table: "tickets",
		Payload: json.RawMessage(`{}`), CachedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour), Version: 1,
	}
	fresh := domain.CachedRecord{
		ID: "t-2", Table: "tickets",
		Payload: json.RawMessage(`{}`), CachedAt: now,
		ExpiresAt: now.Add(time.Hour), Version: 1,
	}
	require.NoError(t, cache.Put(ctx, stale))
	require.NoError(t, cache.Put(ctx, fresh))

	records, err := cache.Get(ctx, "tickets", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "t-2", records[0].ID)

	// The expired row is gone from the size tally too.
	size, err := cache.SizeBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh.SizeBytes(), size)
}

func TestCacheStore_ZeroExpiryNeverPruned(t *testing.T) {
	store := setupTestStore(t)
	cache := store.CacheStore()
	ctx := context.Background()

	record := domain.CachedRecord{
		ID: "t-1", Table: "tickets",
		Payload: json.RawMessage(`{}`), CachedAt: time.Now().UTC().Add(-100 * time.Hour),
		Version: 1,
	}
	require.NoError(t, cache.Put(ctx, record))

	records, err := cache.Get(ctx, "tickets", "t-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].ExpiresAt.IsZero())
}

func TestCacheStore_EvictOldestFirst(t *testing.T) {
	store := setupTestStore(t)
	cache := store.CacheStore()
	ctx := context.Background()

	now := time.Now().UTC()
	old := domain.CachedRecord{
		ID: "old", Table: "tickets",
		Payload: json.RawMessage(`{"pad":"xxxxxxxxxxxxxxxx"}`),
		CachedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), Version: 1,
	}
	newer := domain.CachedRecord{
		ID: "new", Table: "tickets",
		Payload: json.RawMessage(`{"pad":"xxxxxxxxxxxxxxxx"}`),
		CachedAt: now, ExpiresAt: now.Add(time.Hour), Version: 1,
	}
	require.NoError(t, cache.Put(ctx, old))
	require.NoError(t, cache.Put(ctx, newer))

	require.NoError(t, cache.Evict(ctx, newer.SizeBytes()))

	records, err := cache.Get(ctx, "tickets", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].ID)
}

func TestActionQueue_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	queue := store.ActionQueue()
	ctx := context.Background()

	action := domain.PendingAction{
		ID:          "a-1",
		Table:       "tickets",
		RecordID:    "t-1",
		Type:        domain.ActionUpdate,
		Priority:    domain.PriorityHigh,
		Payload:     json.RawMessage(`{"status":"closed"}`),
		BaseVersion: 3,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, queue.Enqueue(ctx, action))

	got, err := queue.Get(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, action.Table, got.Table)
	assert.Equal(t, action.Type, got.Type)
	assert.Equal(t, action.Priority, got.Priority)
	assert.Equal(t, action.Payload, got.Payload)
	assert.Equal(t, action.BaseVersion, got.BaseVersion)
	assert.True(t, action.CreatedAt.Equal(got.CreatedAt))
	assert.False(t, got.Failed)

	_, err = queue.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActionQueue_ListOrdersAndFilters(t *testing.T) {
	store := setupTestStore(t)
	queue := store.ActionQueue()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, a := range []domain.PendingAction{
		{ID: "low", Table: "tickets", RecordID: "r1", Type: domain.ActionUpdate, Priority: domain.PriorityLow, CreatedAt: base},
		{ID: "high", Table: "tickets", RecordID: "r2", Type: domain.ActionCreate, Priority: domain.PriorityHigh, CreatedAt: base.Add(time.Minute)},
		{ID: "failed", Table: "tickets", RecordID: "r3", Type: domain.ActionDelete, Priority: domain.PriorityHigh, CreatedAt: base, Failed: true},
	} {
		require.NoError(t, queue.Enqueue(ctx, a))
	}

	actions, err := queue.List(ctx, domain.ActionFilter{})
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "high", actions[0].ID)
	assert.Equal(t, "low", actions[1].ID)

	actions, err = queue.List(ctx, domain.ActionFilter{IncludeFailed: true})
	require.NoError(t, err)
	assert.Len(t, actions, 3)

	actions, err = queue.List(ctx, domain.ActionFilter{Types: []domain.ActionType{domain.ActionCreate}})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "high", actions[0].ID)
}

func TestActionQueue_UpdatePersistsRetryState(t *testing.T) {
	store := setupTestStore(t)
	queue := store.ActionQueue()
	ctx := context.Background()

	action := domain.PendingAction{
		ID: "a-1", Table: "tickets", RecordID: "t-1",
		Type: domain.ActionUpdate, Priority: domain.PriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, queue.Enqueue(ctx, action))

	action.RetryCount = 4
	action.Failed = true
	action.BaseVersion = 9
	require.NoError(t, queue.Update(ctx, action))

	got, err := queue.Get(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.RetryCount)
	assert.True(t, got.Failed)
	assert.Equal(t, int64(9), got.BaseVersion)

	err = queue.Update(ctx, domain.PendingAction{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActionQueue_RemoveAndCount(t *testing.T) {
	store := setupTestStore(t)
	queue := store.ActionQueue()
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, domain.PendingAction{
		ID: "a-1", Table: "tickets", Type: domain.ActionCreate,
		Priority: domain.PriorityMedium, CreatedAt: time.Now().UTC(),
	}))

	count, err := queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, queue.Remove(ctx, "a-1"))

	count, err = queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSyncLogStore_RecordListPrune(t *testing.T) {
	store := setupTestStore(t)
	syncLog := store.SyncLogStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, syncLog.Record(ctx, domain.PassRecord{
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			EndedAt:   base.Add(time.Duration(i)*time.Minute + time.Second),
			Success:   i%2 == 0,
			Synced:    i,
			Error:     "",
		}))
	}

	records, err := syncLog.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].Synced)
	assert.Equal(t, 2, records[1].Synced)
	assert.False(t, records[0].Success)

	require.NoError(t, syncLog.Prune(ctx, 2))

	records, err = syncLog.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.ActionQueue().Enqueue(ctx, domain.PendingAction{
		ID: "a-1", Table: "tickets", Type: domain.ActionCreate,
		Priority: domain.PriorityMedium, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.ActionQueue().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
