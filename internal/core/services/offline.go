package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driving"
	"github.com/custodia-labs/syncdesk-cli/internal/logger"
)

// Initialisation states. An explicit state machine per instance keeps
// independent managers (e.g. in tests) from interfering with each other.
type initState int

const (
	stateUninitialized initState = iota
	stateInitializing
	stateReady
)

// Ensure OfflineManager implements the interface.
var _ driving.OfflineManager = (*OfflineManager)(nil)

// OfflineManager composes the cache store, the action queue and the
// connectivity monitor. It owns CachedRecord and PendingAction
// persistence exclusively; the sync engine goes through it.
type OfflineManager struct {
	cache   driven.CacheStore
	queue   driven.ActionQueue
	monitor driven.ConnectivityMonitor
	config  domain.Config

	mu          sync.Mutex
	state       initState
	lastSync    time.Time
	syncRunning bool

	subMu       sync.Mutex
	subscribers map[int]func(driving.OfflineStatus)
	nextSubID   int

	unsubscribeMonitor func()
}

// NewOfflineManager creates an offline manager over the given stores
// and monitor.
func NewOfflineManager(
	cache driven.CacheStore,
	queue driven.ActionQueue,
	monitor driven.ConnectivityMonitor,
	config domain.Config,
) *OfflineManager {
	return &OfflineManager{
		cache:       cache,
		queue:       queue,
		monitor:     monitor,
		config:      config,
		subscribers: make(map[int]func(driving.OfflineStatus)),
	}
}

// Initialize verifies the stores are usable and hooks connectivity
// transitions into status publication. Idempotent: a second call on a
// ready manager is a no-op.
func (m *OfflineManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state != stateUninitialized {
		m.mu.Unlock()
		return nil
	}
	m.state = stateInitializing
	m.mu.Unlock()

	// A failing size probe means the store cannot be opened at all.
	if _, err := m.cache.SizeBytes(ctx); err != nil {
		m.mu.Lock()
		m.state = stateUninitialized
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if _, err := m.queue.Count(ctx); err != nil {
		m.mu.Lock()
		m.state = stateUninitialized
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	m.unsubscribeMonitor = m.monitor.Subscribe(func(offline bool) {
		logger.Info("Connectivity changed: offline=%v", offline)
		m.publish(context.Background())
	})

	m.mu.Lock()
	m.state = stateReady
	m.mu.Unlock()
	return nil
}

// Close detaches the manager from the connectivity monitor.
func (m *OfflineManager) Close() {
	if m.unsubscribeMonitor != nil {
		m.unsubscribeMonitor()
		m.unsubscribeMonitor = nil
	}
}

// IsOffline delegates to the connectivity monitor.
func (m *OfflineManager) IsOffline() bool {
	return m.monitor.IsOffline()
}

// GetCachedData serves records from the cache store. Never calls the
// network.
func (m *OfflineManager) GetCachedData(ctx context.Context, table, id string) ([]domain.CachedRecord, error) {
	if err := m.ensureReady(); err != nil {
		return nil, err
	}
	records, err := m.cache.Get(ctx, table, id)
	if err != nil {
		return nil, fmt.Errorf("get cached data: %w", err)
	}
	return records, nil
}

// EnqueueAction appends a pending action, assigning ID and CreatedAt
// when missing, then republishes the offline status.
func (m *OfflineManager) EnqueueAction(ctx context.Context, action domain.PendingAction) (string, error) {
	if err := m.ensureReady(); err != nil {
		return "", err
	}
	if action.Table == "" || !action.Type.IsValid() {
		return "", fmt.Errorf("%w: action needs a table and a valid type", domain.ErrInvalidInput)
	}
	if action.Priority == "" {
		action.Priority = domain.PriorityMedium
	}
	if !action.Priority.IsValid() {
		return "", fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, action.Priority)
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	if err := m.queue.Enqueue(ctx, action); err != nil {
		return "", fmt.Errorf("enqueue action: %w", err)
	}
	logger.Debug("Enqueued %s action %s for %s/%s", action.Type, action.ID, action.Table, action.RecordID)

	m.publish(ctx)
	return action.ID, nil
}

// PendingActions returns queued actions matching the filter in sync
// order.
func (m *OfflineManager) PendingActions(ctx context.Context, filter domain.ActionFilter) ([]domain.PendingAction, error) {
	if err := m.ensureReady(); err != nil {
		return nil, err
	}
	actions, err := m.queue.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	return actions, nil
}

// CacheServerRecord overwrites the cached copy of a record with
// server-confirmed data, stamping the configured TTL, then evicts down
// to the configured cache size.
func (m *OfflineManager) CacheServerRecord(ctx context.Context, table, id string, payload json.RawMessage, version int64) error {
	if err := m.ensureReady(); err != nil {
		return err
	}
	now := time.Now().UTC()
	record := domain.CachedRecord{
		ID:        id,
		Table:     table,
		Payload:   payload,
		CachedAt:  now,
		ExpiresAt: now.Add(m.config.CacheTTL),
		Version:   version,
	}
	if err := m.cache.Put(ctx, record); err != nil {
		return fmt.Errorf("cache record: %w", err)
	}
	if m.config.CacheMaxBytes > 0 {
		if err := m.cache.Evict(ctx, m.config.CacheMaxBytes); err != nil {
			logger.Warn("Cache eviction failed: %v", err)
		}
	}
	m.publish(ctx)
	return nil
}

// RemoveCachedRecord drops the cached copy of a record.
func (m *OfflineManager) RemoveCachedRecord(ctx context.Context, table, id string) error {
	if err := m.ensureReady(); err != nil {
		return err
	}
	if err := m.cache.Remove(ctx, table, id); err != nil {
		return fmt.Errorf("remove cached record: %w", err)
	}
	m.publish(ctx)
	return nil
}

// RemoveAction deletes a confirmed or discarded action.
func (m *OfflineManager) RemoveAction(ctx context.Context, id string) error {
	if err := m.ensureReady(); err != nil {
		return err
	}
	if err := m.queue.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove action: %w", err)
	}
	m.publish(ctx)
	return nil
}

// UpdateAction persists changed retry state for an action.
func (m *OfflineManager) UpdateAction(ctx context.Context, action domain.PendingAction) error {
	if err := m.ensureReady(); err != nil {
		return err
	}
	if err := m.queue.Update(ctx, action); err != nil {
		return fmt.Errorf("update action: %w", err)
	}
	return nil
}

// ResetAction clears an action's failed flag and retry count so the
// next automatic pass picks it up again.
func (m *OfflineManager) ResetAction(ctx context.Context, id string) error {
	if err := m.ensureReady(); err != nil {
		return err
	}
	action, err := m.queue.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get action: %w", err)
	}
	action.Failed = false
	action.RetryCount = 0
	if err := m.queue.Update(ctx, *action); err != nil {
		return fmt.Errorf("reset action: %w", err)
	}
	m.publish(ctx)
	return nil
}

// Status recomputes the aggregate offline status from the stores and
// monitor.
func (m *OfflineManager) Status(ctx context.Context) (driving.OfflineStatus, error) {
	if err := m.ensureReady(); err != nil {
		return driving.OfflineStatus{}, err
	}
	return m.computeStatus(ctx)
}

// OnStatusChange registers a status callback. The returned function
// unsubscribes.
func (m *OfflineManager) OnStatusChange(fn func(driving.OfflineStatus)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subscribers, id)
	}
}

// NoteSyncState records a pass starting or stopping and republishes.
func (m *OfflineManager) NoteSyncState(ctx context.Context, inProgress bool, lastSync time.Time) {
	m.mu.Lock()
	m.syncRunning = inProgress
	if !lastSync.IsZero() {
		m.lastSync = lastSync
	}
	m.mu.Unlock()
	m.publish(ctx)
}

func (m *OfflineManager) ensureReady() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateReady {
		return domain.ErrNotInitialized
	}
	return nil
}

func (m *OfflineManager) computeStatus(ctx context.Context) (driving.OfflineStatus, error) {
	count, err := m.queue.Count(ctx)
	if err != nil {
		return driving.OfflineStatus{}, fmt.Errorf("count pending actions: %w", err)
	}
	size, err := m.cache.SizeBytes(ctx)
	if err != nil {
		return driving.OfflineStatus{}, fmt.Errorf("cache size: %w", err)
	}

	m.mu.Lock()
	lastSync := m.lastSync
	running := m.syncRunning
	m.mu.Unlock()

	return driving.OfflineStatus{
		IsOffline:      m.monitor.IsOffline(),
		LastSync:       lastSync,
		PendingActions: count,
		CachedDataSize: size,
		SyncInProgress: running,
	}, nil
}

// publish recomputes the status and invokes subscribers synchronously.
// Subscribers must not block; they run on the caller's goroutine.
func (m *OfflineManager) publish(ctx context.Context) {
	status, err := m.computeStatus(ctx)
	if err != nil {
		logger.Warn("Failed to compute offline status: %v", err)
		return
	}

	m.subMu.Lock()
	fns := make([]func(driving.OfflineStatus), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}
