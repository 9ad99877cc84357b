package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driving"
	"github.com/custodia-labs/syncdesk-cli/internal/logger"
)

// Ensure SyncEngine implements the interface.
var _ driving.SyncEngine = (*SyncEngine)(nil)

// SyncEngine drains the pending action queue against the remote record
// service. One pass runs at a time; triggers while a pass is in flight
// fail fast with domain.ErrSyncInProgress.
type SyncEngine struct {
	offline  driving.OfflineManager
	remote   driven.RemoteService
	syncLog  driven.SyncLogStore
	resolver Resolver
	config   domain.Config

	mu             sync.Mutex
	running        bool
	lastSync       time.Time
	nextScheduled  time.Time
	totalSynced    int
	totalConflicts int
	totalDuration  time.Duration
	passCount      int
	history        []domain.PassRecord

	subMu        sync.Mutex
	nextSubID    int
	progressSubs map[int]func(driving.SyncProgress)
	completeSubs map[int]func(driving.SyncResult)
	errorSubs    map[int]func(error)
}

// NewSyncEngine creates a sync engine. The syncLog is optional; with a
// nil store, history lives only in memory.
func NewSyncEngine(
	offline driving.OfflineManager,
	remote driven.RemoteService,
	syncLog driven.SyncLogStore,
	resolver Resolver,
	config domain.Config,
) *SyncEngine {
	e := &SyncEngine{
		offline:      offline,
		remote:       remote,
		syncLog:      syncLog,
		resolver:     resolver,
		config:       config,
		progressSubs: make(map[int]func(driving.SyncProgress)),
		completeSubs: make(map[int]func(driving.SyncResult)),
		errorSubs:    make(map[int]func(error)),
	}
	e.loadHistory()
	return e
}

// loadHistory seeds in-memory history and aggregates from the durable
// sync log, so statistics survive restarts.
func (e *SyncEngine) loadHistory() {
	if e.syncLog == nil {
		return
	}
	records, err := e.syncLog.List(context.Background(), e.config.HistoryLimit)
	if err != nil {
		logger.Warn("Failed to load sync history: %v", err)
		return
	}
	e.history = records
	for i := range records {
		e.totalSynced += records[i].Synced
		e.totalConflicts += records[i].Conflicts
		e.totalDuration += records[i].Duration()
		e.passCount++
	}
	if len(records) > 0 {
		e.lastSync = records[0].EndedAt
	}
}

// Status returns a snapshot of the engine's aggregate state.
func (e *SyncEngine) Status() driving.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := driving.SyncStatus{
		IsRunning:              e.running,
		LastSync:               e.lastSync,
		NextScheduledSync:      e.nextScheduled,
		TotalActionsSynced:     e.totalSynced,
		TotalConflictsResolved: e.totalConflicts,
		History:                append([]domain.PassRecord(nil), e.history...),
	}
	if e.passCount > 0 {
		status.AverageSyncTime = e.totalDuration / time.Duration(e.passCount)
	}
	return status
}

// SyncNow runs one full unfiltered pass.
func (e *SyncEngine) SyncNow(ctx context.Context) (*driving.SyncResult, error) {
	return e.SyncWithFilter(ctx, domain.ActionFilter{})
}

// SyncWithFilter runs one pass restricted to actions matching the
// filter. Actions outside the filter remain queued untouched.
func (e *SyncEngine) SyncWithFilter(ctx context.Context, filter domain.ActionFilter) (*driving.SyncResult, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, domain.ErrSyncInProgress
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if e.offline.IsOffline() {
		// No partial attempt while offline.
		result := &driving.SyncResult{
			Success: false,
			Errors:  []driving.SyncError{{Message: domain.ErrOffline.Error()}},
		}
		e.emitComplete(*result)
		return result, nil
	}

	return e.runPass(ctx, filter)
}

// OnProgress registers a progress callback.
func (e *SyncEngine) OnProgress(fn func(driving.SyncProgress)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSubID
	e.nextSubID++
	e.progressSubs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.progressSubs, id)
	}
}

// OnComplete registers a completion callback.
func (e *SyncEngine) OnComplete(fn func(driving.SyncResult)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSubID
	e.nextSubID++
	e.completeSubs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.completeSubs, id)
	}
}

// OnError registers a pass-abort callback.
func (e *SyncEngine) OnError(fn func(error)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSubID
	e.nextSubID++
	e.errorSubs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.errorSubs, id)
	}
}

// SetNextScheduledSync records the periodic timer's next fire time.
// Called by the scheduler.
func (e *SyncEngine) SetNextScheduledSync(t time.Time) {
	e.mu.Lock()
	e.nextScheduled = t
	e.mu.Unlock()
}

// runPass drains the filtered queue. The caller holds the running
// guard. Already-applied actions are never rolled back; the remote
// service's operations are assumed idempotent.
func (e *SyncEngine) runPass(ctx context.Context, filter domain.ActionFilter) (*driving.SyncResult, error) {
	startedAt := time.Now()
	result := &driving.SyncResult{}

	e.offline.NoteSyncState(ctx, true, time.Time{})

	// Snapshot the queue. Actions enqueued while this pass runs are
	// picked up by the next pass, not this one.
	actions, err := e.offline.PendingActions(ctx, filter)
	if err != nil {
		err = fmt.Errorf("select pending actions: %w", err)
		e.abortPass(startedAt, result, err)
		return nil, err
	}

	logger.Info("Starting sync pass: %d actions", len(actions))
	completed := 0

	for i := range actions {
		if ctx.Err() != nil {
			e.abortPass(startedAt, result, ctx.Err())
			return nil, ctx.Err()
		}

		action := actions[i]
		aborted, procErr := e.processAction(ctx, &action, result)
		if procErr == nil {
			completed++
		}
		e.emitProgress(startedAt, len(actions), i+1, completed, result, action.ID)

		if aborted {
			err := fmt.Errorf("sync pass aborted: %w", domain.ErrOffline)
			e.abortPass(startedAt, result, err)
			return nil, err
		}
	}

	result.Success = result.FailedActions == 0
	e.finishPass(ctx, startedAt, result, "")
	e.emitComplete(*result)
	logger.Info("Sync pass complete: %d synced, %d failed, %d conflicts",
		result.SyncedActions, result.FailedActions, len(result.Conflicts))
	return result, nil
}

// processAction delivers one action. Returns aborted=true when the
// device went offline mid-pass and the remaining queue should be
// skipped. A non-nil error means the action failed this pass; it is
// already recorded in the result.
func (e *SyncEngine) processAction(ctx context.Context, action *domain.PendingAction, result *driving.SyncResult) (bool, error) {
	res, err := e.submit(ctx, *action)
	if err == nil {
		if applyErr := e.applyAccepted(ctx, action, res); applyErr != nil {
			// Local bookkeeping failed; the server already applied the
			// action, so surface the error but keep the pass going.
			result.Errors = append(result.Errors, driving.SyncError{
				ActionID: action.ID,
				Table:    action.Table,
				RecordID: action.RecordID,
				Message:  applyErr.Error(),
			})
			return false, applyErr
		}
		result.SyncedActions++
		return false, nil
	}

	var conflict *domain.VersionConflictError
	if errors.As(err, &conflict) {
		if resErr := e.resolveConflict(ctx, action, conflict, result); resErr != nil {
			return false, resErr
		}
		return false, nil
	}

	// Transport or server failure.
	failErr := e.recordTransportFailure(ctx, action, err, result)

	// Offline detected mid-pass aborts the remaining queue.
	if e.offline.IsOffline() {
		return true, failErr
	}
	return false, failErr
}

// submit sends one action with the per-action timeout.
func (e *SyncEngine) submit(ctx context.Context, action domain.PendingAction) (*driven.SubmitResult, error) {
	actionCtx, cancel := context.WithTimeout(ctx, e.config.ActionTimeout)
	defer cancel()
	return e.remote.Submit(actionCtx, action)
}

// applyAccepted commits a server-accepted action: the cache reflects
// the server's returned state and the action leaves the queue.
func (e *SyncEngine) applyAccepted(ctx context.Context, action *domain.PendingAction, res *driven.SubmitResult) error {
	switch action.Type {
	case domain.ActionDelete:
		if err := e.offline.RemoveCachedRecord(ctx, action.Table, action.RecordID); err != nil {
			return err
		}
	default:
		payload := res.ServerData
		if len(payload) == 0 {
			payload = action.Payload
		}
		if err := e.offline.CacheServerRecord(ctx, action.Table, action.RecordID, payload, res.NewVersion); err != nil {
			return err
		}
	}
	return e.offline.RemoveAction(ctx, action.ID)
}

// resolveConflict consults the resolver and applies its verdict. Every
// version mismatch produces a Conflict entry; a conflicting action
// never silently overwrites server data.
func (e *SyncEngine) resolveConflict(
	ctx context.Context,
	action *domain.PendingAction,
	vc *domain.VersionConflictError,
	result *driving.SyncResult,
) error {
	resolution := e.resolver.Resolve(action, vc.ServerVersion, vc.ServerData)
	entry := domain.Conflict{
		ActionID:      action.ID,
		Table:         action.Table,
		RecordID:      action.RecordID,
		Type:          resolution.Type,
		ServerVersion: vc.ServerVersion,
		ServerData:    vc.ServerData,
		ClientData:    action.Payload,
	}
	logger.Debug("Conflict on %s/%s: base %d vs server %d, verdict %s",
		action.Table, action.RecordID, action.BaseVersion, vc.ServerVersion, resolution.Type)

	var applyErr error
	switch resolution.Type {
	case domain.ConflictServerWins:
		applyErr = e.applyServerWins(ctx, action, vc)

	case domain.ConflictClientWins:
		// One rebased resubmit on top of the server's version. A
		// second mismatch means the record is moving under us; hold
		// the action for a manual decision.
		rebased := *action
		rebased.BaseVersion = vc.ServerVersion
		if len(resolution.Data) > 0 {
			rebased.Payload = resolution.Data
		}
		res, err := e.submit(ctx, rebased)
		if err != nil {
			entry.Type = domain.ConflictManual
			break
		}
		if applyErr = e.applyAccepted(ctx, &rebased, res); applyErr == nil {
			result.SyncedActions++
		}

	case domain.ConflictManual:
		// Held: the action stays queued until an external decision.
	}

	result.Conflicts = append(result.Conflicts, entry)
	e.mu.Lock()
	e.totalConflicts++
	e.mu.Unlock()
	return applyErr
}

// applyServerWins overwrites the local cache with the server's state
// and discards the local change.
func (e *SyncEngine) applyServerWins(ctx context.Context, action *domain.PendingAction, vc *domain.VersionConflictError) error {
	if len(vc.ServerData) > 0 {
		if err := e.offline.CacheServerRecord(ctx, action.Table, action.RecordID, vc.ServerData, vc.ServerVersion); err != nil {
			return err
		}
	} else {
		if err := e.offline.RemoveCachedRecord(ctx, action.Table, action.RecordID); err != nil {
			return err
		}
	}
	return e.offline.RemoveAction(ctx, action.ID)
}

// recordTransportFailure bumps the action's retry count. Past the
// ceiling the action is marked failed, surfaced in errors and excluded
// from automatic passes; otherwise it stays queued for the next pass.
// There is no immediate retry within the same pass.
func (e *SyncEngine) recordTransportFailure(
	ctx context.Context,
	action *domain.PendingAction,
	cause error,
	result *driving.SyncResult,
) error {
	action.RetryCount++
	terminal := action.RetryCount > e.config.RetryCeiling
	if terminal {
		action.Failed = true
		result.FailedActions++
		result.Errors = append(result.Errors, driving.SyncError{
			ActionID: action.ID,
			Table:    action.Table,
			RecordID: action.RecordID,
			Message:  fmt.Sprintf("%v: retries exhausted after %d attempts", domain.ErrActionFailed, action.RetryCount),
		})
		logger.Warn("Action %s failed terminally after %d attempts", action.ID, action.RetryCount)
	} else {
		logger.Debug("Action %s transport failure (attempt %d): %v", action.ID, action.RetryCount, cause)
	}

	if err := e.offline.UpdateAction(ctx, *action); err != nil {
		logger.Warn("Failed to persist retry state for %s: %v", action.ID, err)
	}
	if terminal {
		return fmt.Errorf("%w: %s", domain.ErrActionFailed, action.ID)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransport, cause)
}

// finishPass updates aggregates and durable history.
func (e *SyncEngine) finishPass(ctx context.Context, startedAt time.Time, result *driving.SyncResult, passErr string) {
	endedAt := time.Now()
	record := domain.PassRecord{
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Success:   passErr == "" && result.Success,
		Synced:    result.SyncedActions,
		Failed:    result.FailedActions,
		Conflicts: len(result.Conflicts),
		Error:     passErr,
	}

	e.mu.Lock()
	e.lastSync = endedAt
	e.totalSynced += result.SyncedActions
	e.totalDuration += record.Duration()
	e.passCount++
	e.history = append([]domain.PassRecord{record}, e.history...)
	if len(e.history) > e.config.HistoryLimit {
		e.history = e.history[:e.config.HistoryLimit]
	}
	e.mu.Unlock()

	e.offline.NoteSyncState(ctx, false, endedAt)

	if e.syncLog != nil {
		if err := e.syncLog.Record(ctx, record); err != nil {
			logger.Warn("Failed to record sync history: %v", err)
		}
		if err := e.syncLog.Prune(ctx, e.config.HistoryLimit); err != nil {
			logger.Warn("Failed to prune sync history: %v", err)
		}
	}
}

// abortPass records a pass-level failure and emits the error event.
// Already-applied actions stay committed.
func (e *SyncEngine) abortPass(startedAt time.Time, result *driving.SyncResult, cause error) {
	result.Success = false
	result.Errors = append(result.Errors, driving.SyncError{Message: cause.Error()})
	e.finishPass(context.Background(), startedAt, result, cause.Error())
	e.emitError(cause)
}

// emitProgress publishes a progress snapshot after each action, with a
// rolling estimate of remaining time.
func (e *SyncEngine) emitProgress(startedAt time.Time, total, processed, completed int, result *driving.SyncResult, actionID string) {
	progress := driving.SyncProgress{
		Total:         total,
		Completed:     completed,
		Failed:        result.FailedActions,
		InProgress:    processed < total,
		CurrentAction: actionID,
	}
	if total > 0 {
		progress.Percentage = float64(processed) / float64(total) * 100
	}
	if processed > 0 {
		perAction := time.Since(startedAt) / time.Duration(processed)
		progress.EstimatedTimeRemaining = perAction * time.Duration(total-processed)
	}

	e.subMu.Lock()
	fns := make([]func(driving.SyncProgress), 0, len(e.progressSubs))
	for _, fn := range e.progressSubs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(progress)
	}
}

func (e *SyncEngine) emitComplete(result driving.SyncResult) {
	e.subMu.Lock()
	fns := make([]func(driving.SyncResult), 0, len(e.completeSubs))
	for _, fn := range e.completeSubs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(result)
	}
}

func (e *SyncEngine) emitError(err error) {
	e.subMu.Lock()
	fns := make([]func(error), 0, len(e.errorSubs))
	for _, fn := range e.errorSubs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}
