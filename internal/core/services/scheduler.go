package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/logger"
)

// Scheduler re-triggers an unfiltered sync pass at a fixed interval
// whenever the device is online and no pass is already running. The
// next fire time is always at least one full interval after the end of
// the previous pass, so a degraded backend is never hot-looped.
type Scheduler struct {
	engine  *SyncEngine
	offline interface{ IsOffline() bool }
	config  domain.Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler driving the given engine.
func NewScheduler(engine *SyncEngine, offline interface{ IsOffline() bool }, config domain.Config) *Scheduler {
	return &Scheduler{
		engine:  engine,
		offline: offline,
		config:  config,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is
// called or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for an in-flight
// pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	next := time.Now().Add(s.config.SyncInterval)
	s.engine.SetNextScheduledSync(next)

	timer := time.NewTimer(s.config.SyncInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-timer.C:
			s.fire(ctx)
			next = time.Now().Add(s.config.SyncInterval)
			s.engine.SetNextScheduledSync(next)
			timer.Reset(s.config.SyncInterval)
		}
	}
}

// fire runs one scheduled pass. Skips quietly when offline or when a
// manually triggered pass is already in flight.
func (s *Scheduler) fire(ctx context.Context) {
	if s.offline.IsOffline() {
		logger.Debug("Scheduler: skipping pass, device offline")
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	result, err := s.engine.SyncNow(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		logger.Debug("Scheduler: pass already running, skipping")
	case err != nil:
		logger.Warn("Scheduler: pass aborted: %v", err)
	default:
		logger.Info("Scheduler: pass finished, %d synced, %d failed",
			result.SyncedActions, result.FailedActions)
	}
}
