// Package connectivity provides implementations of the connectivity
// monitor port: a probe-based monitor for production and a manually
// driven one for tests and forced-offline operation.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
	"github.com/custodia-labs/syncdesk-cli/internal/logger"
)

// Prober reports whether the backend is reachable right now.
type Prober interface {
	Healthy(ctx context.Context) bool
}

// Monitor derives a single authoritative offline boolean from repeated
// probes. A reading must hold for the dwell duration before the state
// flips, which damps rapid flapping and the sync storms it would cause.
type Monitor struct {
	prober   Prober
	interval time.Duration
	dwell    time.Duration

	mu             sync.Mutex
	offline        bool
	candidate      bool
	candidateSince time.Time
	subscribers    map[int]func(offline bool)
	nextSubID      int

	stopCh  chan struct{}
	running bool
}

// Ensure Monitor implements the interface.
var _ driven.ConnectivityMonitor = (*Monitor)(nil)

// NewMonitor creates a probe-based monitor. The monitor starts in the
// online state; the first probe corrects it if needed.
func NewMonitor(prober Prober, interval, dwell time.Duration) *Monitor {
	return &Monitor{
		prober:      prober,
		interval:    interval,
		dwell:       dwell,
		subscribers: make(map[int]func(offline bool)),
	}
}

// Start begins probing until the context is cancelled or Stop is
// called. Safe to call once per monitor.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.observe(!m.prober.Healthy(ctx))
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				m.observe(!m.prober.Healthy(ctx))
			}
		}
	}()
}

// Stop halts probing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
}

// IsOffline returns the current authoritative state.
func (m *Monitor) IsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// Subscribe registers a transition callback and delivers the current
// state once immediately.
func (m *Monitor) Subscribe(fn func(offline bool)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	current := m.offline
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// observe feeds one probe reading into the dwell state machine.
func (m *Monitor) observe(offline bool) {
	m.observeAt(offline, time.Now())
}

// observeAt applies a reading at an explicit instant. The state only
// flips after the reading has held for the full dwell window.
func (m *Monitor) observeAt(offline bool, now time.Time) {
	m.mu.Lock()

	if offline == m.offline {
		// Reading agrees with the authoritative state; abandon any
		// half-baked candidate transition.
		m.candidateSince = time.Time{}
		m.mu.Unlock()
		return
	}

	if m.candidateSince.IsZero() || m.candidate != offline {
		m.candidate = offline
		m.candidateSince = now
		m.mu.Unlock()
		return
	}

	if now.Sub(m.candidateSince) < m.dwell {
		m.mu.Unlock()
		return
	}

	// Dwell satisfied: flip and notify.
	m.offline = offline
	m.candidateSince = time.Time{}
	fns := make([]func(bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	logger.Info("Connectivity: offline=%v", offline)
	for _, fn := range fns {
		fn(offline)
	}
}
