package connectivity

import (
	"sync"

	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
)

// Ensure Manual implements the interface.
var _ driven.ConnectivityMonitor = (*Manual)(nil)

// Manual is a connectivity monitor driven by explicit SetOffline calls.
// It backs tests and the --offline CLI flag; no debouncing applies.
type Manual struct {
	mu          sync.Mutex
	offline     bool
	subscribers map[int]func(offline bool)
	nextSubID   int
}

// NewManual creates a manual monitor in the given initial state.
func NewManual(offline bool) *Manual {
	return &Manual{
		offline:     offline,
		subscribers: make(map[int]func(offline bool)),
	}
}

// IsOffline returns the current state.
func (m *Manual) IsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// SetOffline flips the state and notifies subscribers on transitions.
func (m *Manual) SetOffline(offline bool) {
	m.mu.Lock()
	if m.offline == offline {
		m.mu.Unlock()
		return
	}
	m.offline = offline
	fns := make([]func(bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(offline)
	}
}

// Subscribe registers a transition callback and delivers the current
// state once immediately.
func (m *Manual) Subscribe(fn func(offline bool)) func() {
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
