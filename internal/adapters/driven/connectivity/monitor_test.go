package connectivity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_InitialState(t *testing.T) {
	assert.False(t, NewManual(false).IsOffline())
	assert.True(t, NewManual(true).IsOffline())
}

func TestManual_SubscribeDeliversCurrentStateImmediately(t *testing.T) {
	m := NewManual(true)

	var got []bool
	m.Subscribe(func(offline bool) { got = append(got, offline) })

	require.Len(t, got, 1)
	assert.True(t, got[0])
}

func TestManual_SetOfflineNotifiesOnTransitionsOnly(t *testing.T) {
	m := NewManual(false)

	var got []bool
	m.Subscribe(func(offline bool) { got = append(got, offline) })
	got = nil // drop the initial delivery

	m.SetOffline(true)
	m.SetOffline(true) // no transition, no event
	m.SetOffline(false)

	assert.Equal(t, []bool{true, false}, got)
}

func TestManual_Unsubscribe(t *testing.T) {
	m := NewManual(false)

	calls := 0
	unsubscribe := m.Subscribe(func(bool) { calls++ })
	unsubscribe()

	m.SetOffline(true)
	assert.Equal(t, 1, calls) // only the initial delivery
}

func TestMonitor_FlipsOnlyAfterDwell(t *testing.T) {
	m := NewMonitor(nil, time.Second, 2*time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// First offline reading starts the candidate window.
	m.observeAt(true, base)
	assert.False(t, m.IsOffline())

	// Still within the dwell window.
	m.observeAt(true, base.Add(time.Second))
	assert.False(t, m.IsOffline())

	// Dwell satisfied.
	m.observeAt(true, base.Add(2*time.Second))
	assert.True(t, m.IsOffline())
}

func TestMonitor_FlappingReadingResetsDwell(t *testing.T) {
	m := NewMonitor(nil, time.Second, 2*time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.observeAt(true, base)
	// A contradicting reading abandons the candidate.
	m.observeAt(false, base.Add(time.Second))

	// The next offline reading starts a fresh window; two seconds from
	// the original reading is not enough any more.
	m.observeAt(true, base.Add(1500*time.Millisecond))
	m.observeAt(true, base.Add(2*time.Second))
	assert.False(t, m.IsOffline())

	m.observeAt(true, base.Add(3500*time.Millisecond))
	assert.True(t, m.IsOffline())
}

func TestMonitor_RecoveryAlsoDwells(t *testing.T) {
	m := NewMonitor(nil, time.Second, 2*time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.observeAt(true, base)
	m.observeAt(true, base.Add(2*time.Second))
	require.True(t, m.IsOffline())

	m.observeAt(false, base.Add(3*time.Second))
	assert.True(t, m.IsOffline())

	m.observeAt(false, base.Add(5*time.Second))
	assert.False(t, m.IsOffline())
}

func TestMonitor_NotifiesSubscribersOnFlip(t *testing.T) {
	m := NewMonitor(nil, time.Second, time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var got []bool
	m.Subscribe(func(offline bool) { got = append(got, offline) })
	got = nil // drop the initial delivery

	m.observeAt(true, base)
	m.observeAt(true, base.Add(time.Second))

	assert.Equal(t, []bool{true}, got)
}

// tickingProber flips between healthy and unhealthy under test control.
type tickingProber struct {
	mu      sync.Mutex
	healthy bool
}

func (p *tickingProber) Healthy(_ context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy
}

func (p *tickingProber) set(healthy bool) {
	p.mu.Lock()
	p.healthy = healthy
	p.mu.Unlock()
}

func TestMonitor_StartProbesUntilStopped(t *testing.T) {
	prober := &tickingProber{healthy: true}
	m := NewMonitor(prober, 5*time.Millisecond, 10*time.Millisecond)

	m.Start(context.Background())
	defer m.Stop()

	require.Never(t, func() bool { return m.IsOffline() }, 50*time.Millisecond, 10*time.Millisecond)

	prober.set(false)
	require.Eventually(t, func() bool { return m.IsOffline() }, time.Second, 5*time.Millisecond)

	prober.set(true)
	require.Eventually(t, func() bool { return !m.IsOffline() }, time.Second, 5*time.Millisecond)
}
