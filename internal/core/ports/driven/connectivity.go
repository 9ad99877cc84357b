package driven

// ConnectivityMonitor exposes the device's reachability state.
// Implementations debounce rapid flapping with a minimum dwell time so
// a single dropped probe does not trigger a sync storm.
type ConnectivityMonitor interface {
	// IsOffline returns the current authoritative state.
	IsOffline() bool

	// Subscribe registers a callback for state transitions. The
	// current state is delivered once immediately. The returned
	// function unsubscribes.
	Subscribe(fn func(offline bool)) (unsubscribe func())
}
