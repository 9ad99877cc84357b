// Package driving defines the caller-facing contracts of the engine:
// the offline manager, the sync engine and the status/result types the
// UI layer consumes. No other coupling exists between callers and the
// engine's internals.
package driving
