// Package driven defines the interfaces the core services depend on:
// local storage for cached records and pending actions, the remote
// record service and the connectivity monitor. Adapters implement
// these; the core never imports an adapter.
package driven
