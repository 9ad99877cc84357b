// Package memory provides in-memory implementations of the storage
// ports. They back tests and the degraded mode used when the durable
// store cannot be opened; nothing here survives a restart.
package memory
