// Package services contains the engine's core logic: the offline
// manager, the sync engine with its pass algorithm, the conflict
// resolver strategies and the periodic scheduler. Services depend only
// on ports; adapters are wired in at composition time.
package services
