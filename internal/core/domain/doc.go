// Package domain contains the core entities of the offline sync engine:
// cached records, pending actions, conflicts, configuration and the
// domain error taxonomy. It has no dependencies on adapters or services.
package domain
