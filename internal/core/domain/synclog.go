package domain

import "time"

// PassRecord summarises one completed sync pass for durable history.
type PassRecord struct {
	// StartedAt and EndedAt bound the pass.
	StartedAt time.Time
	EndedAt   time.Time

	// Success is true when no action failed terminally.
	Success bool

	// Synced, Failed and Conflicts count the pass's outcomes.
	Synced    int
	Failed    int
	Conflicts int

	// Error holds the pass-level error message, if the pass aborted.
	Error string
}

// Duration returns the wall time the pass took.
func (r *PassRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
