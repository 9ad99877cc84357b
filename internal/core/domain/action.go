package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// ActionType identifies the kind of mutation a pending action carries.
type ActionType string

// Supported action types.
const (
	// ActionCreate inserts a new record.
	ActionCreate ActionType = "create"

	// ActionUpdate modifies an existing record.
	ActionUpdate ActionType = "update"

	// ActionDelete removes a record.
	ActionDelete ActionType = "delete"

	// ActionQuery replays a read against the server to refresh the
	// local cache for a record.
	ActionQuery ActionType = "query"
)

// IsValid returns true if the action type is recognised.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionCreate, ActionUpdate, ActionDelete, ActionQuery:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ActionType) String() string {
	return string(t)
}

// Priority orders pending actions within a sync pass.
type Priority string

// Available priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid returns true if the priority is recognised.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns the sort rank of the priority. Lower ranks sync first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// String returns the string representation.
func (p Priority) String() string {
	return string(p)
}

// PendingAction is a mutation made locally that the server has not yet
// confirmed. Actions survive process restarts; they are removed only when
// the server accepts them or a terminal conflict resolution discards them.
type PendingAction struct {
	// ID uniquely identifies the queued action.
	ID string

	// Table names the collection the action targets.
	Table string

	// RecordID identifies the record within the table.
	RecordID string

	// Type is the kind of mutation.
	Type ActionType

	// Priority controls ordering within a sync pass.
	Priority Priority

	// Payload is the mutation body, opaque to the engine.
	Payload json.RawMessage

	// BaseVersion is the record version the caller observed when the
	// mutation was made. A mismatch with the server's current version
	// is a conflict.
	BaseVersion int64

	// CreatedAt is when the action was enqueued. Actions for the same
	// (table, record) replay in CreatedAt order.
	CreatedAt time.Time

	// RetryCount is how many passes have failed to deliver this action.
	RetryCount int

	// Failed marks an action that exhausted its retry ceiling.
	// Failed actions are excluded from automatic passes until
	// explicitly re-enqueued.
	Failed bool
}

// ActionFilter restricts which pending actions a sync pass attempts.
// Zero-value fields match everything.
type ActionFilter struct {
	// Tables limits the pass to actions targeting these tables.
	Tables []string

	// Priorities limits the pass to actions with these priorities.
	Priorities []Priority

	// Types limits the pass to these action types.
	Types []ActionType

	// IncludeFailed also selects actions past their retry ceiling.
	// Automatic passes never set this.
	IncludeFailed bool
}

// Matches reports whether the action passes the filter. Failed actions
// only match when IncludeFailed is set.
func (f ActionFilter) Matches(a *PendingAction) bool {
	if a.Failed && !f.IncludeFailed {
		return false
	}
	if len(f.Tables) > 0 && !containsString(f.Tables, a.Table) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, a.Priority) {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, a.Type) {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsPriority(haystack []Priority, needle Priority) bool {
	for _, p := range haystack {
		if p == needle {
			return true
		}
	}
	return false
}

func containsType(haystack []ActionType, needle ActionType) bool {
	for _, t := range haystack {
		if t == needle {
			return true
		}
	}
	return false
}

// SortActions orders actions for a sync pass: priority high to low,
// then oldest CreatedAt first. The sort is stable so equal actions keep
// their enqueue order.
func SortActions(actions []PendingAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Priority.Rank() != actions[j].Priority.Rank() {
			return actions[i].Priority.Rank() < actions[j].Priority.Rank()
		}
		return actions[i].CreatedAt.Before(actions[j].CreatedAt)
	})
}
