package services

import (
	"bytes"
	"encoding/json"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// Resolver adjudicates a version conflict between a pending action and
// the server's current state. Implementations must be pure: no I/O, no
// mutation of the inputs.
type Resolver interface {
	Resolve(action *domain.PendingAction, serverVersion int64, serverData json.RawMessage) domain.Resolution
}

// NewResolver returns the resolver for a configured policy name.
// Unknown policies fall back to manual, the safe default.
func NewResolver(policy string) Resolver {
	switch policy {
	case domain.PolicyDefault:
		return DefaultResolver{}
	case domain.PolicyServerWins:
		return ServerWinsResolver{}
	case domain.PolicyClientWins:
		return ClientWinsResolver{}
	default:
		return ManualResolver{}
	}
}

// DefaultResolver applies the engine's standard policy:
//
//  1. If the action's payload and the server payload are JSON objects
//     with non-overlapping fields, merge them and let the merged
//     document win (client_wins with merged data).
//  2. If the action is a delete and the server record still exists, the
//     server wins; concurrently modified data is never destroyed.
//  3. Otherwise the conflict is surfaced as manual and the action is
//     held in the queue.
type DefaultResolver struct{}

var _ Resolver = DefaultResolver{}

// Resolve implements Resolver.
func (DefaultResolver) Resolve(action *domain.PendingAction, _ int64, serverData json.RawMessage) domain.Resolution {
	if action.Type == domain.ActionDelete {
		if len(serverData) > 0 {
			return domain.Resolution{Type: domain.ConflictServerWins}
		}
		// Record already gone server-side; the delete is a no-op win.
		return domain.Resolution{Type: domain.ConflictClientWins}
	}

	if merged, ok := mergeDisjoint(action.Payload, serverData); ok {
		return domain.Resolution{Type: domain.ConflictClientWins, Data: merged}
	}

	return domain.Resolution{Type: domain.ConflictManual}
}

// ServerWinsResolver always keeps the server's data and discards the
// local change.
type ServerWinsResolver struct{}

var _ Resolver = ServerWinsResolver{}

// Resolve implements Resolver.
func (ServerWinsResolver) Resolve(_ *domain.PendingAction, _ int64, _ json.RawMessage) domain.Resolution {
	return domain.Resolution{Type: domain.ConflictServerWins}
}

// ClientWinsResolver always resubmits the local change on top of the
// server's current version.
type ClientWinsResolver struct{}

var _ Resolver = ClientWinsResolver{}

// Resolve implements Resolver.
func (ClientWinsResolver) Resolve(action *domain.PendingAction, _ int64, _ json.RawMessage) domain.Resolution {
	return domain.Resolution{Type: domain.ConflictClientWins, Data: action.Payload}
}

// ManualResolver never resolves automatically; every conflict is held
// for an external decision.
type ManualResolver struct{}

var _ Resolver = ManualResolver{}

// Resolve implements Resolver.
func (ManualResolver) Resolve(_ *domain.PendingAction, _ int64, _ json.RawMessage) domain.Resolution {
	return domain.Resolution{Type: domain.ConflictManual}
}

// mergeDisjoint merges two JSON object payloads when their keys do not
// overlap. Returns false when either payload is not an object or any
// field appears in both.
func mergeDisjoint(client, server json.RawMessage) (json.RawMessage, bool) {
	var clientDoc, serverDoc map[string]json.RawMessage
	if err := json.Unmarshal(client, &clientDoc); err != nil {
		return nil, false
	}
	if err := json.Unmarshal(server, &serverDoc); err != nil {
		return nil, false
	}

	merged := make(map[string]json.RawMessage, len(clientDoc)+len(serverDoc))
	for k, v := range serverDoc {
		merged[k] = v
	}
	for k, v := range clientDoc {
		// Same field with the same bytes is not a real overlap.
		if sv, ok := serverDoc[k]; ok && !bytes.Equal(sv, v) {
			return nil, false
		}
		merged[k] = v
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, false
	}
	return out, true
}
