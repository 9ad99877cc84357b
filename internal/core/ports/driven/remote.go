package driven

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// SubmitResult is the server's answer to an accepted action.
type SubmitResult struct {
	// NewVersion is the record's version after the action was applied.
	NewVersion int64

	// ServerData is the record's payload after the action was applied.
	// Empty for deletes.
	ServerData json.RawMessage
}

// RemoteService is the boundary with the hosted record store. The
// engine issues one logical call per pending action; there is no
// batching, which keeps per-action retry independent.
//
// Submit returns a *domain.VersionConflictError when the server's
// current version does not match the action's base version, and errors
// wrapping domain.ErrTransport for network or server failures.
type RemoteService interface {
	Submit(ctx context.Context, action domain.PendingAction) (*SubmitResult, error)
}
