package driven

import (
	"context"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

// SyncLogStore persists sync pass history for crash recovery and
// long-term statistics.
type SyncLogStore interface {
	// Record appends a pass summary.
	Record(ctx context.Context, record domain.PassRecord) error

	// List returns the most recent pass records, newest first.
	List(ctx context.Context, limit int) ([]domain.PassRecord, error)

	// Prune removes records beyond the retention limit, keeping the
	// most recent 'keep' entries.
	Prune(ctx context.Context, keep int) error
}
