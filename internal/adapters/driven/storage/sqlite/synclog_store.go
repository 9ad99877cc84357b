package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
)

// syncLogStore implements driven.SyncLogStore.
type syncLogStore struct {
	store *Store
}

var _ driven.SyncLogStore = (*syncLogStore)(nil)

// Record appends a pass summary.
func (s *syncLogStore) Record(ctx context.Context, record domain.PassRecord) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_history (started_at, ended_at, success, synced, failed, conflicts, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.StartedAt.UTC().Format(time.RFC3339Nano),
		record.EndedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(record.Success),
		record.Synced, record.Failed, record.Conflicts,
		nullString(record.Error))

	if err != nil {
		return fmt.Errorf("recording sync pass: %w", err)
	}
	return nil
}

// List returns the most recent pass records, newest first.
func (s *syncLogStore) List(ctx context.Context, limit int) ([]domain.PassRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT started_at, ended_at, success, synced, failed, conflicts, error
		FROM sync_history
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}
	defer rows.Close()

	var records []domain.PassRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.PassRecord
		var startedAt, endedAt string
		var success int
		var errMsg sql.NullString
		if err := rows.Scan(&startedAt, &endedAt, &success,
			&record.Synced, &record.Failed, &record.Conflicts, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning sync history: %w", err)
		}

		t, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		record.StartedAt = t
		t, err = time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at: %w", err)
		}
		record.EndedAt = t
		record.Success = success != 0
		record.Error = errMsg.String
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync history: %w", err)
	}

	return records, nil
}

// Prune removes records beyond the retention limit.
func (s *syncLogStore) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		return nil
	}

	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sync_history
		WHERE id NOT IN (
			SELECT id FROM sync_history ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning sync history: %w", err)
	}
	return nil
}
