package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
)

// cacheStore implements driven.CacheStore.
type cacheStore struct {
	store *Store
}

var _ driven.CacheStore = (*cacheStore)(nil)

// Put stores or overwrites the record for its (table, id).
func (s *cacheStore) Put(ctx context.Context, record domain.CachedRecord) error {
	if record.Table == "" || record.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cached_records (record_table, record_id, payload, cached_at, expires_at, version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_table, record_id) DO UPDATE SET
			payload = excluded.payload,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at,
			version = excluded.version
	`, record.Table, record.ID, string(record.Payload),
		record.CachedAt.UTC().Format(time.RFC3339Nano),
		formatNullableTime(record.ExpiresAt),
		record.Version)

	if err != nil {
		return fmt.Errorf("saving cached record: %w", err)
	}
	return nil
}

// Get retrieves non-expired records. Expired rows are deleted lazily.
func (s *cacheStore) Get(ctx context.Context, table, id string) ([]domain.CachedRecord, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	// Lazy pruning of expired rows for the table.
	if _, err := s.store.db.ExecContext(ctx, `
		DELETE FROM cached_records
		WHERE record_table = ? AND expires_at IS NOT NULL AND expires_at <= ?
	`, table, now); err != nil {
		return nil, fmt.Errorf("pruning expired records: %w", err)
	}

	query := `
		SELECT record_table, record_id, payload, cached_at, expires_at, version
		FROM cached_records
		WHERE record_table = ?
	`
	args := []any{table}
	if id != "" {
		query += " AND record_id = ?"
		args = append(args, id)
	}
	query += " ORDER BY record_id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cached records: %w", err)
	}
	defer rows.Close()

	var records []domain.CachedRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanCachedRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cached records: %w", err)
	}

	return records, nil
}

// Remove deletes the record for (table, id).
func (s *cacheStore) Remove(ctx context.Context, table, id string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM cached_records WHERE record_table = ? AND record_id = ?", table, id)
	if err != nil {
		return fmt.Errorf("deleting cached record: %w", err)
	}
	return nil
}

// SizeBytes returns the approximate total size of cached payloads.
func (s *cacheStore) SizeBytes(ctx context.Context) (int64, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(LENGTH(payload) + LENGTH(record_table) + LENGTH(record_id)), 0)
		FROM cached_records
	`)
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("summing cache size: %w", err)
	}
	return total, nil
}

// Evict removes oldest-CachedAt records until the store holds at most
// maxBytes.
func (s *cacheStore) Evict(ctx context.Context, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}

	total, err := s.SizeBytes(ctx)
	if err != nil {
		return err
	}

	for total > maxBytes {
		row := s.store.db.QueryRowContext(ctx, `
			SELECT record_table, record_id, LENGTH(payload) + LENGTH(record_table) + LENGTH(record_id)
			FROM cached_records
			ORDER BY cached_at ASC
			LIMIT 1
		`)
		var table, id string
		var size int64
		if err := row.Scan(&table, &id, &size); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("finding eviction candidate: %w", err)
		}
		if err := s.Remove(ctx, table, id); err != nil {
			return err
		}
		total -= size
	}
	return nil
}

// scanCachedRecord reads one row into a domain record.
func scanCachedRecord(rows *sql.Rows) (*domain.CachedRecord, error) {
	var record domain.CachedRecord
	var payload string
	var cachedAt string
	var expiresAt sql.NullString
	if err := rows.Scan(&record.Table, &record.ID, &payload, &cachedAt, &expiresAt, &record.Version); err != nil {
		return nil, fmt.Errorf("scanning cached record: %w", err)
	}

	record.Payload = []byte(payload)
	t, err := time.Parse(time.RFC3339Nano, cachedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing cached_at: %w", err)
	}
	record.CachedAt = t

	if expiresAt.Valid && expiresAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing expires_at: %w", err)
		}
		record.ExpiresAt = t
	}

	return &record, nil
}

// formatNullableTime converts a zero time to NULL.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
