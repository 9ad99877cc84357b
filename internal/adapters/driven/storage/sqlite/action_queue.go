package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
)

// actionQueue implements driven.ActionQueue.
type actionQueue struct {
	store *Store
}

var _ driven.ActionQueue = (*actionQueue)(nil)

// Enqueue appends an action to the queue.
func (q *actionQueue) Enqueue(ctx context.Context, action domain.PendingAction) error {
	if action.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := q.store.db.ExecContext(ctx, `
		INSERT INTO pending_actions
			(id, record_table, record_id, action_type, priority, payload, base_version, created_at, retry_count, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, action.ID, action.Table, action.RecordID, action.Type.String(), action.Priority.String(),
		nullString(string(action.Payload)), action.BaseVersion,
		action.CreatedAt.UTC().Format(time.RFC3339Nano),
		action.RetryCount, boolToInt(action.Failed))

	if err != nil {
		return fmt.Errorf("enqueueing action: %w", err)
	}
	return nil
}

// Get retrieves an action by ID.
func (q *actionQueue) Get(ctx context.Context, id string) (*domain.PendingAction, error) {
	row := q.store.db.QueryRowContext(ctx, `
		SELECT id, record_table, record_id, action_type, priority, payload, base_version, created_at, retry_count, failed
		FROM pending_actions WHERE id = ?
	`, id)

	action, err := scanPendingAction(row)
	if err != nil {
		return nil, err
	}
	return action, nil
}

// List returns actions matching the filter in sync order.
// The priority ranking and per-record CreatedAt ordering are applied in
// memory via domain.SortActions so the ordering rule lives in one place.
func (q *actionQueue) List(ctx context.Context, filter domain.ActionFilter) ([]domain.PendingAction, error) {
	rows, err := q.store.db.QueryContext(ctx, `
		SELECT id, record_table, record_id, action_type, priority, payload, base_version, created_at, retry_count, failed
		FROM pending_actions
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pending actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.PendingAction //nolint:prealloc // size unknown from query
	for rows.Next() {
		action, err := scanPendingActionRows(rows)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(action) {
			continue
		}
		actions = append(actions, *action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending actions: %w", err)
	}

	domain.SortActions(actions)
	return actions, nil
}

// Update persists changed retry state for an existing action.
func (q *actionQueue) Update(ctx context.Context, action domain.PendingAction) error {
	res, err := q.store.db.ExecContext(ctx, `
		UPDATE pending_actions
		SET payload = ?, base_version = ?, retry_count = ?, failed = ?
		WHERE id = ?
	`, nullString(string(action.Payload)), action.BaseVersion,
		action.RetryCount, boolToInt(action.Failed), action.ID)
	if err != nil {
		return fmt.Errorf("updating action: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Remove deletes an action by ID.
func (q *actionQueue) Remove(ctx context.Context, id string) error {
	_, err := q.store.db.ExecContext(ctx, "DELETE FROM pending_actions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting action: %w", err)
	}
	return nil
}

// Count returns the number of queued actions, failed ones included.
func (q *actionQueue) Count(ctx context.Context) (int, error) {
	row := q.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_actions")
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting actions: %w", err)
	}
	return count, nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPendingAction(row *sql.Row) (*domain.PendingAction, error) {
	action, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return action, err
}

func scanPendingActionRows(rows *sql.Rows) (*domain.PendingAction, error) {
	return scanAction(rows)
}

func scanAction(s scanner) (*domain.PendingAction, error) {
	var action domain.PendingAction
	var actionType, priority, createdAt string
	var payload sql.NullString
	var failed int
	if err := s.Scan(&action.ID, &action.Table, &action.RecordID, &actionType, &priority,
		&payload, &action.BaseVersion, &createdAt, &action.RetryCount, &failed); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning pending action: %w", err)
	}

	action.Type = domain.ActionType(actionType)
	action.Priority = domain.Priority(priority)
	if payload.Valid {
		action.Payload = []byte(payload.String)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	action.CreatedAt = t
	action.Failed = failed != 0

	return &action, nil
}
