package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// PostgresOutboxRepository manages pos_sync_outbox rows. Rows are claimed
// with a lease so several workers can poll the same table.
type PostgresOutboxRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresOutboxRepository(db *sql.DB) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{db: db, now: time.Now}
}

// Enqueue makes the order due for sync now, resetting attempts if a row
// already exists.
func (r *PostgresOutboxRepository) Enqueue(ctx context.Context, orderID string) error {
	now := r.now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pos_sync_outbox (id, order_id, status, attempts, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $4, $4)
		ON CONFLICT (order_id) DO UPDATE
		SET status = EXCLUDED.status, attempts = 0, next_attempt_at = EXCLUDED.next_attempt_at,
		    locked_until = NULL, last_error = NULL, updated_at = EXCLUDED.updated_at
	`, uuid.NewString(), orderID, models.OutboxStatusPending, now)
	if err != nil {
		return fmt.Errorf("enqueue pos sync: %w", err)
	}
	return nil
}

// ClaimDue leases up to limit due rows for lease.
func (r *PostgresOutboxRepository) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]models.OutboxEntry, error) {
	now := r.now()
	rows, err := r.db.QueryContext(ctx, `
		UPDATE pos_sync_outbox
		SET locked_until = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM pos_sync_outbox
			WHERE status = $3
			  AND next_attempt_at <= $2
			  AND (locked_until IS NULL OR locked_until < $2)
			ORDER BY next_attempt_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, order_id, status, attempts, next_attempt_at, last_error, created_at, updated_at
	`, now.Add(lease), now, models.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pos outbox: %w", err)
	}
	defer rows.Close()

	entries := make([]models.OutboxEntry, 0)
	for rows.Next() {
		var e models.OutboxEntry
		var lastErr sql.NullString
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Attempts, &e.NextAttemptAt, &lastErr, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.LastError = lastErr.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PostgresOutboxRepository) MarkDone(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pos_sync_outbox
		SET status = $1, attempts = attempts + 1, locked_until = NULL, last_error = NULL, updated_at = $2
		WHERE id = $3
	`, models.OutboxStatusDone, r.now(), id)
	if err != nil {
		return fmt.Errorf("mark pos outbox done: %w", err)
	}
	return nil
}

// Reschedule records a failed attempt and the time of the next one.
func (r *PostgresOutboxRepository) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pos_sync_outbox
		SET attempts = $1, next_attempt_at = $2, last_error = $3, locked_until = NULL, updated_at = $4
		WHERE id = $5
	`, attempts, next, lastErr, r.now(), id)
	if err != nil {
		return fmt.Errorf("reschedule pos outbox: %w", err)
	}
	return nil
}

// MarkFailed parks a row that ran out of attempts.
func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pos_sync_outbox
		SET status = $1, attempts = $2, last_error = $3, locked_until = NULL, updated_at = $4
		WHERE id = $5
	`, models.OutboxStatusFailed, attempts, lastErr, r.now(), id)
	if err != nil {
		return fmt.Errorf("mark pos outbox failed: %w", err)
	}
	return nil
}
