package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/event-console/internal/domain"
)

// InsertDeadLetter parks a Stripe event. A second failure of the same event
// refreshes the attempt count and error and reopens the entry.
func (s *PostgresStore) InsertDeadLetter(ctx context.Context, dl domain.DeadLetter) error {
	payload := dl.Payload
	if len(payload) == 0 {
		payload = []byte("null")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO stripe_dead_letters (stripe_event_id, event_type, account_id, attempts, reason, last_error, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stripe_event_id) DO UPDATE
		SET attempts = EXCLUDED.attempts,
			reason = EXCLUDED.reason,
			last_error = EXCLUDED.last_error,
			resolved_at = NULL
	`, dl.StripeEventID, dl.EventType, dl.AccountID, dl.Attempts, dl.Reason, dl.LastError, string(payload))
	if err != nil {
		return fmt.Errorf("inserting dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters returns parked events, newest first.
func (s *PostgresStore) ListDeadLetters(ctx context.Context, resolved bool, limit int) ([]domain.DeadLetter, error) {
	query := `
		SELECT id, stripe_event_id, event_type, account_id, attempts, reason, last_error, payload, created_at, resolved_at
		FROM stripe_dead_letters`
	if resolved {
		query += ` WHERE resolved_at IS NOT NULL`
	} else {
		query += ` WHERE resolved_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	defer rows.Close()

	letters := []domain.DeadLetter{}
	for rows.Next() {
		var dl domain.DeadLetter
		var payload []byte
		if err := rows.Scan(&dl.ID, &dl.StripeEventID, &dl.EventType, &dl.AccountID, &dl.Attempts,
			&dl.Reason, &dl.LastError, &payload, &dl.CreatedAt, &dl.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scanning dead letter: %w", err)
		}
		dl.Payload = payload
		letters = append(letters, dl)
	}
	return letters, rows.Err()
}
