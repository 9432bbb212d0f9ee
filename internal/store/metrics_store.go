package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
)

// PeriodStats totals the organizer's paid registrations created in
// [from, to], optionally for a single event.
func (s *PostgresStore) PeriodStats(ctx context.Context, organizerID, eventID string, from, to time.Time) (*domain.PeriodStats, error) {
	query := `
		SELECT
			COALESCE(SUM(r.payment_amount), 0),
			COUNT(*),
			COUNT(DISTINCT LOWER(r.participant_email)),
			COUNT(*) FILTER (WHERE r.status IN ('confirmed', 'checked_in')),
			COUNT(*) FILTER (WHERE r.check_in_date IS NOT NULL)
		FROM event_registrations r
		JOIN events e ON e.id = r.event_id
		WHERE e.organizer_id = $1 AND r.payment_status = 'paid'
			AND r.date_created BETWEEN $2 AND $3`
	args := []interface{}{organizerID, from, to}

	if eventID != "" {
		query += " AND e.id::text = $4"
		args = append(args, eventID)
	}

	var st domain.PeriodStats
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&st.Revenue, &st.TicketsSold, &st.Participants, &st.Confirmed, &st.CheckedIn,
	)
	if err != nil {
		return nil, fmt.Errorf("querying period stats: %w", err)
	}
	return &st, nil
}

// TicketsTotal sums the capacity of the organizer's tickets.
func (s *PostgresStore) TicketsTotal(ctx context.Context, organizerID, eventID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(t.quantity), 0)
		FROM event_tickets t JOIN events e ON e.id = t.event_id
		WHERE e.organizer_id = $1`
	args := []interface{}{organizerID}

	if eventID != "" {
		query += " AND e.id::text = $2"
		args = append(args, eventID)
	}

	var total int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("querying ticket capacity: %w", err)
	}
	return total, nil
}
