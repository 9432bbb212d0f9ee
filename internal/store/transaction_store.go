package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
)

const transactionColumns = `
	pt.id, pt.registration_id, pt.installment_id, e.id, e.title, e.organizer_id,
	r.participant_name, r.participant_email, pt.kind, pt.quantity,
	pt.gross_amount, pt.fee_amount, pt.net_amount, pt.status,
	pt.stripe_payment_intent_id, pt.stripe_event_id, pt.date_created`

const transactionFrom = `
	FROM payment_transactions pt
	JOIN event_registrations r ON r.id = pt.registration_id
	JOIN events e ON e.id = r.event_id`

func transactionWhere(f domain.TransactionFilter) (string, []interface{}, int) {
	conditions := []string{"e.organizer_id = $1"}
	args := []interface{}{f.OrganizerID}
	argIdx := 2

	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("pt.status = $%d", argIdx))
		args = append(args, f.Status)
		argIdx++
	}
	if f.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("e.id::text = $%d", argIdx))
		args = append(args, f.EventID)
		argIdx++
	}
	if f.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("pt.date_created >= $%d", argIdx))
		args = append(args, *f.DateFrom)
		argIdx++
	}
	if f.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("pt.date_created <= $%d", argIdx))
		args = append(args, *f.DateTo)
		argIdx++
	}
	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(pt.stripe_event_id ILIKE $%d OR pt.stripe_payment_intent_id ILIKE $%d OR r.participant_name ILIKE $%d OR r.participant_email ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+f.Search+"%")
		argIdx++
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, argIdx
}

// ListTransactions pages through the organizer's ledger, newest first.
func (s *PostgresStore) ListTransactions(ctx context.Context, f domain.TransactionFilter) (domain.Page[domain.Transaction], error) {
	page, limit := domain.NormalizePage(f.Page, f.Limit)
	where, args, argIdx := transactionWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*)`+transactionFrom+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.Transaction]{}, fmt.Errorf("counting transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + transactionFrom + where +
		fmt.Sprintf(" ORDER BY pt.date_created DESC, pt.id LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, domain.Offset(page, limit))

	txns, err := s.queryTransactions(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.Transaction]{}, err
	}
	return domain.NewPage(txns, total, page, limit), nil
}

// ExportTransactions returns up to maxRows ledger rows matching f.
func (s *PostgresStore) ExportTransactions(ctx context.Context, f domain.TransactionFilter, maxRows int) ([]domain.Transaction, error) {
	where, args, argIdx := transactionWhere(f)
	query := `SELECT ` + transactionColumns + transactionFrom + where +
		fmt.Sprintf(" ORDER BY pt.date_created DESC, pt.id LIMIT $%d", argIdx)
	args = append(args, maxRows)
	return s.queryTransactions(ctx, query, args...)
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.ID, &t.RegistrationID, &t.InstallmentID, &t.EventID, &t.EventTitle, &t.OrganizerID,
			&t.ParticipantName, &t.ParticipantEmail, &t.Kind, &t.Quantity,
			&t.GrossAmount, &t.FeeAmount, &t.NetAmount, &t.Status,
			&t.StripePaymentIntentID, &t.StripeEventID, &t.DateCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txns, nil
}

// FinanceOverview aggregates the organizer's registrations created in
// [from, to] by payment status.
func (s *PostgresStore) FinanceOverview(ctx context.Context, organizerID string, from, to time.Time) (*domain.FinanceOverview, error) {
	o := domain.FinanceOverview{From: from, To: to}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(r.total_amount) FILTER (WHERE r.payment_status = 'paid'), 0),
			COALESCE(SUM(r.service_fee) FILTER (WHERE r.payment_status = 'paid'), 0),
			COALESCE(SUM(r.payment_amount) FILTER (WHERE r.payment_status = 'paid'), 0),
			COUNT(*) FILTER (WHERE r.payment_status = 'paid'),
			COALESCE(SUM(r.quantity) FILTER (WHERE r.payment_status = 'paid'), 0),
			COALESCE(SUM(r.total_amount) FILTER (WHERE r.payment_status = 'pending'), 0),
			COUNT(*) FILTER (WHERE r.payment_status = 'pending'),
			COALESCE(SUM(r.total_amount) FILTER (WHERE r.payment_status = 'refunded'), 0),
			COUNT(*) FILTER (WHERE r.payment_status = 'refunded')
		FROM event_registrations r
		JOIN events e ON e.id = r.event_id
		WHERE e.organizer_id = $1 AND r.date_created BETWEEN $2 AND $3`,
		organizerID, from, to,
	).Scan(
		&o.GrossRevenue, &o.ServiceFees, &o.NetRevenue, &o.PaidCount, &o.TicketsSold,
		&o.PendingAmount, &o.PendingCount, &o.RefundedTotal, &o.RefundedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("querying finance overview: %w", err)
	}
	if o.PaidCount > 0 {
		o.AverageTicket = o.GrossRevenue / float64(o.PaidCount)
	}
	return &o, nil
}

// Payouts summarises paid registrations per event.
func (s *PostgresStore) Payouts(ctx context.Context, organizerID string) ([]domain.Payout, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.title,
			COALESCE(SUM(r.total_amount), 0), COALESCE(SUM(r.service_fee), 0),
			COALESCE(SUM(r.payment_amount), 0), COALESCE(SUM(r.quantity), 0)
		FROM events e
		JOIN event_registrations r ON r.event_id = e.id AND r.payment_status = 'paid'
		WHERE e.organizer_id = $1
		GROUP BY e.id, e.title, e.start_date
		ORDER BY e.start_date DESC`, organizerID)
	if err != nil {
		return nil, fmt.Errorf("querying payouts: %w", err)
	}
	defer rows.Close()

	payouts := []domain.Payout{}
	for rows.Next() {
		var p domain.Payout
		if err := rows.Scan(&p.EventID, &p.EventTitle, &p.Gross, &p.Fees, &p.Net, &p.TicketsSold); err != nil {
			return nil, fmt.Errorf("scanning payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}
