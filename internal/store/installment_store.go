package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const installmentColumns = `
	i.id, i.registration_id, i.installment_number, i.total_installments, i.amount,
	i.due_date, i.status, i.stripe_payment_intent_id, i.paid_at, i.date_created`

func scanInstallment(row pgx.Row) (*domain.Installment, error) {
	var in domain.Installment
	err := row.Scan(
		&in.ID, &in.RegistrationID, &in.InstallmentNumber, &in.TotalInstallments, &in.Amount,
		&in.DueDate, &in.Status, &in.StripePaymentIntentID, &in.PaidAt, &in.DateCreated,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// NewRegistration is a pending purchase created by the installment checkout.
type NewRegistration struct {
	Ticket        *domain.Ticket
	Request       domain.InstallmentCheckoutRequest
	UnitPrice     float64
	ServiceFee    float64
	TotalAmount   float64
	PaymentMethod domain.PaymentMethod
}

// NewTicketCode returns a short human-readable registration code.
func NewTicketCode() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// CreateInstallmentRegistration stores a pending registration and its
// installment plan in one transaction. Seats are checked here but only
// counted as sold once a payment succeeds.
func (s *PostgresStore) CreateInstallmentRegistration(ctx context.Context, nr NewRegistration, plan []domain.InstallmentPlanItem) (*domain.Registration, []domain.Installment, error) {
	var regID string
	var installments []domain.Installment

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var available int
		err := tx.QueryRow(ctx, `
			SELECT quantity - quantity_sold FROM event_tickets
			WHERE id = $1 AND status = 'active'
			FOR UPDATE`, nr.Ticket.ID,
		).Scan(&available)
		if err != nil {
			if isNotFound(err) {
				return domain.ErrTicketNotFound
			}
			return fmt.Errorf("locking ticket: %w", err)
		}
		if available < nr.Request.Quantity {
			return domain.ErrSoldOut
		}

		n := len(plan)
		err = tx.QueryRow(ctx, `
			INSERT INTO event_registrations (
				ticket_code, event_id, ticket_type_id, participant_name, participant_email,
				participant_phone, quantity, unit_price, service_fee, total_amount, payment_amount,
				status, payment_status, payment_method, is_installment, installment_count
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending', 'pending', $12, TRUE, $13)
			RETURNING id`,
			NewTicketCode(), nr.Ticket.EventID, nr.Ticket.ID, nr.Request.ParticipantName, nr.Request.ParticipantEmail,
			nullIfEmpty(nr.Request.ParticipantPhone), nr.Request.Quantity, nr.UnitPrice, nr.ServiceFee,
			nr.TotalAmount, nr.TotalAmount-nr.ServiceFee, string(nr.PaymentMethod), n,
		).Scan(&regID)
		if err != nil {
			return fmt.Errorf("inserting registration: %w", err)
		}

		for _, item := range plan {
			inst, err := scanInstallment(tx.QueryRow(ctx, `
				INSERT INTO payment_installments (registration_id, installment_number, total_installments, amount, due_date)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, registration_id, installment_number, total_installments, amount,
					due_date, status, stripe_payment_intent_id, paid_at, date_created`,
				regID, item.Number, n, item.Amount, item.DueDate,
			))
			if err != nil {
				return fmt.Errorf("inserting installment %d: %w", item.Number, err)
			}
			installments = append(installments, *inst)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	reg, err := s.getRegistration(ctx, s.pool, "r.id = $1", regID)
	if err != nil {
		return nil, nil, err
	}
	return reg, installments, nil
}

// AttachPaymentIntent records the Stripe intent created for an installment.
func (s *PostgresStore) AttachPaymentIntent(ctx context.Context, installmentID, intentID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE payment_installments SET stripe_payment_intent_id = $2 WHERE id = $1
	`, installmentID, intentID)
	if err != nil {
		return fmt.Errorf("attaching payment intent: %w", err)
	}
	return nil
}

// ListRegistrationInstallments returns the plan of an organizer's registration.
func (s *PostgresStore) ListRegistrationInstallments(ctx context.Context, organizerID, registrationID string) ([]domain.Installment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+installmentColumns+`
		FROM payment_installments i
		JOIN event_registrations r ON r.id = i.registration_id
		JOIN events e ON e.id = r.event_id
		WHERE i.registration_id = $1 AND e.organizer_id = $2
		ORDER BY i.installment_number`, registrationID, organizerID)
	if err != nil {
		if isInvalidUUID(err) {
			return []domain.Installment{}, nil
		}
		return nil, fmt.Errorf("querying installments: %w", err)
	}
	defer rows.Close()

	installments := []domain.Installment{}
	for rows.Next() {
		in, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning installment: %w", err)
		}
		installments = append(installments, *in)
	}
	return installments, rows.Err()
}

// MarkOverdueInstallments flags pending installments whose due date passed.
func (s *PostgresStore) MarkOverdueInstallments(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payment_installments SET status = 'overdue'
		WHERE status = 'pending' AND due_date < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("marking overdue installments: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InstallmentSummary aggregates the organizer's installments by health.
// Pending installments already past due count as overdue even before the
// sweeper flags them.
func (s *PostgresStore) InstallmentSummary(ctx context.Context, organizerID string, now time.Time) (*domain.InstallmentSummary, error) {
	var sum domain.InstallmentSummary
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE i.status = 'pending' AND i.due_date >= $2),
			COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'pending' AND i.due_date >= $2), 0),
			COUNT(*) FILTER (WHERE i.status = 'overdue' OR (i.status = 'pending' AND i.due_date < $2)),
			COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'overdue' OR (i.status = 'pending' AND i.due_date < $2)), 0),
			COUNT(*) FILTER (WHERE i.status = 'paid'),
			COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'paid'), 0)
		FROM payment_installments i
		JOIN event_registrations r ON r.id = i.registration_id
		JOIN events e ON e.id = r.event_id
		WHERE e.organizer_id = $1`, organizerID, now,
	).Scan(&sum.PendingCount, &sum.PendingAmount, &sum.OverdueCount, &sum.OverdueAmount, &sum.PaidCount, &sum.PaidAmount)
	if err != nil {
		if isInvalidUUID(err) {
			return &sum, nil
		}
		return nil, fmt.Errorf("querying installment summary: %w", err)
	}
	return &sum, nil
}
