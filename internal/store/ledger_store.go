package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/jackc/pgx/v5"
)

// paymentTarget is the registration, and optionally the installment, a
// Stripe payment intent belongs to.
type paymentTarget struct {
	organizerID   string
	eventID       string
	reg           domain.Registration
	installmentID string
	instStatus    domain.InstallmentStatus
	instAmount    float64
}

// lockPaymentTarget resolves the intent to an installment first (metadata id,
// then intent id) and falls back to a single-payment registration.
func lockPaymentTarget(ctx context.Context, tx pgx.Tx, ev domain.PaymentEvent) (*paymentTarget, error) {
	var pt paymentTarget
	var regID string

	err := tx.QueryRow(ctx, `
		SELECT id, registration_id, status, amount
		FROM payment_installments
		WHERE ($1 <> '' AND id::text = $1) OR ($2 <> '' AND stripe_payment_intent_id = $2)
		ORDER BY installment_number
		LIMIT 1
		FOR UPDATE`, ev.InstallmentID, ev.PaymentIntentID,
	).Scan(&pt.installmentID, &regID, &pt.instStatus, &pt.instAmount)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("locking installment: %w", err)
	}

	where := "r.id = $1"
	arg := regID
	switch {
	case regID != "":
	case ev.RegistrationID != "":
		arg = ev.RegistrationID
	case ev.PaymentIntentID != "":
		where = "r.stripe_payment_intent_id = $1"
		arg = ev.PaymentIntentID
	default:
		return nil, domain.ErrRegistrationNotFound
	}

	r, err := scanRegistration(tx.QueryRow(ctx, `SELECT `+registrationColumns+registrationFrom+`
		WHERE `+where+` FOR UPDATE OF r`, arg))
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("locking registration: %w", err)
	}
	pt.reg = *r
	pt.eventID = r.EventID

	if err := tx.QueryRow(ctx, `SELECT organizer_id FROM events WHERE id = $1`, r.EventID).Scan(&pt.organizerID); err != nil {
		return nil, fmt.Errorf("querying event organizer: %w", err)
	}
	return &pt, nil
}

type ledgerEntry struct {
	kind   domain.TransactionKind
	status domain.PaymentStatus
	gross  float64
	fee    float64
}

// recordTransaction inserts the ledger row for a Stripe event. It reports
// false when the event was already recorded.
func recordTransaction(ctx context.Context, tx pgx.Tx, ev domain.PaymentEvent, pt *paymentTarget, e ledgerEntry) (bool, error) {
	var installmentID *string
	if pt.installmentID != "" {
		installmentID = &pt.installmentID
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO payment_transactions (
			registration_id, installment_id, kind, quantity, gross_amount, fee_amount, net_amount,
			status, stripe_payment_intent_id, stripe_event_id, date_created
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (stripe_event_id) DO NOTHING`,
		pt.reg.ID, installmentID, string(e.kind), pt.reg.Quantity, engine.Round2(e.gross), engine.Round2(e.fee), engine.Round2(e.gross-e.fee),
		string(e.status), nullIfEmpty(ev.PaymentIntentID), ev.StripeEventID, ev.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// proportionalFee is the share of the registration's service fee that a
// partial amount carries.
func proportionalFee(reg domain.Registration, amount float64) float64 {
	if reg.TotalAmount <= 0 {
		return 0
	}
	return reg.ServiceFee * amount / reg.TotalAmount
}

func (pt *paymentTarget) result(applied bool, kind domain.TransactionKind, status domain.PaymentStatus) *domain.LedgerResult {
	return &domain.LedgerResult{
		Applied:        applied,
		OrganizerID:    pt.organizerID,
		EventID:        pt.eventID,
		RegistrationID: pt.reg.ID,
		InstallmentID:  pt.installmentID,
		PaymentStatus:  status,
		Kind:           kind,
	}
}

// ApplyPaymentSucceeded records a successful charge. An installment is
// marked paid and the registration becomes paid when no installment is
// left open. The first successful payment confirms the registration and
// counts its seats as sold. Replays of the same Stripe event are no-ops.
func (s *PostgresStore) ApplyPaymentSucceeded(ctx context.Context, ev domain.PaymentEvent) (*domain.LedgerResult, error) {
	var res *domain.LedgerResult
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		pt, err := lockPaymentTarget(ctx, tx, ev)
		if err != nil {
			return err
		}

		kind := domain.TransactionPayment
		gross := pt.reg.TotalAmount
		if pt.installmentID != "" {
			kind = domain.TransactionInstallment
			gross = pt.instAmount
		}
		if ev.Amount > 0 {
			gross = ev.Amount
		}

		alreadyPaid := pt.instStatus == domain.InstallmentPaid
		if pt.installmentID == "" {
			alreadyPaid = pt.reg.PaymentStatus == domain.PaymentPaid
		}
		if alreadyPaid {
			res = pt.result(false, kind, pt.reg.PaymentStatus)
			return nil
		}

		recorded, err := recordTransaction(ctx, tx, ev, pt, ledgerEntry{
			kind:   kind,
			status: domain.PaymentPaid,
			gross:  gross,
			fee:    proportionalFee(pt.reg, gross),
		})
		if err != nil {
			return err
		}
		if !recorded {
			res = pt.result(false, kind, pt.reg.PaymentStatus)
			return nil
		}

		status := domain.PaymentPaid
		if pt.installmentID != "" {
			if _, err := tx.Exec(ctx, `
				UPDATE payment_installments SET status = 'paid', paid_at = $2, stripe_payment_intent_id = COALESCE(stripe_payment_intent_id, NULLIF($3, ''))
				WHERE id = $1`, pt.installmentID, ev.OccurredAt, ev.PaymentIntentID); err != nil {
				return fmt.Errorf("marking installment paid: %w", err)
			}
			var open int
			if err := tx.QueryRow(ctx, `
				SELECT COUNT(*) FROM payment_installments
				WHERE registration_id = $1 AND status <> 'paid'`, pt.reg.ID,
			).Scan(&open); err != nil {
				return fmt.Errorf("counting open installments: %w", err)
			}
			if open > 0 {
				status = domain.PaymentPending
			}
		}

		if pt.reg.Status == domain.RegistrationPending {
			if pt.reg.TicketTypeID != nil {
				if _, err := tx.Exec(ctx, `
					UPDATE event_tickets SET quantity_sold = quantity_sold + $2,
						status = CASE WHEN quantity_sold + $2 >= quantity THEN 'sold_out' ELSE status END
					WHERE id = $1`, *pt.reg.TicketTypeID, pt.reg.Quantity); err != nil {
					return fmt.Errorf("incrementing quantity sold: %w", err)
				}
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE event_registrations
			SET payment_status = $2,
				status = CASE WHEN status = 'pending' THEN 'confirmed' ELSE status END,
				stripe_payment_intent_id = COALESCE(stripe_payment_intent_id, NULLIF($3, ''))
			WHERE id = $1`, pt.reg.ID, string(status), ev.PaymentIntentID); err != nil {
			return fmt.Errorf("updating registration payment: %w", err)
		}

		res = pt.result(true, kind, status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyPaymentFailed records a failed charge. A pending installment is
// marked failed; the registration keeps its state so the buyer can retry.
func (s *PostgresStore) ApplyPaymentFailed(ctx context.Context, ev domain.PaymentEvent) (*domain.LedgerResult, error) {
	var res *domain.LedgerResult
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		pt, err := lockPaymentTarget(ctx, tx, ev)
		if err != nil {
			return err
		}

		gross := pt.reg.TotalAmount
		if pt.installmentID != "" {
			gross = pt.instAmount
		}
		if ev.Amount > 0 {
			gross = ev.Amount
		}

		recorded, err := recordTransaction(ctx, tx, ev, pt, ledgerEntry{
			kind:   domain.TransactionFailure,
			status: domain.PaymentFailed,
			gross:  gross,
		})
		if err != nil {
			return err
		}
		if !recorded {
			res = pt.result(false, domain.TransactionFailure, pt.reg.PaymentStatus)
			return nil
		}

		if pt.installmentID != "" {
			if _, err := tx.Exec(ctx, `
				UPDATE payment_installments SET status = 'failed'
				WHERE id = $1 AND status IN ('pending', 'overdue')`, pt.installmentID); err != nil {
				return fmt.Errorf("marking installment failed: %w", err)
			}
		}

		res = pt.result(true, domain.TransactionFailure, pt.reg.PaymentStatus)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyRefund records a refunded charge: the registration is cancelled and
// marked refunded, its paid installments refunded and its seats released.
func (s *PostgresStore) ApplyRefund(ctx context.Context, ev domain.PaymentEvent) (*domain.LedgerResult, error) {
	var res *domain.LedgerResult
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		pt, err := lockPaymentTarget(ctx, tx, ev)
		if err != nil {
			return err
		}

		if pt.reg.PaymentStatus == domain.PaymentRefunded {
			res = pt.result(false, domain.TransactionRefund, pt.reg.PaymentStatus)
			return nil
		}

		gross := ev.Amount
		if gross <= 0 {
			gross = pt.reg.TotalAmount
		}

		recorded, err := recordTransaction(ctx, tx, ev, pt, ledgerEntry{
			kind:   domain.TransactionRefund,
			status: domain.PaymentRefunded,
			gross:  -gross,
			fee:    -proportionalFee(pt.reg, gross),
		})
		if err != nil {
			return err
		}
		if !recorded {
			res = pt.result(false, domain.TransactionRefund, pt.reg.PaymentStatus)
			return nil
		}

		if pt.reg.Status != domain.RegistrationPending && pt.reg.Status != domain.RegistrationCancelled && pt.reg.TicketTypeID != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE event_tickets SET quantity_sold = GREATEST(quantity_sold - $2, 0),
					status = CASE WHEN status = 'sold_out' THEN 'active' ELSE status END
				WHERE id = $1`, *pt.reg.TicketTypeID, pt.reg.Quantity); err != nil {
				return fmt.Errorf("releasing seats: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE payment_installments SET status = 'refunded'
			WHERE registration_id = $1 AND status = 'paid'`, pt.reg.ID); err != nil {
			return fmt.Errorf("refunding installments: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE event_registrations
			SET payment_status = 'refunded', status = 'cancelled',
				cancelled_at = COALESCE(cancelled_at, $2)
			WHERE id = $1`, pt.reg.ID, ev.OccurredAt); err != nil {
			return fmt.Errorf("refunding registration: %w", err)
		}

		res = pt.result(true, domain.TransactionRefund, domain.PaymentRefunded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
