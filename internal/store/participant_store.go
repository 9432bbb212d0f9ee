package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/jackc/pgx/v5"
)

const registrationColumns = `
	r.id, r.ticket_code, r.event_id, e.title, e.start_date, r.ticket_type_id, COALESCE(t.title, ''),
	r.user_id, r.participant_name, r.participant_email, r.participant_phone, r.participant_document,
	r.quantity, r.unit_price, r.service_fee, r.total_amount, r.payment_amount,
	r.status, r.payment_status, r.payment_method, r.stripe_payment_intent_id,
	r.is_installment, r.installment_count, r.check_in_date, r.checked_in_by,
	r.cancelled_at, r.cancelled_reason, r.date_created`

const registrationFrom = `
	FROM event_registrations r
	JOIN events e ON e.id = r.event_id
	LEFT JOIN event_tickets t ON t.id = r.ticket_type_id`

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var r domain.Registration
	err := row.Scan(
		&r.ID, &r.TicketCode, &r.EventID, &r.EventTitle, &r.EventStartDate, &r.TicketTypeID, &r.TicketTitle,
		&r.UserID, &r.ParticipantName, &r.ParticipantEmail, &r.ParticipantPhone, &r.ParticipantDocument,
		&r.Quantity, &r.UnitPrice, &r.ServiceFee, &r.TotalAmount, &r.PaymentAmount,
		&r.Status, &r.PaymentStatus, &r.PaymentMethod, &r.StripePaymentIntentID,
		&r.IsInstallment, &r.InstallmentCount, &r.CheckInDate, &r.CheckedInBy,
		&r.CancelledAt, &r.CancelledReason, &r.DateCreated,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// participantWhere builds the WHERE clause shared by listing, stats and export.
func participantWhere(f domain.ParticipantFilter) (string, []interface{}, int) {
	conditions := []string{"e.organizer_id = $1"}
	args := []interface{}{f.OrganizerID}
	argIdx := 2

	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(r.participant_name ILIKE $%d OR r.participant_email ILIKE $%d OR r.ticket_code ILIKE $%d OR r.participant_document ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+f.Search+"%")
		argIdx++
	}
	if len(f.EventIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.event_id::text = ANY($%d)", argIdx))
		args = append(args, f.EventIDs)
		argIdx++
	}
	if len(f.TicketTypeIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.ticket_type_id::text = ANY($%d)", argIdx))
		args = append(args, f.TicketTypeIDs)
		argIdx++
	}
	if len(f.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.status = ANY($%d)", argIdx))
		args = append(args, f.Statuses)
		argIdx++
	}
	if len(f.PaymentStatuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.payment_status = ANY($%d)", argIdx))
		args = append(args, f.PaymentStatuses)
		argIdx++
	}
	if f.CheckedIn != nil {
		if *f.CheckedIn {
			conditions = append(conditions, "r.check_in_date IS NOT NULL")
		} else {
			conditions = append(conditions, "r.check_in_date IS NULL")
		}
	}
	if f.CheckInFrom != nil {
		conditions = append(conditions, fmt.Sprintf("r.check_in_date >= $%d", argIdx))
		args = append(args, *f.CheckInFrom)
		argIdx++
	}
	if f.CheckInTo != nil {
		conditions = append(conditions, fmt.Sprintf("r.check_in_date <= $%d", argIdx))
		args = append(args, *f.CheckInTo)
		argIdx++
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, argIdx
}

func participantOrder(f domain.ParticipantFilter) string {
	col, ok := domain.ParticipantSort[f.SortField]
	if !ok {
		col = "r.date_created"
		f.SortDesc = true
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, r.id", col, dir)
}

// ListParticipants pages through the organizer's registrations.
func (s *PostgresStore) ListParticipants(ctx context.Context, f domain.ParticipantFilter) (domain.Page[domain.Registration], error) {
	page, limit := domain.NormalizePage(f.Page, f.Limit)
	where, args, argIdx := participantWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*)`+registrationFrom+where, args...).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return domain.NewPage[domain.Registration](nil, 0, page, limit), nil
		}
		return domain.Page[domain.Registration]{}, fmt.Errorf("counting participants: %w", err)
	}

	query := `SELECT ` + registrationColumns + registrationFrom + where + participantOrder(f) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, domain.Offset(page, limit))

	regs, err := s.queryRegistrations(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.Registration]{}, err
	}
	return domain.NewPage(regs, total, page, limit), nil
}

// ExportParticipants returns up to maxRows rows matching f in listing order.
func (s *PostgresStore) ExportParticipants(ctx context.Context, f domain.ParticipantFilter, maxRows int) ([]domain.Registration, error) {
	where, args, argIdx := participantWhere(f)
	query := `SELECT ` + registrationColumns + registrationFrom + where + participantOrder(f) +
		fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, maxRows)
	return s.queryRegistrations(ctx, query, args...)
}

func (s *PostgresStore) queryRegistrations(ctx context.Context, query string, args ...interface{}) ([]domain.Registration, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return []domain.Registration{}, nil
		}
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	regs := []domain.Registration{}
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		regs = append(regs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participants: %w", err)
	}
	return regs, nil
}

// ParticipantStats counts registrations matching f by status.
func (s *PostgresStore) ParticipantStats(ctx context.Context, f domain.ParticipantFilter) (*domain.ParticipantStats, error) {
	where, args, _ := participantWhere(f)

	var st domain.ParticipantStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE r.status = 'confirmed'),
			COUNT(*) FILTER (WHERE r.status = 'pending'),
			COUNT(*) FILTER (WHERE r.status = 'cancelled'),
			COUNT(*) FILTER (WHERE r.check_in_date IS NOT NULL)`+registrationFrom+where, args...,
	).Scan(&st.Total, &st.Confirmed, &st.Pending, &st.Cancelled, &st.CheckedIn)
	if err != nil {
		if isInvalidUUID(err) {
			return &st, nil
		}
		return nil, fmt.Errorf("querying participant stats: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) GetParticipant(ctx context.Context, organizerID, id string) (*domain.Registration, error) {
	return s.getRegistration(ctx, s.pool, "r.id = $1 AND e.organizer_id = $2", id, organizerID)
}

func (s *PostgresStore) getRegistration(ctx context.Context, q querier, where string, args ...interface{}) (*domain.Registration, error) {
	r, err := scanRegistration(q.QueryRow(ctx, `SELECT `+registrationColumns+registrationFrom+` WHERE `+where, args...))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying participant: %w", err)
	}
	return r, nil
}

// lockParticipant loads and row-locks an organizer's registration inside tx.
func lockParticipant(ctx context.Context, tx pgx.Tx, organizerID, id string) (*domain.Registration, error) {
	r, err := scanRegistration(tx.QueryRow(ctx, `SELECT `+registrationColumns+registrationFrom+`
		WHERE r.id = $1 AND e.organizer_id = $2
		FOR UPDATE OF r`, id, organizerID))
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("locking participant: %w", err)
	}
	return r, nil
}

// CheckIn marks the participant as arrived. Cancelled registrations and
// repeated check-ins are rejected.
func (s *PostgresStore) CheckIn(ctx context.Context, organizerID, id, by string, at time.Time) (*domain.Registration, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		r, err := lockParticipant(ctx, tx, organizerID, id)
		if err != nil {
			return err
		}
		if r.Status == domain.RegistrationCancelled {
			return domain.ErrRegistrationClosed
		}
		if r.CheckedIn() {
			return domain.ErrAlreadyCheckedIn
		}
		_, err = tx.Exec(ctx, `
			UPDATE event_registrations
			SET check_in_date = $2, checked_in_by = $3, status = 'checked_in'
			WHERE id = $1`, id, at, nullIfEmpty(by))
		if err != nil {
			return fmt.Errorf("updating check-in: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetParticipant(ctx, organizerID, id)
}

// UndoCheckIn clears the check-in and returns the registration to confirmed.
func (s *PostgresStore) UndoCheckIn(ctx context.Context, organizerID, id string) (*domain.Registration, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		r, err := lockParticipant(ctx, tx, organizerID, id)
		if err != nil {
			return err
		}
		if !r.CheckedIn() {
			return domain.ErrNotCheckedIn
		}
		_, err = tx.Exec(ctx, `
			UPDATE event_registrations
			SET check_in_date = NULL, checked_in_by = NULL, status = 'confirmed'
			WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("undoing check-in: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetParticipant(ctx, organizerID, id)
}

// CancelRegistration cancels a confirmed or pending registration.
func (s *PostgresStore) CancelRegistration(ctx context.Context, organizerID, id, reason string, at time.Time) (*domain.Registration, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		r, err := lockParticipant(ctx, tx, organizerID, id)
		if err != nil {
			return err
		}
		if !r.Cancellable() {
			return domain.ErrCannotCancel
		}
		_, err = tx.Exec(ctx, `
			UPDATE event_registrations
			SET status = 'cancelled', cancelled_at = $2, cancelled_reason = $3
			WHERE id = $1`, id, at, reason)
		if err != nil {
			return fmt.Errorf("cancelling registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetParticipant(ctx, organizerID, id)
}
