package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/jackc/pgx/v5"
)

const ticketColumns = `
	t.id, t.event_id, e.title, t.title, t.description, t.visibility, t.status,
	t.price, t.service_fee_type, t.buyer_price, t.quantity, t.quantity_sold,
	t.min_quantity_per_purchase, t.max_quantity_per_purchase, t.sale_start_date, t.sale_end_date,
	t.allow_installments, t.max_installments, t.min_amount_for_installments,
	t.date_created, t.date_updated`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID, &t.EventID, &t.EventTitle, &t.Title, &t.Description, &t.Visibility, &t.Status,
		&t.Price, &t.ServiceFeeType, &t.BuyerPrice, &t.Quantity, &t.QuantitySold,
		&t.MinQuantityPerPurchase, &t.MaxQuantityPerPurchase, &t.SaleStartDate, &t.SaleEndDate,
		&t.AllowInstallments, &t.MaxInstallments, &t.MinAmountForInstallments,
		&t.DateCreated, &t.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTicket inserts a ticket for an event the caller already checked
// belongs to the organizer. buyerPrice is what the fee calculator charges.
func (s *PostgresStore) CreateTicket(ctx context.Context, in *domain.TicketInput, buyerPrice float64) (*domain.Ticket, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO event_tickets (
			event_id, title, description, visibility, status, price, service_fee_type, buyer_price,
			quantity, min_quantity_per_purchase, max_quantity_per_purchase, sale_start_date, sale_end_date,
			allow_installments, max_installments, min_amount_for_installments
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		in.EventID, in.Title, nullIfEmpty(in.Description), in.Visibility, string(in.ResolvedStatus()),
		in.Price, in.ServiceFeeType, buyerPrice,
		in.Quantity, in.MinQuantityPerPurchase, in.MaxQuantityPerPurchase, in.SaleStartDate, in.SaleEndDate,
		in.AllowInstallments, in.MaxInstallments, in.MinAmountForInstallments,
	).Scan(&id)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("inserting ticket: %w", err)
	}

	return s.getTicket(ctx, s.pool, `t.id = $1`, id)
}

func (s *PostgresStore) getTicket(ctx context.Context, q querier, where string, args ...interface{}) (*domain.Ticket, error) {
	t, err := scanTicket(q.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM event_tickets t JOIN events e ON e.id = t.event_id
		WHERE `+where, args...))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying ticket: %w", err)
	}
	return t, nil
}

// GetTicket returns the ticket when it belongs to one of the organizer's events.
func (s *PostgresStore) GetTicket(ctx context.Context, organizerID, id string) (*domain.Ticket, error) {
	return s.getTicket(ctx, s.pool, `t.id = $1 AND e.organizer_id = $2`, id, organizerID)
}

// GetTicketForSale loads a ticket by id alone, for the public checkout.
func (s *PostgresStore) GetTicketForSale(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.getTicket(ctx, s.pool, `t.id = $1`, id)
}

// ListTickets pages through the organizer's tickets, newest first.
func (s *PostgresStore) ListTickets(ctx context.Context, f domain.TicketFilter) (domain.Page[domain.Ticket], error) {
	page, limit := domain.NormalizePage(f.Page, f.Limit)

	conditions := []string{"e.organizer_id = $1"}
	args := []interface{}{f.OrganizerID}
	argIdx := 2

	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(t.title ILIKE $%d OR e.title ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+f.Search+"%")
		argIdx++
	}
	if len(f.EventIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("t.event_id::text = ANY($%d)", argIdx))
		args = append(args, f.EventIDs)
		argIdx++
	}
	if len(f.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("t.status = ANY($%d)", argIdx))
		args = append(args, f.Statuses)
		argIdx++
	}

	from := ` FROM event_tickets t JOIN events e ON e.id = t.event_id WHERE ` + strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return domain.Page[domain.Ticket]{}, fmt.Errorf("counting tickets: %w", err)
	}

	query := `SELECT ` + ticketColumns + from +
		fmt.Sprintf(" ORDER BY t.date_created DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, domain.Offset(page, limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.Ticket]{}, fmt.Errorf("querying tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return domain.Page[domain.Ticket]{}, fmt.Errorf("scanning ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Ticket]{}, fmt.Errorf("iterating tickets: %w", err)
	}

	return domain.NewPage(tickets, total, page, limit), nil
}

// UpdateTicket replaces the editable fields of an organizer's ticket.
// Returns nil when the ticket is not the organizer's.
func (s *PostgresStore) UpdateTicket(ctx context.Context, organizerID, id string, in *domain.TicketInput, buyerPrice float64) (*domain.Ticket, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE event_tickets t SET
			title = $3, description = $4, visibility = $5, status = $6, price = $7,
			service_fee_type = $8, buyer_price = $9, quantity = $10,
			min_quantity_per_purchase = $11, max_quantity_per_purchase = $12,
			sale_start_date = $13, sale_end_date = $14, allow_installments = $15,
			max_installments = $16, min_amount_for_installments = $17, date_updated = NOW()
		FROM events e
		WHERE t.id = $1 AND e.id = t.event_id AND e.organizer_id = $2`,
		id, organizerID,
		in.Title, nullIfEmpty(in.Description), in.Visibility, string(in.ResolvedStatus()), in.Price,
		in.ServiceFeeType, buyerPrice, in.Quantity,
		in.MinQuantityPerPurchase, in.MaxQuantityPerPurchase,
		in.SaleStartDate, in.SaleEndDate, in.AllowInstallments,
		in.MaxInstallments, in.MinAmountForInstallments,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("updating ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return s.GetTicket(ctx, organizerID, id)
}

// DeleteTicket removes an unsold ticket. Tickets with sales are referenced
// by registrations and must be deactivated instead.
func (s *PostgresStore) DeleteTicket(ctx context.Context, organizerID, id string) error {
	t, err := s.GetTicket(ctx, organizerID, id)
	if err != nil {
		return err
	}
	if t == nil {
		return domain.ErrTicketNotFound
	}
	if t.QuantitySold > 0 {
		return domain.ErrTicketHasSales
	}

	_, err = s.pool.Exec(ctx, `DELETE FROM event_tickets WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTicketHasSales
		}
		return fmt.Errorf("deleting ticket: %w", err)
	}
	return nil
}

// DuplicateTicket copies a ticket as an inactive "- Cópia" with no sales.
func (s *PostgresStore) DuplicateTicket(ctx context.Context, organizerID, id string) (*domain.Ticket, error) {
	var newID string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO event_tickets (
			event_id, title, description, visibility, status, price, service_fee_type, buyer_price,
			quantity, min_quantity_per_purchase, max_quantity_per_purchase, sale_start_date, sale_end_date,
			allow_installments, max_installments, min_amount_for_installments
		)
		SELECT t.event_id, t.title || ' - Cópia', t.description, t.visibility, 'inactive', t.price,
			t.service_fee_type, t.buyer_price, t.quantity, t.min_quantity_per_purchase,
			t.max_quantity_per_purchase, t.sale_start_date, t.sale_end_date,
			t.allow_installments, t.max_installments, t.min_amount_for_installments
		FROM event_tickets t JOIN events e ON e.id = t.event_id
		WHERE t.id = $1 AND e.organizer_id = $2
		RETURNING id`, id, organizerID,
	).Scan(&newID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("duplicating ticket: %w", err)
	}
	return s.GetTicket(ctx, organizerID, newID)
}
