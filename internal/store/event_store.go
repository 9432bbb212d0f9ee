package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `
	id, organizer_id, category_id, title, slug, short_description, description,
	cover_image, tags, start_date, end_date, registration_start, registration_end,
	event_type, location_name, location_address, online_url, is_free, max_attendees,
	status, featured, date_created, date_updated`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.CategoryID, &e.Title, &e.Slug, &e.ShortDescription, &e.Description,
		&e.CoverImage, &e.Tags, &e.StartDate, &e.EndDate, &e.RegistrationStart, &e.RegistrationEnd,
		&e.EventType, &e.LocationName, &e.LocationAddress, &e.OnlineURL, &e.IsFree, &e.MaxAttendees,
		&e.Status, &e.Featured, &e.DateCreated, &e.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return &e, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateEvent stores a validated event for the organizer. The slug is
// derived from the title with a short random suffix so titles may repeat.
func (s *PostgresStore) CreateEvent(ctx context.Context, organizerID string, in *domain.EventInput) (*domain.Event, error) {
	slug := domain.Slugify(in.Title)
	if slug == "" {
		slug = "evento"
	}
	slug += "-" + uuid.NewString()[:8]

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	event, err := scanEvent(s.pool.QueryRow(ctx, `
		INSERT INTO events (
			organizer_id, category_id, title, slug, short_description, description,
			cover_image, tags, start_date, end_date, registration_start, registration_end,
			event_type, location_name, location_address, online_url, is_free, max_attendees,
			status, featured
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING `+eventColumns,
		organizerID, nullIfEmpty(in.CategoryID), in.Title, slug, nullIfEmpty(in.ShortDescription), in.Description,
		nullIfEmpty(in.CoverImage), tags, in.StartDate, in.EndDate, in.RegistrationStart, in.RegistrationEnd,
		in.EventType, nullIfEmpty(in.LocationName), nullIfEmpty(in.LocationAddress), nullIfEmpty(in.OnlineURL),
		in.IsFree, in.MaxAttendees, string(in.FinalStatus()), in.Featured,
	))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	return event, nil
}

// GetEvent returns the organizer's event, or nil when it does not exist or
// belongs to someone else.
func (s *PostgresStore) GetEvent(ctx context.Context, organizerID, id string) (*domain.Event, error) {
	event, err := scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND organizer_id = $2`,
		id, organizerID,
	))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return event, nil
}

// ListEvents returns the organizer's events, newest start first.
func (s *PostgresStore) ListEvents(ctx context.Context, organizerID, status string) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1`
	args := []interface{}{organizerID}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}

	query += " ORDER BY start_date DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.EventCategory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, slug, description, icon
		FROM event_categories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.EventCategory{}
	for rows.Next() {
		var c domain.EventCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Icon); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
