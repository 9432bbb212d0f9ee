package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/jackc/pgx/v5"
)

const organizerColumns = `
	id, user_id, name, email, phone, website, description, logo,
	stripe_account_id, stripe_onboarding_complete, stripe_charges_enabled,
	stripe_payouts_enabled, date_created, date_updated`

func scanOrganizer(row pgx.Row) (*domain.Organizer, error) {
	var o domain.Organizer
	err := row.Scan(
		&o.ID, &o.UserID, &o.Name, &o.Email, &o.Phone, &o.Website, &o.Description, &o.Logo,
		&o.StripeAccountID, &o.StripeOnboardingComplete, &o.StripeChargesEnabled,
		&o.StripePayoutsEnabled, &o.DateCreated, &o.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) getOrganizer(ctx context.Context, where string, arg interface{}) (*domain.Organizer, error) {
	o, err := scanOrganizer(s.pool.QueryRow(ctx, `SELECT `+organizerColumns+` FROM organizers WHERE `+where, arg))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying organizer: %w", err)
	}
	return o, nil
}

// GetOrganizerByUser returns the organizer profile owned by a CMS user.
func (s *PostgresStore) GetOrganizerByUser(ctx context.Context, userID string) (*domain.Organizer, error) {
	return s.getOrganizer(ctx, "user_id = $1", userID)
}

func (s *PostgresStore) GetOrganizer(ctx context.Context, id string) (*domain.Organizer, error) {
	return s.getOrganizer(ctx, "id = $1", id)
}

// GetEventOrganizer returns the organizer that owns an event.
func (s *PostgresStore) GetEventOrganizer(ctx context.Context, eventID string) (*domain.Organizer, error) {
	return s.getOrganizer(ctx, "id = (SELECT organizer_id FROM events WHERE id = $1)", eventID)
}

func (s *PostgresStore) GetOrganizerByStripeAccount(ctx context.Context, accountID string) (*domain.Organizer, error) {
	return s.getOrganizer(ctx, "stripe_account_id = $1", accountID)
}

// UpdateProfile applies the non-nil fields of upd. Empty strings clear
// optional fields.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, upd *domain.OrganizerProfileUpdate, now time.Time) (*domain.Organizer, error) {
	o, err := scanOrganizer(s.pool.QueryRow(ctx, `
		UPDATE organizers SET
			name = COALESCE($2, name),
			email = CASE WHEN $3::text IS NULL THEN email ELSE NULLIF($3, '') END,
			phone = CASE WHEN $4::text IS NULL THEN phone ELSE NULLIF($4, '') END,
			website = CASE WHEN $5::text IS NULL THEN website ELSE NULLIF($5, '') END,
			description = CASE WHEN $6::text IS NULL THEN description ELSE NULLIF($6, '') END,
			logo = CASE WHEN $7::text IS NULL THEN logo ELSE NULLIF($7, '') END,
			date_updated = $8
		WHERE id = $1
		RETURNING `+organizerColumns,
		id, upd.Name, upd.Email, upd.Phone, upd.Website, upd.Description, upd.Logo, now,
	))
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("updating organizer profile: %w", err)
	}
	return o, nil
}

// SetStripeAccount links a newly created connected account to the organizer.
func (s *PostgresStore) SetStripeAccount(ctx context.Context, id, accountID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE organizers SET stripe_account_id = $2, date_updated = NOW()
		WHERE id = $1`, id, accountID)
	if err != nil {
		return fmt.Errorf("setting stripe account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrganizerNotFound
	}
	return nil
}

// UpdateStripeAccountState mirrors an account.updated notification onto the
// organizer and returns its id. Onboarding is complete once details are
// submitted and charges are enabled.
func (s *PostgresStore) UpdateStripeAccountState(ctx context.Context, st domain.StripeAccountState) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		UPDATE organizers SET
			stripe_charges_enabled = $2,
			stripe_payouts_enabled = $3,
			stripe_onboarding_complete = $4,
			date_updated = NOW()
		WHERE stripe_account_id = $1
		RETURNING id`,
		st.AccountID, st.ChargesEnabled, st.PayoutsEnabled, st.DetailsSubmitted && st.ChargesEnabled,
	).Scan(&id)
	if err != nil {
		if isNotFound(err) {
			return "", domain.ErrOrganizerNotFound
		}
		return "", fmt.Errorf("updating stripe account state: %w", err)
	}
	return id, nil
}

// CreateOrganizerRequest stores an upgrade request. A user may only have one
// pending request at a time.
func (s *PostgresStore) CreateOrganizerRequest(ctx context.Context, userID string, in *domain.OrganizerRequestInput) (*domain.OrganizerRequest, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshaling organizer request: %w", err)
	}

	req := domain.OrganizerRequest{UserID: userID, Status: domain.OrganizerRequestPending, Input: *in}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO organizer_requests (user_id, status, data)
		VALUES ($1, 'pending', $2)
		RETURNING id, date_created`, userID, data,
	).Scan(&req.ID, &req.DateCreated)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrPendingRequest
		}
		return nil, fmt.Errorf("inserting organizer request: %w", err)
	}
	return &req, nil
}
