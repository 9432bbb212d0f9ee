package domain

import "time"

// Organizer mirrors the CMS "organizers" collection.
type Organizer struct {
	ID                       string     `json:"id"`
	UserID                   string     `json:"user_id"`
	Name                     string     `json:"name"`
	Email                    *string    `json:"email,omitempty"`
	Phone                    *string    `json:"phone,omitempty"`
	Website                  *string    `json:"website,omitempty"`
	Description              *string    `json:"description,omitempty"`
	Logo                     *string    `json:"logo,omitempty"`
	LogoURL                  string     `json:"logo_url,omitempty"`
	StripeAccountID          *string    `json:"stripe_account_id,omitempty"`
	StripeOnboardingComplete bool       `json:"stripe_onboarding_complete"`
	StripeChargesEnabled     bool       `json:"stripe_charges_enabled"`
	StripePayoutsEnabled     bool       `json:"stripe_payouts_enabled"`
	DateCreated              time.Time  `json:"date_created"`
	DateUpdated              *time.Time `json:"date_updated,omitempty"`
}

// OrganizerProfileUpdate carries the editable profile fields; nil leaves a
// field untouched.
type OrganizerProfileUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=100"`
	Email       *string `json:"email" validate:"omitempty,email,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,number,min=10,max=15"`
	Website     *string `json:"website" validate:"omitempty,url"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Logo        *string `json:"logo"`
}

// StripeAccountState is what Stripe reports about a connected account.
type StripeAccountState struct {
	AccountID        string `json:"account_id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

type OrganizerRequestStatus string

const (
	OrganizerRequestPending  OrganizerRequestStatus = "pending"
	OrganizerRequestApproved OrganizerRequestStatus = "approved"
	OrganizerRequestRejected OrganizerRequestStatus = "rejected"
)

// OrganizerRequestInput is the organizer upgrade form.
type OrganizerRequestInput struct {
	OrganizationName   string   `json:"organization_name" validate:"required,min=3,max=100"`
	ContactEmail       string   `json:"contact_email" validate:"required,email,max=100"`
	Phone              string   `json:"phone" validate:"required,number,min=10,max=15"`
	Website            string   `json:"website" validate:"omitempty,url"`
	Instagram          string   `json:"instagram" validate:"max=50"`
	HasExperience      string   `json:"has_experience" validate:"required,oneof=yes no"`
	EventTypes         []string `json:"event_types" validate:"required,min=1,dive,required"`
	EstimatedAttendees string   `json:"estimated_attendees" validate:"required"`
	EventFrequency     string   `json:"event_frequency" validate:"required"`
	Description        string   `json:"description" validate:"required,min=50,max=500"`
	Goals              string   `json:"goals" validate:"required,min=20,max=300"`
	AcceptTerms        bool     `json:"accept_terms" validate:"eq=true"`
}

// CheckTerms reports a clearer message than the generic eq tag.
func (in *OrganizerRequestInput) CheckTerms(v *ValidationError) {
	if !in.AcceptTerms {
		v.Fields["accept_terms"] = "you must accept the terms to continue"
	}
}

func (in *OrganizerRequestInput) Validate() error {
	v := ValidateStruct(in)
	in.CheckTerms(v)
	return v.OrNil()
}

type OrganizerRequest struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	Status      OrganizerRequestStatus `json:"status"`
	Input       OrganizerRequestInput  `json:"data"`
	DateCreated time.Time              `json:"date_created"`
}
