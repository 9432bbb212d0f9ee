package domain

import (
	"strings"
	"time"
)

type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationCheckedIn RegistrationStatus = "checked_in"
)

type PaymentStatus string

const (
	PaymentFree     PaymentStatus = "free"
	PaymentPaid     PaymentStatus = "paid"
	PaymentPending  PaymentStatus = "pending"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPix    PaymentMethod = "pix"
	PaymentMethodBoleto PaymentMethod = "boleto"
	PaymentMethodFree   PaymentMethod = "free"
)

// Registration mirrors the CMS "event_registrations" collection joined with
// its event and ticket titles.
type Registration struct {
	ID                    string             `json:"id"`
	TicketCode            string             `json:"ticket_code"`
	EventID               string             `json:"event_id"`
	EventTitle            string             `json:"event_title"`
	EventStartDate        *time.Time         `json:"event_start_date,omitempty"`
	TicketTypeID          *string            `json:"ticket_type_id,omitempty"`
	TicketTitle           string             `json:"ticket_title,omitempty"`
	UserID                *string            `json:"user_id,omitempty"`
	ParticipantName       string             `json:"participant_name"`
	ParticipantEmail      string             `json:"participant_email"`
	ParticipantPhone      *string            `json:"participant_phone,omitempty"`
	ParticipantDocument   *string            `json:"participant_document,omitempty"`
	Quantity              int                `json:"quantity"`
	UnitPrice             float64            `json:"unit_price"`
	ServiceFee            float64            `json:"service_fee"`
	TotalAmount           float64            `json:"total_amount"`
	PaymentAmount         float64            `json:"payment_amount"`
	Status                RegistrationStatus `json:"status"`
	PaymentStatus         PaymentStatus      `json:"payment_status"`
	PaymentMethod         *PaymentMethod     `json:"payment_method,omitempty"`
	StripePaymentIntentID *string            `json:"stripe_payment_intent_id,omitempty"`
	IsInstallment         bool               `json:"is_installment"`
	InstallmentCount      *int               `json:"installment_count,omitempty"`
	CheckInDate           *time.Time         `json:"check_in_date,omitempty"`
	CheckedInBy           *string            `json:"checked_in_by,omitempty"`
	CancelledAt           *time.Time         `json:"cancelled_at,omitempty"`
	CancelledReason       *string            `json:"cancelled_reason,omitempty"`
	DateCreated           time.Time          `json:"date_created"`
}

// CheckedIn reports whether the participant already went through check-in.
func (r *Registration) CheckedIn() bool {
	return r.CheckInDate != nil
}

// Cancellable reports whether the organizer may still cancel the registration.
func (r *Registration) Cancellable() bool {
	return r.Status == RegistrationConfirmed || r.Status == RegistrationPending
}

// CancelRequest is the body of a registration cancellation.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

func (c *CancelRequest) Validate() error {
	c.Reason = strings.TrimSpace(c.Reason)
	return ValidateStruct(c).OrNil()
}

// ParticipantSort lists the columns a participant listing may be ordered by.
var ParticipantSort = map[string]string{
	"date_created":     "r.date_created",
	"participant_name": "r.participant_name",
	"check_in_date":    "r.check_in_date",
	"total_amount":     "r.total_amount",
	"status":           "r.status",
}

type ParticipantFilter struct {
	OrganizerID     string
	Search          string
	EventIDs        []string
	TicketTypeIDs   []string
	Statuses        []string
	PaymentStatuses []string
	CheckedIn       *bool
	CheckInFrom     *time.Time
	CheckInTo       *time.Time
	SortField       string
	SortDesc        bool
	Page            int
	Limit           int
}

// ParticipantStats summarises a participant listing.
type ParticipantStats struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
	CheckedIn int `json:"checked_in"`
}
