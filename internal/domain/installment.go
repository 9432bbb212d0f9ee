package domain

import "time"

type InstallmentStatus string

const (
	InstallmentPending  InstallmentStatus = "pending"
	InstallmentPaid     InstallmentStatus = "paid"
	InstallmentOverdue  InstallmentStatus = "overdue"
	InstallmentFailed   InstallmentStatus = "failed"
	InstallmentRefunded InstallmentStatus = "refunded"
)

// Installment mirrors the CMS "payment_installments" collection.
type Installment struct {
	ID                    string            `json:"id"`
	RegistrationID        string            `json:"registration_id"`
	InstallmentNumber     int               `json:"installment_number"`
	TotalInstallments     int               `json:"total_installments"`
	Amount                float64           `json:"amount"`
	DueDate               time.Time         `json:"due_date"`
	Status                InstallmentStatus `json:"status"`
	StripePaymentIntentID *string           `json:"stripe_payment_intent_id,omitempty"`
	PaidAt                *time.Time        `json:"paid_at,omitempty"`
	DateCreated           time.Time         `json:"date_created"`
}

// InstallmentPlanItem is one row of a planned split before it is stored.
type InstallmentPlanItem struct {
	Number  int       `json:"installment_number"`
	Amount  float64   `json:"amount"`
	DueDate time.Time `json:"due_date"`
}

// InstallmentSummary aggregates installment health for an organizer.
type InstallmentSummary struct {
	PendingCount  int     `json:"pending_count"`
	PendingAmount float64 `json:"pending_amount"`
	OverdueCount  int     `json:"overdue_count"`
	OverdueAmount float64 `json:"overdue_amount"`
	PaidCount     int     `json:"paid_count"`
	PaidAmount    float64 `json:"paid_amount"`
}

// InstallmentCheckoutRequest starts an installment purchase.
type InstallmentCheckoutRequest struct {
	TicketID         string `json:"ticket_id" validate:"required"`
	Quantity         int    `json:"quantity" validate:"required,gt=0"`
	Installments     int    `json:"installments" validate:"required,min=2,max=12"`
	ParticipantName  string `json:"participant_name" validate:"required,min=2,max=120"`
	ParticipantEmail string `json:"participant_email" validate:"required,email"`
	ParticipantPhone string `json:"participant_phone" validate:"omitempty,number,min=10,max=15"`
}

// InstallmentCheckout is returned to the buyer after the first intent is created.
type InstallmentCheckout struct {
	RegistrationID string                `json:"registration_id"`
	TicketCode     string                `json:"ticket_code"`
	TotalAmount    float64               `json:"total_amount"`
	Plan           []InstallmentPlanItem `json:"plan"`
	ClientSecret   string                `json:"client_secret"`
	PaymentIntent  string                `json:"payment_intent_id"`
}
