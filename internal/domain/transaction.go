package domain

import "time"

type TransactionKind string

const (
	TransactionPayment     TransactionKind = "payment"
	TransactionInstallment TransactionKind = "installment"
	TransactionRefund      TransactionKind = "refund"
	TransactionFailure     TransactionKind = "failure"
)

// Transaction is one ledger row written when Stripe reports a payment outcome.
type Transaction struct {
	ID                    string          `json:"id"`
	RegistrationID        string          `json:"registration_id"`
	InstallmentID         *string         `json:"installment_id,omitempty"`
	EventID               string          `json:"event_id"`
	EventTitle            string          `json:"event_title"`
	OrganizerID           string          `json:"organizer_id"`
	ParticipantName       string          `json:"participant_name"`
	ParticipantEmail      string          `json:"participant_email"`
	Kind                  TransactionKind `json:"kind"`
	Quantity              int             `json:"quantity"`
	GrossAmount           float64         `json:"gross_amount"`
	FeeAmount             float64         `json:"fee_amount"`
	NetAmount             float64         `json:"net_amount"`
	Status                PaymentStatus   `json:"status"`
	StripePaymentIntentID *string         `json:"stripe_payment_intent_id,omitempty"`
	StripeEventID         string          `json:"stripe_event_id"`
	DateCreated           time.Time       `json:"date_created"`
}

type TransactionFilter struct {
	OrganizerID string
	Status      string
	EventID     string
	Search      string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	Limit       int
}

// FinanceRange names the preset windows of the finance overview.
type FinanceRange string

const (
	Range30Days FinanceRange = "30d"
	Range90Days FinanceRange = "90d"
	RangeYear   FinanceRange = "year"
	RangeCustom FinanceRange = "custom"
)

// FinanceOverview aggregates registrations by payment status in a window.
type FinanceOverview struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	GrossRevenue  float64   `json:"gross_revenue"`
	ServiceFees   float64   `json:"service_fees"`
	NetRevenue    float64   `json:"net_revenue"`
	PaidCount     int       `json:"paid_count"`
	TicketsSold   int       `json:"tickets_sold"`
	PendingAmount float64   `json:"pending_amount"`
	PendingCount  int       `json:"pending_count"`
	RefundedTotal float64   `json:"refunded_amount"`
	RefundedCount int       `json:"refunded_count"`
	AverageTicket float64   `json:"average_ticket"`
}

// Payout summarises what an organizer earned per event.
type Payout struct {
	EventID     string  `json:"event_id"`
	EventTitle  string  `json:"event_title"`
	Gross       float64 `json:"gross"`
	Fees        float64 `json:"fees"`
	Net         float64 `json:"net"`
	TicketsSold int     `json:"tickets_sold"`
}

// KPIs backs the analytics dashboard cards.
type KPIs struct {
	TotalRevenue       float64  `json:"total_revenue"`
	RevenueChange      *float64 `json:"revenue_change"`
	TicketsSold        int      `json:"tickets_sold"`
	TicketsTotal       int      `json:"tickets_total"`
	UniqueParticipants int      `json:"unique_participants"`
	CheckInRate        float64  `json:"check_in_rate"`
	CheckInRateChange  *float64 `json:"check_in_rate_change"`
}

// PeriodStats are the raw totals KPIs are derived from.
type PeriodStats struct {
	Revenue      float64
	TicketsSold  int
	Participants int
	Confirmed    int
	CheckedIn    int
}

// PaymentEvent is the part of a Stripe payment notification the ledger needs.
// RegistrationID and InstallmentID come from the intent metadata when set.
type PaymentEvent struct {
	StripeEventID   string
	PaymentIntentID string
	RegistrationID  string
	InstallmentID   string
	Amount          float64
	OccurredAt      time.Time
}

// LedgerResult reports what applying a payment event changed.
type LedgerResult struct {
	Applied        bool            `json:"applied"`
	OrganizerID    string          `json:"organizer_id"`
	EventID        string          `json:"event_id"`
	RegistrationID string          `json:"registration_id"`
	InstallmentID  string          `json:"installment_id,omitempty"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	Kind           TransactionKind `json:"kind"`
}
