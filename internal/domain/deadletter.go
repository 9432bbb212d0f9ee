package domain

import (
	"encoding/json"
	"time"
)

// Reasons a Stripe event is parked instead of applied.
const (
	DeadLetterExhausted = "exhausted"
	DeadLetterUnmatched = "unmatched"
	DeadLetterMalformed = "malformed"
)

// DeadLetter is a Stripe event the webhook pipeline gave up on. It keeps the
// raw payload so the event can be inspected or replayed by hand.
type DeadLetter struct {
	ID            string          `json:"id"`
	StripeEventID string          `json:"stripe_event_id"`
	EventType     string          `json:"event_type"`
	AccountID     *string         `json:"account_id,omitempty"`
	Attempts      int             `json:"attempts"`
	Reason        string          `json:"reason"`
	LastError     *string         `json:"last_error,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
}
