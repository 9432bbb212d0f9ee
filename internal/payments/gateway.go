// Package payments talks to Stripe: payment intents for installment
// checkouts, Connect accounts for organizers, and webhook verification.
package payments

import (
	"context"
	"math"

	"github.com/Priya8975/event-console/internal/domain"
)

// IntentRequest describes a charge on behalf of an organizer's connected
// account. Amounts are in reais.
type IntentRequest struct {
	Amount         float64
	ApplicationFee float64
	Destination    string
	Method         domain.PaymentMethod
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Gateway is the subset of Stripe the console uses.
type Gateway interface {
	CreateInstallmentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	OnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	AccountStatus(ctx context.Context, accountID string) (*domain.StripeAccountState, error)
}

// ToCents converts reais to the integer minor units Stripe expects.
func ToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FromCents converts Stripe minor units back to reais.
func FromCents(c int64) float64 {
	return float64(c) / 100
}
