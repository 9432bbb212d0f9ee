package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway implements Gateway with the Stripe API.
type StripeGateway struct {
	api    *client.API
	logger *slog.Logger
}

func NewStripeGateway(secretKey string, logger *slog.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	return &StripeGateway{api: client.New(secretKey, nil), logger: logger}, nil
}

func (g *StripeGateway) CreateInstallmentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("creating payment intent: amount must be positive")
	}

	method := "card"
	if req.Method == domain.PaymentMethodPix {
		method = "pix"
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(ToCents(req.Amount)),
		Currency:           stripe.String(string(stripe.CurrencyBRL)),
		PaymentMethodTypes: stripe.StringSlice([]string{method}),
	}
	params.Context = ctx
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	if req.Destination != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(req.Destination),
		}
		if fee := ToCents(req.ApplicationFee); fee > 0 {
			params.ApplicationFeeAmount = stripe.Int64(fee)
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating payment intent: %w", err)
	}

	g.logger.Info("payment intent created", "payment_intent_id", pi.ID, "amount", req.Amount, "destination", req.Destination)
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// CreateConnectAccount opens an Express account in Brazil able to take card
// payments and receive transfers.
func (g *StripeGateway) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String("BR"),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}

	acct, err := g.api.Accounts.New(params)
	if err != nil {
		return "", fmt.Errorf("creating connect account: %w", err)
	}
	return acct.ID, nil
}

func (g *StripeGateway) OnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := g.api.AccountLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("creating onboarding link: %w", err)
	}
	return link.URL, nil
}

func (g *StripeGateway) AccountStatus(ctx context.Context, accountID string) (*domain.StripeAccountState, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := g.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, fmt.Errorf("fetching connect account: %w", err)
	}
	return &domain.StripeAccountState{
		AccountID:        acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}
