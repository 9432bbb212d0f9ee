package payments

import (
	"context"
	"errors"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/stripe/stripe-go/v76"
)

// ErrProviderUnavailable is returned without calling Stripe while its
// circuit is open.
var ErrProviderUnavailable = errors.New("payment provider unavailable")

const breakerName = "stripe"

type Breaker interface {
	AllowRequest(ctx context.Context, name string) (string, bool)
	RecordSuccess(ctx context.Context, name string)
	RecordFailure(ctx context.Context, name string)
}

// GuardedGateway fails fast while Stripe keeps erroring. Only upstream
// faults count against the circuit; Stripe rejecting a request does not.
type GuardedGateway struct {
	next    Gateway
	breaker Breaker
}

func Guard(next Gateway, b Breaker) *GuardedGateway {
	return &GuardedGateway{next: next, breaker: b}
}

func (g *GuardedGateway) call(ctx context.Context, fn func() error) error {
	if _, ok := g.breaker.AllowRequest(ctx, breakerName); !ok {
		return ErrProviderUnavailable
	}
	err := fn()
	switch {
	case err == nil:
		g.breaker.RecordSuccess(ctx, breakerName)
	case upstreamFault(err):
		g.breaker.RecordFailure(ctx, breakerName)
	}
	return err
}

func upstreamFault(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return serr.HTTPStatusCode >= 500 || serr.HTTPStatusCode == 429
	}
	return true
}

func (g *GuardedGateway) CreateInstallmentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	var intent *Intent
	err := g.call(ctx, func() (err error) {
		intent, err = g.next.CreateInstallmentIntent(ctx, req)
		return err
	})
	return intent, err
}

func (g *GuardedGateway) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	var id string
	err := g.call(ctx, func() (err error) {
		id, err = g.next.CreateConnectAccount(ctx, email)
		return err
	})
	return id, err
}

func (g *GuardedGateway) OnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	var url string
	err := g.call(ctx, func() (err error) {
		url, err = g.next.OnboardingLink(ctx, accountID, refreshURL, returnURL)
		return err
	})
	return url, err
}

func (g *GuardedGateway) AccountStatus(ctx context.Context, accountID string) (*domain.StripeAccountState, error) {
	var st *domain.StripeAccountState
	err := g.call(ctx, func() (err error) {
		st, err = g.next.AccountStatus(ctx, accountID)
		return err
	})
	return st, err
}
