package payments_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/payments"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76"
)

type flakyGateway struct {
	err   error
	calls int
}

func (f *flakyGateway) CreateInstallmentIntent(_ context.Context, _ payments.IntentRequest) (*payments.Intent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &payments.Intent{ID: "pi_1"}, nil
}

func (f *flakyGateway) CreateConnectAccount(context.Context, string) (string, error) {
	f.calls++
	return "acct_1", f.err
}

func (f *flakyGateway) OnboardingLink(context.Context, string, string, string) (string, error) {
	f.calls++
	return "https://connect.stripe.com/setup/x", f.err
}

func (f *flakyGateway) AccountStatus(context.Context, string) (*domain.StripeAccountState, error) {
	f.calls++
	return &domain.StripeAccountState{}, f.err
}

func guarded(t *testing.T, next payments.Gateway) *payments.GuardedGateway {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return payments.Guard(next, engine.NewCircuitBreaker(client, 3, time.Minute, logger))
}

func TestGuardedGateway_OpensOnUpstreamFaults(t *testing.T) {
	next := &flakyGateway{err: fmt.Errorf("creating connect account: %w", &stripe.Error{HTTPStatusCode: 503})}
	g := guarded(t, next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := g.CreateConnectAccount(ctx, "a@b.com"); errors.Is(err, payments.ErrProviderUnavailable) {
			t.Fatalf("call %d failed fast before the threshold", i+1)
		}
	}

	_, err := g.OnboardingLink(ctx, "acct_1", "r", "u")
	if !errors.Is(err, payments.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if next.calls != 3 {
		t.Errorf("expected Stripe to be skipped while open, got %d calls", next.calls)
	}
}

func TestGuardedGateway_RejectionsDoNotTrip(t *testing.T) {
	next := &flakyGateway{err: &stripe.Error{HTTPStatusCode: 400, Msg: "invalid destination"}}
	g := guarded(t, next)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.CreateInstallmentIntent(ctx, payments.IntentRequest{Amount: 10})
		if errors.Is(err, payments.ErrProviderUnavailable) {
			t.Fatalf("call %d: a 400 must not open the circuit", i+1)
		}
	}
	if next.calls != 5 {
		t.Errorf("expected every call to reach Stripe, got %d", next.calls)
	}
}

func TestGuardedGateway_PassesResults(t *testing.T) {
	g := guarded(t, &flakyGateway{})

	intent, err := g.CreateInstallmentIntent(context.Background(), payments.IntentRequest{Amount: 10})
	if err != nil || intent.ID != "pi_1" {
		t.Fatalf("expected pi_1, got %+v, %v", intent, err)
	}
	st, err := g.AccountStatus(context.Background(), "acct_1")
	if err != nil || st == nil {
		t.Fatalf("expected account state, got %+v, %v", st, err)
	}
}
