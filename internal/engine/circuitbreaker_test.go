package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type breakerClock struct{ t time.Time }

func (c *breakerClock) Now() time.Time { return c.t }

func setupTestCB(t *testing.T) (*CircuitBreaker, *breakerClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	clk := &breakerClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(client, 5, 30*time.Second, logger)
	cb.now = clk.Now
	return cb, clk
}

func openCircuit(cb *CircuitBreaker, name string) {
	for i := 0; i < 5; i++ {
		cb.RecordFailure(context.Background(), name)
	}
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb, _ := setupTestCB(t)

	state, allowed := cb.AllowRequest(context.Background(), "stripe")
	if state != StateClosed || !allowed {
		t.Errorf("expected closed/allowed, got %s/%v", state, allowed)
	}
	if got := cb.State(context.Background(), "stripe"); got.State != StateClosed || got.Failures != 0 {
		t.Errorf("unexpected default state %+v", got)
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		cb.RecordFailure(ctx, "stripe")
	}
	if _, allowed := cb.AllowRequest(ctx, "stripe"); !allowed {
		t.Fatal("expected calls allowed below the threshold")
	}

	cb.RecordFailure(ctx, "stripe")
	state, allowed := cb.AllowRequest(ctx, "stripe")
	if state != StateOpen || allowed {
		t.Errorf("expected open/blocked, got %s/%v", state, allowed)
	}
	if got := cb.State(ctx, "stripe"); got.Failures != 5 || got.LastFailedAt != "2026-03-10T12:00:00Z" {
		t.Errorf("unexpected state %+v", got)
	}
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		cb.RecordFailure(ctx, "stripe")
	}
	cb.RecordSuccess(ctx, "stripe")
	cb.RecordFailure(ctx, "stripe")

	if got := cb.State(ctx, "stripe"); got.State != StateClosed || got.Failures != 1 {
		t.Errorf("expected the count to restart after a success, got %+v", got)
	}
}

func TestCircuitBreaker_SingleProbeAfterCooldown(t *testing.T) {
	cb, clk := setupTestCB(t)
	ctx := context.Background()
	openCircuit(cb, "stripe")

	clk.t = clk.t.Add(31 * time.Second)
	if got := cb.State(ctx, "stripe"); got.State != StateHalfOpen {
		t.Errorf("expected half-open after cooldown, got %s", got.State)
	}

	state, allowed := cb.AllowRequest(ctx, "stripe")
	if state != StateHalfOpen || !allowed {
		t.Fatalf("expected the probe to be allowed, got %s/%v", state, allowed)
	}
	if _, allowed := cb.AllowRequest(ctx, "stripe"); allowed {
		t.Error("expected a second call to wait for the probe")
	}

	clk.t = clk.t.Add(31 * time.Second)
	if _, allowed := cb.AllowRequest(ctx, "stripe"); !allowed {
		t.Error("expected a lost probe to be replaced after another cooldown")
	}
}

func TestCircuitBreaker_ProbeOutcome(t *testing.T) {
	tests := []struct {
		name      string
		succeed   bool
		wantState string
		wantAllow bool
	}{
		{"probe succeeds", true, StateClosed, true},
		{"probe fails", false, StateOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clk := setupTestCB(t)
			ctx := context.Background()
			openCircuit(cb, "stripe")
			clk.t = clk.t.Add(31 * time.Second)

			if _, allowed := cb.AllowRequest(ctx, "stripe"); !allowed {
				t.Fatal("expected probe to be allowed")
			}
			if tt.succeed {
				cb.RecordSuccess(ctx, "stripe")
			} else {
				cb.RecordFailure(ctx, "stripe")
			}

			state, allowed := cb.AllowRequest(ctx, "stripe")
			if state != tt.wantState || allowed != tt.wantAllow {
				t.Errorf("expected %s/%v, got %s/%v", tt.wantState, tt.wantAllow, state, allowed)
			}
		})
	}
}

func TestCircuitBreaker_IsolatedPerDependency(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()
	openCircuit(cb, "stripe")

	if _, allowed := cb.AllowRequest(ctx, "directus"); !allowed {
		t.Error("an open stripe circuit must not block other dependencies")
	}
}
