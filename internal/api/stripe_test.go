package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/payments"
)

func stripeEvent(id, typ string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": %q,
		"created": %d,
		"data": {"object": {"id": "pi_1", "object": "payment_intent", "amount": 3660,
			"metadata": {"registration_id": "reg-1", "installment_id": "inst-1"}}}
	}`, id, typ, time.Now().Unix()))
}

func postWebhook(a *testAPI, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhook_QueuesVerifiedEventOnce(t *testing.T) {
	a := newTestAPI(t)
	payload := stripeEvent("evt_1", payments.EventPaymentSucceeded)
	sig := payments.Sign(payload, webhookSecret, time.Now())

	for i := 0; i < 2; i++ {
		rec := postWebhook(a, payload, sig)
		expectStatus(t, rec, http.StatusOK)
		if !strings.Contains(rec.Body.String(), `"received":true`) {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	}

	members, err := a.redis.ZMembers(engine.WebhookQueueKey)
	if err != nil {
		t.Fatalf("reading queue: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 queued job, got %d", len(members))
	}
	if !strings.Contains(members[0], `"event_id":"evt_1"`) || !strings.Contains(members[0], `"max_retries":3`) {
		t.Errorf("unexpected job %s", members[0])
	}
}

func TestStripeWebhook_RejectsBadSignature(t *testing.T) {
	a := newTestAPI(t)
	payload := stripeEvent("evt_2", payments.EventPaymentSucceeded)

	tests := []struct {
		name string
		sig  string
	}{
		{"missing", ""},
		{"wrong secret", payments.Sign(payload, "whsec_other", time.Now())},
		{"stale", payments.Sign(payload, webhookSecret, time.Now().Add(-time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(a, payload, tt.sig)
			expectCode(t, rec, http.StatusBadRequest, codeInvalidSignature)
		})
	}

	if a.redis.Exists(engine.WebhookQueueKey) {
		t.Error("rejected event must not be queued")
	}
}

func TestStripeOnboarding_CreatesAccountOnce(t *testing.T) {
	a := newTestAPI(t)
	a.store.organizers["org-1"].StripeAccountID = nil

	for i := 0; i < 2; i++ {
		rec := a.do(t, http.MethodPost, "/api/organizer/stripe/onboarding", "user-1", nil)
		expectStatus(t, rec, http.StatusOK)
		got := decode[map[string]string](t, rec)
		if got["account_id"] != "acct_new" || !strings.HasSuffix(got["url"], "/acct_new") {
			t.Errorf("unexpected onboarding %v", got)
		}
	}
	if a.gateway.accounts != 1 {
		t.Errorf("expected one account created, got %d", a.gateway.accounts)
	}
}

func TestStripeStatus_SyncsFlags(t *testing.T) {
	a := newTestAPI(t)
	a.store.organizers["org-1"].StripeChargesEnabled = false

	rec := a.do(t, http.MethodGet, "/api/organizer/stripe/status", "user-1", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[domain.StripeAccountState](t, rec); !got.ChargesEnabled {
		t.Errorf("unexpected state %+v", got)
	}

	o := a.store.organizers["org-1"]
	if !o.StripeChargesEnabled || !o.StripeOnboardingComplete {
		t.Errorf("expected organizer flags synced, got %+v", o)
	}
}

func TestStripeStatus_NoAccount(t *testing.T) {
	a := newTestAPI(t)
	a.store.organizers["org-1"].StripeAccountID = nil

	rec := a.do(t, http.MethodGet, "/api/organizer/stripe/status", "user-1", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[domain.StripeAccountState](t, rec); got.ChargesEnabled || got.AccountID != "" {
		t.Errorf("expected empty state, got %+v", got)
	}
}
