package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tickets/"+id, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	want := `event_console_http_requests_total{method="GET",route="/api/tickets/{id}",status="404"} 3`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q", want)
	}
}

func TestHandler_ExposesBusinessCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.WebhookProcessed("payment_intent.succeeded", "applied")
	m.WebhookReceived("duplicate")
	m.SetQueueDepth(4)
	m.TicketCreated()
	m.CheckIn()
	m.Export("participants")
	m.WizardSubmit("ticket", "ok")
	m.OverdueFlagged(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`event_console_stripe_webhooks_processed_total{outcome="applied",type="payment_intent.succeeded"} 1`,
		`event_console_stripe_webhooks_received_total{outcome="duplicate"} 1`,
		`event_console_stripe_webhook_queue_depth 4`,
		`event_console_tickets_created_total 1`,
		`event_console_check_ins_total 1`,
		`event_console_exports_total{kind="participants"} 1`,
		`event_console_installments_overdue_flagged_total 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
