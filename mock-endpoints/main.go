// Command mock-endpoints plays Stripe locally: it builds signed webhook
// events and posts them to the console so the payment pipeline can be
// exercised without a Stripe account.
package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Priya8975/event-console/internal/payments"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

var sentCount atomic.Int64

type sender struct {
	target string
	secret string
	client *http.Client
	logger *slog.Logger
}

func main() {
	addr := pflag.String("addr", ":9090", "listen address")
	target := pflag.String("target", "http://localhost:8080/api/stripe/webhook", "console webhook URL")
	secret := pflag.String("secret", os.Getenv("EVENTCONSOLE_STRIPE_WEBHOOK_SECRET"), "Stripe webhook signing secret")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if *secret == "" {
		logger.Error("a webhook secret is required (--secret or EVENTCONSOLE_STRIPE_WEBHOOK_SECRET)")
		os.Exit(1)
	}

	s := &sender{
		target: *target,
		secret: *secret,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	r := chi.NewRouter()
	r.Post("/payment/succeeded", s.paymentIntent(payments.EventPaymentSucceeded, "succeeded"))
	r.Post("/payment/failed", s.paymentIntent(payments.EventPaymentFailed, "requires_payment_method"))
	r.Post("/refund", s.refund)
	r.Post("/account", s.account)
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"total_sent": sentCount.Load()})
	})

	logger.Info("stripe mock starting", "addr", *addr, "target", *target)
	logger.Info("  POST /payment/succeeded?registration_id=&installment_id=&amount=")
	logger.Info("  POST /payment/failed?registration_id=&installment_id=&amount=")
	logger.Info("  POST /refund?registration_id=&payment_intent=&amount=")
	logger.Info("  POST /account?account_id=&charges_enabled=&payouts_enabled=")
	logger.Info("  GET  /stats")

	if err := http.ListenAndServe(*addr, r); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func cents(r *http.Request) int64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil {
		return 0
	}
	return payments.ToCents(v)
}

func (s *sender) paymentIntent(eventType, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		object := map[string]any{
			"id":       "pi_mock_" + uuid.NewString()[:8],
			"object":   "payment_intent",
			"amount":   cents(r),
			"currency": "brl",
			"status":   status,
			"metadata": map[string]string{
				"registration_id": q.Get("registration_id"),
				"installment_id":  q.Get("installment_id"),
			},
		}
		if id := q.Get("payment_intent"); id != "" {
			object["id"] = id
		}
		s.send(w, r, eventType, object)
	}
}

func (s *sender) refund(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.send(w, r, payments.EventChargeRefunded, map[string]any{
		"id":              "ch_mock_" + uuid.NewString()[:8],
		"object":          "charge",
		"amount_refunded": cents(r),
		"payment_intent":  q.Get("payment_intent"),
		"metadata":        map[string]string{"registration_id": q.Get("registration_id")},
	})
}

func (s *sender) account(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.send(w, r, payments.EventAccountUpdated, map[string]any{
		"id":                q.Get("account_id"),
		"object":            "account",
		"charges_enabled":   q.Get("charges_enabled") == "true",
		"payouts_enabled":   q.Get("payouts_enabled") == "true",
		"details_submitted": true,
	})
}

func (s *sender) send(w http.ResponseWriter, r *http.Request, eventType string, object map[string]any) {
	event := map[string]any{
		"id":          "evt_mock_" + uuid.NewString(),
		"object":      "event",
		"type":        eventType,
		"api_version": "2023-10-16",
		"created":     time.Now().Unix(),
		"data":        map[string]any{"object": object},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.target, bytes.NewReader(payload))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", payments.Sign(payload, s.secret, time.Now()))

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("delivery failed", "error", err, "type", eventType)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	count := sentCount.Add(1)
	s.logger.Info("event sent", "n", count, "type", eventType, "id", event["id"], "status", resp.StatusCode)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"event_id":    event["id"],
		"status_code": resp.StatusCode,
		"response":    string(bytes.TrimSpace(body)),
	})
}
