package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/metrics"
	"github.com/Priya8975/event-console/internal/payments"
)

// Stripe signs payloads well under this size.
const maxWebhookBytes = 65536

type StripeStore interface {
	GetOrganizer(ctx context.Context, id string) (*domain.Organizer, error)
	SetStripeAccount(ctx context.Context, id, accountID string) error
	UpdateStripeAccountState(ctx context.Context, st domain.StripeAccountState) (string, error)
}

// WebhookEnqueuer accepts verified events and reports false for ones it
// has already seen.
type WebhookEnqueuer interface {
	Enqueue(ctx context.Context, job engine.WebhookJob) (bool, error)
}

type StripeHandler struct {
	store         StripeStore
	gateway       payments.Gateway
	queue         WebhookEnqueuer
	webhookSecret string
	appURL        string
	maxAttempts   int
	clock         clock.Clock
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type StripeOptions struct {
	WebhookSecret string
	AppURL        string
	MaxAttempts   int
}

func NewStripeHandler(s StripeStore, gw payments.Gateway, q WebhookEnqueuer, opts StripeOptions, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *StripeHandler {
	return &StripeHandler{
		store:         s,
		gateway:       gw,
		queue:         q,
		webhookSecret: opts.WebhookSecret,
		appURL:        strings.TrimSuffix(opts.AppURL, "/"),
		maxAttempts:   opts.MaxAttempts,
		clock:         clk,
		metrics:       m,
		logger:        logger,
	}
}

func (h *StripeHandler) organizer(w http.ResponseWriter, r *http.Request) *domain.Organizer {
	o, err := h.store.GetOrganizer(r.Context(), organizerID(r))
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to get organizer")
		return nil
	}
	if o == nil {
		respondError(w, http.StatusNotFound, codeOrganizerNotFound, "organizer not found")
		return nil
	}
	return o
}

// Onboarding creates the organizer's Connect account on first use and
// returns a fresh onboarding link.
func (h *StripeHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	o := h.organizer(w, r)
	if o == nil {
		return
	}

	accountID := ""
	if o.StripeAccountID != nil {
		accountID = *o.StripeAccountID
	}
	if accountID == "" {
		email := ""
		if o.Email != nil {
			email = *o.Email
		}
		id, err := h.gateway.CreateConnectAccount(r.Context(), email)
		if err != nil {
			respondGatewayError(w, h.logger, err, "failed to create stripe account", "organizer_id", o.ID)
			return
		}
		if err := h.store.SetStripeAccount(r.Context(), o.ID, id); err != nil {
			respondDomainError(w, h.logger, err, "failed to save stripe account")
			return
		}
		accountID = id
		h.logger.Info("stripe account created", "organizer_id", o.ID, "account_id", id)
	}

	url, err := h.gateway.OnboardingLink(r.Context(), accountID,
		h.appURL+"/dashboard/financeiro?stripe=refresh",
		h.appURL+"/dashboard/financeiro?stripe=return",
	)
	if err != nil {
		respondGatewayError(w, h.logger, err, "failed to create onboarding link", "organizer_id", o.ID)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url, "account_id": accountID})
}

// Status refreshes the Connect flags from Stripe.
func (h *StripeHandler) Status(w http.ResponseWriter, r *http.Request) {
	o := h.organizer(w, r)
	if o == nil {
		return
	}
	if o.StripeAccountID == nil || *o.StripeAccountID == "" {
		respondJSON(w, http.StatusOK, domain.StripeAccountState{})
		return
	}

	st, err := h.gateway.AccountStatus(r.Context(), *o.StripeAccountID)
	if err != nil {
		respondGatewayError(w, h.logger, err, "failed to fetch stripe account", "organizer_id", o.ID)
		return
	}
	if _, err := h.store.UpdateStripeAccountState(r.Context(), *st); err != nil {
		respondDomainError(w, h.logger, err, "failed to save stripe account state")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// Webhook verifies a Stripe delivery and queues it. Processing happens in
// the worker pool so Stripe gets its 200 quickly.
func (h *StripeHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequestBody, "failed to read request body")
		return
	}

	ev, err := payments.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("rejected stripe webhook", "error", err)
		h.metrics.WebhookReceived("rejected")
		respondError(w, http.StatusBadRequest, codeInvalidSignature, "invalid signature")
		return
	}

	queued, err := h.queue.Enqueue(r.Context(), engine.WebhookJob{
		EventID:    ev.ID,
		Type:       string(ev.Type),
		Account:    ev.Account,
		Payload:    payload,
		MaxRetries: h.maxAttempts,
		ReceivedAt: h.clock.Now(),
	})
	if err != nil {
		h.logger.Error("failed to queue stripe event", "error", err, "stripe_event_id", ev.ID)
		respondError(w, http.StatusInternalServerError, codeInternalError, "failed to queue event")
		return
	}

	if queued {
		h.metrics.WebhookReceived("queued")
	} else {
		h.metrics.WebhookReceived("duplicate")
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
