package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/config"
	"github.com/Priya8975/event-console/internal/metrics"
	"github.com/Priya8975/event-console/internal/payments"
	"github.com/Priya8975/event-console/internal/websocket"
	"github.com/Priya8975/event-console/internal/wizard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Store is everything the handlers read and write. *store.PostgresStore
// implements it.
type Store interface {
	OrganizerResolver
	EventStore
	TicketStore
	ParticipantStore
	OrganizerStore
	FinanceStore
	AnalyticsStore
	StripeStore
	CheckoutStore
}

// Deps wires the router.
type Deps struct {
	Store    Store
	Verifier TokenVerifier
	Gateway  payments.Gateway
	Webhooks WebhookEnqueuer
	Limiter  RateLimiter
	Wizards  *wizard.Manager
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Config   *config.Config
	Health   map[string]HealthCheck
	Logger   *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(d.Metrics.Middleware)
	r.Use(corsMiddleware(d.Config.AllowedOrigins))

	cfg := d.Config
	fees := cfg.Fees()
	limits := ExportLimits{MaxRows: cfg.ExportMaxRows, RateLimit: cfg.ExportRateLimit, Window: cfg.ExportRateWindow}

	eventHandler := NewEventHandler(d.Store, cfg.CMSURL, d.Logger)
	ticketHandler := NewTicketHandler(d.Store, fees, d.Metrics, d.Logger)
	participantHandler := NewParticipantHandler(d.Store, d.Limiter, limits, d.Hub, d.Clock, d.Metrics, d.Logger)
	organizerHandler := NewOrganizerHandler(d.Store, cfg.CMSURL, d.Clock, d.Logger)
	financeHandler := NewFinanceHandler(d.Store, d.Limiter, limits, d.Clock, d.Metrics, d.Logger)
	analyticsHandler := NewAnalyticsHandler(d.Store, d.Clock, d.Logger)
	checkoutHandler := NewCheckoutHandler(d.Store, d.Gateway, fees, d.Clock, d.Logger)
	stripeHandler := NewStripeHandler(d.Store, d.Gateway, d.Webhooks, StripeOptions{
		WebhookSecret: cfg.StripeWebhookSecret,
		AppURL:        cfg.AppURL,
		MaxAttempts:   cfg.WebhookMaxAttempts,
	}, d.Clock, d.Metrics, d.Logger)
	wizardHandler := NewWizardHandler(d.Wizards, eventHandler, ticketHandler, organizerHandler, d.Metrics, d.Logger)

	authenticated := Authenticate(d.Verifier)
	organizerOnly := ResolveOrganizer(d.Store, true, d.Logger)

	r.Get("/api/v1/health", HealthHandler(d.Health))
	r.Handle("/metrics", d.Metrics.Handler())

	// Public: fee preview, buyer checkout and Stripe's callback.
	r.Get("/api/fees/preview", FeePreview(fees))
	r.Post("/api/checkout/installments", checkoutHandler.Installments)
	r.Post("/api/stripe/webhook", stripeHandler.Webhook)

	// Signed-in users, organizer or not.
	r.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Use(ResolveOrganizer(d.Store, false, d.Logger))

		r.Get("/api/categories", eventHandler.Categories)
		r.Post("/api/organizer/request", organizerHandler.Request)

		r.Route("/api/wizards/{kind}/sessions", func(r chi.Router) {
			r.Post("/", wizardHandler.Open)
			r.Get("/{id}", wizardHandler.Get)
			r.Patch("/{id}", wizardHandler.Update)
			r.Delete("/{id}", wizardHandler.Discard)
			r.Post("/{id}/next", wizardHandler.Next)
			r.Post("/{id}/back", wizardHandler.Back)
			r.Post("/{id}/goto", wizardHandler.GoTo)
			r.Post("/{id}/submit", wizardHandler.Submit)
		})
	})

	// Organizers only.
	r.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Use(organizerOnly)

		r.Get("/ws", d.Hub.HandleWebSocket)

		r.Route("/api/events", func(r chi.Router) {
			r.Get("/", eventHandler.List)
			r.Post("/", eventHandler.Create)
			r.Get("/{id}", eventHandler.Get)
		})

		r.Route("/api/tickets", func(r chi.Router) {
			r.Get("/", ticketHandler.List)
			r.Post("/", ticketHandler.Create)
			r.Get("/{id}", ticketHandler.Get)
			r.Patch("/{id}", ticketHandler.Update)
			r.Delete("/{id}", ticketHandler.Delete)
			r.Post("/{id}/duplicate", ticketHandler.Duplicate)
		})

		r.Route("/api/participants", func(r chi.Router) {
			r.Get("/", participantHandler.List)
			r.Get("/export", participantHandler.Export)
			r.Get("/{id}", participantHandler.Get)
			r.Post("/{id}/check-in", participantHandler.CheckIn)
			r.Delete("/{id}/check-in", participantHandler.UndoCheckIn)
			r.Post("/{id}/cancel", participantHandler.Cancel)
		})

		r.Get("/api/organizer/profile", organizerHandler.Profile)
		r.Patch("/api/organizer/profile", organizerHandler.UpdateProfile)

		r.Get("/api/organizer/finance/overview", financeHandler.Overview)
		r.Get("/api/organizer/finance/transactions", financeHandler.Transactions)
		r.Get("/api/organizer/finance/payouts", financeHandler.Payouts)
		r.Post("/api/organizer/finance/export", financeHandler.Export)

		r.Post("/api/organizer/stripe/onboarding", stripeHandler.Onboarding)
		r.Get("/api/organizer/stripe/status", stripeHandler.Status)

		r.Get("/api/analytics/kpis", analyticsHandler.KPIs)
		r.Get("/api/analytics/installments", analyticsHandler.Installments)
	})

	return r
}
