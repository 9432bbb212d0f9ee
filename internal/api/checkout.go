package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/payments"
	"github.com/Priya8975/event-console/internal/store"
)

type CheckoutStore interface {
	GetTicketForSale(ctx context.Context, id string) (*domain.Ticket, error)
	GetEventOrganizer(ctx context.Context, eventID string) (*domain.Organizer, error)
	CreateInstallmentRegistration(ctx context.Context, nr store.NewRegistration, plan []domain.InstallmentPlanItem) (*domain.Registration, []domain.Installment, error)
	AttachPaymentIntent(ctx context.Context, installmentID, intentID string) error
}

type CheckoutHandler struct {
	store   CheckoutStore
	gateway payments.Gateway
	fees    engine.FeeConfig
	clock   clock.Clock
	logger  *slog.Logger
}

func NewCheckoutHandler(s CheckoutStore, gw payments.Gateway, fees engine.FeeConfig, clk clock.Clock, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{store: s, gateway: gw, fees: fees, clock: clk, logger: logger}
}

// checkSale verifies the ticket can be bought now in the requested quantity.
func checkSale(t *domain.Ticket, qty int, now time.Time) error {
	if t.Status != domain.TicketStatusActive {
		return domain.ErrSaleClosed
	}
	if t.SaleStartDate != nil && now.Before(*t.SaleStartDate) {
		return domain.ErrSaleClosed
	}
	if t.SaleEndDate != nil && now.After(*t.SaleEndDate) {
		return domain.ErrSaleClosed
	}
	if t.MinQuantityPerPurchase != nil && qty < *t.MinQuantityPerPurchase {
		return fmt.Errorf("%w: minimum is %d", domain.ErrInvalidQuantity, *t.MinQuantityPerPurchase)
	}
	if t.MaxQuantityPerPurchase != nil && qty > *t.MaxQuantityPerPurchase {
		return fmt.Errorf("%w: maximum is %d", domain.ErrInvalidQuantity, *t.MaxQuantityPerPurchase)
	}
	if qty > t.Available() {
		return domain.ErrSoldOut
	}
	return nil
}

// Installments starts an installment purchase: it stores the pending
// registration with its plan and creates the intent for the first
// installment on the organizer's connected account.
func (h *CheckoutHandler) Installments(w http.ResponseWriter, r *http.Request) {
	var req domain.InstallmentCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := domain.ValidateStruct(&req).OrNil(); err != nil {
		respondDomainError(w, h.logger, err, "invalid checkout")
		return
	}

	ctx := r.Context()
	now := h.clock.Now()

	t, err := h.store.GetTicketForSale(ctx, req.TicketID)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to load ticket")
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, codeTicketNotFound, "ticket not found")
		return
	}
	if err := checkSale(t, req.Quantity, now); err != nil {
		respondDomainError(w, h.logger, err, "ticket not available")
		return
	}

	// Every amount of the charge comes from one breakdown so the total, the
	// service fee and the application fee agree with each other.
	fees, err := engine.Calculate(t.Price, t.ServiceFeeType, h.fees)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to price ticket")
		return
	}
	if fees.BuyerPrice != t.BuyerPrice {
		h.logger.Warn("stored buyer price is stale",
			"ticket_id", t.ID,
			"stored", t.BuyerPrice,
			"current", fees.BuyerPrice,
		)
	}
	qty := float64(req.Quantity)
	total := engine.Round2(fees.BuyerPrice * qty)
	serviceFee := engine.Round2(fees.ConvenienceFee * qty)
	platformFee := engine.Round2(fees.PlatformFee * qty)

	if err := engine.CheckInstallmentEligibility(t, total, req.Installments); err != nil {
		respondDomainError(w, h.logger, err, "installments not allowed")
		return
	}

	org, err := h.store.GetEventOrganizer(ctx, t.EventID)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to load organizer")
		return
	}
	if org == nil || org.StripeAccountID == nil || !org.StripeChargesEnabled {
		respondDomainError(w, h.logger, domain.ErrStripeNotConnected, "organizer cannot take payments")
		return
	}

	plan, err := engine.PlanInstallments(total, req.Installments, now)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to plan installments")
		return
	}

	reg, installments, err := h.store.CreateInstallmentRegistration(ctx, store.NewRegistration{
		Ticket:        t,
		Request:       req,
		UnitPrice:     t.Price,
		ServiceFee:    serviceFee,
		TotalAmount:   total,
		PaymentMethod: domain.PaymentMethodPix,
	}, plan)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to create registration")
		return
	}

	first := installments[0]
	intent, err := h.gateway.CreateInstallmentIntent(ctx, payments.IntentRequest{
		Amount:         first.Amount,
		ApplicationFee: engine.Round2(platformFee * first.Amount / total),
		Destination:    *org.StripeAccountID,
		Method:         domain.PaymentMethodPix,
		Description:    fmt.Sprintf("%s - parcela 1/%d", t.Title, first.TotalInstallments),
		ReceiptEmail:   req.ParticipantEmail,
		Metadata: map[string]string{
			"registration_id": reg.ID,
			"installment_id":  first.ID,
		},
		IdempotencyKey: "inst_" + first.ID,
	})
	if err != nil {
		respondGatewayError(w, h.logger, err, "failed to start payment", "registration_id", reg.ID)
		return
	}
	if err := h.store.AttachPaymentIntent(ctx, first.ID, intent.ID); err != nil {
		respondDomainError(w, h.logger, err, "failed to save payment intent")
		return
	}

	h.logger.Info("installment checkout started",
		"registration_id", reg.ID,
		"ticket_id", t.ID,
		"installments", len(installments),
		"total", total,
	)
	respondJSON(w, http.StatusCreated, domain.InstallmentCheckout{
		RegistrationID: reg.ID,
		TicketCode:     reg.TicketCode,
		TotalAmount:    total,
		Plan:           plan,
		ClientSecret:   intent.ClientSecret,
		PaymentIntent:  intent.ID,
	})
}
