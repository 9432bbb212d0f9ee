package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/payments"
)

func seedSaleTicket(a *testAPI) *domain.Ticket {
	t := &domain.Ticket{
		ID:                "tkt-sale",
		EventID:           "evt-1",
		Title:             "Lote 1",
		Status:            domain.TicketStatusActive,
		Price:             100,
		ServiceFeeType:    domain.FeeModePassedToBuyer,
		BuyerPrice:        109.78,
		Quantity:          10,
		AllowInstallments: true,
	}
	a.store.tickets[t.ID] = t
	return t
}

func checkoutBody() map[string]any {
	return map[string]any{
		"ticket_id":         "tkt-sale",
		"quantity":          1,
		"installments":      3,
		"participant_name":  "Ana Souza",
		"participant_email": "ana@example.com",
	}
}

func TestCheckout_CreatesPlanAndFirstIntent(t *testing.T) {
	a := newTestAPI(t)
	seedSaleTicket(a)

	rec := a.do(t, http.MethodPost, "/api/checkout/installments", "", checkoutBody())
	expectStatus(t, rec, http.StatusCreated)
	got := decode[domain.InstallmentCheckout](t, rec)

	if got.TotalAmount != 109.78 || len(got.Plan) != 3 {
		t.Fatalf("unexpected checkout %+v", got)
	}
	if got.Plan[0].Amount != 36.60 || got.Plan[1].Amount != 36.59 {
		t.Errorf("unexpected plan %+v", got.Plan)
	}
	if got.ClientSecret != "pi_test_secret" || got.PaymentIntent != "pi_test" {
		t.Errorf("unexpected intent %+v", got)
	}

	if len(a.gateway.intents) != 1 {
		t.Fatalf("expected one intent, got %d", len(a.gateway.intents))
	}
	in := a.gateway.intents[0]
	first := a.store.installments[got.RegistrationID][0]
	if in.Amount != 36.60 || in.ApplicationFee != 1.67 || in.Destination != "acct_123" {
		t.Errorf("unexpected intent request %+v", in)
	}
	if in.Metadata["registration_id"] != got.RegistrationID || in.Metadata["installment_id"] != first.ID {
		t.Errorf("unexpected metadata %v", in.Metadata)
	}
	if in.IdempotencyKey != "inst_"+first.ID {
		t.Errorf("unexpected idempotency key %q", in.IdempotencyKey)
	}
	if a.store.intents[first.ID] != "pi_test" {
		t.Error("intent not attached to the first installment")
	}

	reg := a.store.registrations[got.RegistrationID]
	if reg.ServiceFee != 9.78 || reg.Status != domain.RegistrationPending {
		t.Errorf("unexpected registration %+v", reg)
	}
}

func TestCheckout_PricesFromOneBreakdown(t *testing.T) {
	a := newTestAPI(t)
	tk := seedSaleTicket(a)
	// Priced under an older fee configuration.
	tk.BuyerPrice = 105

	body := checkoutBody()
	body["quantity"] = 2
	body["installments"] = 2
	rec := a.do(t, http.MethodPost, "/api/checkout/installments", "", body)
	expectStatus(t, rec, http.StatusCreated)
	got := decode[domain.InstallmentCheckout](t, rec)

	if got.TotalAmount != 219.56 {
		t.Errorf("total = %v, want 219.56", got.TotalAmount)
	}
	reg := a.store.registrations[got.RegistrationID]
	if reg.ServiceFee != 19.56 || reg.TotalAmount != got.TotalAmount {
		t.Errorf("unexpected registration %+v", reg)
	}
	// Platform fee of 10.00 over two equal installments.
	in := a.gateway.intents[0]
	if in.Amount != 109.78 || in.ApplicationFee != 5 {
		t.Errorf("unexpected intent request %+v", in)
	}
}

func TestCheckout_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(a *testAPI, tk *domain.Ticket)
		body       func(b map[string]any)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing email",
			body:       func(b map[string]any) { delete(b, "participant_email") },
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeValidationFailed,
		},
		{
			name:       "unknown ticket",
			body:       func(b map[string]any) { b["ticket_id"] = "nope" },
			wantStatus: http.StatusNotFound,
			wantCode:   codeTicketNotFound,
		},
		{
			name:       "inactive ticket",
			prepare:    func(_ *testAPI, tk *domain.Ticket) { tk.Status = domain.TicketStatusInactive },
			wantStatus: http.StatusConflict,
			wantCode:   codeSaleClosed,
		},
		{
			name:       "sale ended",
			prepare:    func(_ *testAPI, tk *domain.Ticket) { tk.SaleEndDate = ptr(testNow.AddDate(0, 0, -1)) },
			wantStatus: http.StatusConflict,
			wantCode:   codeSaleClosed,
		},
		{
			name:       "above per purchase limit",
			prepare:    func(_ *testAPI, tk *domain.Ticket) { tk.MaxQuantityPerPurchase = ptr(1) },
			body:       func(b map[string]any) { b["quantity"] = 2 },
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeInvalidQuantity,
		},
		{
			name:       "sold out",
			prepare:    func(_ *testAPI, tk *domain.Ticket) { tk.QuantitySold = 10 },
			wantStatus: http.StatusConflict,
			wantCode:   codeSoldOut,
		},
		{
			name:       "installments disabled",
			prepare:    func(_ *testAPI, tk *domain.Ticket) { tk.AllowInstallments = false },
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeInstallments,
		},
		{
			name:       "more installments than allowed",
			body:       func(b map[string]any) { b["installments"] = 5 },
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeInstallments,
		},
		{
			name:       "below minimum amount",
			prepare:    func(_ *testAPI, tk *domain.Ticket) { tk.MinAmountForInstallments = ptr(200.0) },
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   codeInstallments,
		},
		{
			name:       "organizer without charges",
			prepare:    func(a *testAPI, _ *domain.Ticket) { a.store.organizers["org-1"].StripeChargesEnabled = false },
			wantStatus: http.StatusConflict,
			wantCode:   codeStripeNotConnected,
		},
		{
			name:       "stripe failure",
			prepare:    func(a *testAPI, _ *domain.Ticket) { a.gateway.err = errors.New("card_declined") },
			wantStatus: http.StatusBadGateway,
			wantCode:   codePaymentProvider,
		},
		{
			name:       "stripe circuit open",
			prepare:    func(a *testAPI, _ *domain.Ticket) { a.gateway.err = payments.ErrProviderUnavailable },
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   codeProviderUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t)
			tk := seedSaleTicket(a)
			if tt.prepare != nil {
				tt.prepare(a, tk)
			}
			body := checkoutBody()
			if tt.body != nil {
				tt.body(body)
			}

			rec := a.do(t, http.MethodPost, "/api/checkout/installments", "", body)
			expectCode(t, rec, tt.wantStatus, tt.wantCode)
		})
	}
}
