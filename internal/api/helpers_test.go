package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Priya8975/event-console/internal/auth"
	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/config"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/metrics"
	"github.com/Priya8975/event-console/internal/payments"
	"github.com/Priya8975/event-console/internal/store"
	"github.com/Priya8975/event-console/internal/websocket"
	"github.com/Priya8975/event-console/internal/wizard"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

const webhookSecret = "whsec_test"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

// fakeStore keeps everything in memory. Organizer "org-1" belongs to user
// "user-1" and owns event "evt-1"; user "user-2" is not an organizer.
type fakeStore struct {
	mu            sync.Mutex
	organizers    map[string]*domain.Organizer
	events        map[string]*domain.Event
	tickets       map[string]*domain.Ticket
	registrations map[string]*domain.Registration
	installments  map[string][]domain.Installment
	transactions  []domain.Transaction
	requests      []domain.OrganizerRequest
	periods       map[time.Time]domain.PeriodStats
	intents       map[string]string
	lastFilter    domain.ParticipantFilter
	nextID        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		organizers: map[string]*domain.Organizer{
			"org-1": {
				ID:                   "org-1",
				UserID:               "user-1",
				Name:                 "Produtora Aurora",
				Email:                ptr("contato@aurora.com.br"),
				StripeAccountID:      ptr("acct_123"),
				StripeChargesEnabled: true,
			},
		},
		events: map[string]*domain.Event{
			"evt-1": {ID: "evt-1", OrganizerID: "org-1", Title: "Go Meetup", Status: domain.EventStatusPublished},
		},
		tickets:       map[string]*domain.Ticket{},
		registrations: map[string]*domain.Registration{},
		installments:  map[string][]domain.Installment{},
		periods:       map[time.Time]domain.PeriodStats{},
		intents:       map[string]string{},
	}
}

func (s *fakeStore) id(prefix string) string {
	s.nextID++
	return prefix + "-" + strconv.Itoa(s.nextID)
}

func (s *fakeStore) GetOrganizerByUser(_ context.Context, userID string) (*domain.Organizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.organizers {
		if o.UserID == userID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetOrganizer(_ context.Context, id string) (*domain.Organizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.organizers[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeStore) GetEventOrganizer(ctx context.Context, eventID string) (*domain.Organizer, error) {
	s.mu.Lock()
	e, ok := s.events[eventID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return s.GetOrganizer(ctx, e.OrganizerID)
}

func (s *fakeStore) UpdateProfile(_ context.Context, id string, upd *domain.OrganizerProfileUpdate, now time.Time) (*domain.Organizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.organizers[id]
	if !ok {
		return nil, domain.ErrOrganizerNotFound
	}
	if upd.Name != nil {
		o.Name = *upd.Name
	}
	if upd.Logo != nil {
		o.Logo = upd.Logo
	}
	o.DateUpdated = &now
	cp := *o
	return &cp, nil
}

func (s *fakeStore) SetStripeAccount(_ context.Context, id, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.organizers[id]
	if !ok {
		return domain.ErrOrganizerNotFound
	}
	o.StripeAccountID = &accountID
	return nil
}

func (s *fakeStore) UpdateStripeAccountState(_ context.Context, st domain.StripeAccountState) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.organizers {
		if o.StripeAccountID != nil && *o.StripeAccountID == st.AccountID {
			o.StripeChargesEnabled = st.ChargesEnabled
			o.StripePayoutsEnabled = st.PayoutsEnabled
			o.StripeOnboardingComplete = st.DetailsSubmitted && st.ChargesEnabled
			return o.ID, nil
		}
	}
	return "", domain.ErrOrganizerNotFound
}

func (s *fakeStore) CreateOrganizerRequest(_ context.Context, userID string, in *domain.OrganizerRequestInput) (*domain.OrganizerRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.UserID == userID && r.Status == domain.OrganizerRequestPending {
			return nil, domain.ErrPendingRequest
		}
	}
	req := domain.OrganizerRequest{ID: s.id("req"), UserID: userID, Status: domain.OrganizerRequestPending, Input: *in, DateCreated: testNow}
	s.requests = append(s.requests, req)
	return &req, nil
}

func (s *fakeStore) CreateEvent(_ context.Context, organizerID string, in *domain.EventInput) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &domain.Event{
		ID:          s.id("evt"),
		OrganizerID: organizerID,
		Title:       in.Title,
		Slug:        domain.Slugify(in.Title),
		Description: in.Description,
		StartDate:   *in.StartDate,
		EndDate:     *in.EndDate,
		EventType:   domain.EventType(in.EventType),
		Status:      in.FinalStatus(),
	}
	if in.CoverImage != "" {
		e.CoverImage = ptr(in.CoverImage)
	}
	s.events[e.ID] = e
	cp := *e
	return &cp, nil
}

func (s *fakeStore) GetEvent(_ context.Context, organizerID, id string) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok && e.OrganizerID == organizerID {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeStore) ListEvents(_ context.Context, organizerID, status string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Event{}
	for _, e := range s.events {
		if e.OrganizerID == organizerID && (status == "" || string(e.Status) == status) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) ListCategories(context.Context) ([]domain.EventCategory, error) {
	return []domain.EventCategory{{ID: "cat-1", Name: "Tecnologia", Slug: "tecnologia"}}, nil
}

func (s *fakeStore) ownsTicket(organizerID string, t *domain.Ticket) bool {
	e, ok := s.events[t.EventID]
	return ok && e.OrganizerID == organizerID
}

func (s *fakeStore) CreateTicket(_ context.Context, in *domain.TicketInput, buyerPrice float64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &domain.Ticket{
		ID:                       s.id("tkt"),
		EventID:                  in.EventID,
		Title:                    in.Title,
		Visibility:               domain.TicketVisibility(in.Visibility),
		Status:                   in.ResolvedStatus(),
		Price:                    in.Price,
		ServiceFeeType:           domain.FeeMode(in.ServiceFeeType),
		BuyerPrice:               buyerPrice,
		Quantity:                 in.Quantity,
		MinQuantityPerPurchase:   in.MinQuantityPerPurchase,
		MaxQuantityPerPurchase:   in.MaxQuantityPerPurchase,
		SaleStartDate:            in.SaleStartDate,
		SaleEndDate:              in.SaleEndDate,
		AllowInstallments:        in.AllowInstallments,
		MaxInstallments:          in.MaxInstallments,
		MinAmountForInstallments: in.MinAmountForInstallments,
	}
	s.tickets[t.ID] = t
	cp := *t
	return &cp, nil
}

func (s *fakeStore) GetTicket(_ context.Context, organizerID, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok && s.ownsTicket(organizerID, t) {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeStore) GetTicketForSale(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeStore) ListTickets(_ context.Context, f domain.TicketFilter) (domain.Page[domain.Ticket], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []domain.Ticket
	for _, t := range s.tickets {
		if s.ownsTicket(f.OrganizerID, t) {
			items = append(items, *t)
		}
	}
	page, limit := domain.NormalizePage(f.Page, f.Limit)
	return domain.NewPage(items, len(items), page, limit), nil
}

func (s *fakeStore) UpdateTicket(_ context.Context, organizerID, id string, in *domain.TicketInput, buyerPrice float64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok || !s.ownsTicket(organizerID, t) {
		return nil, nil
	}
	t.Title = in.Title
	t.Price = in.Price
	t.ServiceFeeType = domain.FeeMode(in.ServiceFeeType)
	t.BuyerPrice = buyerPrice
	t.Quantity = in.Quantity
	t.Status = in.ResolvedStatus()
	cp := *t
	return &cp, nil
}

func (s *fakeStore) DeleteTicket(_ context.Context, organizerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok || !s.ownsTicket(organizerID, t) {
		return domain.ErrTicketNotFound
	}
	if t.QuantitySold > 0 {
		return domain.ErrTicketHasSales
	}
	delete(s.tickets, id)
	return nil
}

func (s *fakeStore) DuplicateTicket(_ context.Context, organizerID, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok || !s.ownsTicket(organizerID, t) {
		return nil, nil
	}
	cp := *t
	cp.ID = s.id("tkt")
	cp.Title = t.Title + " - Cópia"
	cp.Status = domain.TicketStatusInactive
	cp.QuantitySold = 0
	s.tickets[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeStore) ownedRegistrations(organizerID string) []domain.Registration {
	var out []domain.Registration
	for _, r := range s.registrations {
		if e, ok := s.events[r.EventID]; ok && e.OrganizerID == organizerID {
			out = append(out, *r)
		}
	}
	return out
}

func (s *fakeStore) ListParticipants(_ context.Context, f domain.ParticipantFilter) (domain.Page[domain.Registration], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = f
	items := s.ownedRegistrations(f.OrganizerID)
	page, limit := domain.NormalizePage(f.Page, f.Limit)
	return domain.NewPage(items, len(items), page, limit), nil
}

func (s *fakeStore) ParticipantStats(_ context.Context, f domain.ParticipantFilter) (*domain.ParticipantStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &domain.ParticipantStats{}
	for _, r := range s.ownedRegistrations(f.OrganizerID) {
		st.Total++
		switch r.Status {
		case domain.RegistrationConfirmed:
			st.Confirmed++
		case domain.RegistrationPending:
			st.Pending++
		case domain.RegistrationCancelled:
			st.Cancelled++
		case domain.RegistrationCheckedIn:
			st.CheckedIn++
		}
	}
	return st, nil
}

func (s *fakeStore) ExportParticipants(_ context.Context, f domain.ParticipantFilter, maxRows int) ([]domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.ownedRegistrations(f.OrganizerID)
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return rows, nil
}

func (s *fakeStore) GetParticipant(_ context.Context, organizerID, id string) (*domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, nil
	}
	if e, ok := s.events[r.EventID]; !ok || e.OrganizerID != organizerID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) ListRegistrationInstallments(_ context.Context, _, registrationID string) ([]domain.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installments[registrationID], nil
}

func (s *fakeStore) owned(organizerID, id string) (*domain.Registration, error) {
	r, ok := s.registrations[id]
	if !ok {
		return nil, domain.ErrRegistrationNotFound
	}
	if e, ok := s.events[r.EventID]; !ok || e.OrganizerID != organizerID {
		return nil, domain.ErrRegistrationNotFound
	}
	return r, nil
}

func (s *fakeStore) CheckIn(_ context.Context, organizerID, id, by string, at time.Time) (*domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.owned(organizerID, id)
	if err != nil {
		return nil, err
	}
	if r.Status == domain.RegistrationCancelled {
		return nil, domain.ErrRegistrationClosed
	}
	if r.CheckedIn() {
		return nil, domain.ErrAlreadyCheckedIn
	}
	r.Status = domain.RegistrationCheckedIn
	r.CheckInDate = &at
	r.CheckedInBy = &by
	cp := *r
	return &cp, nil
}

func (s *fakeStore) UndoCheckIn(_ context.Context, organizerID, id string) (*domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.owned(organizerID, id)
	if err != nil {
		return nil, err
	}
	if !r.CheckedIn() {
		return nil, domain.ErrNotCheckedIn
	}
	r.Status = domain.RegistrationConfirmed
	r.CheckInDate = nil
	r.CheckedInBy = nil
	cp := *r
	return &cp, nil
}

func (s *fakeStore) CancelRegistration(_ context.Context, organizerID, id, reason string, at time.Time) (*domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.owned(organizerID, id)
	if err != nil {
		return nil, err
	}
	if !r.Cancellable() {
		return nil, domain.ErrCannotCancel
	}
	r.Status = domain.RegistrationCancelled
	r.CancelledAt = &at
	r.CancelledReason = &reason
	cp := *r
	return &cp, nil
}

func (s *fakeStore) FinanceOverview(_ context.Context, _ string, from, to time.Time) (*domain.FinanceOverview, error) {
	return &domain.FinanceOverview{From: from, To: to, GrossRevenue: 1000, ServiceFees: 100, NetRevenue: 900, PaidCount: 4}, nil
}

func (s *fakeStore) ListTransactions(_ context.Context, f domain.TransactionFilter) (domain.Page[domain.Transaction], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, limit := domain.NormalizePage(f.Page, f.Limit)
	return domain.NewPage(s.transactions, len(s.transactions), page, limit), nil
}

func (s *fakeStore) ExportTransactions(_ context.Context, _ domain.TransactionFilter, maxRows int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.transactions
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return rows, nil
}

func (s *fakeStore) Payouts(context.Context, string) ([]domain.Payout, error) {
	return []domain.Payout{{EventID: "evt-1", EventTitle: "Go Meetup", Gross: 1000, Fees: 100, Net: 900, TicketsSold: 8}}, nil
}

func (s *fakeStore) PeriodStats(_ context.Context, _, _ string, from, _ time.Time) (*domain.PeriodStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.periods[from]
	return &st, nil
}

func (s *fakeStore) TicketsTotal(context.Context, string, string) (int, error) {
	return 200, nil
}

func (s *fakeStore) InstallmentSummary(context.Context, string, time.Time) (*domain.InstallmentSummary, error) {
	return &domain.InstallmentSummary{PendingCount: 3, PendingAmount: 150, OverdueCount: 1, OverdueAmount: 50}, nil
}

func (s *fakeStore) CreateInstallmentRegistration(_ context.Context, nr store.NewRegistration, plan []domain.InstallmentPlanItem) (*domain.Registration, []domain.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg := &domain.Registration{
		ID:               s.id("reg"),
		TicketCode:       "TKT-TEST",
		EventID:          nr.Ticket.EventID,
		ParticipantName:  nr.Request.ParticipantName,
		ParticipantEmail: nr.Request.ParticipantEmail,
		Quantity:         nr.Request.Quantity,
		UnitPrice:        nr.UnitPrice,
		ServiceFee:       nr.ServiceFee,
		TotalAmount:      nr.TotalAmount,
		Status:           domain.RegistrationPending,
		PaymentStatus:    domain.PaymentPending,
		IsInstallment:    true,
	}
	s.registrations[reg.ID] = reg
	var out []domain.Installment
	for _, item := range plan {
		out = append(out, domain.Installment{
			ID:                s.id("inst"),
			RegistrationID:    reg.ID,
			InstallmentNumber: item.Number,
			TotalInstallments: len(plan),
			Amount:            item.Amount,
			DueDate:           item.DueDate,
			Status:            domain.InstallmentPending,
		})
	}
	s.installments[reg.ID] = out
	cp := *reg
	return &cp, out, nil
}

func (s *fakeStore) AttachPaymentIntent(_ context.Context, installmentID, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[installmentID] = intentID
	return nil
}

// fakeGateway records intents instead of calling Stripe.
type fakeGateway struct {
	mu       sync.Mutex
	intents  []payments.IntentRequest
	accounts int
	err      error
}

func (g *fakeGateway) CreateInstallmentIntent(_ context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.intents = append(g.intents, req)
	return &payments.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", Status: "requires_payment_method"}, nil
}

func (g *fakeGateway) CreateConnectAccount(context.Context, string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts++
	return "acct_new", nil
}

func (g *fakeGateway) OnboardingLink(_ context.Context, accountID, _, _ string) (string, error) {
	return "https://connect.stripe.com/setup/" + accountID, nil
}

func (g *fakeGateway) AccountStatus(_ context.Context, accountID string) (*domain.StripeAccountState, error) {
	return &domain.StripeAccountState{AccountID: accountID, ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}, nil
}

type testAPI struct {
	handler  http.Handler
	store    *fakeStore
	gateway  *fakeGateway
	verifier *auth.Verifier
	redis    *miniredis.Miniredis
	clock    *clock.Manual
	config   *config.Config
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := testLogger()
	clk := clock.NewManual(testNow)
	cfg := config.Defaults()
	cfg.DatabaseURL = "postgres://unused"
	cfg.RedisURL = "redis://unused"
	cfg.StripeWebhookSecret = webhookSecret
	cfg.ExportRateLimit = 2

	verifier := auth.NewVerifier(auth.Config{Secret: "directus-secret", Issuer: "directus"}, clk.Now)
	manager := wizard.NewManager(wizard.NewRedisDraftStore(rdb, cfg.DraftMaxAge), clk, cfg.DraftMaxAge, logger)
	t.Cleanup(manager.Flush)

	st := newFakeStore()
	gw := &fakeGateway{}
	h := NewRouter(Deps{
		Store:    st,
		Verifier: verifier,
		Gateway:  gw,
		Webhooks: engine.NewWebhookQueue(rdb, logger),
		Limiter:  engine.NewRateLimiter(rdb, logger),
		Wizards:  manager,
		Hub:      websocket.NewHub(logger, cfg.AllowedOrigins),
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Clock:    clk,
		Config:   cfg,
		Health: map[string]HealthCheck{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Logger: logger,
	})

	return &testAPI{handler: h, store: st, gateway: gw, verifier: verifier, redis: mr, clock: clk, config: cfg}
}

// token signs an access token for userID. "user-1" is organizer "org-1".
func (a *testAPI) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := a.verifier.Issue(userID, "user", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// do sends body (marshaled unless it is already []byte) as userID. An empty
// userID sends no token.
func (a *testAPI) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, userID))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	if got := decode[errorResponse](t, rec).Code; got != code {
		t.Errorf("expected code %q, got %q", code, got)
	}
}
