package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func validEvent() EventInput {
	start := time.Date(2026, 11, 20, 19, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	return EventInput{
		Title:           "Go Meetup São Paulo",
		CategoryID:      "cat-1",
		Description:     "An evening of talks about Go in production.",
		StartDate:       &start,
		EndDate:         &end,
		EventType:       string(EventTypeInPerson),
		LocationName:    "Auditório Central",
		LocationAddress: "Av. Paulista, 1000",
		Status:          string(EventStatusDraft),
	}
}

func validTicket() TicketInput {
	return TicketInput{
		EventID:        "evt-1",
		Title:          "Lote 1",
		Visibility:     string(VisibilityPublic),
		Price:          120,
		ServiceFeeType: string(FeeModePassedToBuyer),
		Quantity:       100,
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr.Fields
}

func TestEventInput_Valid(t *testing.T) {
	in := validEvent()
	if err := in.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestEventInput_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EventInput)
		field  string
	}{
		{"short title", func(in *EventInput) { in.Title = "Go" }, "title"},
		{"missing category", func(in *EventInput) { in.CategoryID = "" }, "category_id"},
		{"short description", func(in *EventInput) { in.Description = "too short" }, "description"},
		{"end before start", func(in *EventInput) {
			e := in.StartDate.Add(-time.Hour)
			in.EndDate = &e
		}, "end_date"},
		{"registration after event", func(in *EventInput) {
			rs := in.StartDate.Add(-48 * time.Hour)
			re := in.EndDate.Add(time.Hour)
			in.RegistrationStart, in.RegistrationEnd = &rs, &re
		}, "registration_end"},
		{"online without url", func(in *EventInput) { in.EventType = string(EventTypeOnline) }, "online_url"},
		{"in person without address", func(in *EventInput) { in.LocationAddress = "" }, "location_address"},
		{"bad status", func(in *EventInput) { in.Status = "live" }, "status"},
		{"too many tags", func(in *EventInput) { in.Tags = make([]string, 11) }, "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validEvent()
			tt.mutate(&in)
			fields := fieldsOf(t, in.Validate())
			if _, ok := fields[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, fields)
			}
		})
	}
}

func TestEventInput_FinalStatus(t *testing.T) {
	in := validEvent()
	if in.FinalStatus() != EventStatusDraft {
		t.Errorf("expected draft, got %s", in.FinalStatus())
	}
	in.PublishAfterCreate = true
	if in.FinalStatus() != EventStatusPublished {
		t.Errorf("expected published, got %s", in.FinalStatus())
	}
}

func TestTicketInput_Installments(t *testing.T) {
	in := validTicket()
	in.AllowInstallments = true
	fields := fieldsOf(t, in.Validate())
	for _, f := range []string{"max_installments", "min_amount_for_installments"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("expected error on %q, got %v", f, fields)
		}
	}

	in.MaxInstallments = ptr(4)
	in.MinAmountForInstallments = ptr(50.0)
	if err := in.Validate(); err != nil {
		t.Errorf("expected valid installment ticket, got %v", err)
	}

	in.MaxInstallments = ptr(13)
	if _, ok := fieldsOf(t, in.Validate())["max_installments"]; !ok {
		t.Error("13 installments should be rejected")
	}
}

func TestTicketInput_Quantities(t *testing.T) {
	in := validTicket()
	in.MinQuantityPerPurchase = ptr(5)
	in.MaxQuantityPerPurchase = ptr(2)
	if _, ok := fieldsOf(t, in.Validate())["max_quantity_per_purchase"]; !ok {
		t.Error("max below min should be rejected")
	}

	in = validTicket()
	in.Quantity = 0
	if _, ok := fieldsOf(t, in.Validate())["quantity"]; !ok {
		t.Error("zero quantity should be rejected")
	}
}

func TestTicketInput_SalePeriod(t *testing.T) {
	in := validTicket()
	now := time.Now()
	in.SaleStartDate = &now
	in.SaleEndDate = &now
	if _, ok := fieldsOf(t, in.Validate())["sale_end_date"]; !ok {
		t.Error("equal sale start and end should be rejected")
	}
}

func TestTicketInput_FreeTicketAllowed(t *testing.T) {
	in := validTicket()
	in.Price = 0
	if err := in.Validate(); err != nil {
		t.Errorf("free ticket should validate, got %v", err)
	}
	if in.ResolvedStatus() != TicketStatusActive {
		t.Errorf("expected default active status, got %s", in.ResolvedStatus())
	}
}

func TestTicketInput_PriceLimit(t *testing.T) {
	in := validTicket()
	in.Price = 9999999999.99
	if err := in.Validate(); err != nil {
		t.Fatalf("price at the limit should validate, got %v", err)
	}

	in.Price = 1e307
	fields := fieldsOf(t, in.Validate())
	if fields["price"] != "must be less than or equal to 9999999999.99" {
		t.Errorf("unexpected price message %q", fields["price"])
	}
}

func TestOrganizerRequestInput(t *testing.T) {
	in := OrganizerRequestInput{
		OrganizationName:   "Acme Eventos",
		ContactEmail:       "contato@acme.com.br",
		Phone:              "11987654321",
		HasExperience:      "yes",
		EventTypes:         []string{"conference"},
		EstimatedAttendees: "100-500",
		EventFrequency:     "monthly",
		Description:        strings.Repeat("a", 60),
		Goals:              strings.Repeat("b", 25),
		AcceptTerms:        true,
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	in.Phone = "+55 11 9876"
	in.AcceptTerms = false
	in.Website = "acme"
	fields := fieldsOf(t, in.Validate())
	for _, f := range []string{"phone", "accept_terms", "website"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("expected error on %q, got %v", f, fields)
		}
	}
	if fields["accept_terms"] != "you must accept the terms to continue" {
		t.Errorf("unexpected terms message %q", fields["accept_terms"])
	}
}

func TestValidatePartial_OnlyNamedFields(t *testing.T) {
	in := EventInput{Title: "Go Meetup", CategoryID: "cat-1"}
	if v := ValidatePartial(&in, "Title", "CategoryID", "ShortDescription"); v.OrNil() != nil {
		t.Errorf("basic fields are valid, got %v", v)
	}
	if v := ValidatePartial(&in, "Description"); v.OrNil() == nil {
		t.Error("empty description should fail")
	}
}

func TestValidationError_FirstMessageWins(t *testing.T) {
	v := NewValidationError()
	v.Add("title", "first")
	v.Add("title", "second")
	if v.Fields["title"] != "first" {
		t.Errorf("expected first message to win, got %q", v.Fields["title"])
	}
	if !strings.Contains(v.Error(), "title: first") {
		t.Errorf("unexpected error string %q", v.Error())
	}
	if NewValidationError().OrNil() != nil {
		t.Error("empty validation error should be nil")
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, DefaultPageLimit},
		{-3, 2, 1, MinPageLimit},
		{4, 500, 4, MaxPageLimit},
		{2, 50, 2, 50},
	}
	for _, tt := range tests {
		p, l := NormalizePage(tt.page, tt.limit)
		if p != tt.wantPage || l != tt.wantLimit {
			t.Errorf("NormalizePage(%d, %d) = %d, %d; want %d, %d", tt.page, tt.limit, p, l, tt.wantPage, tt.wantLimit)
		}
	}

	pg := NewPage[int](nil, 41, 1, 20)
	if pg.TotalPages != 3 || pg.Items == nil {
		t.Errorf("unexpected page %+v", pg)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Festa Junina São João":     "festa-junina-sao-joao",
		"  GopherCon  Brasil 2026 ": "gophercon-brasil-2026",
		"Café & Código!!":           "cafe-codigo",
		"---":                       "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCancelRequest_TrimsReason(t *testing.T) {
	req := CancelRequest{Reason: "   curto   "}
	var verr *ValidationError
	if err := req.Validate(); !errors.As(err, &verr) || verr.Fields["reason"] == "" {
		t.Fatalf("expected reason error, got %v", err)
	}

	req = CancelRequest{Reason: "  participante pediu reembolso  "}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Reason != "participante pediu reembolso" {
		t.Errorf("reason not trimmed: %q", req.Reason)
	}
}
