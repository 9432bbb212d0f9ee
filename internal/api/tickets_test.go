package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
)

func validEventBody() map[string]any {
	start := time.Date(2026, 11, 20, 19, 0, 0, 0, time.UTC)
	return map[string]any{
		"title":            "Go Meetup São Paulo",
		"category_id":      "cat-1",
		"description":      "An evening of talks about Go in production.",
		"cover_image":      "file-123",
		"start_date":       start,
		"end_date":         start.Add(3 * time.Hour),
		"event_type":       "in_person",
		"location_name":    "Auditório Central",
		"location_address": "Av. Paulista, 1000",
		"status":           "draft",
	}
}

func validTicketBody() map[string]any {
	return map[string]any{
		"event_id":         "evt-1",
		"title":            "Lote 1",
		"visibility":       "public",
		"price":            100,
		"service_fee_type": "passed_to_buyer",
		"quantity":         50,
	}
}

func TestEvents_CreateAndList(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/events", "user-1", validEventBody())
	expectStatus(t, rec, http.StatusCreated)
	created := decode[domain.Event](t, rec)
	if created.OrganizerID != "org-1" || created.Slug != "go-meetup-sao-paulo" {
		t.Errorf("unexpected event %+v", created)
	}
	if want := "http://localhost:8055/assets/file-123?fit=cover&quality=80&width=1200"; created.CoverImageURL != want {
		t.Errorf("expected cover url %q, got %q", want, created.CoverImageURL)
	}

	rec = a.do(t, http.MethodGet, "/api/events?status=draft", "user-1", nil)
	expectStatus(t, rec, http.StatusOK)
	if events := decode[[]domain.Event](t, rec); len(events) != 1 || events[0].ID != created.ID {
		t.Errorf("expected only the new draft, got %+v", events)
	}
}

func TestEvents_CreateValidation(t *testing.T) {
	a := newTestAPI(t)
	body := validEventBody()
	body["event_type"] = "online"

	rec := a.do(t, http.MethodPost, "/api/events", "user-1", body)
	expectCode(t, rec, http.StatusUnprocessableEntity, codeValidationFailed)
	if fields := decode[errorResponse](t, rec).Fields; fields["online_url"] == "" {
		t.Errorf("expected online_url error, got %v", fields)
	}
}

func TestEvents_GetOtherOrganizer(t *testing.T) {
	a := newTestAPI(t)
	a.store.events["evt-x"] = &domain.Event{ID: "evt-x", OrganizerID: "org-2", Title: "Not yours"}

	rec := a.do(t, http.MethodGet, "/api/events/evt-x", "user-1", nil)
	expectCode(t, rec, http.StatusNotFound, codeEventNotFound)
}

func TestTickets_CreatePricesForBuyer(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/tickets", "user-1", validTicketBody())
	expectStatus(t, rec, http.StatusCreated)
	created := decode[domain.Ticket](t, rec)
	if created.BuyerPrice != 109.78 {
		t.Errorf("expected buyer price 109.78, got %v", created.BuyerPrice)
	}
	if created.Status != domain.TicketStatusActive {
		t.Errorf("expected active ticket, got %q", created.Status)
	}

	rec = a.do(t, http.MethodGet, "/api/tickets/"+created.ID, "user-1", nil)
	expectStatus(t, rec, http.StatusOK)
	detail := decode[struct {
		Fees struct {
			PlatformFee float64 `json:"platform_fee"`
		} `json:"fees"`
		Available int `json:"available"`
	}](t, rec)
	if detail.Available != 50 || detail.Fees.PlatformFee != 5 {
		t.Errorf("unexpected detail %+v", detail)
	}
}

func TestTickets_CreateForForeignEvent(t *testing.T) {
	a := newTestAPI(t)
	a.store.events["evt-x"] = &domain.Event{ID: "evt-x", OrganizerID: "org-2"}
	body := validTicketBody()
	body["event_id"] = "evt-x"

	rec := a.do(t, http.MethodPost, "/api/tickets", "user-1", body)
	expectCode(t, rec, http.StatusNotFound, codeEventNotFound)
}

func TestTickets_UpdateMergesAndGuardsSold(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, "/api/tickets", "user-1", validTicketBody())
	expectStatus(t, rec, http.StatusCreated)
	created := decode[domain.Ticket](t, rec)
	a.store.tickets[created.ID].QuantitySold = 30

	rec = a.do(t, http.MethodPatch, "/api/tickets/"+created.ID, "user-1", map[string]any{"title": "Lote 2", "event_id": "evt-x"})
	expectStatus(t, rec, http.StatusOK)
	updated := decode[domain.Ticket](t, rec)
	if updated.Title != "Lote 2" || updated.Price != 100 || updated.EventID != "evt-1" {
		t.Errorf("unexpected update %+v", updated)
	}

	rec = a.do(t, http.MethodPatch, "/api/tickets/"+created.ID, "user-1", map[string]any{"quantity": 10})
	expectCode(t, rec, http.StatusUnprocessableEntity, codeValidationFailed)
}

func TestTickets_DeleteAndDuplicate(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, "/api/tickets", "user-1", validTicketBody())
	created := decode[domain.Ticket](t, rec)

	rec = a.do(t, http.MethodPost, "/api/tickets/"+created.ID+"/duplicate", "user-1", nil)
	expectStatus(t, rec, http.StatusCreated)
	dup := decode[domain.Ticket](t, rec)
	if dup.Title != "Lote 1 - Cópia" || dup.Status != domain.TicketStatusInactive {
		t.Errorf("unexpected duplicate %+v", dup)
	}

	a.store.tickets[created.ID].QuantitySold = 1
	rec = a.do(t, http.MethodDelete, "/api/tickets/"+created.ID, "user-1", nil)
	expectCode(t, rec, http.StatusConflict, codeTicketHasSales)

	rec = a.do(t, http.MethodDelete, "/api/tickets/"+dup.ID, "user-1", nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = a.do(t, http.MethodDelete, "/api/tickets/"+dup.ID, "user-1", nil)
	expectCode(t, rec, http.StatusNotFound, codeTicketNotFound)
}

func TestFeePreview(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		query      string
		wantStatus int
		wantBuyer  float64
		wantLabel  string
	}{
		{"price=100", http.StatusOK, 109.78, "R$ 109,78"},
		{"price=100&mode=absorbed", http.StatusOK, 100, "R$ 100,00"},
		{"price=0", http.StatusOK, 0, "R$ 0,00"},
		{"price=-1", http.StatusBadRequest, 0, ""},
		{"price=abc", http.StatusBadRequest, 0, ""},
		{"price=10&mode=split", http.StatusBadRequest, 0, ""},
		{"price=1e307", http.StatusBadRequest, 0, ""},
		{"price=9999999999.99", http.StatusBadRequest, 0, ""},
		{"price=9999999999.99&mode=absorbed", http.StatusOK, 9999999999.99, "R$ 9.999.999.999,99"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := a.do(t, http.MethodGet, "/api/fees/preview?"+tt.query, "", nil)
			expectStatus(t, rec, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}
			got := decode[feePreviewResponse](t, rec)
			if got.BuyerPrice != tt.wantBuyer || got.BuyerPriceLabel != tt.wantLabel {
				t.Errorf("expected %v (%s), got %v (%s)", tt.wantBuyer, tt.wantLabel, got.BuyerPrice, got.BuyerPriceLabel)
			}
		})
	}
}
