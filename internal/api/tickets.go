package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/metrics"
	"github.com/go-chi/chi/v5"
)

type TicketStore interface {
	GetEvent(ctx context.Context, organizerID, id string) (*domain.Event, error)
	CreateTicket(ctx context.Context, in *domain.TicketInput, buyerPrice float64) (*domain.Ticket, error)
	GetTicket(ctx context.Context, organizerID, id string) (*domain.Ticket, error)
	ListTickets(ctx context.Context, f domain.TicketFilter) (domain.Page[domain.Ticket], error)
	UpdateTicket(ctx context.Context, organizerID, id string, in *domain.TicketInput, buyerPrice float64) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, organizerID, id string) error
	DuplicateTicket(ctx context.Context, organizerID, id string) (*domain.Ticket, error)
}

type TicketHandler struct {
	store   TicketStore
	fees    engine.FeeConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewTicketHandler(s TicketStore, fees engine.FeeConfig, m *metrics.Metrics, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{store: s, fees: fees, metrics: m, logger: logger}
}

type ticketDetail struct {
	*domain.Ticket
	Fees      engine.FeeBreakdown `json:"fees"`
	Available int                 `json:"available"`
}

func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.store.ListTickets(r.Context(), domain.TicketFilter{
		OrganizerID: organizerID(r),
		Search:      r.URL.Query().Get("search"),
		EventIDs:    queryList(r, "event_id"),
		Statuses:    queryList(r, "status"),
		Page:        queryInt(r, "page", 1),
		Limit:       queryInt(r, "limit", domain.DefaultPageLimit),
	})
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to list tickets")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTicket(r.Context(), organizerID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to get ticket")
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, codeTicketNotFound, "ticket not found")
		return
	}

	b, err := engine.Calculate(t.Price, t.ServiceFeeType, h.fees)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to price ticket")
		return
	}
	respondJSON(w, http.StatusOK, ticketDetail{Ticket: t, Fees: b, Available: t.Available()})
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.TicketInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.create(r.Context(), organizerID(r), &in)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to create ticket")
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// create is shared by the API and the ticket wizard. The event must belong
// to the organizer.
func (h *TicketHandler) create(ctx context.Context, orgID string, in *domain.TicketInput) (*domain.Ticket, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	event, err := h.store.GetEvent(ctx, orgID, in.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	buyer, err := engine.BuyerPrice(in.Price, domain.FeeMode(in.ServiceFeeType), h.fees)
	if err != nil {
		return nil, err
	}
	t, err := h.store.CreateTicket(ctx, in, buyer)
	if err != nil {
		return nil, err
	}

	h.metrics.TicketCreated()
	h.logger.Info("ticket created", "ticket_id", t.ID, "event_id", t.EventID, "organizer_id", orgID)
	return t, nil
}

// Update merges the body over the stored ticket, so omitted fields keep
// their values. A ticket cannot move to another event.
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := organizerID(r)

	t, err := h.store.GetTicket(r.Context(), orgID, id)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to get ticket")
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, codeTicketNotFound, "ticket not found")
		return
	}

	in := t.Input()
	if !decodeJSON(w, r, &in) {
		return
	}
	in.EventID = t.EventID
	if in.Quantity < t.QuantitySold {
		v := domain.NewValidationError()
		v.Add("quantity", "quantity cannot be lower than the tickets already sold")
		respondValidation(w, v)
		return
	}
	if err := in.Validate(); err != nil {
		respondDomainError(w, h.logger, err, "failed to update ticket")
		return
	}

	buyer, err := engine.BuyerPrice(in.Price, domain.FeeMode(in.ServiceFeeType), h.fees)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to price ticket")
		return
	}
	updated, err := h.store.UpdateTicket(r.Context(), orgID, id, &in, buyer)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to update ticket")
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, codeTicketNotFound, "ticket not found")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteTicket(r.Context(), organizerID(r), id); err != nil {
		respondDomainError(w, h.logger, err, "failed to delete ticket")
		return
	}
	h.logger.Info("ticket deleted", "ticket_id", id, "organizer_id", organizerID(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TicketHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.DuplicateTicket(r.Context(), organizerID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to duplicate ticket")
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, codeTicketNotFound, "ticket not found")
		return
	}
	h.metrics.TicketCreated()
	respondJSON(w, http.StatusCreated, t)
}
