package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-console/internal/cms"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/go-chi/chi/v5"
)

type EventStore interface {
	CreateEvent(ctx context.Context, organizerID string, in *domain.EventInput) (*domain.Event, error)
	GetEvent(ctx context.Context, organizerID, id string) (*domain.Event, error)
	ListEvents(ctx context.Context, organizerID, status string) ([]domain.Event, error)
	ListCategories(ctx context.Context) ([]domain.EventCategory, error)
}

type EventHandler struct {
	store  EventStore
	cmsURL string
	logger *slog.Logger
}

func NewEventHandler(s EventStore, cmsURL string, logger *slog.Logger) *EventHandler {
	return &EventHandler{store: s, cmsURL: cmsURL, logger: logger}
}

var coverImage = cms.AssetOptions{Width: 1200, Fit: "cover", Quality: 80}

func (h *EventHandler) withAssets(e *domain.Event) {
	if e.CoverImage != nil {
		e.CoverImageURL = cms.AssetURL(h.cmsURL, *e.CoverImage, coverImage)
	}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListEvents(r.Context(), organizerID(r), r.URL.Query().Get("status"))
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to list events")
		return
	}
	for i := range events {
		h.withAssets(&events[i])
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.store.GetEvent(r.Context(), organizerID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to get event")
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, codeEventNotFound, "event not found")
		return
	}
	h.withAssets(event)
	respondJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	event, err := h.create(r.Context(), organizerID(r), &in)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to create event")
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// create is shared by the API and the event wizard.
func (h *EventHandler) create(ctx context.Context, orgID string, in *domain.EventInput) (*domain.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	event, err := h.store.CreateEvent(ctx, orgID, in)
	if err != nil {
		return nil, err
	}
	h.withAssets(event)
	h.logger.Info("event created", "event_id", event.ID, "organizer_id", orgID, "status", event.Status)
	return event, nil
}

func (h *EventHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to list categories")
		return
	}
	respondJSON(w, http.StatusOK, cats)
}
