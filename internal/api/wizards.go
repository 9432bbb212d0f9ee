package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/metrics"
	"github.com/Priya8975/event-console/internal/wizard"
	"github.com/go-chi/chi/v5"
)

type WizardHandler struct {
	manager    *wizard.Manager
	events     *EventHandler
	tickets    *TicketHandler
	organizers *OrganizerHandler
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewWizardHandler(m *wizard.Manager, events *EventHandler, tickets *TicketHandler, organizers *OrganizerHandler, mt *metrics.Metrics, logger *slog.Logger) *WizardHandler {
	return &WizardHandler{
		manager:    m,
		events:     events,
		tickets:    tickets,
		organizers: organizers,
		metrics:    mt,
		logger:     logger,
	}
}

// wizardFailure carries the session state next to the field errors so the
// client can jump to the offending step.
type wizardFailure struct {
	errorResponse
	State wizard.State `json:"state"`
}

// kind reads the wizard kind from the path. Event and ticket wizards need
// an organizer; anyone signed in may request to become one.
func (h *WizardHandler) kind(w http.ResponseWriter, r *http.Request) (string, bool) {
	kind := chi.URLParam(r, "kind")
	switch kind {
	case wizard.KindEvent, wizard.KindTicket:
		if organizerID(r) == "" {
			respondError(w, http.StatusForbidden, codeForbidden, domain.ErrNotOrganizer.Error())
			return "", false
		}
	case wizard.KindOrganizer:
	default:
		respondError(w, http.StatusNotFound, codeWizardNotFound, wizard.ErrUnknownKind.Error())
		return "", false
	}
	return kind, true
}

func (h *WizardHandler) respond(w http.ResponseWriter, st wizard.State, err error, msg string) {
	if err == nil {
		respondJSON(w, http.StatusOK, st)
		return
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		st.Errors = verr.Fields
		respondJSON(w, http.StatusUnprocessableEntity, wizardFailure{
			errorResponse: errorResponse{Error: "validation failed", Code: codeValidationFailed, Fields: verr.Fields},
			State:         st,
		})
		return
	}
	respondDomainError(w, h.logger, err, msg)
}

// Open resumes the user's session or starts one, restoring a recent draft.
func (h *WizardHandler) Open(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	st, err := h.manager.Open(r.Context(), kind, userID(r))
	h.respond(w, st, err, "failed to open wizard")
}

func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	st, err := h.manager.Get(kind, chi.URLParam(r, "id"), userID(r))
	h.respond(w, st, err, "failed to get wizard")
}

// Update merges a partial form. The body is the raw field patch.
func (h *WizardHandler) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || !json.Valid(patch) {
		respondError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	st, err := h.manager.Update(kind, chi.URLParam(r, "id"), userID(r), patch)
	h.respond(w, st, err, "failed to update wizard")
}

func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	st, err := h.manager.Next(kind, chi.URLParam(r, "id"), userID(r))
	h.respond(w, st, err, "failed to advance wizard")
}

func (h *WizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	st, err := h.manager.Back(kind, chi.URLParam(r, "id"), userID(r))
	h.respond(w, st, err, "failed to go back")
}

func (h *WizardHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	var body struct {
		Step *int `json:"step"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Step == nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequestBody, "step is required")
		return
	}
	st, err := h.manager.GoTo(kind, chi.URLParam(r, "id"), userID(r), *body.Step)
	h.respond(w, st, err, "failed to change step")
}

// Submit validates every step and creates the resource the wizard builds.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	uid, orgID := userID(r), organizerID(r)

	submit := func(ctx context.Context, form any) (any, error) {
		switch in := form.(type) {
		case *domain.EventInput:
			return h.events.create(ctx, orgID, in)
		case *domain.TicketInput:
			return h.tickets.create(ctx, orgID, in)
		case *domain.OrganizerRequestInput:
			return h.organizers.request(ctx, uid, orgID, in)
		default:
			return nil, fmt.Errorf("unexpected wizard form %T", form)
		}
	}

	result, st, err := h.manager.Submit(r.Context(), kind, chi.URLParam(r, "id"), uid, submit)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			h.metrics.WizardSubmit(kind, "invalid")
		} else {
			h.metrics.WizardSubmit(kind, "failed")
		}
		h.respond(w, st, err, "failed to submit wizard")
		return
	}

	h.metrics.WizardSubmit(kind, "created")
	respondJSON(w, http.StatusCreated, result)
}

func (h *WizardHandler) Discard(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	if err := h.manager.Discard(r.Context(), kind, chi.URLParam(r, "id"), userID(r)); err != nil {
		respondDomainError(w, h.logger, err, "failed to discard wizard")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
