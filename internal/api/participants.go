package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/export"
	"github.com/Priya8975/event-console/internal/metrics"
	"github.com/Priya8975/event-console/internal/websocket"
	"github.com/go-chi/chi/v5"
)

type ParticipantStore interface {
	ListParticipants(ctx context.Context, f domain.ParticipantFilter) (domain.Page[domain.Registration], error)
	ParticipantStats(ctx context.Context, f domain.ParticipantFilter) (*domain.ParticipantStats, error)
	ExportParticipants(ctx context.Context, f domain.ParticipantFilter, maxRows int) ([]domain.Registration, error)
	GetParticipant(ctx context.Context, organizerID, id string) (*domain.Registration, error)
	ListRegistrationInstallments(ctx context.Context, organizerID, registrationID string) ([]domain.Installment, error)
	CheckIn(ctx context.Context, organizerID, id, by string, at time.Time) (*domain.Registration, error)
	UndoCheckIn(ctx context.Context, organizerID, id string) (*domain.Registration, error)
	CancelRegistration(ctx context.Context, organizerID, id, reason string, at time.Time) (*domain.Registration, error)
}

// RateLimiter caps expensive operations per organizer.
type RateLimiter interface {
	Allow(ctx context.Context, scope, id string, limit int, window time.Duration) bool
}

// Broadcaster pushes live updates to the organizer's dashboards.
type Broadcaster interface {
	Broadcast(event websocket.DashboardEvent)
}

// ExportLimits bound CSV exports.
type ExportLimits struct {
	MaxRows   int
	RateLimit int
	Window    time.Duration
}

type ParticipantHandler struct {
	store   ParticipantStore
	limiter RateLimiter
	limits  ExportLimits
	hub     Broadcaster
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewParticipantHandler(s ParticipantStore, limiter RateLimiter, limits ExportLimits, hub Broadcaster, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{store: s, limiter: limiter, limits: limits, hub: hub, clock: clk, metrics: m, logger: logger}
}

type participantList struct {
	domain.Page[domain.Registration]
	Stats *domain.ParticipantStats `json:"stats"`
}

type participantDetail struct {
	*domain.Registration
	Installments []domain.Installment `json:"installments"`
}

// participantFilter reads the listing filters shared by List and Export.
func participantFilter(r *http.Request) (domain.ParticipantFilter, error) {
	f := domain.ParticipantFilter{
		OrganizerID:     organizerID(r),
		Search:          strings.TrimSpace(r.URL.Query().Get("search")),
		EventIDs:        queryList(r, "event_id"),
		TicketTypeIDs:   queryList(r, "ticket_type_id"),
		Statuses:        queryList(r, "status"),
		PaymentStatuses: queryList(r, "payment_status"),
		Page:            queryInt(r, "page", 1),
		Limit:           queryInt(r, "limit", domain.DefaultPageLimit),
	}

	var err error
	if f.CheckedIn, err = queryBool(r, "checked_in"); err != nil {
		return f, err
	}
	if f.CheckInFrom, err = queryTime(r, "check_in_from"); err != nil {
		return f, err
	}
	if f.CheckInTo, err = queryTimeEnd(r, "check_in_to"); err != nil {
		return f, err
	}

	// "-field" sorts descending.
	if sort := r.URL.Query().Get("sort"); sort != "" {
		f.SortDesc = strings.HasPrefix(sort, "-")
		f.SortField = strings.TrimPrefix(sort, "-")
	}
	return f, nil
}

func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := participantFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}

	page, err := h.store.ListParticipants(r.Context(), f)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to list participants")
		return
	}
	stats, err := h.store.ParticipantStats(r.Context(), f)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to count participants")
		return
	}
	respondJSON(w, http.StatusOK, participantList{Page: page, Stats: stats})
}

func (h *ParticipantHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := organizerID(r)
	p, err := h.store.GetParticipant(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to get participant")
		return
	}
	if p == nil {
		respondError(w, http.StatusNotFound, codeRegistrationMissing, "participant not found")
		return
	}

	installments := []domain.Installment{}
	if p.IsInstallment {
		installments, err = h.store.ListRegistrationInstallments(r.Context(), orgID, p.ID)
		if err != nil {
			respondDomainError(w, h.logger, err, "failed to list installments")
			return
		}
	}
	respondJSON(w, http.StatusOK, participantDetail{Registration: p, Installments: installments})
}

func (h *ParticipantHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, orgID := chi.URLParam(r, "id"), organizerID(r)
	now := h.clock.Now()
	p, err := h.store.CheckIn(r.Context(), orgID, id, userID(r), now)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to check in participant")
		return
	}
	h.metrics.CheckIn()
	h.logger.Info("participant checked in", "registration_id", id, "organizer_id", orgID)
	h.hub.Broadcast(websocket.DashboardEvent{
		Type:           "check_in",
		OrganizerID:    orgID,
		EventID:        p.EventID,
		RegistrationID: p.ID,
		Timestamp:      now,
	})
	respondJSON(w, http.StatusOK, p)
}

func (h *ParticipantHandler) UndoCheckIn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.store.UndoCheckIn(r.Context(), organizerID(r), id)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to undo check-in")
		return
	}
	h.logger.Info("check-in undone", "registration_id", id, "organizer_id", organizerID(r))
	respondJSON(w, http.StatusOK, p)
}

func (h *ParticipantHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, h.logger, err, "failed to cancel registration")
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.store.CancelRegistration(r.Context(), organizerID(r), id, req.Reason, h.clock.Now())
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to cancel registration")
		return
	}
	h.logger.Info("registration cancelled", "registration_id", id, "organizer_id", organizerID(r))
	respondJSON(w, http.StatusOK, p)
}

// Export streams the filtered participants as CSV.
func (h *ParticipantHandler) Export(w http.ResponseWriter, r *http.Request) {
	orgID := organizerID(r)
	if !h.limiter.Allow(r.Context(), "export", orgID, h.limits.RateLimit, h.limits.Window) {
		respondError(w, http.StatusTooManyRequests, codeRateLimited, "too many exports, try again shortly")
		return
	}

	f, err := participantFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	rows, err := h.store.ExportParticipants(r.Context(), f, h.limits.MaxRows)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to export participants")
		return
	}

	writeCSVHeaders(w, export.Filename("participantes", h.clock.Now()))
	if err := export.WriteParticipants(w, rows); err != nil {
		h.logger.Error("failed to write participant export", "error", err, "organizer_id", orgID)
		return
	}
	h.metrics.Export("participants")
	h.logger.Info("participants exported", "organizer_id", orgID, "rows", len(rows))
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
}
