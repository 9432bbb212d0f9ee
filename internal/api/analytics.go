package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
)

type AnalyticsStore interface {
	PeriodStats(ctx context.Context, organizerID, eventID string, from, to time.Time) (*domain.PeriodStats, error)
	TicketsTotal(ctx context.Context, organizerID, eventID string) (int, error)
	InstallmentSummary(ctx context.Context, organizerID string, now time.Time) (*domain.InstallmentSummary, error)
}

type AnalyticsHandler struct {
	store  AnalyticsStore
	clock  clock.Clock
	logger *slog.Logger
}

func NewAnalyticsHandler(s AnalyticsStore, clk clock.Clock, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{store: s, clock: clk, logger: logger}
}

type kpiResponse struct {
	domain.KPIs
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// KPIs compares the selected window with the window of equal length
// right before it.
func (h *AnalyticsHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	from, to, err := requestRange(r, h.clock.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRange, err.Error())
		return
	}
	orgID := organizerID(r)
	eventID := r.URL.Query().Get("event_id")

	cur, err := h.store.PeriodStats(r.Context(), orgID, eventID, from, to)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to load analytics")
		return
	}
	prevFrom, prevTo := engine.PreviousPeriod(from, to)
	prev, err := h.store.PeriodStats(r.Context(), orgID, eventID, prevFrom, prevTo)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to load analytics")
		return
	}
	total, err := h.store.TicketsTotal(r.Context(), orgID, eventID)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to load analytics")
		return
	}

	respondJSON(w, http.StatusOK, kpiResponse{
		KPIs: engine.ComputeKPIs(*cur, *prev, total),
		From: from,
		To:   to,
	})
}

func (h *AnalyticsHandler) Installments(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.InstallmentSummary(r.Context(), organizerID(r), h.clock.Now())
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to load installment summary")
		return
	}
	respondJSON(w, http.StatusOK, s)
}
