package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/export"
	"github.com/Priya8975/event-console/internal/metrics"
)

type FinanceStore interface {
	FinanceOverview(ctx context.Context, organizerID string, from, to time.Time) (*domain.FinanceOverview, error)
	ListTransactions(ctx context.Context, f domain.TransactionFilter) (domain.Page[domain.Transaction], error)
	ExportTransactions(ctx context.Context, f domain.TransactionFilter, maxRows int) ([]domain.Transaction, error)
	Payouts(ctx context.Context, organizerID string) ([]domain.Payout, error)
}

type FinanceHandler struct {
	store   FinanceStore
	limiter RateLimiter
	limits  ExportLimits
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewFinanceHandler(s FinanceStore, limiter RateLimiter, limits ExportLimits, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *FinanceHandler {
	return &FinanceHandler{store: s, limiter: limiter, limits: limits, clock: clk, metrics: m, logger: logger}
}

// requestRange resolves range/from/to query parameters against now.
func requestRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	from, err := queryTime(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return engine.ResolveRange(domain.FinanceRange(r.URL.Query().Get("range")), now, from, to)
}

func (h *FinanceHandler) Overview(w http.ResponseWriter, r *http.Request) {
	from, to, err := requestRange(r, h.clock.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRange, err.Error())
		return
	}
	o, err := h.store.FinanceOverview(r.Context(), organizerID(r), from, to)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to load finance overview")
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *FinanceHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "date_from")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	to, err := queryTimeEnd(r, "date_to")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}

	page, err := h.store.ListTransactions(r.Context(), domain.TransactionFilter{
		OrganizerID: organizerID(r),
		Status:      r.URL.Query().Get("status"),
		EventID:     r.URL.Query().Get("event_id"),
		Search:      strings.TrimSpace(r.URL.Query().Get("search")),
		DateFrom:    from,
		DateTo:      to,
		Page:        queryInt(r, "page", 1),
		Limit:       queryInt(r, "limit", domain.DefaultPageLimit),
	})
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *FinanceHandler) Payouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.store.Payouts(r.Context(), organizerID(r))
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to load payouts")
		return
	}
	respondJSON(w, http.StatusOK, payouts)
}

type financeExportRequest struct {
	Format   string `json:"format"`
	Status   string `json:"status"`
	EventID  string `json:"event_id"`
	Search   string `json:"search"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// Export writes the filtered ledger as CSV.
func (h *FinanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req financeExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Format != "" && req.Format != "csv" {
		respondError(w, http.StatusBadRequest, codeInvalidQuery, "only csv exports are supported")
		return
	}
	from, err := parseTime("date_from", req.DateFrom)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	to, err := parseTimeEnd("date_to", req.DateTo)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}

	orgID := organizerID(r)
	if !h.limiter.Allow(r.Context(), "export", orgID, h.limits.RateLimit, h.limits.Window) {
		respondError(w, http.StatusTooManyRequests, codeRateLimited, "too many exports, try again shortly")
		return
	}

	rows, err := h.store.ExportTransactions(r.Context(), domain.TransactionFilter{
		OrganizerID: orgID,
		Status:      req.Status,
		EventID:     req.EventID,
		Search:      strings.TrimSpace(req.Search),
		DateFrom:    from,
		DateTo:      to,
	}, h.limits.MaxRows)
	if err != nil {
		respondDomainError(w, h.logger, err, "failed to export transactions")
		return
	}

	writeCSVHeaders(w, export.Filename("transacoes", h.clock.Now()))
	if err := export.WriteTransactions(w, rows); err != nil {
		h.logger.Error("failed to write transaction export", "error", err, "organizer_id", orgID)
		return
	}
	h.metrics.Export("transactions")
	h.logger.Info("transactions exported", "organizer_id", orgID, "rows", len(rows))
}
