package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-console/internal/domain"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/payments"
	"github.com/Priya8975/event-console/internal/wizard"
)

const (
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidQuery        = "invalid_query"
	codeValidationFailed    = "validation_failed"
	codeUnauthorized        = "unauthorized"
	codeTokenExpired        = "token_expired"
	codeForbidden           = "forbidden"
	codeNotFound            = "not_found"
	codeInvalidID           = "invalid_id"
	codeEventNotFound       = "event_not_found"
	codeTicketNotFound      = "ticket_not_found"
	codeRegistrationMissing = "registration_not_found"
	codeOrganizerNotFound   = "organizer_not_found"
	codeAlreadyCheckedIn    = "already_checked_in"
	codeNotCheckedIn        = "not_checked_in"
	codeRegistrationClosed  = "registration_cancelled"
	codeCannotCancel        = "cannot_cancel"
	codeTicketHasSales      = "ticket_has_sales"
	codeRequestPending      = "request_pending"
	codeAlreadyOrganizer    = "already_organizer"
	codeSoldOut             = "sold_out"
	codeSaleClosed          = "sale_closed"
	codeInvalidQuantity     = "invalid_quantity"
	codeInstallments        = "installments_not_allowed"
	codeStripeNotConnected  = "stripe_not_connected"
	codeInvalidAmount       = "invalid_amount"
	codeInvalidRange        = "invalid_range"
	codeWizardNotFound      = "wizard_not_found"
	codeInvalidStep         = "invalid_step"
	codeRateLimited         = "rate_limited"
	codeInvalidSignature    = "invalid_signature"
	codePaymentProvider     = "payment_provider_error"
	codeProviderUnavailable = "payment_provider_unavailable"
	codeInternalError       = "internal_error"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondJSON encodes v before touching the response, so a value that cannot
// be represented in JSON becomes a 500 instead of a truncated body.
func respondJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Default().Error("failed to encode response", "status", status, "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response", Code: codeInternalError})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Error: msg, Code: code})
}

func respondValidation(w http.ResponseWriter, v *domain.ValidationError) {
	respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error:  "validation failed",
		Code:   codeValidationFailed,
		Fields: v.Fields,
	})
}

// decodeJSON reads a JSON body into v. It writes the 400 itself and
// reports false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrTicketNotFound, http.StatusNotFound, codeTicketNotFound},
	{domain.ErrRegistrationNotFound, http.StatusNotFound, codeRegistrationMissing},
	{domain.ErrInstallmentNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrOrganizerNotFound, http.StatusNotFound, codeOrganizerNotFound},
	{domain.ErrAlreadyCheckedIn, http.StatusConflict, codeAlreadyCheckedIn},
	{domain.ErrNotCheckedIn, http.StatusConflict, codeNotCheckedIn},
	{domain.ErrRegistrationClosed, http.StatusConflict, codeRegistrationClosed},
	{domain.ErrCannotCancel, http.StatusConflict, codeCannotCancel},
	{domain.ErrTicketHasSales, http.StatusConflict, codeTicketHasSales},
	{domain.ErrPendingRequest, http.StatusConflict, codeRequestPending},
	{domain.ErrAlreadyOrganizer, http.StatusConflict, codeAlreadyOrganizer},
	{domain.ErrSoldOut, http.StatusConflict, codeSoldOut},
	{domain.ErrSaleClosed, http.StatusConflict, codeSaleClosed},
	{domain.ErrInvalidQuantity, http.StatusUnprocessableEntity, codeInvalidQuantity},
	{domain.ErrInstallmentsDisabled, http.StatusUnprocessableEntity, codeInstallments},
	{domain.ErrTooManyInstallments, http.StatusUnprocessableEntity, codeInstallments},
	{domain.ErrBelowInstallmentMin, http.StatusUnprocessableEntity, codeInstallments},
	{domain.ErrStripeNotConnected, http.StatusConflict, codeStripeNotConnected},
	{domain.ErrNotOrganizer, http.StatusForbidden, codeForbidden},
	{engine.ErrInvalidAmount, http.StatusBadRequest, codeInvalidAmount},
	{engine.ErrInvalidFeeMode, http.StatusBadRequest, codeInvalidAmount},
	{engine.ErrInvalidRange, http.StatusBadRequest, codeInvalidRange},
	{wizard.ErrUnknownKind, http.StatusNotFound, codeWizardNotFound},
	{wizard.ErrSessionNotFound, http.StatusNotFound, codeWizardNotFound},
	{wizard.ErrStepOutOfRange, http.StatusConflict, codeInvalidStep},
	{wizard.ErrStepNotVisited, http.StatusConflict, codeInvalidStep},
	{wizard.ErrNotOnLastStep, http.StatusConflict, codeInvalidStep},
	{wizard.ErrInvalidFormPatch, http.StatusBadRequest, codeInvalidRequestBody},
}

// respondDomainError maps known errors to their status and code. Anything
// else is logged and reported as a 500 with msg.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		respondValidation(w, verr)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			respondError(w, m.status, m.code, err.Error())
			return
		}
	}
	logger.Error(msg, "error", err)
	respondError(w, http.StatusInternalServerError, codeInternalError, msg)
}

// respondGatewayError answers a failed Stripe call: 503 while the circuit is
// open, 502 otherwise.
func respondGatewayError(w http.ResponseWriter, logger *slog.Logger, err error, msg string, args ...any) {
	if errors.Is(err, payments.ErrProviderUnavailable) {
		respondError(w, http.StatusServiceUnavailable, codeProviderUnavailable, "payment provider temporarily unavailable")
		return
	}
	logger.Error(msg, append([]any{"error", err}, args...)...)
	respondError(w, http.StatusBadGateway, codePaymentProvider, msg)
}
