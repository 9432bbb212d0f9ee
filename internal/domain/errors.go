package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrInstallmentNotFound  = errors.New("installment not found")
	ErrOrganizerNotFound    = errors.New("organizer not found")
	ErrAlreadyCheckedIn     = errors.New("participant already checked in")
	ErrNotCheckedIn         = errors.New("participant not checked in")
	ErrInstallmentsDisabled = errors.New("ticket does not allow installments")
	ErrTooManyInstallments  = errors.New("installment count above ticket maximum")
	ErrBelowInstallmentMin  = errors.New("amount below installment minimum")
	ErrStripeNotConnected   = errors.New("organizer has no stripe account")
	ErrInvalidID            = errors.New("invalid id")
	ErrRegistrationClosed   = errors.New("registration is cancelled")
	ErrCannotCancel         = errors.New("only confirmed or pending registrations can be cancelled")
	ErrTicketHasSales       = errors.New("ticket has sales and cannot be deleted")
	ErrNotOrganizer         = errors.New("user is not an organizer")
	ErrPendingRequest       = errors.New("an organizer request is already pending")
	ErrSoldOut              = errors.New("not enough tickets available")
	ErrSaleClosed           = errors.New("ticket is not on sale")
	ErrInvalidQuantity      = errors.New("quantity outside the ticket's per-purchase limits")
	ErrAlreadyOrganizer     = errors.New("user is already an organizer")
)

// ValidationError carries field-scoped messages keyed by the JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
}

// Merge copies messages from other, keeping existing ones.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for f, m := range other.Fields {
		e.Add(f, m)
	}
}

// OrNil returns nil when no field failed, so callers can return it as an error.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
