package engine

import (
	"fmt"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
)

const (
	MinInstallments = 2
	MaxInstallments = 12

	// Used when a ticket enables installments without its own limits.
	DefaultMaxInstallments          = 4
	DefaultMinAmountForInstallments = 50.0
)

// PlanInstallments splits total into n monthly installments. Every
// installment but the first gets round2(total/n); the first absorbs the
// rounding remainder so the plan sums exactly to total.
func PlanInstallments(total float64, n int, start time.Time) ([]domain.InstallmentPlanItem, error) {
	if !finiteNonNegative(total) || total == 0 || total > MaxAmount {
		return nil, ErrInvalidAmount
	}
	if n < MinInstallments || n > MaxInstallments {
		return nil, fmt.Errorf("%w: installments must be between %d and %d", domain.ErrTooManyInstallments, MinInstallments, MaxInstallments)
	}

	each := Round2(total / float64(n))
	first := Round2(total - each*float64(n-1))
	if each < 0.01 || first < 0.01 {
		return nil, fmt.Errorf("%w: %.2f cannot be split into %d installments of at least 0.01", ErrInvalidAmount, total, n)
	}

	plan := make([]domain.InstallmentPlanItem, n)
	for i := range plan {
		amount := each
		if i == 0 {
			amount = first
		}
		plan[i] = domain.InstallmentPlanItem{
			Number:  i + 1,
			Amount:  amount,
			DueDate: addMonths(start, i),
		}
	}
	return plan, nil
}

// CheckInstallmentEligibility applies a ticket's installment rules to a
// purchase of amount split into n parts.
func CheckInstallmentEligibility(t *domain.Ticket, amount float64, n int) error {
	if !t.AllowInstallments {
		return domain.ErrInstallmentsDisabled
	}
	maxN := DefaultMaxInstallments
	if t.MaxInstallments != nil {
		maxN = *t.MaxInstallments
	}
	if n < MinInstallments || n > maxN {
		return fmt.Errorf("%w: ticket allows up to %d", domain.ErrTooManyInstallments, maxN)
	}
	minAmount := DefaultMinAmountForInstallments
	if t.MinAmountForInstallments != nil {
		minAmount = *t.MinAmountForInstallments
	}
	if amount < minAmount {
		return fmt.Errorf("%w: minimum is %s", domain.ErrBelowInstallmentMin, FormatBRL(minAmount))
	}
	return nil
}

// addMonths keeps the day of month, clamping to the last day when the
// target month is shorter (Jan 31 + 1 month = Feb 28).
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
