package engine

import (
	"errors"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
)

var ErrInvalidRange = errors.New("invalid date range")

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayEnd returns the last nanosecond of t's day in UTC.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).Add(24*time.Hour - time.Nanosecond)
}

// ResolveRange turns a preset window into inclusive bounds ending on now's
// day. Custom ranges use from and to, which must both be set and ordered.
func ResolveRange(r domain.FinanceRange, now time.Time, from, to *time.Time) (time.Time, time.Time, error) {
	end := DayEnd(now)
	switch r {
	case "", domain.Range30Days:
		return DayStart(now.AddDate(0, 0, -29)), end, nil
	case domain.Range90Days:
		return DayStart(now.AddDate(0, 0, -89)), end, nil
	case domain.RangeYear:
		return DayStart(now.AddDate(-1, 0, 1)), end, nil
	case domain.RangeCustom:
		if from == nil || to == nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		start, stop := DayStart(*from), DayEnd(*to)
		if stop.Before(start) {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		return start, stop, nil
	default:
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
}

// PreviousPeriod returns the window of equal length right before [from, to].
func PreviousPeriod(from, to time.Time) (time.Time, time.Time) {
	length := to.Sub(from)
	prevTo := from.Add(-time.Nanosecond)
	return prevTo.Add(-length), prevTo
}

// PercentChange is nil when there is no previous value to compare against.
func PercentChange(cur, prev float64) *float64 {
	if prev == 0 {
		return nil
	}
	v := Round2((cur - prev) / prev * 100)
	return &v
}

func checkInRate(st domain.PeriodStats) float64 {
	if st.TicketsSold == 0 {
		return 0
	}
	return Round2(float64(st.CheckedIn) / float64(st.TicketsSold) * 100)
}

// ComputeKPIs derives the dashboard cards from the current and previous
// period totals.
func ComputeKPIs(cur, prev domain.PeriodStats, ticketsTotal int) domain.KPIs {
	rate := checkInRate(cur)
	return domain.KPIs{
		TotalRevenue:       Round2(cur.Revenue),
		RevenueChange:      PercentChange(cur.Revenue, prev.Revenue),
		TicketsSold:        cur.TicketsSold,
		TicketsTotal:       ticketsTotal,
		UniqueParticipants: cur.Participants,
		CheckInRate:        rate,
		CheckInRateChange:  PercentChange(rate, checkInRate(prev)),
	}
}
