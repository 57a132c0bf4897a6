package budget

import (
	"fmt"
	"time"

	"dailyowo/internal/core"
)

// NewPeriod builds a period of the given frequency starting at start.
// Monthly periods are normalized to the calendar month containing start:
// midnight on the 1st through the last instant of the last day. Other
// frequencies add a fixed offset to start as given.
func NewPeriod(freq core.Frequency, start time.Time) (core.BudgetPeriod, error) {
	if start.IsZero() {
		return core.BudgetPeriod{}, fmt.Errorf("%w: period start must be set", core.ErrInvalidDate)
	}
	p := core.BudgetPeriod{Frequency: freq, StartDate: start}
	switch freq {
	case core.Monthly:
		p.StartDate = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
		p.EndDate = p.StartDate.AddDate(0, 1, 0).Add(-time.Nanosecond)
	case core.Weekly:
		p.EndDate = start.AddDate(0, 0, 7)
	case core.BiWeekly:
		p.EndDate = start.AddDate(0, 0, 14)
	case core.Quarterly:
		p.EndDate = start.AddDate(0, 3, 0)
	case core.Annual:
		p.EndDate = start.AddDate(1, 0, 0)
	default:
		return core.BudgetPeriod{}, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, freq)
	}
	return p, nil
}

// NextPeriod returns the period that follows p with the same frequency. It
// starts one nanosecond after p ends, so an instant belongs to at most one of
// two consecutive periods.
func NextPeriod(p core.BudgetPeriod) (core.BudgetPeriod, error) {
	return NewPeriod(p.Frequency, p.EndDate.Add(time.Nanosecond))
}

// ShouldCreateNewBudgetPeriod reports whether now is past the period end.
func ShouldCreateNewBudgetPeriod(p core.BudgetPeriod, now time.Time) bool {
	return now.After(p.EndDate)
}
