package budget

import (
	"time"

	"dailyowo/internal/core"
)

// RolloverBudgetAmounts carries unused allocation from old into a budget for
// newPeriod. Each category's remaining amount is recomputed from its
// end-of-period Spent against its effective allocation; the stored Remaining
// field is ignored. A category that allows rollover and has money left gets
// RolloverAmount set to what remained; every other category rolls over with
// zero. Base allocations are copied unchanged and nothing is spent in the
// new period.
func RolloverBudgetAmounts(old core.Budget, newPeriod core.BudgetPeriod) (core.Budget, error) {
	if err := newPeriod.Validate(); err != nil {
		return core.Budget{}, err
	}

	next := old
	next.Categories = make([]core.BudgetCategory, 0, len(old.Categories))

	var allocated core.Sum
	for _, c := range old.Categories {
		nc := c
		nc.TransactionCategories = append([]string{}, c.TransactionCategories...)
		nc.RolloverAmount = 0
		if remaining := core.Subtract(c.EffectiveAllocation(), c.Spent); c.AllowRollover && remaining > 0 {
			nc.RolloverAmount = remaining
		}
		nc.Spent = 0
		nc.IsOverBudget = false
		nc.Remaining = nc.EffectiveAllocation()
		allocated.Add(nc.Allocated)
		next.Categories = append(next.Categories, nc)
	}

	p := newPeriod
	p.TotalIncome = 0
	if old.Period != nil {
		p.TotalIncome = old.Period.TotalIncome
	}
	p.TotalAllocated = allocated.Value()
	p.TotalSpent = 0
	p.TotalSavings = 0
	p.TotalRemaining = allocated.Value()
	next.Period = &p
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}
