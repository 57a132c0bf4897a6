package budget

import (
	"fmt"

	"dailyowo/internal/core"
)

const (
	minAllocationRatio = 0.80
	maxAllocationRatio = 1.00
	minSavingsRatio    = 0.10

	underAllocatedPenalty = 20
	overAllocatedPenalty  = 30
	overBudgetPenalty     = 15
	lowSavingsPenalty     = 15
)

// ratio returns part/income, defined as 0 when there is no income.
func ratio(part, income float64) float64 {
	if income == 0 {
		return 0
	}
	return part / income
}

func scoreHealth(data core.BudgetData, categories []core.BudgetCategory) core.BudgetHealth {
	score := 100
	suggestions := make([]string, 0)

	switch r := ratio(data.TotalAllocated, data.TotalIncome); {
	case r < minAllocationRatio:
		score -= underAllocatedPenalty
		suggestions = append(suggestions, "Allocate more of your income to budget categories")
	case r > maxAllocationRatio:
		score -= overAllocatedPenalty
		suggestions = append(suggestions, "Your allocations exceed your income; reduce some category budgets")
	}

	for _, c := range categories {
		if c.IsOverBudget {
			score -= overBudgetPenalty
			suggestions = append(suggestions, fmt.Sprintf("Reduce spending in %s, it is over budget", displayName(c)))
		}
	}

	if ratio(data.TotalSavingsAllocated, data.TotalIncome) < minSavingsRatio {
		score -= lowSavingsPenalty
		suggestions = append(suggestions, "Increase your savings allocation to at least 10% of income")
	}

	if score < 0 {
		score = 0
	}
	return core.BudgetHealth{
		Score:       score,
		Status:      core.StatusForScore(score),
		Suggestions: suggestions,
	}
}
