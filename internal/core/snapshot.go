package core

import "time"

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthPoor      HealthStatus = "poor"
)

const (
	SeverityError   AlertSeverity = "error"
	SeverityWarning AlertSeverity = "warning"

	AlertOverBudget       AlertType = "over-budget"
	AlertApproachingLimit AlertType = "approaching-limit"
)

const TrendStable Trend = "stable"

type (
	HealthStatus  string
	AlertSeverity string
	AlertType     string
	Trend         string

	BudgetHealth struct {
		Score       int          `json:"score"`
		Status      HealthStatus `json:"status"`
		Suggestions []string     `json:"suggestions"`
	}

	BudgetAlert struct {
		ID         string        `json:"id"`
		CategoryID string        `json:"categoryId"`
		Type       AlertType     `json:"type"`
		Severity   AlertSeverity `json:"severity"`
		Message    string        `json:"message"`
		Allocated  float64       `json:"allocated"`
		Spent      float64       `json:"spent"`
	}

	CategoryPerformance struct {
		CategoryID        string  `json:"categoryId"`
		Name              string  `json:"name"`
		Allocated         float64 `json:"allocated"`
		Spent             float64 `json:"spent"`
		BudgetUtilization float64 `json:"budgetUtilization"`
		Trend             Trend   `json:"trend"`
	}

	// BudgetData is the read-side snapshot derived from a budget and a
	// transaction set. It is never stored.
	BudgetData struct {
		AsOf                  time.Time             `json:"asOf"`
		BudgetID              string                `json:"budgetId,omitempty"`
		TotalIncome           float64               `json:"totalIncome"`
		TotalAllocated        float64               `json:"totalAllocated"`
		TotalExpenseAllocated float64               `json:"totalExpenseAllocated"`
		TotalSavingsAllocated float64               `json:"totalSavingsAllocated"`
		TotalExpenses         float64               `json:"totalExpenses"`
		TotalDebtPayments     float64               `json:"totalDebtPayments"`
		TotalSavings          float64               `json:"totalSavings"`
		TotalSpent            float64               `json:"totalSpent"`
		CashAtHand            float64               `json:"cashAtHand"`
		UnallocatedAmount     float64               `json:"unallocatedAmount"`
		Health                BudgetHealth          `json:"budgetHealth"`
		Categories            []BudgetCategory      `json:"categories"`
		Performance           []CategoryPerformance `json:"categoryPerformance"`
		Alerts                []BudgetAlert         `json:"alerts"`
	}
)

// StatusForScore maps a 0-100 health score onto its status band.
func StatusForScore(score int) HealthStatus {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 70:
		return HealthGood
	case score >= 50:
		return HealthFair
	default:
		return HealthPoor
	}
}
