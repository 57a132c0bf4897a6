package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	CategoryHousing        BudgetCategoryType = "housing"
	CategoryUtilities      BudgetCategoryType = "utilities"
	CategoryFood           BudgetCategoryType = "food"
	CategoryTransportation BudgetCategoryType = "transportation"
	CategoryHealthcare     BudgetCategoryType = "healthcare"
	CategoryInsurance      BudgetCategoryType = "insurance"
	CategoryEntertainment  BudgetCategoryType = "entertainment"
	CategoryShopping       BudgetCategoryType = "shopping"
	CategoryFitness        BudgetCategoryType = "fitness"
	CategoryTravel         BudgetCategoryType = "travel"
	CategoryEducation      BudgetCategoryType = "education"
	CategoryDebt           BudgetCategoryType = "debt"
	CategoryOther          BudgetCategoryType = "other"
	CategorySavings        BudgetCategoryType = "savings"
	CategoryInvestments    BudgetCategoryType = "investments"
	CategoryRetirement     BudgetCategoryType = "retirement"
)

const (
	MethodFiftyThirtyTwenty BudgetMethodType = "50-30-20"
	MethodZeroBased         BudgetMethodType = "zero-based"
	MethodCustom            BudgetMethodType = "custom"
)

type (
	BudgetCategoryType string

	BudgetMethodType string

	// BudgetCategory is a planned-vs-actual bucket. Spent, Remaining and
	// IsOverBudget are always derived from transactions, never patched.
	BudgetCategory struct {
		ID                    string             `json:"id"`
		Name                  string             `json:"name"`
		Type                  BudgetCategoryType `json:"type"`
		Allocated             float64            `json:"allocated"`
		Spent                 float64            `json:"spent"`
		Remaining             float64            `json:"remaining"`
		IsOverBudget          bool               `json:"isOverBudget"`
		TransactionCategories []string           `json:"transactionCategories"`
		AllowRollover         bool               `json:"allowRollover"`
		RolloverAmount        float64            `json:"rolloverAmount"`
	}

	// BudgetPeriod is an inclusive [StartDate, EndDate] range.
	BudgetPeriod struct {
		StartDate      time.Time `json:"startDate"`
		EndDate        time.Time `json:"endDate"`
		Frequency      Frequency `json:"frequency"`
		TotalIncome    float64   `json:"totalIncome"`
		TotalAllocated float64   `json:"totalAllocated"`
		TotalSpent     float64   `json:"totalSpent"`
		TotalSavings   float64   `json:"totalSavings"`
		TotalRemaining float64   `json:"totalRemaining"`
	}

	// BudgetMethod selects the allocation strategy. Allocations is only read
	// by the custom method: category key -> amount.
	BudgetMethod struct {
		Type        BudgetMethodType   `json:"type"`
		Allocations map[string]float64 `json:"allocations,omitempty"`
	}

	Budget struct {
		ID         string           `json:"id"`
		UserID     string           `json:"userId"`
		Name       string           `json:"name"`
		Method     BudgetMethod     `json:"method"`
		Period     *BudgetPeriod    `json:"period"`
		Categories []BudgetCategory `json:"categories"`
		IsActive   bool             `json:"isActive"`
		CreatedAt  time.Time        `json:"createdAt"`
		UpdatedAt  time.Time        `json:"updatedAt"`
	}
)

// IsSavingsType reports whether spend in this category is counted from
// asset contributions rather than expenses.
func (t BudgetCategoryType) IsSavingsType() bool {
	switch t {
	case CategorySavings, CategoryInvestments, CategoryRetirement:
		return true
	default:
		return false
	}
}

func (m BudgetMethodType) Valid() bool {
	switch m {
	case MethodFiftyThirtyTwenty, MethodZeroBased, MethodCustom:
		return true
	default:
		return false
	}
}

// EffectiveAllocation is the allocation available in the current period,
// including any amount carried over from the previous one.
func (c BudgetCategory) EffectiveAllocation() float64 {
	return c.Allocated + c.RolloverAmount
}

// Contains reports whether t falls inside the period, both ends inclusive.
func (p BudgetPeriod) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

func (p BudgetPeriod) Validate() error {
	if !p.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, p.Frequency)
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return fmt.Errorf("%w: period bounds must be set", ErrInvalidDate)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: period ends before it starts", ErrInvalidDate)
	}
	return nil
}

// Validate checks the budget shape and the category-definition integrity:
// category IDs are unique and every transaction category maps to at most
// one budget category.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrMissingUser
	}
	if b.Period == nil {
		return ErrMissingPeriod
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	ids := make(map[string]struct{}, len(b.Categories))
	owners := make(map[string]string)
	for _, c := range b.Categories {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("category %q: %w", c.Name, ErrMissingID)
		}
		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("duplicate category id %q", c.ID)
		}
		ids[c.ID] = struct{}{}
		if c.Allocated < 0 {
			return fmt.Errorf("category %q: %w: negative allocation", c.ID, ErrInvalidAmount)
		}
		for _, tc := range c.TransactionCategories {
			if owner, ok := owners[tc]; ok && owner != c.ID {
				return fmt.Errorf("transaction category %q mapped to both %q and %q", tc, owner, c.ID)
			}
			owners[tc] = c.ID
		}
	}
	return nil
}
