package budget

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"dailyowo/internal/core"
)

type templateCategory struct {
	id                    string
	name                  string
	kind                  core.BudgetCategoryType
	share                 float64 // share of the group's portion of income
	transactionCategories []string
}

type templateGroup struct {
	share      float64 // share of total income
	categories []templateCategory
}

// fiftyThirtyTwenty is the fixed 50/30/20 category tree.
var fiftyThirtyTwenty = []templateGroup{
	{
		share: 0.50,
		categories: []templateCategory{
			{"needs-housing", "Housing", core.CategoryHousing, 0.35, []string{"rent", "mortgage", "property-tax", "home-maintenance", "hoa-fees"}},
			{"needs-utilities", "Utilities", core.CategoryUtilities, 0.15, []string{"electricity", "water", "gas", "internet", "phone"}},
			{"needs-food", "Food & Groceries", core.CategoryFood, 0.25, []string{"groceries"}},
			{"needs-transportation", "Transportation", core.CategoryTransportation, 0.15, []string{"fuel", "public-transport", "car-maintenance", "parking", "ride-share"}},
			{"needs-healthcare", "Healthcare", core.CategoryHealthcare, 0.05, []string{"medical", "pharmacy", "dental"}},
			{"needs-insurance", "Insurance", core.CategoryInsurance, 0.05, []string{"health-insurance", "car-insurance", "home-insurance", "life-insurance"}},
		},
	},
	{
		share: 0.30,
		categories: []templateCategory{
			{"wants-entertainment", "Entertainment", core.CategoryEntertainment, 0.30, []string{"entertainment", "streaming", "dining-out", "movies"}},
			{"wants-shopping", "Shopping", core.CategoryShopping, 0.30, []string{"shopping", "clothing", "electronics"}},
			{"wants-fitness", "Fitness", core.CategoryFitness, 0.15, []string{"gym", "sports"}},
			{"wants-travel", "Travel", core.CategoryTravel, 0.15, []string{"travel", "hotels", "flights"}},
			{"wants-other", "Other Wants", core.CategoryOther, 0.10, []string{"gifts", "hobbies", "personal-care", "other"}},
		},
	},
	{
		share: 0.20,
		categories: []templateCategory{
			{"savings-emergency", "Emergency Fund", core.CategorySavings, 0.40, []string{"emergency-fund", "savings-account"}},
			{"savings-retirement", "Retirement & Investments", core.CategoryInvestments, 0.40, []string{"retirement-401k", "retirement-ira", "retirement-roth-ira", "pension", "stocks", "bonds", "mutual-funds", "etf", "cryptocurrency"}},
			{"savings-debt", "Debt Payments", core.CategoryDebt, 0.20, []string{"credit-card-payment", "loan-payment", "student-loan-payment"}},
		},
	},
}

// zeroBased seeds the categories a zero-based budget starts from. All
// allocations are left to the caller.
var zeroBased = []templateCategory{
	{"housing", "Housing", core.CategoryHousing, 0, []string{"rent", "mortgage"}},
	{"food", "Food", core.CategoryFood, 0, []string{"groceries"}},
	{"transportation", "Transportation", core.CategoryTransportation, 0, []string{"fuel", "public-transport"}},
	{"savings", "Savings", core.CategorySavings, 0, []string{"savings-account", "emergency-fund"}},
}

// CreateBudgetFromMethod builds a new active budget for ownerID from the
// allocation strategy in method. Every category starts with nothing spent
// and no rollover.
func CreateBudgetFromMethod(method core.BudgetMethod, totalIncome float64, period core.BudgetPeriod, ownerID string) (*core.Budget, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, core.ErrMissingUser
	}
	if math.IsNaN(totalIncome) || math.IsInf(totalIncome, 0) || totalIncome < 0 {
		return nil, fmt.Errorf("%w: income %v", core.ErrInvalidAmount, totalIncome)
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	var categories []core.BudgetCategory
	switch method.Type {
	case core.MethodFiftyThirtyTwenty:
		if totalIncome <= 0 {
			return nil, fmt.Errorf("%w: 50-30-20 needs a positive income", core.ErrInvalidAmount)
		}
		for _, g := range fiftyThirtyTwenty {
			for _, tc := range g.categories {
				categories = append(categories, newCategory(tc, core.Percent(totalIncome, g.share, tc.share)))
			}
		}
	case core.MethodZeroBased:
		for _, tc := range zeroBased {
			categories = append(categories, newCategory(tc, 0))
		}
	case core.MethodCustom:
		var err error
		if categories, err = customCategories(method.Allocations); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidMethod, method.Type)
	}

	var allocated core.Sum
	for _, c := range categories {
		allocated.Add(c.Allocated)
	}
	period.TotalIncome = totalIncome
	period.TotalAllocated = allocated.Value()
	period.TotalSpent = 0
	period.TotalSavings = 0
	period.TotalRemaining = allocated.Value()

	now := time.Now().UTC()
	return &core.Budget{
		ID:         uuid.NewString(),
		UserID:     ownerID,
		Name:       fmt.Sprintf("%s budget", method.Type),
		Method:     method,
		Period:     &period,
		Categories: categories,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func newCategory(tc templateCategory, allocated float64) core.BudgetCategory {
	return core.BudgetCategory{
		ID:                    tc.id,
		Name:                  tc.name,
		Type:                  tc.kind,
		Allocated:             allocated,
		Remaining:             allocated,
		TransactionCategories: append([]string{}, tc.transactionCategories...),
		AllowRollover:         tc.kind.IsSavingsType(),
	}
}

// customCategories creates one category per allocation key, in key order.
// Keys naming a known category type take that type; others become "other".
func customCategories(allocations map[string]float64) ([]core.BudgetCategory, error) {
	keys := make([]string, 0, len(allocations))
	for k := range allocations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]core.BudgetCategory, 0, len(keys))
	for _, k := range keys {
		amount := allocations[k]
		id := slug(k)
		if id == "" {
			return nil, fmt.Errorf("custom allocation %q: %w", k, core.ErrMissingID)
		}
		if math.IsNaN(amount) || amount < 0 {
			return nil, fmt.Errorf("custom allocation %q: %w: %v", k, core.ErrInvalidAmount, amount)
		}
		kind := knownType(id)
		out = append(out, core.BudgetCategory{
			ID:                    id,
			Name:                  strings.TrimSpace(k),
			Type:                  kind,
			Allocated:             amount,
			Remaining:             amount,
			TransactionCategories: []string{},
			AllowRollover:         kind.IsSavingsType(),
		})
	}
	return out, nil
}

func knownType(id string) core.BudgetCategoryType {
	switch t := core.BudgetCategoryType(id); t {
	case core.CategoryHousing, core.CategoryUtilities, core.CategoryFood, core.CategoryTransportation,
		core.CategoryHealthcare, core.CategoryInsurance, core.CategoryEntertainment, core.CategoryShopping,
		core.CategoryFitness, core.CategoryTravel, core.CategoryEducation, core.CategoryDebt,
		core.CategorySavings, core.CategoryInvestments, core.CategoryRetirement:
		return t
	default:
		return core.CategoryOther
	}
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}
