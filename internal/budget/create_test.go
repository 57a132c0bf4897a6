package budget

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyowo/internal/core"
)

func TestCreateBudgetFromMethod_FiftyThirtyTwenty(t *testing.T) {
	b, err := CreateBudgetFromMethod(core.BudgetMethod{Type: core.MethodFiftyThirtyTwenty}, 5000, *marchPeriod(t), "u1")
	require.NoError(t, err)
	require.NoError(t, b.Validate(), "template must not map a transaction category twice")

	byID := map[string]core.BudgetCategory{}
	var total float64
	for _, c := range b.Categories {
		byID[c.ID] = c
		total += c.Allocated
		assert.Zero(t, c.Spent)
		assert.Zero(t, c.RolloverAmount)
		assert.False(t, c.IsOverBudget)
		assert.Equal(t, c.Allocated, c.Remaining)
	}

	assert.Len(t, b.Categories, 14)
	assert.Equal(t, 875.0, byID["needs-housing"].Allocated)
	assert.Equal(t, 375.0, byID["needs-utilities"].Allocated)
	assert.Equal(t, 625.0, byID["needs-food"].Allocated)
	assert.Equal(t, 450.0, byID["wants-entertainment"].Allocated)
	assert.Equal(t, 150.0, byID["wants-other"].Allocated)
	assert.Equal(t, 400.0, byID["savings-emergency"].Allocated)
	assert.Equal(t, 400.0, byID["savings-retirement"].Allocated)
	assert.Equal(t, 200.0, byID["savings-debt"].Allocated)
	assert.InDelta(t, 5000, total, 1e-9)
	assert.InDelta(t, 5000, b.Period.TotalAllocated, 1e-9)
	assert.Equal(t, 5000.0, b.Period.TotalIncome)

	assert.Equal(t, core.CategorySavings, byID["savings-emergency"].Type)
	assert.Contains(t, byID["needs-food"].TransactionCategories, "groceries")
	assert.Contains(t, byID["savings-retirement"].TransactionCategories, "cryptocurrency")
	assert.True(t, b.IsActive)
	assert.Equal(t, "u1", b.UserID)
	assert.NotEmpty(t, b.ID)
}

func TestCreateBudgetFromMethod_ZeroBased(t *testing.T) {
	b, err := CreateBudgetFromMethod(core.BudgetMethod{Type: core.MethodZeroBased}, 3000, *marchPeriod(t), "u1")
	require.NoError(t, err)

	ids := []string{}
	for _, c := range b.Categories {
		ids = append(ids, c.ID)
		assert.Zero(t, c.Allocated)
	}
	assert.Equal(t, []string{"housing", "food", "transportation", "savings"}, ids)
	assert.Zero(t, b.Period.TotalAllocated)
}

func TestCreateBudgetFromMethod_Custom(t *testing.T) {
	method := core.BudgetMethod{
		Type: core.MethodCustom,
		Allocations: map[string]float64{
			"Pet Care": 60,
			"housing":  1200,
			"savings":  300,
		},
	}
	b, err := CreateBudgetFromMethod(method, 2000, *marchPeriod(t), "u1")
	require.NoError(t, err)
	require.Len(t, b.Categories, 3)

	assert.Equal(t, "pet-care", b.Categories[0].ID)
	assert.Equal(t, core.CategoryOther, b.Categories[0].Type)
	assert.Equal(t, "housing", b.Categories[1].ID)
	assert.Equal(t, core.CategoryHousing, b.Categories[1].Type)
	assert.Equal(t, core.CategorySavings, b.Categories[2].Type)
	assert.True(t, b.Categories[2].AllowRollover)
	for _, c := range b.Categories {
		assert.Empty(t, c.TransactionCategories)
	}
	assert.Equal(t, 1560.0, b.Period.TotalAllocated)
}

func TestCreateBudgetFromMethod_Errors(t *testing.T) {
	p := *marchPeriod(t)

	_, err := CreateBudgetFromMethod(core.BudgetMethod{Type: "envelope"}, 100, p, "u1")
	assert.True(t, errors.Is(err, core.ErrInvalidMethod))

	_, err = CreateBudgetFromMethod(core.BudgetMethod{Type: core.MethodZeroBased}, 100, p, "")
	assert.True(t, errors.Is(err, core.ErrMissingUser))

	_, err = CreateBudgetFromMethod(core.BudgetMethod{Type: core.MethodZeroBased}, -1, p, "u1")
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	_, err = CreateBudgetFromMethod(core.BudgetMethod{Type: core.MethodFiftyThirtyTwenty}, 0, p, "u1")
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	_, err = CreateBudgetFromMethod(core.BudgetMethod{Type: core.MethodCustom, Allocations: map[string]float64{"x": -5}}, 100, p, "u1")
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	_, err = CreateBudgetFromMethod(core.BudgetMethod{Type: core.MethodZeroBased}, 100, core.BudgetPeriod{Frequency: core.Monthly}, "u1")
	assert.True(t, errors.Is(err, core.ErrInvalidDate))
}
