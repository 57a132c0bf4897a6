package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dailyowo/internal/core"
	"dailyowo/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "dailyowo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func at(d int) time.Time { return time.Date(2025, 3, d, 9, 30, 0, 0, time.UTC) }

func TestSQLiteRepository_TransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := core.Transaction{
		ID:            "t1",
		UserID:        "u1",
		CreatedBy:     "u1",
		Type:          core.Expense,
		Amount:        42.5,
		CategoryID:    "groceries",
		Currency:      "USD",
		Date:          at(10),
		Description:   "Weekly shop",
		Merchant:      "Fresh Market",
		PaymentMethod: "card",
		Location:      &core.Location{Name: "Downtown"},
		IsRecurring:   true,
	}
	require.NoError(t, repo.SaveTransaction(ctx, in))

	got, err := repo.GetTransaction(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, in.Amount, got.Amount)
	assert.True(t, in.Date.Equal(got.Date))
	assert.Equal(t, "Fresh Market", got.Merchant)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Downtown", got.Location.Name)
	assert.True(t, got.IsRecurring)
	assert.False(t, got.CreatedAt.IsZero())

	in.Amount = 50
	require.NoError(t, repo.SaveTransaction(ctx, in))
	got, err = repo.GetTransaction(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Amount)

	_, err = repo.GetTransaction(ctx, "u2", "t1")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestSQLiteRepository_ListAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	seed := []core.Transaction{
		{ID: "b", UserID: "u1", Type: core.Expense, Amount: 10, Date: at(5)},
		{ID: "a", UserID: "u1", Type: core.Expense, Amount: 20, Date: at(5)},
		{ID: "c", UserID: "u1", Type: core.Income, Amount: 1000, Date: at(1)},
		{ID: "d", UserID: "u1", Type: core.Asset, Amount: 100, Date: at(20)},
		{ID: "e", UserID: "u2", Type: core.Expense, Amount: 5, Date: at(5)},
	}
	for _, tx := range seed {
		require.NoError(t, repo.SaveTransaction(ctx, tx))
	}

	all, err := repo.ListTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids(all))

	start, end := at(2), at(10)
	expenses, err := repo.ListTransactions(ctx, "u1", ports.TransactionFilter{StartDate: &start, EndDate: &end, Type: core.Expense})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(expenses))

	require.NoError(t, repo.SoftDeleteTransaction(ctx, "u1", "a"))
	err = repo.SoftDeleteTransaction(ctx, "u1", "a")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	all, err = repo.ListTransactions(ctx, "u1", ports.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "d"}, ids(all))
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func sampleBudget(id, user string, start time.Time) core.Budget {
	return core.Budget{
		ID:     id,
		UserID: user,
		Name:   "March",
		Method: core.BudgetMethod{Type: core.MethodCustom, Allocations: map[string]float64{"food": 400}},
		Period: &core.BudgetPeriod{
			StartDate:   start,
			EndDate:     start.AddDate(0, 1, 0).Add(-time.Nanosecond),
			Frequency:   core.Monthly,
			TotalIncome: 3000,
		},
		Categories: []core.BudgetCategory{
			{ID: "food", Name: "Food", Type: core.CategoryFood, Allocated: 400, TransactionCategories: []string{"groceries", "dining"}},
			{ID: "savings", Name: "Savings", Type: core.CategorySavings, Allocated: 300, AllowRollover: true, RolloverAmount: 25.5},
		},
	}
}

func TestSQLiteRepository_Budgets(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.ActiveBudget(ctx, "u1")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveBudget(ctx, sampleBudget("b1", "u1", march)))

	got, err := repo.ActiveBudget(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)
	assert.True(t, got.IsActive)
	assert.Equal(t, core.MethodCustom, got.Method.Type)
	assert.Equal(t, 400.0, got.Method.Allocations["food"])
	require.NotNil(t, got.Period)
	assert.True(t, got.Period.EndDate.Equal(march.AddDate(0, 1, 0).Add(-time.Nanosecond)))
	require.Len(t, got.Categories, 2)
	assert.Equal(t, []string{"groceries", "dining"}, got.Categories[0].TransactionCategories)
	assert.Equal(t, "savings", got.Categories[1].ID)
	assert.True(t, got.Categories[1].AllowRollover)
	assert.Equal(t, 25.5, got.Categories[1].RolloverAmount)

	april := march.AddDate(0, 1, 0)
	require.NoError(t, repo.SaveBudget(ctx, sampleBudget("b2", "u1", april)))
	require.NoError(t, repo.SaveBudget(ctx, sampleBudget("b3", "u2", march)))

	got, err = repo.ActiveBudget(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b2", got.ID)

	active, err := repo.ListActiveBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "b2", active[0].ID)
	assert.Equal(t, "b3", active[1].ID)
	assert.Len(t, active[0].Categories, 2)

	// Re-saving replaces the category set.
	updated := sampleBudget("b2", "u1", april)
	updated.Categories = updated.Categories[:1]
	require.NoError(t, repo.SaveBudget(ctx, updated))
	got, err = repo.ActiveBudget(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Categories, 1)
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dailyowo.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveTransaction(ctx, core.Transaction{ID: "t1", UserID: "u1", Type: core.Expense, Amount: 1, Date: at(1)}))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	_, err = repo.GetTransaction(ctx, "u1", "t1")
	assert.NoError(t, err)
}
