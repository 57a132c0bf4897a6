// Package budget derives budget snapshots from a transaction set and builds,
// rolls over and schedules budgets.
//
// Every snapshot is recomputed from scratch. Nothing is patched incrementally,
// so an edit that moves a transaction between categories can never leave a
// stale total behind. The cost is O(transactions) per call.
package budget

import (
	"fmt"
	"log/slog"
	"time"

	"dailyowo/internal/core"
	"dailyowo/internal/taxonomy"
)

// approachingLimitRatio is the spent/allocated ratio from which a category
// raises an approaching-limit warning.
const approachingLimitRatio = 0.80

// Options configure an Engine. A nil Savings set falls back to the built-in
// allow-list; a nil Logger disables debug output.
type Options struct {
	Savings taxonomy.SavingsSet
	Logger  *slog.Logger
}

// Engine computes BudgetData snapshots. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	savings taxonomy.SavingsSet
	logger  *slog.Logger
}

func NewEngine(opts Options) *Engine {
	savings := opts.Savings
	if savings == nil {
		savings = taxonomy.DefaultSavingsCategories()
	}
	return &Engine{savings: savings, logger: opts.Logger}
}

var defaultEngine = NewEngine(Options{})

// ComputeSnapshot runs the default engine. See Engine.Compute.
func ComputeSnapshot(txs []core.Transaction, b *core.Budget, asOf time.Time) (core.BudgetData, error) {
	return defaultEngine.Compute(txs, b, asOf)
}

// Compute derives the snapshot for b from txs. Only non-deleted transactions
// dated inside the budget period are aggregated. A nil budget yields a zeroed
// snapshot with a single suggestion to create one.
//
// asOf is recorded on the snapshot; it does not narrow the period.
func (e *Engine) Compute(txs []core.Transaction, b *core.Budget, asOf time.Time) (core.BudgetData, error) {
	if b == nil {
		return emptySnapshot(asOf), nil
	}
	if b.Period == nil {
		return core.BudgetData{}, core.ErrMissingPeriod
	}

	scoped, err := scope(txs, *b.Period)
	if err != nil {
		return core.BudgetData{}, err
	}

	idx := indexTransactions(scoped, e.savings)

	data := core.BudgetData{
		AsOf:     asOf,
		BudgetID: b.ID,
	}

	categories := make([]core.BudgetCategory, 0, len(b.Categories))
	var expenseAlloc, savingsAlloc core.Sum
	for _, c := range b.Categories {
		categories = append(categories, idx.categorySpend(c))
		if c.Type.IsSavingsType() {
			savingsAlloc.Add(c.Allocated)
		} else {
			expenseAlloc.Add(c.Allocated)
		}
	}

	var allocated core.Sum
	allocated.Merge(expenseAlloc)
	allocated.Merge(savingsAlloc)

	data.TotalIncome = idx.income.Value()
	data.TotalExpenseAllocated = expenseAlloc.Value()
	data.TotalSavingsAllocated = savingsAlloc.Value()
	data.TotalAllocated = allocated.Value()
	data.TotalExpenses = idx.expenses.Value()
	data.TotalDebtPayments = idx.debt.Value()
	data.TotalSavings = idx.savings.Value()
	data.TotalSpent = data.TotalExpenses + data.TotalDebtPayments + data.TotalSavings
	// Debt payments stay out of cash at hand: it only tracks money not yet
	// committed to spending or saving.
	data.CashAtHand = core.Subtract(core.Subtract(data.TotalIncome, data.TotalExpenses), data.TotalSavings)
	data.UnallocatedAmount = core.Subtract(data.TotalIncome, data.TotalAllocated)

	data.Categories = categories
	data.Alerts = buildAlerts(categories)
	data.Performance = buildPerformance(categories)
	data.Health = scoreHealth(data, categories)

	if e.logger != nil {
		e.logger.Debug("Budget snapshot computed",
			"budget_id", b.ID,
			"transactions_in_scope", len(scoped),
			"total_income", data.TotalIncome,
			"total_spent", data.TotalSpent,
			"health_score", data.Health.Score,
			"alerts", len(data.Alerts))
	}

	return data, nil
}

func emptySnapshot(asOf time.Time) core.BudgetData {
	return core.BudgetData{
		AsOf: asOf,
		Health: core.BudgetHealth{
			Score:       0,
			Status:      core.StatusForScore(0),
			Suggestions: []string{"Create a budget to start tracking your spending"},
		},
		Categories:  []core.BudgetCategory{},
		Performance: []core.CategoryPerformance{},
		Alerts:      []core.BudgetAlert{},
	}
}

// scope drops deleted transactions and those outside the period, and
// rejects malformed ones.
func scope(txs []core.Transaction, p core.BudgetPeriod) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Deleted {
			continue
		}
		if t.Amount <= 0 {
			return nil, fmt.Errorf("transaction %q: %w: %v", t.ID, core.ErrInvalidAmount, t.Amount)
		}
		if !t.Type.Valid() {
			return nil, fmt.Errorf("transaction %q: %w: %q", t.ID, core.ErrInvalidType, t.Type)
		}
		if !p.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// txIndex holds per-type totals and per-transaction-category sums so each
// budget category is resolved without rescanning the transactions.
type txIndex struct {
	income, expenses, debt, savings core.Sum

	expenseByCategory map[string]*core.Sum
	assetByCategory   map[string]*core.Sum
}

func indexTransactions(txs []core.Transaction, savings taxonomy.SavingsSet) *txIndex {
	idx := &txIndex{
		expenseByCategory: make(map[string]*core.Sum),
		assetByCategory:   make(map[string]*core.Sum),
	}
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			idx.income.Add(t.Amount)
		case core.Expense:
			idx.expenses.Add(t.Amount)
			add(idx.expenseByCategory, t.CategoryID, t.Amount)
		case core.Liability:
			idx.debt.Add(t.Amount)
		case core.Asset:
			if savings.Has(t.CategoryID) {
				idx.savings.Add(t.Amount)
			}
			add(idx.assetByCategory, t.CategoryID, t.Amount)
		}
	}
	return idx
}

func add(m map[string]*core.Sum, key string, v float64) {
	s, ok := m[key]
	if !ok {
		s = &core.Sum{}
		m[key] = s
	}
	s.Add(v)
}

// categorySpend returns a copy of c with Spent, Remaining and IsOverBudget
// derived from the index. Savings-type categories count asset contributions
// in their mapped categories; the rest count expenses in their mapped
// categories plus those tagged directly with the category ID.
func (idx *txIndex) categorySpend(c core.BudgetCategory) core.BudgetCategory {
	out := c
	out.TransactionCategories = append([]string{}, c.TransactionCategories...)

	keys := make(map[string]struct{}, len(c.TransactionCategories)+1)
	for _, tc := range c.TransactionCategories {
		keys[tc] = struct{}{}
	}

	source := idx.assetByCategory
	if !c.Type.IsSavingsType() {
		source = idx.expenseByCategory
		keys[c.ID] = struct{}{}
	}

	var spent core.Sum
	for k := range keys {
		if s, ok := source[k]; ok {
			spent.Merge(*s)
		}
	}

	out.Spent = spent.Value()
	out.Remaining = core.Subtract(c.EffectiveAllocation(), out.Spent)
	out.IsOverBudget = out.Spent > c.EffectiveAllocation()
	return out
}

func buildAlerts(categories []core.BudgetCategory) []core.BudgetAlert {
	alerts := make([]core.BudgetAlert, 0)
	for _, c := range categories {
		limit := c.EffectiveAllocation()
		if limit <= 0 {
			continue
		}
		name := displayName(c)
		switch {
		case c.IsOverBudget:
			alerts = append(alerts, core.BudgetAlert{
				ID:         c.ID + "-" + string(core.AlertOverBudget),
				CategoryID: c.ID,
				Type:       core.AlertOverBudget,
				Severity:   core.SeverityError,
				Message:    fmt.Sprintf("%s is over budget by %.2f", name, core.Subtract(c.Spent, limit)),
				Allocated:  limit,
				Spent:      c.Spent,
			})
		case c.Spent/limit >= approachingLimitRatio:
			alerts = append(alerts, core.BudgetAlert{
				ID:         c.ID + "-" + string(core.AlertApproachingLimit),
				CategoryID: c.ID,
				Type:       core.AlertApproachingLimit,
				Severity:   core.SeverityWarning,
				Message:    fmt.Sprintf("%s has used %.0f%% of its budget", name, c.Spent/limit*100),
				Allocated:  limit,
				Spent:      c.Spent,
			})
		}
	}
	return alerts
}

func buildPerformance(categories []core.BudgetCategory) []core.CategoryPerformance {
	perf := make([]core.CategoryPerformance, 0, len(categories))
	for _, c := range categories {
		limit := c.EffectiveAllocation()
		utilization := 0.0
		if limit > 0 {
			utilization = c.Spent / limit * 100
		}
		perf = append(perf, core.CategoryPerformance{
			CategoryID:        c.ID,
			Name:              displayName(c),
			Allocated:         limit,
			Spent:             c.Spent,
			BudgetUtilization: utilization,
			Trend:             core.TrendStable,
		})
	}
	return perf
}

func displayName(c core.BudgetCategory) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
