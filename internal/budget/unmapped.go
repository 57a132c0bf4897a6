package budget

import "dailyowo/internal/core"

// UnmappedTransactions lists the in-period, non-deleted expense and asset
// transactions that no category of b would count. They still contribute to
// the top-level totals of a snapshot. Malformed transactions are skipped.
func UnmappedTransactions(txs []core.Transaction, b *core.Budget) []core.Transaction {
	out := make([]core.Transaction, 0)
	if b == nil || b.Period == nil {
		return out
	}

	expenseKeys := make(map[string]struct{})
	assetKeys := make(map[string]struct{})
	for _, c := range b.Categories {
		keys := expenseKeys
		if c.Type.IsSavingsType() {
			keys = assetKeys
		} else {
			expenseKeys[c.ID] = struct{}{}
		}
		for _, tc := range c.TransactionCategories {
			keys[tc] = struct{}{}
		}
	}

	for _, t := range txs {
		if t.Deleted || t.Amount <= 0 || !b.Period.Contains(t.Date) {
			continue
		}
		var keys map[string]struct{}
		switch t.Type {
		case core.Expense:
			keys = expenseKeys
		case core.Asset:
			keys = assetKeys
		default:
			continue
		}
		if _, ok := keys[t.CategoryID]; !ok {
			out = append(out, t)
		}
	}
	return out
}
