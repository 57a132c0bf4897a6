package ports

import (
	"context"
	"time"

	"dailyowo/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionFilter narrows a listing. Nil bounds are open; an empty
	// Type matches every type. Both bounds are inclusive.
	TransactionFilter struct {
		StartDate *time.Time
		EndDate   *time.Time
		Type      core.TransactionType
	}

	// TransactionReader lists a user's transactions. Soft-deleted records
	// are never returned.
	TransactionReader interface {
		ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		SaveTransaction(ctx context.Context, t core.Transaction) error
		SoftDeleteTransaction(ctx context.Context, userID, id string) error
	}

	TransactionStore interface {
		TransactionReader
		TransactionWriter
		// GetTransaction returns core.ErrNotFound for unknown or deleted IDs.
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	}

	// BudgetStore keeps the single active budget of each user.
	BudgetStore interface {
		// ActiveBudget returns core.ErrNotFound when the user has none.
		ActiveBudget(ctx context.Context, userID string) (*core.Budget, error)
		// SaveBudget stores b as the user's active budget, deactivating any
		// other budget of the same user.
		SaveBudget(ctx context.Context, b core.Budget) error
		ListActiveBudgets(ctx context.Context) ([]core.Budget, error)
	}

	// AlertPublisher hands budget alerts to the notification pipeline.
	AlertPublisher interface {
		PublishBudgetAlerts(ctx context.Context, userID string, alerts []core.BudgetAlert) error
	}
)

// Matches reports whether t passes f. Stores use it to share filter semantics.
func (f TransactionFilter) Matches(t core.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.StartDate != nil && t.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Date.After(*f.EndDate) {
		return false
	}
	return true
}
