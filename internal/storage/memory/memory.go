// Package memory is a process-local store used by the memory backend and
// by tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dailyowo/internal/core"
	"dailyowo/internal/ports"
)

var (
	_ ports.TransactionStore = (*Store)(nil)
	_ ports.BudgetStore      = (*Store)(nil)
	_ ports.AlertPublisher   = (*Alerts)(nil)
)

type Store struct {
	mu      sync.Mutex
	txs     map[string]map[string]core.Transaction // user -> id -> tx
	budgets map[string]core.Budget                 // id -> budget
}

func New() *Store {
	return &Store{
		txs:     make(map[string]map[string]core.Transaction),
		budgets: make(map[string]core.Budget),
	}
}

// Seed stores transactions without validation.
func (s *Store) Seed(txs ...core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		s.put(t)
	}
}

func (s *Store) put(t core.Transaction) {
	byID, ok := s.txs[t.UserID]
	if !ok {
		byID = make(map[string]core.Transaction)
		s.txs[t.UserID] = byID
	}
	byID[t.ID] = t
}

func (s *Store) SaveTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(t)
	return nil
}

func (s *Store) SoftDeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[userID][id]
	if !ok || t.Deleted {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	t.Deleted = true
	t.UpdatedAt = time.Now().UTC()
	s.txs[userID][id] = t
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[userID][id]
	if !ok || t.Deleted {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// ListTransactions returns live transactions ordered by date, then ID.
func (s *Store) ListTransactions(_ context.Context, userID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	var out []core.Transaction
	for _, t := range s.txs[userID] {
		if !t.Deleted && f.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SaveBudget(_ context.Context, b core.Budget) error {
	if b.Period == nil {
		return core.ErrMissingPeriod
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.IsActive = true

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.budgets {
		if other.UserID == b.UserID && id != b.ID && other.IsActive {
			other.IsActive = false
			other.UpdatedAt = now
			s.budgets[id] = other
		}
	}
	s.budgets[b.ID] = cloneBudget(b)
	return nil
}

func (s *Store) ActiveBudget(_ context.Context, userID string) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.UserID == userID && b.IsActive {
			out := cloneBudget(b)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("active budget for %s: %w", userID, core.ErrNotFound)
}

func (s *Store) ListActiveBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.IsActive {
			out = append(out, cloneBudget(b))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Budget returns any stored budget by ID, active or not.
func (s *Store) Budget(id string) (core.Budget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, false
	}
	return cloneBudget(b), true
}

func cloneBudget(b core.Budget) core.Budget {
	if b.Period != nil {
		p := *b.Period
		b.Period = &p
	}
	cats := make([]core.BudgetCategory, len(b.Categories))
	for i, c := range b.Categories {
		c.TransactionCategories = append([]string(nil), c.TransactionCategories...)
		cats[i] = c
	}
	b.Categories = cats
	if b.Method.Allocations != nil {
		alloc := make(map[string]float64, len(b.Method.Allocations))
		for k, v := range b.Method.Allocations {
			alloc[k] = v
		}
		b.Method.Allocations = alloc
	}
	return b
}

// Alerts records published alerts in order.
type Alerts struct {
	mu        sync.Mutex
	published []PublishedAlert
	err       error
}

type PublishedAlert struct {
	UserID string
	Alert  core.BudgetAlert
}

func NewAlerts() *Alerts { return &Alerts{} }

// FailWith makes subsequent publishes return err.
func (a *Alerts) FailWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *Alerts) PublishBudgetAlerts(_ context.Context, userID string, alerts []core.BudgetAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	for _, al := range alerts {
		a.published = append(a.published, PublishedAlert{UserID: userID, Alert: al})
	}
	return nil
}

func (a *Alerts) Published() []PublishedAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]PublishedAlert(nil), a.published...)
}
