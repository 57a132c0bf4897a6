package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dailyowo/internal/budget"
	"dailyowo/internal/cache"
	"dailyowo/internal/core"
	"dailyowo/internal/duplicate"
	applog "dailyowo/internal/log"
	"dailyowo/internal/ports"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateBlocked is returned when a transaction is almost certainly
	// a duplicate. It cannot be forced through.
	ErrDuplicateBlocked = errors.New("transaction blocked as a duplicate")
	// ErrPossibleDuplicate is returned for a likely duplicate; retry with
	// force to save it anyway.
	ErrPossibleDuplicate = errors.New("transaction is a possible duplicate")
)

// maxCatchUpPeriods bounds how many elapsed periods one rollover call will
// close for a user who has been inactive.
const maxCatchUpPeriods = 120

type Options struct {
	Engine    *budget.Engine
	Duplicate duplicate.Options
	// Cache is optional; nil disables snapshot memoization.
	Cache cache.Cache[core.BudgetData]
	// Alerts is optional; nil disables alert publishing.
	Alerts ports.AlertPublisher
	Logger *applog.Logger
}

// ReconciliationService ties the budget engine and the duplicate detector
// to the stores. Snapshots are recomputed from the stored transactions on
// every call unless the cache holds a result for identical inputs.
type ReconciliationService struct {
	transactions ports.TransactionStore
	budgets      ports.BudgetStore
	alerts       ports.AlertPublisher
	engine       *budget.Engine
	detector     *duplicate.Detector
	cache        cache.Cache[core.BudgetData]
	logger       *applog.Logger
}

func NewReconciliationService(transactions ports.TransactionStore, budgets ports.BudgetStore, opts Options) *ReconciliationService {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentService)

	engine := opts.Engine
	if engine == nil {
		engine = budget.NewEngine(budget.Options{})
	}

	detector := duplicate.NewDetector(transactions, opts.Duplicate, logger.WithComponent(applog.ComponentDuplicate).Slog())
	dopts := detector.Options()
	logger.Debug("Duplicate detection configured",
		"window_hours", dopts.TimeWindowHours,
		"minimum_score", dopts.MinimumScore,
		"strict_mode", dopts.StrictMode)

	return &ReconciliationService{
		transactions: transactions,
		budgets:      budgets,
		alerts:       opts.Alerts,
		engine:       engine,
		detector:     detector,
		cache:        opts.Cache,
		logger:       logger,
	}
}

type CreateBudgetRequest struct {
	UserID    string
	Name      string
	Method    core.BudgetMethod
	Income    float64
	Frequency core.Frequency
	Start     time.Time
}

// CreateBudget builds a budget from the requested method and stores it as
// the user's active budget.
func (s *ReconciliationService) CreateBudget(ctx context.Context, req CreateBudgetRequest) (*core.Budget, error) {
	period, err := budget.NewPeriod(req.Frequency, req.Start)
	if err != nil {
		return nil, err
	}
	b, err := budget.CreateBudgetFromMethod(req.Method, req.Income, period, req.UserID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		b.Name = name
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.budgets.SaveBudget(ctx, *b); err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget created", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithUser(req.UserID).
		With(applog.FieldBudgetID, b.ID).
		With(applog.FieldPeriodStart, b.Period.StartDate).
		With(applog.FieldPeriodEnd, b.Period.EndDate).
		ToSlice()...)
	return b, nil
}

// ActiveBudget returns the user's active budget, or nil when there is none.
func (s *ReconciliationService) ActiveBudget(ctx context.Context, userID string) (*core.Budget, error) {
	b, err := s.budgets.ActiveBudget(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active budget: %w", err)
	}
	return b, nil
}

// periodTransactions loads the transactions that can count toward b.
func (s *ReconciliationService) periodTransactions(ctx context.Context, userID string, b *core.Budget) ([]core.Transaction, error) {
	f := ports.TransactionFilter{}
	if b != nil && b.Period != nil {
		start, end := b.Period.StartDate, b.Period.EndDate
		f.StartDate, f.EndDate = &start, &end
	}
	txs, err := s.transactions.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Snapshot computes the user's current budget snapshot. Alerts of a freshly
// computed snapshot are handed to the alert publisher; publish failures are
// logged and never fail the snapshot.
func (s *ReconciliationService) Snapshot(ctx context.Context, userID string, asOf time.Time) (core.BudgetData, error) {
	if strings.TrimSpace(userID) == "" {
		return core.BudgetData{}, core.ErrMissingUser
	}
	b, err := s.ActiveBudget(ctx, userID)
	if err != nil {
		return core.BudgetData{}, err
	}
	txs, err := s.periodTransactions(ctx, userID, b)
	if err != nil {
		return core.BudgetData{}, err
	}

	data, hit, err := s.compute(txs, b, asOf)
	if err != nil {
		return core.BudgetData{}, err
	}

	budgetID := ""
	if b != nil {
		budgetID = b.ID
	}
	s.logger.DebugContext(ctx, "Snapshot computed", applog.NewFields().
		WithOperation(applog.OpSnapshot).
		WithUser(userID).
		WithSnapshot(budgetID, data.Health.Score, len(data.Alerts), hit).
		ToSlice()...)

	if !hit && len(data.Alerts) > 0 {
		s.publishAlerts(ctx, userID, data.Alerts)
	}
	return data, nil
}

func (s *ReconciliationService) compute(txs []core.Transaction, b *core.Budget, asOf time.Time) (core.BudgetData, bool, error) {
	if s.cache == nil {
		data, err := s.engine.Compute(txs, b, asOf)
		return data, false, err
	}

	key, err := cache.SnapshotKey(b, txs, asOf)
	if err != nil {
		data, err := s.engine.Compute(txs, b, asOf)
		return data, false, err
	}
	if data, ok := s.cache.Get(key); ok {
		return data, true, nil
	}
	data, err := s.engine.Compute(txs, b, asOf)
	if err != nil {
		return core.BudgetData{}, false, err
	}
	s.cache.Set(key, data)
	return data, false, nil
}

func (s *ReconciliationService) publishAlerts(ctx context.Context, userID string, alerts []core.BudgetAlert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.PublishBudgetAlerts(ctx, userID, alerts); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish budget alerts", applog.NewFields().
			WithOperation(applog.OpPublish).
			WithUser(userID).
			WithError(err).
			With(applog.FieldAlertCount, len(alerts)).
			ToSlice()...)
	}
}

// AddTransaction validates tx, checks it against the user's recent
// transactions of the same type and stores it. A blocked duplicate is never
// stored; a possible duplicate is stored only when force is set. The
// duplicate result is returned in every case.
func (s *ReconciliationService) AddTransaction(ctx context.Context, tx core.Transaction, force bool) (core.Transaction, duplicate.Result, error) {
	if strings.TrimSpace(tx.ID) == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedBy == "" {
		tx.CreatedBy = tx.UserID
	}
	tx.Deleted = false
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, duplicate.Result{}, err
	}

	res := s.detector.Check(ctx, tx)
	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithUser(tx.UserID).
		WithTransaction(tx.ID, string(tx.Type), tx.Amount, tx.CategoryID).
		WithDuplicate(res.Confidence, string(res.Suggestion), len(res.Matches))

	switch {
	case res.Suggestion == duplicate.Block:
		s.logger.WarnContext(ctx, "Transaction blocked as duplicate", fields.ToSlice()...)
		return tx, res, ErrDuplicateBlocked
	case res.Suggestion == duplicate.Warn && !force:
		s.logger.InfoContext(ctx, "Transaction held as possible duplicate", fields.ToSlice()...)
		return tx, res, ErrPossibleDuplicate
	}

	if err := s.transactions.SaveTransaction(ctx, tx); err != nil {
		return core.Transaction{}, res, fmt.Errorf("save transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction saved", fields.ToSlice()...)
	return tx, res, nil
}

// CheckDuplicate scores tx without storing it.
func (s *ReconciliationService) CheckDuplicate(ctx context.Context, tx core.Transaction) duplicate.Result {
	return s.detector.Check(ctx, tx)
}

func (s *ReconciliationService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.transactions.SoftDeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted", applog.NewFields().
		WithOperation(applog.OpDelete).
		WithUser(userID).
		With(applog.FieldTransactionID, id).
		ToSlice()...)
	return nil
}

func (s *ReconciliationService) ListTransactions(ctx context.Context, userID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.transactions.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// Unmapped lists the active period's transactions that no budget category
// claims. It is empty when the user has no budget.
func (s *ReconciliationService) Unmapped(ctx context.Context, userID string) ([]core.Transaction, error) {
	b, err := s.ActiveBudget(ctx, userID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return []core.Transaction{}, nil
	}
	txs, err := s.periodTransactions(ctx, userID, b)
	if err != nil {
		return nil, err
	}
	return budget.UnmappedTransactions(txs, b), nil
}

// RolloverResult describes what RolloverIfDue did.
type RolloverResult struct {
	RolledOver bool         `json:"rolledOver"`
	Closed     []string     `json:"closedBudgetIds"`
	Budget     *core.Budget `json:"budget,omitempty"`
}

// RolloverIfDue closes the user's active budget once its period has ended:
// the final figures are stored on it, and a new active budget for the next
// period is created carrying unused allocation forward. Periods that
// elapsed without activity are closed in turn until the budget covers now.
func (s *ReconciliationService) RolloverIfDue(ctx context.Context, userID string, now time.Time) (RolloverResult, error) {
	b, err := s.ActiveBudget(ctx, userID)
	if err != nil {
		return RolloverResult{}, err
	}
	if b == nil || b.Period == nil {
		return RolloverResult{}, nil
	}

	res := RolloverResult{Budget: b, Closed: []string{}}
	for i := 0; i < maxCatchUpPeriods && budget.ShouldCreateNewBudgetPeriod(*b.Period, now); i++ {
		next, err := s.closePeriod(ctx, userID, b, now)
		if err != nil {
			return res, err
		}
		res.Closed = append(res.Closed, b.ID)
		res.RolledOver = true
		res.Budget = next
		b = next
	}
	return res, nil
}

func (s *ReconciliationService) closePeriod(ctx context.Context, userID string, b *core.Budget, now time.Time) (*core.Budget, error) {
	txs, err := s.periodTransactions(ctx, userID, b)
	if err != nil {
		return nil, err
	}
	final, err := s.engine.Compute(txs, b, b.Period.EndDate)
	if err != nil {
		return nil, fmt.Errorf("final snapshot: %w", err)
	}

	closed := *b
	closed.Categories = final.Categories
	p := *b.Period
	p.TotalAllocated = final.TotalAllocated
	p.TotalSpent = final.TotalSpent
	p.TotalSavings = final.TotalSavings
	p.TotalRemaining = core.Subtract(final.TotalAllocated, final.TotalSpent)
	closed.Period = &p
	closed.UpdatedAt = now.UTC()
	if err := s.budgets.SaveBudget(ctx, closed); err != nil {
		return nil, fmt.Errorf("save closed budget: %w", err)
	}

	nextPeriod, err := budget.NextPeriod(p)
	if err != nil {
		return nil, err
	}
	next, err := budget.RolloverBudgetAmounts(closed, nextPeriod)
	if err != nil {
		return nil, err
	}
	next.ID = uuid.NewString()
	next.IsActive = true
	next.CreatedAt = now.UTC()
	next.UpdatedAt = now.UTC()
	if err := s.budgets.SaveBudget(ctx, next); err != nil {
		return nil, fmt.Errorf("save rolled over budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget rolled over", applog.NewFields().
		WithOperation(applog.OpRollover).
		WithUser(userID).
		With(applog.FieldBudgetID, next.ID).
		With("previous_budget_id", b.ID).
		With(applog.FieldPeriodStart, nextPeriod.StartDate).
		With(applog.FieldPeriodEnd, nextPeriod.EndDate).
		ToSlice()...)
	return &next, nil
}
