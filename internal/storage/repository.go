package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dailyowo/internal/core"
	"dailyowo/internal/ports"

	_ "modernc.org/sqlite"
)

var (
	_ ports.TransactionStore = (*SQLiteRepository)(nil)
	_ ports.BudgetStore      = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = `id, user_id, created_by, type, amount, category_id, currency, date_ns,
	description, merchant, payment_method, location, is_recurring, deleted, created_at_ns, updated_at_ns`

// SaveTransaction inserts or replaces a transaction.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	var location sql.NullString
	if t.Location != nil {
		raw, err := json.Marshal(t.Location)
		if err != nil {
			return fmt.Errorf("encode location: %w", err)
		}
		location = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			created_by = excluded.created_by,
			type = excluded.type,
			amount = excluded.amount,
			category_id = excluded.category_id,
			currency = excluded.currency,
			date_ns = excluded.date_ns,
			description = excluded.description,
			merchant = excluded.merchant,
			payment_method = excluded.payment_method,
			location = excluded.location,
			is_recurring = excluded.is_recurring,
			deleted = excluded.deleted,
			updated_at_ns = excluded.updated_at_ns`,
		t.ID, t.UserID, t.CreatedBy, string(t.Type), t.Amount, t.CategoryID, t.Currency, toNS(t.Date),
		t.Description, t.Merchant, t.PaymentMethod, location, boolToInt(t.IsRecurring), boolToInt(t.Deleted),
		toNS(t.CreatedAt), toNS(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"transaction_id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount", t.Amount)
	return nil
}

func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted = 1, updated_at_ns = ? WHERE user_id = ? AND id = ? AND deleted = 0`,
		toNS(time.Now().UTC()), userID, id)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction soft deleted", "transaction_id", id, "user_id", userID)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ? AND deleted = 0`,
		userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns live transactions ordered by date, then ID.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	var (
		where = []string{"user_id = ?", "deleted = 0"}
		args  = []any{userID}
	)
	if f.StartDate != nil {
		where = append(where, "date_ns >= ?")
		args = append(args, toNS(*f.StartDate))
	}
	if f.EndDate != nil {
		where = append(where, "date_ns <= ?")
		args = append(args, toNS(*f.EndDate))
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+strings.Join(where, " AND ")+` ORDER BY date_ns, id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                      core.Transaction
		kind                   string
		dateNS, createdNS      int64
		updatedNS              int64
		location               sql.NullString
		isRecurring, isDeleted int
	)
	err := s.Scan(&t.ID, &t.UserID, &t.CreatedBy, &kind, &t.Amount, &t.CategoryID, &t.Currency, &dateNS,
		&t.Description, &t.Merchant, &t.PaymentMethod, &location, &isRecurring, &isDeleted, &createdNS, &updatedNS)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(kind)
	t.Date = fromNS(dateNS)
	t.CreatedAt = fromNS(createdNS)
	t.UpdatedAt = fromNS(updatedNS)
	t.IsRecurring = isRecurring != 0
	t.Deleted = isDeleted != 0
	if location.Valid {
		var loc core.Location
		if err := json.Unmarshal([]byte(location.String), &loc); err != nil {
			return core.Transaction{}, fmt.Errorf("decode location: %w", err)
		}
		t.Location = &loc
	}
	return t, nil
}

// SaveBudget upserts b as the user's active budget and deactivates the
// user's other budgets in the same database transaction.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	if b.Period == nil {
		return core.ErrMissingPeriod
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}

	allocations, err := json.Marshal(b.Method.Allocations)
	if err != nil {
		return fmt.Errorf("encode allocations: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE budgets SET is_active = 0, updated_at_ns = ? WHERE user_id = ? AND id <> ? AND is_active = 1`,
		toNS(now), b.UserID, b.ID); err != nil {
		return fmt.Errorf("deactivate budgets: %w", err)
	}

	p := b.Period
	if _, err := tx.ExecContext(ctx, `INSERT INTO budgets (id, user_id, name, method_type, method_allocations,
			start_ns, end_ns, frequency, total_income, total_allocated, total_spent, total_savings, total_remaining,
			is_active, created_at_ns, updated_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			method_type = excluded.method_type,
			method_allocations = excluded.method_allocations,
			start_ns = excluded.start_ns,
			end_ns = excluded.end_ns,
			frequency = excluded.frequency,
			total_income = excluded.total_income,
			total_allocated = excluded.total_allocated,
			total_spent = excluded.total_spent,
			total_savings = excluded.total_savings,
			total_remaining = excluded.total_remaining,
			is_active = 1,
			updated_at_ns = excluded.updated_at_ns`,
		b.ID, b.UserID, b.Name, string(b.Method.Type), string(allocations),
		toNS(p.StartDate), toNS(p.EndDate), string(p.Frequency),
		p.TotalIncome, p.TotalAllocated, p.TotalSpent, p.TotalSavings, p.TotalRemaining,
		toNS(b.CreatedAt), toNS(b.UpdatedAt)); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_categories WHERE budget_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear budget categories: %w", err)
	}
	for i, c := range b.Categories {
		mapped, err := json.Marshal(c.TransactionCategories)
		if err != nil {
			return fmt.Errorf("encode transaction categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO budget_categories (budget_id, position, id, name, type,
				allocated, spent, remaining, is_over_budget, transaction_categories, allow_rollover, rollover_amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, i, c.ID, c.Name, string(c.Type), c.Allocated, c.Spent, c.Remaining, boolToInt(c.IsOverBudget),
			string(mapped), boolToInt(c.AllowRollover), c.RolloverAmount); err != nil {
			return fmt.Errorf("save budget category %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"budget_id", b.ID,
		"user_id", b.UserID,
		"categories", len(b.Categories),
		"period_start", p.StartDate,
		"period_end", p.EndDate)
	return nil
}

const budgetColumns = `id, user_id, name, method_type, method_allocations, start_ns, end_ns, frequency,
	total_income, total_allocated, total_spent, total_savings, total_remaining, is_active, created_at_ns, updated_at_ns`

func (r *SQLiteRepository) ActiveBudget(ctx context.Context, userID string) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND is_active = 1 ORDER BY start_ns DESC LIMIT 1`,
		userID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active budget for %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active budget: %w", err)
	}
	if b.Categories, err = r.budgetCategories(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *SQLiteRepository) ListActiveBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE is_active = 1 ORDER BY user_id, start_ns`)
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}

	// Categories are loaded after the cursor is closed since the pool has a
	// single connection.
	for i := range out {
		if out[i].Categories, err = r.budgetCategories(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteRepository) budgetCategories(ctx context.Context, budgetID string) ([]core.BudgetCategory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type, allocated, spent, remaining, is_over_budget,
			transaction_categories, allow_rollover, rollover_amount
		FROM budget_categories WHERE budget_id = ? ORDER BY position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	defer rows.Close()

	out := []core.BudgetCategory{}
	for rows.Next() {
		var (
			c                     core.BudgetCategory
			kind, mapped          string
			overBudget, allowRoll int
		)
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.Allocated, &c.Spent, &c.Remaining, &overBudget,
			&mapped, &allowRoll, &c.RolloverAmount); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		c.Type = core.BudgetCategoryType(kind)
		c.IsOverBudget = overBudget != 0
		c.AllowRollover = allowRoll != 0
		if err := json.Unmarshal([]byte(mapped), &c.TransactionCategories); err != nil {
			return nil, fmt.Errorf("decode transaction categories: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	return out, nil
}

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                core.Budget
		p                core.BudgetPeriod
		method, freq     string
		allocations      string
		startNS, endNS   int64
		createdNS, updNS int64
		active           int
	)
	err := s.Scan(&b.ID, &b.UserID, &b.Name, &method, &allocations, &startNS, &endNS, &freq,
		&p.TotalIncome, &p.TotalAllocated, &p.TotalSpent, &p.TotalSavings, &p.TotalRemaining,
		&active, &createdNS, &updNS)
	if err != nil {
		return core.Budget{}, err
	}
	b.Method.Type = core.BudgetMethodType(method)
	if err := json.Unmarshal([]byte(allocations), &b.Method.Allocations); err != nil {
		return core.Budget{}, fmt.Errorf("decode allocations: %w", err)
	}
	p.StartDate = fromNS(startNS)
	p.EndDate = fromNS(endNS)
	p.Frequency = core.Frequency(freq)
	b.Period = &p
	b.IsActive = active != 0
	b.CreatedAt = fromNS(createdNS)
	b.UpdatedAt = fromNS(updNS)
	return b, nil
}

func toNS(t time.Time) int64 { return t.UnixNano() }

func fromNS(ns int64) time.Time { return time.Unix(0, ns).UTC() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
