package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dailyowo/internal/amqp"
	"dailyowo/internal/cache"
	"dailyowo/internal/cli"
	"dailyowo/internal/core"
	"dailyowo/internal/duplicate"
	applog "dailyowo/internal/log"
	"dailyowo/internal/ports"
	"dailyowo/internal/services"
	"dailyowo/internal/taxonomy"
	"dailyowo/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func snapshotCmd(a *app) *cobra.Command {
	var userID, asOf string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute the budget snapshot for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			at, err := parseTime(asOf, time.Now().UTC())
			if err != nil {
				return err
			}
			data, err := a.service.Snapshot(cmd.Context(), userID, at)
			if err != nil {
				return err
			}
			return a.writeJSON(data)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Snapshot time (default now)")
	return cmd
}

// txFlags collects the flags that describe one transaction.
type txFlags struct {
	id, userID, kind, amount, category, currency string
	date, description, merchant, payment, place  string
	recurring                                    bool
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "Transaction ID (generated when empty)")
	cmd.Flags().StringVar(&f.userID, "user", "", "User ID")
	cmd.Flags().StringVar(&f.kind, "type", string(core.Expense), "income, expense, asset or liability")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Positive amount, e.g. 12.50")
	cmd.Flags().StringVar(&f.category, "category", "", "Transaction category ID")
	cmd.Flags().StringVar(&f.currency, "currency", "USD", "ISO currency code")
	cmd.Flags().StringVar(&f.date, "date", "", "Transaction date (default now)")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.merchant, "merchant", "", "Merchant")
	cmd.Flags().StringVar(&f.payment, "payment-method", "", "Payment method")
	cmd.Flags().StringVar(&f.place, "location", "", "Location name")
	cmd.Flags().BoolVar(&f.recurring, "recurring", false, "Mark as recurring")
}

func (f *txFlags) transaction(now time.Time) (core.Transaction, error) {
	if err := requireUser(f.userID); err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("--amount %q: %w", f.amount, err)
	}
	date, err := parseTime(f.date, now)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:            f.id,
		UserID:        f.userID,
		Type:          core.TransactionType(f.kind),
		Amount:        amount,
		CategoryID:    f.category,
		Currency:      strings.ToUpper(f.currency),
		Date:          date,
		Description:   f.description,
		Merchant:      f.merchant,
		PaymentMethod: f.payment,
		IsRecurring:   f.recurring,
	}
	if f.place != "" {
		tx.Location = &core.Location{Name: f.place}
	}
	return tx, nil
}

func txCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "tx", Short: "Manage transactions"}

	var add txFlags
	var force bool
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction after screening it for duplicates",
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := add.transaction(time.Now().UTC())
			if err != nil {
				return err
			}
			saved, res, err := a.service.AddTransaction(cmd.Context(), tx, force)
			if errors.Is(err, services.ErrDuplicateBlocked) || errors.Is(err, services.ErrPossibleDuplicate) {
				if werr := a.writeJSON(res); werr != nil {
					return werr
				}
				if errors.Is(err, services.ErrPossibleDuplicate) {
					return fmt.Errorf("%w (use --force to save anyway)", err)
				}
				return err
			}
			if err != nil {
				return err
			}
			return a.writeJSON(struct {
				Transaction core.Transaction `json:"transaction"`
				Duplicate   duplicate.Result `json:"duplicateCheck"`
			}{saved, res})
		},
	}
	add.register(addCmd)
	addCmd.Flags().BoolVar(&force, "force", false, "Save a possible duplicate anyway")

	var listUser, from, to, kind string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List live transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(listUser); err != nil {
				return err
			}
			f := ports.TransactionFilter{Type: core.TransactionType(kind)}
			if from != "" {
				t, err := parseTime(from, time.Time{})
				if err != nil {
					return err
				}
				f.StartDate = &t
			}
			if to != "" {
				t, err := parseTime(to, time.Time{})
				if err != nil {
					return err
				}
				f.EndDate = &t
			}
			txs, err := a.service.ListTransactions(cmd.Context(), listUser, f)
			if err != nil {
				return err
			}
			return a.writeJSON(txs)
		},
	}
	listCmd.Flags().StringVar(&listUser, "user", "", "User ID")
	listCmd.Flags().StringVar(&from, "from", "", "Earliest date, inclusive")
	listCmd.Flags().StringVar(&to, "to", "", "Latest date, inclusive")
	listCmd.Flags().StringVar(&kind, "type", "", "Only this transaction type")

	var delUser, delID string
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Soft delete a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(delUser); err != nil {
				return err
			}
			if delID == "" {
				return errors.New("--id is required")
			}
			return a.service.DeleteTransaction(cmd.Context(), delUser, delID)
		},
	}
	deleteCmd.Flags().StringVar(&delUser, "user", "", "User ID")
	deleteCmd.Flags().StringVar(&delID, "id", "", "Transaction ID")

	var unmappedUser string
	unmappedCmd := &cobra.Command{
		Use:   "unmapped",
		Short: "List transactions no budget category claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(unmappedUser); err != nil {
				return err
			}
			txs, err := a.service.Unmapped(cmd.Context(), unmappedUser)
			if err != nil {
				return err
			}
			return a.writeJSON(annotateUnmapped(a.taxonomy, txs))
		},
	}
	unmappedCmd.Flags().StringVar(&unmappedUser, "user", "", "User ID")

	cmd.AddCommand(addCmd, listCmd, deleteCmd, unmappedCmd)
	return cmd
}

// unmappedEntry is an unmapped transaction with what the taxonomy knows
// about its category, so the user can see which budget category should claim
// it.
type unmappedEntry struct {
	Transaction   core.Transaction        `json:"transaction"`
	KnownCategory bool                    `json:"knownCategory"`
	CategoryName  string                  `json:"categoryName,omitempty"`
	BudgetHint    core.BudgetCategoryType `json:"budgetHint,omitempty"`
}

func annotateUnmapped(tax *taxonomy.Taxonomy, txs []core.Transaction) []unmappedEntry {
	out := make([]unmappedEntry, 0, len(txs))
	for _, tx := range txs {
		e := unmappedEntry{Transaction: tx}
		if tax != nil {
			if c, ok := tax.Lookup(tx.CategoryID); ok {
				e.KnownCategory = true
				e.CategoryName = c.Name
				e.BudgetHint = c.BudgetHint
			}
		}
		out = append(out, e)
	}
	return out
}

// parseAllocations reads repeated key=amount pairs.
func parseAllocations(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid allocation %q: want key=amount", p)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("invalid allocation amount %q for %s", v, k)
		}
		out[k] = d.Round(2).InexactFloat64()
	}
	return out, nil
}

func budgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "budget", Short: "Manage budgets"}

	var (
		userID, name, method, frequency, start, income string
		allocs                                         []string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the active budget from an allocation method",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			amount := 0.0
			if income != "" {
				d, err := decimal.NewFromString(income)
				if err != nil {
					return fmt.Errorf("--income %q: %w", income, core.ErrInvalidAmount)
				}
				amount = d.InexactFloat64()
			}
			at, err := parseTime(start, time.Now().UTC())
			if err != nil {
				return err
			}
			alloc, err := parseAllocations(allocs)
			if err != nil {
				return err
			}
			b, err := a.service.CreateBudget(cmd.Context(), services.CreateBudgetRequest{
				UserID:    userID,
				Name:      name,
				Method:    core.BudgetMethod{Type: core.BudgetMethodType(method), Allocations: alloc},
				Income:    amount,
				Frequency: core.Frequency(frequency),
				Start:     at,
			})
			if err != nil {
				return err
			}
			return a.writeJSON(b)
		},
	}
	createCmd.Flags().StringVar(&userID, "user", "", "User ID")
	createCmd.Flags().StringVar(&name, "name", "", "Budget name")
	createCmd.Flags().StringVar(&method, "method", string(core.MethodFiftyThirtyTwenty), "50-30-20, zero-based or custom")
	createCmd.Flags().StringVar(&income, "income", "", "Planned income for the period")
	createCmd.Flags().StringVar(&frequency, "frequency", string(core.Monthly), "weekly, bi-weekly, monthly, quarterly or annual")
	createCmd.Flags().StringVar(&start, "start", "", "Period start (default now)")
	createCmd.Flags().StringArrayVar(&allocs, "alloc", nil, "Custom allocation key=amount (repeatable)")

	var showUser string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(showUser); err != nil {
				return err
			}
			b, err := a.service.ActiveBudget(cmd.Context(), showUser)
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("no active budget for %s: %w", showUser, core.ErrNotFound)
			}
			return a.writeJSON(b)
		},
	}
	showCmd.Flags().StringVar(&showUser, "user", "", "User ID")

	cmd.AddCommand(createCmd, showCmd)
	return cmd
}

func rolloverCmd(a *app) *cobra.Command {
	var userID, now string
	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Close an ended budget period and start the next one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			at, err := parseTime(now, time.Now().UTC())
			if err != nil {
				return err
			}
			res, err := a.service.RolloverIfDue(cmd.Context(), userID, at)
			if err != nil {
				return err
			}
			return a.writeJSON(res)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&now, "now", "", "Evaluate as of this time (default now)")
	return cmd
}

func duplicatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "duplicates", Short: "Duplicate transaction screening"}

	var f txFlags
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Score a transaction against recent ones without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := f.transaction(time.Now().UTC())
			if err != nil {
				return err
			}
			return a.writeJSON(a.service.CheckDuplicate(cmd.Context(), tx))
		},
	}
	f.register(checkCmd)
	cmd.AddCommand(checkCmd)
	return cmd
}

func workerCmd(a *app) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Roll budgets into their next period on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := applog.FromContext(cmd.Context())
			w := worker.NewRolloverWorker(a.backend.Budgets, a.service, a.cfg.RolloverInterval, a.cfg.WorkerConcurrency, logger)
			if once {
				summary, err := w.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				return a.writeJSON(summary)
			}

			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()

			sweeper := cache.NewManager(logger.WithComponent(applog.ComponentCache))
			defer sweeper.Stop()
			if a.cfg.SnapshotCacheSize > 0 {
				sweeper.Register(a.snapshots)
				sweeper.StartCleanup(ctx, a.cfg.SnapshotCacheTTL)
			}

			err := w.Run(ctx)
			stats := a.snapshots.Stats()
			logger.Info("Snapshot cache stats",
				"size", stats.Size,
				"hits", stats.Hits,
				"misses", stats.Misses)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	return cmd
}

func notifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Consume published budget alerts and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.backend.AMQP == nil {
				return errors.New("notify needs a reachable AMQP_URL")
			}
			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()

			logger := applog.FromContext(cmd.Context()).WithComponent(applog.ComponentAMQP)
			err := a.backend.AMQP.ConsumeBudgetAlerts(ctx, func(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
				logger.InfoContext(ctx, "Budget alert received", applog.NewFields().
					WithOperation(applog.OpConsume).
					WithUser(msg.UserID).
					With("alert_id", msg.Alert.ID).
					With(applog.FieldCategoryID, msg.Alert.CategoryID).
					ToSlice()...)
				return a.writeJSON(msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func categoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the transaction-category taxonomy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeJSON(taxonomyEntries(a.taxonomy))
		},
	}
}

func taxonomyEntries(tax *taxonomy.Taxonomy) []taxonomy.Category {
	ids := tax.IDs()
	out := make([]taxonomy.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := tax.Lookup(id); ok {
			out = append(out, c)
		}
	}
	return out
}
