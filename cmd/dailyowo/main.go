// Command dailyowo reconciles budgets against recorded transactions and
// screens new transactions for duplicates.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"dailyowo/internal/backend"
	"dailyowo/internal/budget"
	"dailyowo/internal/cache"
	"dailyowo/internal/cli"
	"dailyowo/internal/config"
	"dailyowo/internal/duplicate"
	applog "dailyowo/internal/log"
	"dailyowo/internal/services"
	"dailyowo/internal/taxonomy"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "dailyowo"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command. It is filled in by the root
// command's pre-run hook.
type app struct {
	cfg       *config.Config
	logger    *applog.Logger
	backend   *backend.Backend
	taxonomy  *taxonomy.Taxonomy
	snapshots *cache.SnapshotCache
	service   *services.ReconciliationService
	out       io.Writer
}

func rootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Budget reconciliation and duplicate transaction screening",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if err := a.init(cmd.Context()); err != nil {
				return err
			}
			cmd.SetContext(commandContext(cmd.Context(), a.logger, cmd.CommandPath()))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	cmd.AddCommand(
		snapshotCmd(a),
		txCmd(a),
		budgetCmd(a),
		rolloverCmd(a),
		duplicatesCmd(a),
		workerCmd(a),
		notifyCmd(a),
		categoriesCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func (a *app) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg, os.Stderr)

	tax, err := cli.LoadTaxonomy(cfg)
	if err != nil {
		return err
	}
	a.taxonomy = tax

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	a.backend, err = backend.New(ctx, bcfg, a.logger)
	if err != nil {
		return err
	}

	a.snapshots = cache.NewSnapshotCache(cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
	a.service = services.NewReconciliationService(a.backend.Transactions, a.backend.Budgets, services.Options{
		Engine: budget.NewEngine(budget.Options{
			Savings: tax.Savings(),
			Logger:  a.logger.WithComponent(applog.ComponentBudget).Slog(),
		}),
		Duplicate: duplicate.Options{
			TimeWindowHours: cfg.DuplicateWindowHours,
			MinimumScore:    cfg.DuplicateMinimumScore,
			StrictMode:      cfg.DuplicateStrictMode,
		},
		Cache:  a.snapshots,
		Alerts: a.backend.Alerts,
		Logger: a.logger,
	})
	return nil
}

// commandContext carries the command's logger so handlers log with the
// command path attached.
func commandContext(ctx context.Context, logger *applog.Logger, path string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return applog.WithContext(ctx, logger.With("command", path))
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	return err
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseTime accepts RFC 3339 timestamps and plain dates. An empty string
// yields now.
func parseTime(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use YYYY-MM-DD or RFC 3339", s)
}

func requireUser(userID string) error {
	if userID == "" {
		return errors.New("--user is required")
	}
	return nil
}
