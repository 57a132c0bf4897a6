package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	applog "dailyowo/internal/log"
	"dailyowo/internal/ports"
	"dailyowo/internal/services"

	"golang.org/x/sync/errgroup"
)

// Roller closes a user's budget period when it has ended.
type Roller interface {
	RolloverIfDue(ctx context.Context, userID string, now time.Time) (services.RolloverResult, error)
}

// RolloverWorker periodically rolls every user's active budget into the next
// period once the current one has ended.
type RolloverWorker struct {
	budgets     ports.BudgetStore
	roller      Roller
	interval    time.Duration
	concurrency int
	logger      *applog.Logger
	now         func() time.Time
}

// RunSummary counts the outcome of one pass.
type RunSummary struct {
	Users      int `json:"users"`
	RolledOver int `json:"rolledOver"`
	Failed     int `json:"failed"`
}

func NewRolloverWorker(budgets ports.BudgetStore, roller Roller, interval time.Duration, concurrency int, logger *applog.Logger) *RolloverWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &RolloverWorker{
		budgets:     budgets,
		roller:      roller,
		interval:    interval,
		concurrency: concurrency,
		logger:      logger.WithComponent(applog.ComponentWorker),
		now:         time.Now,
	}
}

// RunOnce checks every user with an active budget. A failure for one user is
// logged and counted; it does not stop the others. Only a failure to list
// budgets or a cancelled context is returned.
func (w *RolloverWorker) RunOnce(ctx context.Context) (RunSummary, error) {
	active, err := w.budgets.ListActiveBudgets(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list active budgets: %w", err)
	}

	seen := make(map[string]struct{}, len(active))
	users := make([]string, 0, len(active))
	for _, b := range active {
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		users = append(users, b.UserID)
	}

	now := w.now()
	var rolled, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := w.roller.RolloverIfDue(gctx, userID, now)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				w.logger.ErrorContext(gctx, "Rollover failed", applog.NewFields().
					WithOperation(applog.OpRollover).
					WithUser(userID).
					WithError(err).
					ToSlice()...)
				return nil
			}
			if res.RolledOver {
				atomic.AddInt64(&rolled, 1)
			}
			return nil
		})
	}
	err = g.Wait()

	summary := RunSummary{Users: len(users), RolledOver: int(rolled), Failed: int(failed)}
	w.logger.InfoContext(ctx, "Rollover pass complete",
		"users", summary.Users,
		"rolled_over", summary.RolledOver,
		"failed", summary.Failed)
	return summary, err
}

// Run performs a pass immediately and then every interval until ctx is done.
func (w *RolloverWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Rollover worker started",
		"interval", w.interval,
		"concurrency", w.concurrency)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.ErrorContext(ctx, "Rollover pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Rollover worker stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}

	w.logger.InfoContext(ctx, "Rollover worker stopped", "reason", ctx.Err())
	return ctx.Err()
}
