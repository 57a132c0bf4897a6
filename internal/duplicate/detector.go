package duplicate

import (
	"context"
	"log/slog"
	"time"

	"dailyowo/internal/core"
	"dailyowo/internal/ports"
)

// Detector fetches the comparison pool for a candidate and scores it. A
// failed fetch never blocks the write: the detector fails open.
type Detector struct {
	source ports.TransactionReader
	opts   Options
	logger *slog.Logger
}

func NewDetector(source ports.TransactionReader, opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{source: source, opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options of d.
func (d *Detector) Options() Options {
	return d.opts
}

// Check scores candidate against the owner's same-type transactions inside
// the configured window.
func (d *Detector) Check(ctx context.Context, candidate core.Transaction) Result {
	if d.source == nil {
		d.logger.WarnContext(ctx, "Duplicate check skipped, no transaction source configured")
		return FailOpen("duplicate check unavailable")
	}

	window := d.opts.Window()
	start := candidate.Date.Add(-window)
	end := candidate.Date.Add(window)
	pool, err := d.source.ListTransactions(ctx, candidate.UserID, ports.TransactionFilter{
		StartDate: &start,
		EndDate:   &end,
		Type:      candidate.Type,
	})
	if err != nil {
		d.logger.WarnContext(ctx, "Duplicate check failed open",
			"user_id", candidate.UserID,
			"transaction_id", candidate.ID,
			"error", err)
		return FailOpen("duplicate check unavailable")
	}

	began := time.Now()
	res := Detect(candidate, pool, d.opts)
	d.logger.DebugContext(ctx, "Duplicate check complete",
		"user_id", candidate.UserID,
		"transaction_id", candidate.ID,
		"pool_size", len(pool),
		"matches", len(res.Matches),
		"confidence", res.Confidence,
		"suggestion", res.Suggestion,
		"duration", time.Since(began))
	return res
}
