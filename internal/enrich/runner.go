package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Fetcher is the external enrichment collaborator: given a batch of rows it
// returns patches keyed by the same identifiers. A missing identifier in the
// result means "not found", not an error.
type Fetcher interface {
	Fetch(ctx context.Context, rows []Row) ([]Patch, error)
}

// Runner drives batched collaborator calls around the core merge. The
// collaborator rate-limits, so batches stay small and a delay separates them.
type Runner struct {
	BatchSize int
	Delay     time.Duration
	Log       *zap.Logger
}

// NewRunner returns a runner with the production batch settings.
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{BatchSize: 2, Delay: 500 * time.Millisecond, Log: log}
}

// Report summarizes a run. When Err is set, NextOffset is the row offset to
// resume from; every patch obtained before the failure has already been
// collected.
type Report struct {
	Patches    []Patch
	Fetched    int
	NextOffset int
	Err        error
}

// Run fetches patches for rows starting at offset. On a mid-sequence
// failure all patches obtained so far are preserved and the stopping offset
// is surfaced so the caller can resume; retry and abort decisions belong to
// the caller, not the runner.
func (r *Runner) Run(ctx context.Context, rows []Row, fetcher Fetcher, offset int) Report {
	if offset < 0 {
		offset = 0
	}
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = 2
	}

	report := Report{NextOffset: offset}

	for i := offset; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		if err := ctx.Err(); err != nil {
			report.Err = err
			report.NextOffset = i
			return report
		}

		batch := rows[i:end]
		patches, err := fetcher.Fetch(ctx, batch)
		if err != nil {
			r.Log.Warn("enrichment batch failed",
				zap.Int("offset", i), zap.Int("batch_size", len(batch)), zap.Error(err))
			report.Err = err
			report.NextOffset = i
			return report
		}

		report.Patches = append(report.Patches, patches...)
		report.Fetched += len(batch)
		r.Log.Info("enrichment batch complete",
			zap.Int("offset", i), zap.Int("patches", len(patches)))

		if end < len(rows) && r.Delay > 0 {
			select {
			case <-ctx.Done():
				report.Err = ctx.Err()
				report.NextOffset = end
				return report
			case <-time.After(r.Delay):
			}
		}
	}

	report.NextOffset = len(rows)
	return report
}
