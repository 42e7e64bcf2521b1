package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gamecatalog/internal/batch"
	"gamecatalog/internal/contracts"
)

// runBatch begins a PipelineRun, drives a batch.Runner over targets through
// the Store source, and finalizes the run, regardless of outcome. Every
// selector-driven command (refresh-window, ingest-new, full-refresh,
// backfill-details) shares this shape; only how targets is produced differs.
func (a *app) runBatch(ctx context.Context, logger *log.Logger, pipelineType string, targets []int64, allowCreate, dryRun bool) (summary, error) {
	runID, err := a.registry.BeginRun(ctx, pipelineType, "cli")
	if err != nil {
		return summary{}, fmt.Errorf("begin run: %w", err)
	}

	opts := batch.Options{
		FetchSize:   a.cfg.FetchBatchSize,
		SaveSize:    a.cfg.SaveBatchSize,
		Workers:     a.cfg.BatchConcurrency,
		AllowCreate: allowCreate && !dryRun,
		Logger:      logger,
	}
	runner := batch.NewRunner(a.storeClient, a.normalizer, a.orch, a.storeLimiter, a.registry, contracts.ItemTargetStore, opts)

	totals, runErr := runner.Run(ctx, runID, targets)
	return a.finalize(ctx, runID, pipelineType, totals, runErr)
}

// finalize reports the run's terminal status to RunRegistry and builds the
// run summary object every command returns, per spec.md §6. A run-level
// error (as opposed to per-record failures already folded into totals)
// still produces a summary — the caller decides the process exit code.
func (a *app) finalize(ctx context.Context, runID, pipelineType string, totals batch.Totals, runErr error) (summary, error) {
	status := contracts.RunStatusCompleted
	message := ""
	switch {
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		// spec.md §4.6/§7: a caller-initiated cancellation completes the
		// in-flight record, skips the rest, and marks the run completed
		// rather than failed.
		message = "cancelled"
		runErr = nil
	case runErr != nil:
		status = contracts.RunStatusFailed
		message = runErr.Error()
	case failureRateExceeds50Percent(totals):
		status = contracts.RunStatusFailed
		message = "failure rate exceeded 50% of processed items"
	}

	counters := contracts.RunCounters{
		TotalItems:     totals.Processed,
		CompletedItems: totals.Created + totals.Updated + totals.Skipped,
		FailedItems:    totals.Failed,
	}
	if err := a.registry.FinalizeRun(ctx, runID, status, counters, message); err != nil {
		log.Printf("ingestd[%s]: finalize run: %v", pipelineType, err)
	}

	finishedAt := time.Now()
	s := summary{
		RunID:          runID,
		Phase:          string(status),
		TotalProcessed: totals.Processed,
		Created:        totals.Created,
		Updated:        totals.Updated,
		Failed:         totals.Failed,
		Failures:       nil,
		FinishedAt:     finishedAt,
	}
	if runErr != nil {
		return s, runErr
	}
	return s, nil
}

func failureRateExceeds50Percent(t batch.Totals) bool {
	if t.Processed == 0 {
		return false
	}
	return float64(t.Failed)/float64(t.Processed) > 0.5
}

// runRefreshWindow implements the `refresh-window` command.
func (a *app) runRefreshWindow(ctx context.Context, logger *log.Logger, limit int, dryRun bool) (summary, error) {
	if limit < 1 || limit > 10_000 {
		return summary{}, fmt.Errorf("limit must be in [1,10000]")
	}
	targets, err := a.selector.RefreshWindow(ctx, limit)
	if err != nil {
		return summary{}, fmt.Errorf("select refresh window: %w", err)
	}
	return a.runBatch(ctx, logger, "refresh-window", targets, true, dryRun)
}

// runIngestNew implements the `ingest-new` command. mode only changes the
// PipelineRun's pipelineType ("ingest-new:<mode>"); CandidateSelector.NewStoreIds
// already excludes known and blocklisted IDs regardless of mode.
func (a *app) runIngestNew(ctx context.Context, logger *log.Logger, mode string, limit int, dryRun bool) (summary, error) {
	if limit < 1 || limit > 50_000 {
		return summary{}, fmt.Errorf("limit must be in [1,50000]")
	}
	if mode != "bootstrap" && mode != "operational" {
		return summary{}, fmt.Errorf("mode must be bootstrap or operational")
	}
	if err := a.selector.LoadExclusions(ctx); err != nil {
		return summary{}, fmt.Errorf("load exclusions: %w", err)
	}
	targets, err := a.selector.NewStoreIds(ctx, limit)
	if err != nil {
		return summary{}, fmt.Errorf("select new store ids: %w", err)
	}
	return a.runBatch(ctx, logger, "ingest-new:"+mode, targets, true, dryRun)
}

// runFullRefresh implements the `full-refresh` command, aggregating totals
// across every page CandidateSelector.FullRefresh visits.
func (a *app) runFullRefresh(ctx context.Context, logger *log.Logger, mode string, batchSize int, dryRun bool) (summary, error) {
	if batchSize < 100 || batchSize > 2000 {
		return summary{}, fmt.Errorf("batchSize must be in [100,2000]")
	}

	runID, err := a.registry.BeginRun(ctx, "full-refresh:"+mode, "cli")
	if err != nil {
		return summary{}, fmt.Errorf("begin run: %w", err)
	}

	opts := batch.Options{
		FetchSize:   a.cfg.FetchBatchSize,
		SaveSize:    a.cfg.SaveBatchSize,
		Workers:     a.cfg.BatchConcurrency,
		AllowCreate: !dryRun,
		Logger:      logger,
	}
	runner := batch.NewRunner(a.storeClient, a.normalizer, a.orch, a.storeLimiter, a.registry, contracts.ItemTargetStore, opts)

	var totals batch.Totals
	visitErr := a.selector.FullRefresh(ctx, batchSize, func(page []int64) error {
		pageTotals, err := runner.Run(ctx, runID, page)
		totals.Fetched += pageTotals.Fetched
		totals.Processed += pageTotals.Processed
		totals.Created += pageTotals.Created
		totals.Updated += pageTotals.Updated
		totals.Skipped += pageTotals.Skipped
		totals.Failed += pageTotals.Failed
		return err
	})

	return a.finalize(ctx, runID, "full-refresh:"+mode, totals, visitErr)
}

// runBackfillDetails implements the `backfill-details` command.
func (a *app) runBackfillDetails(ctx context.Context, logger *log.Logger, limit, concurrency int) (summary, error) {
	if limit < 1 {
		return summary{}, fmt.Errorf("limit must be positive")
	}
	targets, err := a.selector.BackfillMissingDetails(ctx, limit)
	if err != nil {
		return summary{}, fmt.Errorf("select backfill candidates: %w", err)
	}

	runID, err := a.registry.BeginRun(ctx, "backfill-details", "cli")
	if err != nil {
		return summary{}, fmt.Errorf("begin run: %w", err)
	}

	opts := batch.Options{
		FetchSize:   a.cfg.FetchBatchSize,
		SaveSize:    a.cfg.SaveBatchSize,
		Workers:     concurrency,
		AllowCreate: true,
		Logger:      logger,
	}
	runner := batch.NewRunner(a.storeClient, a.normalizer, a.orch, a.storeLimiter, a.registry, contracts.ItemTargetStore, opts)

	totals, runErr := runner.Run(ctx, runID, targets)
	return a.finalize(ctx, runID, "backfill-details", totals, runErr)
}
