package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"gamecatalog/internal/batch"
	"gamecatalog/internal/contracts"
)

// runMergeDuplicates implements the supplemented `merge-duplicates` command
// (SPEC_FULL.md §14): find games that look like the same title but were
// never linked by MatchingEngine at ingest time, and collapse each group
// onto its oldest row.
func (a *app) runMergeDuplicates(ctx context.Context, logger *log.Logger, limit int, dryRun bool) (summary, error) {
	if limit <= 0 {
		limit = 1000
	}

	runID, err := a.registry.BeginRun(ctx, "merge-duplicates", "cli")
	if err != nil {
		return summary{}, fmt.Errorf("begin run: %w", err)
	}

	groups, err := a.dupFinder.FindDuplicateGroups(ctx, limit)
	if err != nil {
		return a.finalize(ctx, runID, "merge-duplicates", batch.Totals{}, fmt.Errorf("find duplicate groups: %w", err))
	}

	if dryRun {
		logger.Printf("merge-duplicates: found %d candidate group(s) (dry run, no changes made)", len(groups))
		return a.finalize(ctx, runID, "merge-duplicates", batch.Totals{Processed: int64(len(groups))}, nil)
	}

	outcomes, err := a.orch.MergeDuplicates(ctx, groups)
	if err != nil {
		return a.finalize(ctx, runID, "merge-duplicates", batch.Totals{}, fmt.Errorf("merge duplicates: %w", err))
	}

	var merged, failed int64
	var failures []failureDetail
	for _, outcome := range outcomes {
		merged += int64(len(outcome.MergedIDs))
		for dupID, mergeErr := range outcome.Failures {
			failed++
			failures = append(failures, failureDetail{
				TargetID: strconv.FormatInt(dupID, 10),
				Reason:   "merge_failed",
				Message:  mergeErr.Error(),
			})
			_ = a.registry.RecordItem(ctx, runID, contracts.ItemTargetStore, strconv.FormatInt(dupID, 10), contracts.ItemActionSkipped, contracts.ItemStatusFailed, mergeErr.Error())
		}
	}

	status := contracts.RunStatusCompleted
	if failed > 0 && merged == 0 {
		status = contracts.RunStatusFailed
	}
	counters := contracts.RunCounters{
		TotalItems:     merged + failed,
		CompletedItems: merged,
		FailedItems:    failed,
	}
	if err := a.registry.FinalizeRun(ctx, runID, status, counters, ""); err != nil {
		log.Printf("ingestd[merge-duplicates]: finalize run: %v", err)
	}

	return summary{
		RunID:          runID,
		Phase:          string(status),
		TotalProcessed: merged + failed,
		Updated:        merged,
		Failed:         failed,
		Failures:       failures,
		FinishedAt:     time.Now(),
	}, nil
}
