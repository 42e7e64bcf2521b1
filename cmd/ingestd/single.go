package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gamecatalog/internal/batch"
	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

// runSingle implements the `single` command: refresh exactly one record from
// one or both upstreams. idKind decides what id means; sources decides which
// upstream(s) get refetched. A source is silently dropped from the refetch
// if the corresponding identifier can't be resolved (e.g. sources includes
// meta but the row has never been linked to a Meta game) rather than failing
// the whole command, since the other source's refetch is still useful.
func (a *app) runSingle(ctx context.Context, logger *log.Logger, idKind string, id int64, sources []string, dryRun bool) (summary, error) {
	storeID, metaID, err := a.resolveSingleTargets(ctx, idKind, id)
	if err != nil {
		return summary{}, err
	}

	runID, err := a.registry.BeginRun(ctx, "single", "cli")
	if err != nil {
		return summary{}, fmt.Errorf("begin run: %w", err)
	}

	opts := batch.Options{
		FetchSize:   1,
		SaveSize:    1,
		Workers:     1,
		AllowCreate: !dryRun,
		Logger:      logger,
	}

	var totals batch.Totals
	var refetched bool
	for _, source := range sources {
		switch source {
		case "store":
			if storeID == nil {
				logger.Printf("single: no store id known for %s=%d, skipping store refetch", idKind, id)
				continue
			}
			runner := batch.NewRunner(a.storeClient, a.normalizer, a.orch, a.storeLimiter, a.registry, contracts.ItemTargetStore, opts)
			t, runErr := runner.Run(ctx, runID, []int64{*storeID})
			totals = addTotals(totals, t)
			refetched = true
			if runErr != nil {
				return a.finalize(ctx, runID, "single", totals, runErr)
			}
		case "meta":
			if metaID == nil {
				logger.Printf("single: no meta id known for %s=%d, skipping meta refetch", idKind, id)
				continue
			}
			runner := batch.NewRunner(a.metaClient, a.normalizer, a.orch, a.metaLimiter, a.registry, contracts.ItemTargetMeta, opts)
			t, runErr := runner.Run(ctx, runID, []int64{*metaID})
			totals = addTotals(totals, t)
			refetched = true
			if runErr != nil {
				return a.finalize(ctx, runID, "single", totals, runErr)
			}
		default:
			return summary{}, fmt.Errorf("unknown source %q", source)
		}
	}

	var runErr error
	if !refetched {
		runErr = errors.New("no requested source had a resolvable identifier")
	}
	return a.finalize(ctx, runID, "single", totals, runErr)
}

func (a *app) resolveSingleTargets(ctx context.Context, idKind string, id int64) (storeID, metaID *int64, err error) {
	var existing *contracts.Game
	switch idKind {
	case "internal":
		err = a.tx.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
			g, gerr := repo.Games().FindByID(ctx, id)
			existing = g
			return gerr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("resolve internal id %d: %w", id, err)
		}
		return existing.StoreID, existing.MetaID, nil
	case "store":
		storeID = &id
		err = a.tx.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
			g, gerr := repo.Games().FindByStoreID(ctx, id)
			if errors.Is(gerr, persistence.ErrNotFound) {
				return nil
			}
			existing = g
			return gerr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("look up store id %d: %w", id, err)
		}
		if existing != nil {
			metaID = existing.MetaID
		}
		return storeID, metaID, nil
	case "meta":
		metaID = &id
		err = a.tx.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
			g, gerr := repo.Games().FindByMetaID(ctx, id)
			if errors.Is(gerr, persistence.ErrNotFound) {
				return nil
			}
			existing = g
			return gerr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("look up meta id %d: %w", id, err)
		}
		if existing != nil {
			storeID = existing.StoreID
		}
		return storeID, metaID, nil
	default:
		return nil, nil, fmt.Errorf("unknown idKind %q", idKind)
	}
}

func addTotals(a, b batch.Totals) batch.Totals {
	return batch.Totals{
		Fetched:   a.Fetched + b.Fetched,
		Processed: a.Processed + b.Processed,
		Created:   a.Created + b.Created,
		Updated:   a.Updated + b.Updated,
		Skipped:   a.Skipped + b.Skipped,
		Failed:    a.Failed + b.Failed,
	}
}
