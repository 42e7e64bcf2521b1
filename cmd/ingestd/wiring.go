package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"gamecatalog/internal/candidates"
	"gamecatalog/internal/config"
	"gamecatalog/internal/matching"
	"gamecatalog/internal/normalize"
	"gamecatalog/internal/persistence"
	"gamecatalog/internal/persistence/memory"
	"gamecatalog/internal/persistence/migrations"
	"gamecatalog/internal/persistence/postgres"
	"gamecatalog/internal/ratelimit"
	"gamecatalog/internal/report"
	"gamecatalog/internal/runregistry"
	runregistrymemory "gamecatalog/internal/runregistry/memory"
	runregistrypostgres "gamecatalog/internal/runregistry/postgres"
	"gamecatalog/internal/sourceclient"
)

// app bundles every dependency a command needs, built once per process
// invocation by newApp. Closing pool (when non-nil) is the caller's
// responsibility.
type app struct {
	cfg *config.Config

	storeClient *sourceclient.Store
	metaClient  *sourceclient.Meta

	storeLimiter *ratelimit.FixedWindow
	metaLimiter  *ratelimit.FixedWindow

	normalizer *normalize.Engine
	orch       *persistence.Orchestrator
	tx         persistence.TxManager
	selector   *candidates.Selector
	registry   *runregistry.Registry
	reportW    *report.Writer
	dupFinder  persistence.DuplicateFinder

	pool *postgres.Pool
}

// newApp wires every command's dependencies. useMemory swaps the persistence
// and run-registry layers for in-process fakes, skipping the Postgres pool
// and migrations entirely, the way the teacher's cmd/ingest --use-memory
// flag does.
func newApp(ctx context.Context, logger *log.Logger, useMemory bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	storeClient := sourceclient.NewStore(cfg.StoreBaseURL, cfg.StoreAPIKey, httpClient)
	metaClient := sourceclient.NewMeta(cfg.MetaBaseURL, cfg.MetaAPIKey, httpClient)

	storeLimiter := ratelimit.NewFixedWindow("store", cfg.StoreRateLimitN, time.Duration(cfg.StoreRateLimitWindowMs)*time.Millisecond, logger)
	metaLimiter := ratelimit.NewFixedWindow("meta", cfg.MetaRateLimitN, time.Duration(cfg.MetaRateLimitWindowMs)*time.Millisecond, logger)

	reportW, err := report.NewWriter(cfg.LogBaseDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open report writer: %w", err)
	}
	matcher := matching.NewEngine(reportW)
	normalizer := normalize.NewEngine(nil)

	a := &app{
		cfg:          cfg,
		storeClient:  storeClient,
		metaClient:   metaClient,
		storeLimiter: storeLimiter,
		metaLimiter:  metaLimiter,
		normalizer:   normalizer,
		reportW:      reportW,
	}

	if useMemory {
		store := memory.NewStore()
		a.tx = store
		a.orch = persistence.NewOrchestrator(store, matcher, nil)
		a.selector = candidates.NewSelector(memory.NewCandidateQueries(store), memory.NewExclusionRegistry(), storeClient, nil)
		a.registry = runregistry.NewRegistry(runregistrymemory.NewStore(), nil, nil)
		a.dupFinder = memory.NewDuplicateFinder(store)
		return a, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	a.pool = pool
	a.tx = postgres.NewTxManager(pool)
	a.orch = persistence.NewOrchestrator(a.tx, matcher, nil)
	a.selector = candidates.NewSelector(postgres.NewCandidateQueries(pool), postgres.NewExclusionRegistry(pool), storeClient, nil)
	a.registry = runregistry.NewRegistry(runregistrypostgres.NewStore(pool), nil, nil)
	a.dupFinder = postgres.NewDuplicateFinder(pool)
	return a, nil
}

// Close releases every resource newApp opened.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.reportW.Finalize(); err != nil {
		log.Printf("ingestd: finalize report: %v", err)
	}
}
