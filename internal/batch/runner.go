// Package batch implements BatchRunner: the chunked fetch -> normalize -> save
// loop a CLI command drives once per invocation. Grounded on
// internal/ingestion.Runner's RunnerOptions builder-with-defaults and its
// ctx.Done()-driven shutdown path, adapted from an always-on event loop to a
// bounded pass over a fixed target list, with save parallelism bounded by an
// errgroup instead of the teacher's single-goroutine event dispatch.
package batch

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

// State is BatchRunner's coarse progress, readable mid-run via Runner.State.
type State string

const (
	StatePreparing  State = "preparing"
	StateFetching   State = "fetching"
	StatePersisting State = "persisting"
	StateFinalizing State = "finalizing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

const (
	defaultFetchSize = 50
	defaultSaveSize  = 20
	defaultWorkers   = 4
)

// RateLimiter paces outbound source calls. Satisfied by
// internal/ratelimit.FixedWindow and internal/ratelimit.MinDelaySpacer.
type RateLimiter interface {
	Take(ctx context.Context) error
}

// Source fetches raw upstream records for a page of target IDs. Implemented
// by internal/sourceclient's Store and Meta adapters.
type Source interface {
	FetchMany(ctx context.Context, ids []int64) ([]*contracts.RawRecord, error)
}

// Normalizer turns one raw record into a ProcessedGame.
type Normalizer interface {
	Normalize(raw *contracts.RawRecord) (*contracts.ProcessedGame, error)
}

// Saver persists one normalized record. Implemented by
// internal/persistence.Orchestrator.
type Saver interface {
	Save(ctx context.Context, game *contracts.ProcessedGame, allowCreate bool) (*persistence.SaveResult, error)
}

// ItemRecorder appends one per-target outcome row to the active pipeline run.
// Implemented by internal/runregistry.
type ItemRecorder interface {
	RecordItem(ctx context.Context, runID string, targetType contracts.ItemTargetType, targetID string, action contracts.ItemAction, status contracts.ItemStatus, reason string) error
}

// Totals accumulates one run's outcome counts, reported via OnBatchComplete
// after each save chunk and returned from Run.
type Totals struct {
	Fetched   int64
	Processed int64
	Created   int64
	Updated   int64
	Skipped   int64
	Failed    int64
}

// Options configures a Runner. Zero-value fields are defaulted the same way
// RunnerOptions defaults checkInterval/slotLagWindow/flushInterval.
type Options struct {
	FetchSize   int // target IDs fetched from Source per round trip
	SaveSize    int // normalized records saved together per reported chunk
	Workers     int // concurrent Saver.Save calls per save chunk
	AllowCreate bool
	Logger      *log.Logger

	OnSaveResult    func(targetID int64, result *persistence.SaveResult, err error)
	OnBatchComplete func(totals Totals)
}

func (o Options) withDefaults() Options {
	if o.FetchSize <= 0 {
		o.FetchSize = defaultFetchSize
	}
	if o.SaveSize <= 0 {
		o.SaveSize = defaultSaveSize
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Runner drives the nested fetch -> normalize -> save loop over a fixed list
// of targets, chunked on both ends, with bounded save parallelism.
type Runner struct {
	source     Source
	normalizer Normalizer
	saver      Saver
	limiter    RateLimiter
	items      ItemRecorder
	targetType contracts.ItemTargetType
	opts       Options

	state atomic.Value
}

// NewRunner builds a Runner. limiter and items may be nil (no pacing, no
// per-item bookkeeping respectively); source, normalizer and saver must not be.
func NewRunner(source Source, normalizer Normalizer, saver Saver, limiter RateLimiter, items ItemRecorder, targetType contracts.ItemTargetType, opts Options) *Runner {
	r := &Runner{
		source:     source,
		normalizer: normalizer,
		saver:      saver,
		limiter:    limiter,
		items:      items,
		targetType: targetType,
		opts:       opts.withDefaults(),
	}
	r.setState(StatePreparing)
	return r
}

// State reports the runner's current coarse progress.
func (r *Runner) State() State { return r.state.Load().(State) }

func (r *Runner) setState(s State) { r.state.Store(s) }

// Run executes one batch pass over targets under runID. Cancellation lets the
// in-flight save chunk finish before returning; any fetch pages not yet
// started are left unprocessed and Run returns ctx.Err() alongside whatever
// totals it had accumulated so far.
func (r *Runner) Run(ctx context.Context, runID string, targets []int64) (Totals, error) {
	var totals Totals
	r.setState(StateFetching)

	for _, fetchPage := range chunk(targets, r.opts.FetchSize) {
		if err := ctx.Err(); err != nil {
			r.setState(StateFailed)
			return totals, err
		}

		if r.limiter != nil {
			if err := r.limiter.Take(ctx); err != nil {
				r.setState(StateFailed)
				return totals, fmt.Errorf("rate limiter: %w", err)
			}
		}

		raws, err := r.source.FetchMany(ctx, fetchPage)
		if err != nil {
			r.setState(StateFailed)
			return totals, fmt.Errorf("fetch batch: %w", err)
		}
		totals.Fetched += int64(len(raws))

		normalized := make([]*contracts.ProcessedGame, 0, len(raws))
		for _, raw := range raws {
			game, nerr := r.normalizer.Normalize(raw)
			if nerr != nil {
				r.opts.Logger.Printf("batch: normalize failed for %s: %v", rawTargetID(raw), nerr)
				totals.Failed++
				continue
			}
			normalized = append(normalized, game)
		}

		r.setState(StatePersisting)
		for _, saveChunk := range chunkGames(normalized, r.opts.SaveSize) {
			if err := ctx.Err(); err != nil {
				r.setState(StateFailed)
				return totals, err
			}
			if err := r.persistChunk(ctx, runID, saveChunk, &totals); err != nil {
				r.setState(StateFailed)
				return totals, err
			}
			if r.opts.OnBatchComplete != nil {
				r.opts.OnBatchComplete(totals)
			}
		}
		r.setState(StateFetching)
	}

	r.setState(StateFinalizing)
	r.setState(StateCompleted)
	return totals, nil
}

// persistChunk saves one chunk with Workers-bounded parallelism. Every
// record's save failure is counted and recorded, never returned, so the
// chunk always runs to completion and persistChunk returns nil; a cancelled
// ctx reaches each remaining Save through gctx and fails it individually.
func (r *Runner) persistChunk(ctx context.Context, runID string, games []*contracts.ProcessedGame, totals *Totals) error {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.Workers)

	var mu sync.Mutex
	for _, game := range games {
		game := game
		group.Go(func() error {
			result, err := r.saver.Save(gctx, game, r.opts.AllowCreate)

			mu.Lock()
			totals.Processed++
			r.recordOutcome(ctx, runID, game, result, err, totals)
			mu.Unlock()

			if r.opts.OnSaveResult != nil {
				r.opts.OnSaveResult(targetID(game), result, err)
			}
			return nil
		})
	}
	return group.Wait()
}

func (r *Runner) recordOutcome(ctx context.Context, runID string, game *contracts.ProcessedGame, result *persistence.SaveResult, err error, totals *Totals) {
	id := strconv.FormatInt(targetID(game), 10)

	if err != nil {
		totals.Failed++
		r.record(ctx, runID, id, contracts.ItemActionSkipped, contracts.ItemStatusFailed, err.Error())
		return
	}

	switch result.Action {
	case contracts.ItemActionCreated:
		totals.Created++
	case contracts.ItemActionUpdated:
		totals.Updated++
	case contracts.ItemActionSkipped:
		totals.Skipped++
	}

	status := contracts.ItemStatusSuccess
	reason := string(result.FailureReason)
	if result.FailureReason != "" {
		totals.Failed++
		status = contracts.ItemStatusFailed
	}
	r.record(ctx, runID, id, result.Action, status, reason)
}

func (r *Runner) record(ctx context.Context, runID, targetID string, action contracts.ItemAction, status contracts.ItemStatus, reason string) {
	if r.items == nil {
		return
	}
	if err := r.items.RecordItem(ctx, runID, r.targetType, targetID, action, status, reason); err != nil {
		r.opts.Logger.Printf("batch: record item %s failed: %v", targetID, err)
	}
}

func targetID(game *contracts.ProcessedGame) int64 {
	if game.StoreID != nil {
		return *game.StoreID
	}
	if game.MetaID != nil {
		return *game.MetaID
	}
	return 0
}

func rawTargetID(raw *contracts.RawRecord) string {
	if raw.StoreAppID != nil {
		return strconv.FormatInt(*raw.StoreAppID, 10)
	}
	if raw.MetaGameID != nil {
		return strconv.FormatInt(*raw.MetaGameID, 10)
	}
	return raw.Name
}

func chunk(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	var out [][]int64
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}

func chunkGames(games []*contracts.ProcessedGame, size int) [][]*contracts.ProcessedGame {
	if len(games) == 0 {
		return nil
	}
	var out [][]*contracts.ProcessedGame
	for i := 0; i < len(games); i += size {
		end := i + size
		if end > len(games) {
			end = len(games)
		}
		out = append(out, games[i:end])
	}
	return out
}
