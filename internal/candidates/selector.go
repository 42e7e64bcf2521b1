// Package candidates implements CandidateSelector: deciding which Store/Meta
// IDs a run should refresh, newly discover, or backfill, plus the persistent
// exclusion registry that keeps repeat discovery passes from re-fetching
// known-uninteresting Store apps (soundtracks, SDKs, demos).
//
// Grounded on the teacher's internal/discovery.NewTokenDetector: an
// in-memory seen-set backed by an optional persistent store, loaded once at
// startup via LoadState and consulted before any external fetch.
package candidates

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

// refreshWindowBefore/After bound the "coming soon or about to release"
// refresh window: spec.md §4.7 defines it as [now-7d, now+90d].
const (
	refreshWindowBefore = 7 * 24 * time.Hour
	refreshWindowAfter  = 90 * 24 * time.Hour

	fullRefreshPageSize = 500
)

// StoreCatalog lists every Store app ID currently listed upstream. Implemented
// by internal/sourceclient's Store adapter; kept as a narrow interface here
// so candidates never imports sourceclient.
type StoreCatalog interface {
	ListAllStoreIDs(ctx context.Context) ([]int64, error)
}

// Selector is CandidateSelector. The exclusion bitmap is loaded once per
// command via LoadExclusions and cached for the Selector's lifetime.
type Selector struct {
	queries    persistence.CandidateQueries
	exclusions persistence.ExclusionRegistry
	catalog    StoreCatalog
	now        func() time.Time

	excluded map[int64]struct{}
}

// NewSelector builds a Selector. now defaults to time.Now when nil.
func NewSelector(queries persistence.CandidateQueries, exclusions persistence.ExclusionRegistry, catalog StoreCatalog, now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	return &Selector{queries: queries, exclusions: exclusions, catalog: catalog, now: now}
}

// LoadExclusions loads the persistent exclusion bitmap into memory. Call once
// per command before NewStoreIds; a no-op cache miss (nil map) is treated as
// empty rather than an error so a fresh installation can still run.
func (s *Selector) LoadExclusions(ctx context.Context) error {
	excluded, err := s.exclusions.Load(ctx)
	if err != nil {
		return fmt.Errorf("load exclusion bitmap: %w", err)
	}
	s.excluded = excluded
	return nil
}

// Exclude persists a Store app ID as confirmed uninteresting, updating both
// the persistent registry and this Selector's in-memory cache.
func (s *Selector) Exclude(ctx context.Context, storeAppID int64, reason string) error {
	if err := s.exclusions.Add(ctx, storeAppID, reason); err != nil {
		return fmt.Errorf("add exclusion: %w", err)
	}
	if s.excluded == nil {
		s.excluded = make(map[int64]struct{})
	}
	s.excluded[storeAppID] = struct{}{}
	return nil
}

// RefreshWindow returns games coming soon or releasing within
// [now-7d, now+90d], ordered by (lastRefreshAt NULLS FIRST, popularity DESC).
func (s *Selector) RefreshWindow(ctx context.Context, limit int) ([]int64, error) {
	games, err := s.queries.ListRefreshWindow(ctx, s.now(), refreshWindowBefore, refreshWindowAfter, limit)
	if err != nil {
		return nil, fmt.Errorf("refresh window: %w", err)
	}
	return storeAppIDs(games), nil
}

// NewStoreIds returns storeListIds() \ existingStoreIds \ exclusionBitmap,
// sorted descending, top N. Requires LoadExclusions to have been called;
// an empty exclusion cache (nil map) is treated as "nothing excluded".
func (s *Selector) NewStoreIds(ctx context.Context, limit int) ([]int64, error) {
	all, err := s.catalog.ListAllStoreIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list store catalog: %w", err)
	}
	existing, err := s.queries.ListExistingStoreIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list existing store ids: %w", err)
	}

	out := make([]int64, 0, len(all))
	for _, id := range all {
		if _, known := existing[id]; known {
			continue
		}
		if _, excluded := s.excluded[id]; excluded {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BackfillMissingDetails returns non-DLC games with popularity >= 40 missing
// a detail row or a release row.
func (s *Selector) BackfillMissingDetails(ctx context.Context, limit int) ([]int64, error) {
	games, err := s.queries.ListBackfillCandidates(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("backfill missing details: %w", err)
	}
	return storeAppIDs(games), nil
}

// FullRefresh pages through every game with a storeId, a detail row, and a
// release row, batchSize at a time, invoking visit for each page. Paging
// stops at the first short page or when visit returns an error.
func (s *Selector) FullRefresh(ctx context.Context, batchSize int, visit func(ids []int64) error) error {
	if batchSize <= 0 {
		batchSize = fullRefreshPageSize
	}
	var afterID int64
	for {
		page, err := s.queries.ListFullRefreshPage(ctx, afterID, batchSize)
		if err != nil {
			return fmt.Errorf("full refresh page: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		if err := visit(storeAppIDs(page)); err != nil {
			return err
		}
		afterID = page[len(page)-1].ID
		if len(page) < batchSize {
			return nil
		}
	}
}

// storeAppIDs extracts each game's Store app ID, the identifier BatchRunner
// actually fetches by. Only FullRefresh pages are restricted to rows with a
// StoreID; RefreshWindow and BackfillMissingDetails can return Meta-only
// rows. A nil StoreID means the row doesn't belong in a Store-driven batch
// and is dropped rather than passed through as 0.
func storeAppIDs(games []contracts.Game) []int64 {
	ids := make([]int64, 0, len(games))
	for _, g := range games {
		if g.StoreID != nil {
			ids = append(ids, *g.StoreID)
		}
	}
	return ids
}
