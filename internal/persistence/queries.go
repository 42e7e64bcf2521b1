package persistence

import (
	"context"
	"time"

	"gamecatalog/internal/contracts"
)

// CandidateQueries is the read-only, multi-row query surface CandidateSelector
// runs outside any single-game transaction — these scan the games table
// directly rather than going through Repository/TxManager, which exist to
// scope one record's find-or-create/update to one transaction.
type CandidateQueries interface {
	// ListRefreshWindow returns games with ComingSoon=true or a release date
	// inside [now-before, now+after], ordered by
	// (SteamLastRefreshAt NULLS FIRST, PopularityScore DESC), capped at limit.
	ListRefreshWindow(ctx context.Context, now time.Time, before, after time.Duration, limit int) ([]contracts.Game, error)

	// ListExistingStoreIDs returns every non-null StoreID currently stored,
	// for NewStoreIds's storeListIds() \ existingStoreIds set difference.
	ListExistingStoreIDs(ctx context.Context) (map[int64]struct{}, error)

	// ListBackfillCandidates returns non-DLC games with PopularityScore >= 40
	// missing a GameDetail row or missing any GameRelease row.
	ListBackfillCandidates(ctx context.Context, limit int) ([]contracts.Game, error)

	// ListFullRefreshPage returns one page of games with a StoreID, a
	// GameDetail row, and at least one GameRelease row, ordered by ID for
	// stable pagination.
	ListFullRefreshPage(ctx context.Context, afterID int64, pageSize int) ([]contracts.Game, error)
}

// DuplicateFinder groups games the merge-duplicates command should collapse:
// titles that only ended up as separate rows because cross-source linkage
// never fired (e.g. a Store-only row and a Meta-only row for the same game
// that arrived too far apart in time for MatchingEngine to link them at
// ingest time). Each returned group is ordered ascending by ID, so group[0]
// is conventionally the merge target (the oldest row).
type DuplicateFinder interface {
	FindDuplicateGroups(ctx context.Context, limit int) ([][]int64, error)
}

// ExclusionRegistry is CandidateSelector's persistent bitmap of Store app IDs
// confirmed uninteresting (soundtracks, SDKs, demos) — loaded once per
// command so repeat NewStoreIds passes never re-fetch them.
type ExclusionRegistry interface {
	Load(ctx context.Context) (map[int64]struct{}, error)
	Add(ctx context.Context, storeAppID int64, reason string) error
}
