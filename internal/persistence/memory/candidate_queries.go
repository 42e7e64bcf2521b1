package memory

import (
	"context"
	"sort"
	"time"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

// candidateQueries implements persistence.CandidateQueries over Store's maps
// with a linear scan per call, sufficient for the small fixtures unit tests
// build (see internal/persistence/postgres for the indexed SQL equivalent).
type candidateQueries struct{ s *Store }

// NewCandidateQueries exposes Store's games map as persistence.CandidateQueries.
func NewCandidateQueries(s *Store) persistence.CandidateQueries { return candidateQueries{s} }

var _ persistence.CandidateQueries = candidateQueries{}

func (c candidateQueries) ListRefreshWindow(_ context.Context, now time.Time, before, after time.Duration, limit int) ([]contracts.Game, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	lower, upper := now.Add(-before), now.Add(after)
	var out []contracts.Game
	for _, g := range c.s.games {
		if g.ComingSoon || (g.ReleaseDate != nil && !g.ReleaseDate.Before(lower) && !g.ReleaseDate.After(upper)) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].SteamLastRefreshAt, out[j].SteamLastRefreshAt
		if (ri == nil) != (rj == nil) {
			return ri == nil
		}
		if ri != nil && rj != nil && !ri.Equal(*rj) {
			return ri.Before(*rj)
		}
		return out[i].PopularityScore > out[j].PopularityScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c candidateQueries) ListExistingStoreIDs(_ context.Context) (map[int64]struct{}, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	out := make(map[int64]struct{})
	for _, g := range c.s.games {
		if g.StoreID != nil {
			out[*g.StoreID] = struct{}{}
		}
	}
	return out, nil
}

func (c candidateQueries) ListBackfillCandidates(_ context.Context, limit int) ([]contracts.Game, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var out []contracts.Game
	for _, g := range c.s.games {
		if g.GameType == contracts.GameTypeDLC || g.PopularityScore < 40 {
			continue
		}
		_, hasDetail := c.s.details[g.ID]
		missingReleases := len(c.s.releases[g.ID]) == 0
		if !hasDetail || missingReleases {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PopularityScore > out[j].PopularityScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c candidateQueries) ListFullRefreshPage(_ context.Context, afterID int64, pageSize int) ([]contracts.Game, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var out []contracts.Game
	for _, g := range c.s.games {
		if g.ID <= afterID || g.StoreID == nil {
			continue
		}
		if _, hasDetail := c.s.details[g.ID]; !hasDetail {
			continue
		}
		if len(c.s.releases[g.ID]) == 0 {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if pageSize > 0 && len(out) > pageSize {
		out = out[:pageSize]
	}
	return out, nil
}
