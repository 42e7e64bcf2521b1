package memory

import (
	"context"
	"sort"

	"gamecatalog/internal/persistence"
)

// DuplicateFinder groups the in-memory Store's games by foldCompact(name),
// mirroring postgres.DuplicateFinder's normalized-name grouping without a
// database round trip.
type DuplicateFinder struct {
	s *Store
}

func NewDuplicateFinder(s *Store) *DuplicateFinder {
	return &DuplicateFinder{s: s}
}

var _ persistence.DuplicateFinder = (*DuplicateFinder)(nil)

func (d *DuplicateFinder) FindDuplicateGroups(_ context.Context, limit int) ([][]int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	byName := make(map[string][]int64)
	for id, game := range d.s.games {
		key := foldCompact(game.Name)
		byName[key] = append(byName[key], id)
	}

	var out [][]int64
	for _, ids := range byName {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
