package postgres

import (
	"context"
	"fmt"

	"gamecatalog/internal/persistence"
)

// DuplicateFinder implements persistence.DuplicateFinder by grouping games on
// the same regexp_replace-normalized name FindCandidatesByCompactName already
// relies on, same shape as that query's containment predicate but exact
// equality here since a merge candidate must be a near-exact name match, not
// just a substring.
type DuplicateFinder struct {
	pool *Pool
}

func NewDuplicateFinder(pool *Pool) *DuplicateFinder {
	return &DuplicateFinder{pool: pool}
}

var _ persistence.DuplicateFinder = (*DuplicateFinder)(nil)

func (d *DuplicateFinder) FindDuplicateGroups(ctx context.Context, limit int) ([][]int64, error) {
	query := `
		SELECT array_agg(id ORDER BY id)
		FROM games
		GROUP BY regexp_replace(lower(name), '[^a-z0-9]', '', 'g')
		HAVING count(*) > 1
		LIMIT $1`
	rows, err := d.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("find duplicate groups: %w", err)
	}
	defer rows.Close()

	var out [][]int64
	for rows.Next() {
		var group []int64
		if err := rows.Scan(&group); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		out = append(out, group)
	}
	return out, rows.Err()
}
