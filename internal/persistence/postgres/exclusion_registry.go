package postgres

import (
	"context"
	"fmt"

	"gamecatalog/internal/persistence"
)

// ExclusionRegistry implements persistence.ExclusionRegistry against the
// steam_exclusion_bitmap table — a plain table rather than an actual bitmap
// index, since the excluded-ID set is sparse and a btree PK already makes
// membership cheap at the scale this command runs at.
type ExclusionRegistry struct {
	pool *Pool
}

func NewExclusionRegistry(pool *Pool) *ExclusionRegistry {
	return &ExclusionRegistry{pool: pool}
}

var _ persistence.ExclusionRegistry = (*ExclusionRegistry)(nil)

func (e *ExclusionRegistry) Load(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := e.pool.Query(ctx, `SELECT store_app_id FROM steam_exclusion_bitmap`)
	if err != nil {
		return nil, fmt.Errorf("load exclusion bitmap: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan excluded store app id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (e *ExclusionRegistry) Add(ctx context.Context, storeAppID int64, reason string) error {
	_, err := e.pool.Exec(ctx, `
		INSERT INTO steam_exclusion_bitmap (store_app_id, reason, excluded_at)
		VALUES ($1, $2, now())
		ON CONFLICT (store_app_id) DO NOTHING`, storeAppID, reason)
	if err != nil {
		return fmt.Errorf("add exclusion: %w", err)
	}
	return nil
}
