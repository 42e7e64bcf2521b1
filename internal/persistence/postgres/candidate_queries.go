package postgres

import (
	"context"
	"fmt"
	"time"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

// CandidateQueries implements persistence.CandidateQueries against a Pool
// directly (outside any single-game transaction), grounded on the teacher's
// internal/storage/postgres/candidate_store.go GetByTimeRange/GetBySource
// read-query style.
type CandidateQueries struct {
	pool *Pool
}

func NewCandidateQueries(pool *Pool) *CandidateQueries {
	return &CandidateQueries{pool: pool}
}

var _ persistence.CandidateQueries = (*CandidateQueries)(nil)

func (c *CandidateQueries) ListRefreshWindow(ctx context.Context, now time.Time, before, after time.Duration, limit int) ([]contracts.Game, error) {
	query := gameSelectColumns + ` FROM games
		WHERE coming_soon = TRUE
		   OR (release_date IS NOT NULL AND release_date BETWEEN $1 AND $2)
		ORDER BY steam_last_refresh_at ASC NULLS FIRST, popularity_score DESC
		LIMIT $3`
	rows, err := c.pool.Query(ctx, query, now.Add(-before), now.Add(after), limit)
	if err != nil {
		return nil, fmt.Errorf("list refresh window: %w", err)
	}
	defer rows.Close()
	return scanGames(rows)
}

func (c *CandidateQueries) ListExistingStoreIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := c.pool.Query(ctx, `SELECT store_id FROM games WHERE store_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list existing store ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan store id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (c *CandidateQueries) ListBackfillCandidates(ctx context.Context, limit int) ([]contracts.Game, error) {
	query := gameSelectColumns + ` FROM games g
		WHERE g.game_type != 'dlc' AND g.popularity_score >= 40
		  AND (
			NOT EXISTS (SELECT 1 FROM game_details d WHERE d.game_id = g.id)
			OR NOT EXISTS (SELECT 1 FROM game_releases r WHERE r.game_id = g.id)
		  )
		ORDER BY g.popularity_score DESC
		LIMIT $1`
	rows, err := c.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list backfill candidates: %w", err)
	}
	defer rows.Close()
	return scanGames(rows)
}

func (c *CandidateQueries) ListFullRefreshPage(ctx context.Context, afterID int64, pageSize int) ([]contracts.Game, error) {
	query := gameSelectColumns + ` FROM games g
		WHERE g.id > $1 AND g.store_id IS NOT NULL
		  AND EXISTS (SELECT 1 FROM game_details d WHERE d.game_id = g.id)
		  AND EXISTS (SELECT 1 FROM game_releases r WHERE r.game_id = g.id)
		ORDER BY g.id ASC
		LIMIT $2`
	rows, err := c.pool.Query(ctx, query, afterID, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list full refresh page: %w", err)
	}
	defer rows.Close()
	return scanGames(rows)
}

func scanGames(rows interface {
	Next() bool
	Err() error
	Scan(...any) error
}) ([]contracts.Game, error) {
	var out []contracts.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}
