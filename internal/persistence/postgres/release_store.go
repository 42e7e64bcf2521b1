package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

type releaseStore struct {
	tx pgx.Tx
}

var _ persistence.ReleaseStore = releaseStore{}

// Upsert keys on (game_id, platform, store, coalesce(store_app_id,'')) via
// ON CONFLICT; rows are never deleted, preserving cross-ingest history.
func (r releaseStore) Upsert(ctx context.Context, release *contracts.GameRelease) error {
	query := `
		INSERT INTO game_releases (
			game_id, platform, store, store_app_id, release_date,
			release_status, price_cents, is_free, followers, data_source,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
		ON CONFLICT (game_id, platform, store, coalesce(store_app_id, ''))
		DO UPDATE SET
			release_date = EXCLUDED.release_date,
			release_status = EXCLUDED.release_status,
			price_cents = EXCLUDED.price_cents,
			is_free = EXCLUDED.is_free,
			followers = EXCLUDED.followers,
			data_source = EXCLUDED.data_source,
			updated_at = now()`
	_, err := r.tx.Exec(ctx, query,
		release.GameID, string(release.Platform), string(release.Store), release.StoreAppID,
		release.ReleaseDate, string(release.ReleaseStatus), release.PriceCents,
		release.IsFree, release.Followers, release.DataSource,
	)
	if err != nil {
		return fmt.Errorf("upsert game release: %w", err)
	}
	return nil
}

func (r releaseStore) ListByGameID(ctx context.Context, gameID int64) ([]contracts.GameRelease, error) {
	query := `SELECT
		id, game_id, platform, store, store_app_id, release_date,
		release_status, price_cents, is_free, followers, data_source,
		created_at, updated_at
	FROM game_releases WHERE game_id = $1 ORDER BY id ASC`
	rows, err := r.tx.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("list game releases: %w", err)
	}
	defer rows.Close()

	var out []contracts.GameRelease
	for rows.Next() {
		var rel contracts.GameRelease
		var platform, store, status string
		if err := rows.Scan(
			&rel.ID, &rel.GameID, &platform, &store, &rel.StoreAppID, &rel.ReleaseDate,
			&status, &rel.PriceCents, &rel.IsFree, &rel.Followers, &rel.DataSource,
			&rel.CreatedAt, &rel.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan game release: %w", err)
		}
		rel.Platform = contracts.Platform(platform)
		rel.Store = contracts.Store(store)
		rel.ReleaseStatus = contracts.ReleaseStatus(status)
		out = append(out, rel)
	}
	return out, rows.Err()
}
