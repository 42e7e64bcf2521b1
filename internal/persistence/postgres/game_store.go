package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

type gameStore struct {
	tx pgx.Tx
}

var _ persistence.GameStore = gameStore{}

func (g gameStore) FindByID(ctx context.Context, id int64) (*contracts.Game, error) {
	return g.findOne(ctx, "WHERE id = $1", id)
}

func (g gameStore) FindByStoreID(ctx context.Context, storeID int64) (*contracts.Game, error) {
	return g.findOne(ctx, "WHERE store_id = $1", storeID)
}

func (g gameStore) FindByMetaID(ctx context.Context, metaID int64) (*contracts.Game, error) {
	return g.findOne(ctx, "WHERE meta_id = $1", metaID)
}

func (g gameStore) FindBySlug(ctx context.Context, slug string) (*contracts.Game, error) {
	return g.findOne(ctx, "WHERE lower(slug) = lower($1) OR lower(original_slug) = lower($1)", slug)
}

func (g gameStore) findOne(ctx context.Context, predicate string, arg any) (*contracts.Game, error) {
	query := gameSelectColumns + " FROM games " + predicate
	row := g.tx.QueryRow(ctx, query, arg)
	game, err := scanGame(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("find game: %w", err)
	}
	return game, nil
}

// FindCandidatesByCompactName pre-filters by trigram-style containment on a
// normalized, non-alphanumeric-stripped copy of name — regexp_replace keeps
// this index-free and adequate for the small per-run candidate lists
// cross-source linkage needs; a GIN trigram index is the natural upgrade if
// this predicate ever shows up in a slow query log.
func (g gameStore) FindCandidatesByCompactName(ctx context.Context, compactName string, limit int) ([]*contracts.Game, error) {
	query := gameSelectColumns + ` FROM games
		WHERE regexp_replace(lower(name), '[^a-z0-9]', '', 'g') LIKE '%' || regexp_replace(lower($1), '[^a-z0-9]', '', 'g') || '%'
		   OR regexp_replace(lower($1), '[^a-z0-9]', '', 'g') LIKE '%' || regexp_replace(lower(name), '[^a-z0-9]', '', 'g') || '%'
		LIMIT $2`
	rows, err := g.tx.Query(ctx, query, compactName, limit)
	if err != nil {
		return nil, fmt.Errorf("find candidate games: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate game: %w", err)
		}
		out = append(out, game)
	}
	return out, rows.Err()
}

func (g gameStore) Insert(ctx context.Context, game *contracts.Game) (int64, error) {
	query := `
		INSERT INTO games (
			store_id, meta_id, name, original_name, slug, original_slug,
			game_type, parent_store_id, parent_meta_id, release_date,
			release_date_raw, release_status, coming_soon, popularity_score,
			followers_cache, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id`

	var id int64
	err := g.tx.QueryRow(ctx, query,
		game.StoreID, game.MetaID, game.Name, game.OriginalName, game.Slug, game.OriginalSlug,
		string(game.GameType), game.ParentStoreID, game.ParentMetaID, game.ReleaseDate,
		game.ReleaseDateRaw, string(game.ReleaseStatus), game.ComingSoon, game.PopularityScore,
		game.FollowersCache, game.CreatedAt, game.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, persistence.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return id, nil
}

func (g gameStore) Update(ctx context.Context, game *contracts.Game) error {
	query := `
		UPDATE games SET
			store_id = $1, meta_id = $2, name = $3, original_name = $4,
			game_type = $5, parent_store_id = $6, parent_meta_id = $7,
			release_date = $8, release_date_raw = $9, release_status = $10,
			coming_soon = $11, popularity_score = $12, followers_cache = $13,
			updated_at = $14
		WHERE id = $15`

	tag, err := g.tx.Exec(ctx, query,
		game.StoreID, game.MetaID, game.Name, game.OriginalName,
		string(game.GameType), game.ParentStoreID, game.ParentMetaID,
		game.ReleaseDate, game.ReleaseDateRaw, string(game.ReleaseStatus),
		game.ComingSoon, game.PopularityScore, game.FollowersCache,
		game.UpdatedAt, game.ID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return persistence.ErrDuplicateKey
		}
		return fmt.Errorf("update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (g gameStore) SlugExists(ctx context.Context, slug string, excludeSelfID *int64) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM games
		WHERE (lower(slug) = lower($1) OR lower(original_slug) = lower($1))
		  AND ($2::bigint IS NULL OR id != $2)
	)`
	var exists bool
	if err := g.tx.QueryRow(ctx, query, slug, excludeSelfID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slug exists: %w", err)
	}
	return exists, nil
}

// MergeInto reassigns fromID's releases, company roles, and detail row onto
// toID, preferring toID's own row wherever the two collide on a unique key,
// then deletes the fromID game row. PipelineItem rows reference target IDs
// as opaque text, not a foreign key, so the audit trail for fromID is left
// untouched rather than rewritten.
func (g gameStore) MergeInto(ctx context.Context, fromID, toID int64) error {
	if fromID == toID {
		return nil
	}

	if _, err := g.tx.Exec(ctx, `
		UPDATE game_releases AS r SET game_id = $2
		WHERE r.game_id = $1
		  AND NOT EXISTS (
		    SELECT 1 FROM game_releases o
		    WHERE o.game_id = $2 AND o.platform = r.platform AND o.store = r.store
		      AND coalesce(o.store_app_id, '') = coalesce(r.store_app_id, '')
		  )`, fromID, toID); err != nil {
		return fmt.Errorf("merge releases: %w", err)
	}
	if _, err := g.tx.Exec(ctx, `DELETE FROM game_releases WHERE game_id = $1`, fromID); err != nil {
		return fmt.Errorf("drop leftover releases: %w", err)
	}

	if _, err := g.tx.Exec(ctx, `
		UPDATE game_company_roles AS r SET game_id = $2
		WHERE r.game_id = $1
		  AND NOT EXISTS (
		    SELECT 1 FROM game_company_roles o
		    WHERE o.game_id = $2 AND o.company_id = r.company_id AND o.role = r.role
		  )`, fromID, toID); err != nil {
		return fmt.Errorf("merge company roles: %w", err)
	}
	if _, err := g.tx.Exec(ctx, `DELETE FROM game_company_roles WHERE game_id = $1`, fromID); err != nil {
		return fmt.Errorf("drop leftover company roles: %w", err)
	}

	if _, err := g.tx.Exec(ctx, `
		UPDATE game_details SET game_id = $2
		WHERE game_id = $1 AND NOT EXISTS (SELECT 1 FROM game_details WHERE game_id = $2)`,
		fromID, toID); err != nil {
		return fmt.Errorf("merge game detail: %w", err)
	}
	if _, err := g.tx.Exec(ctx, `DELETE FROM game_details WHERE game_id = $1`, fromID); err != nil {
		return fmt.Errorf("drop leftover game detail: %w", err)
	}

	tag, err := g.tx.Exec(ctx, `DELETE FROM games WHERE id = $1`, fromID)
	if err != nil {
		return fmt.Errorf("delete merged game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const gameSelectColumns = `SELECT
	id, store_id, meta_id, name, original_name, slug, original_slug,
	game_type, parent_store_id, parent_meta_id, release_date,
	release_date_raw, release_status, coming_soon, popularity_score,
	followers_cache, steam_last_refresh_at, created_at, updated_at`

func scanGame(row pgx.Row) (*contracts.Game, error) {
	var g contracts.Game
	var gameType, releaseStatus string
	err := row.Scan(
		&g.ID, &g.StoreID, &g.MetaID, &g.Name, &g.OriginalName, &g.Slug, &g.OriginalSlug,
		&gameType, &g.ParentStoreID, &g.ParentMetaID, &g.ReleaseDate,
		&g.ReleaseDateRaw, &releaseStatus, &g.ComingSoon, &g.PopularityScore,
		&g.FollowersCache, &g.SteamLastRefreshAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.GameType = contracts.GameType(gameType)
	g.ReleaseStatus = contracts.ReleaseStatus(releaseStatus)
	return &g, nil
}
