package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

type detailStore struct {
	tx pgx.Tx
}

var _ persistence.DetailStore = detailStore{}

const detailSelectColumns = `SELECT
	id, game_id, screenshots, video_url, description, website, genres, tags,
	support_languages, header_image, metacritic_score, opencritic_score,
	reviews_summary, created_at, updated_at`

func (d detailStore) GetByGameID(ctx context.Context, gameID int64) (*contracts.GameDetail, error) {
	query := detailSelectColumns + ` FROM game_details WHERE game_id = $1`
	row := d.tx.QueryRow(ctx, query, gameID)
	detail, err := scanDetail(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("get game detail: %w", err)
	}
	return detail, nil
}

func (d detailStore) Insert(ctx context.Context, detail *contracts.GameDetail) error {
	query := `
		INSERT INTO game_details (
			game_id, screenshots, video_url, description, website, genres, tags,
			support_languages, header_image, metacritic_score, opencritic_score,
			reviews_summary, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := d.tx.Exec(ctx, query,
		detail.GameID, detail.Screenshots, detail.VideoURL, detail.Description, detail.Website,
		detail.Genres, detail.Tags, detail.SupportLanguages, detail.HeaderImage,
		detail.MetacriticScore, detail.OpencriticScore, detail.ReviewsSummary,
		detail.CreatedAt, detail.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return persistence.ErrDuplicateKey
		}
		return fmt.Errorf("insert game detail: %w", err)
	}
	return nil
}

func (d detailStore) Update(ctx context.Context, detail *contracts.GameDetail) error {
	query := `
		UPDATE game_details SET
			screenshots = $1, video_url = $2, description = $3, website = $4,
			genres = $5, tags = $6, support_languages = $7, header_image = $8,
			metacritic_score = $9, opencritic_score = $10, reviews_summary = $11,
			updated_at = $12
		WHERE game_id = $13`
	tag, err := d.tx.Exec(ctx, query,
		detail.Screenshots, detail.VideoURL, detail.Description, detail.Website,
		detail.Genres, detail.Tags, detail.SupportLanguages, detail.HeaderImage,
		detail.MetacriticScore, detail.OpencriticScore, detail.ReviewsSummary,
		detail.UpdatedAt, detail.GameID,
	)
	if err != nil {
		return fmt.Errorf("update game detail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanDetail(row pgx.Row) (*contracts.GameDetail, error) {
	var d contracts.GameDetail
	err := row.Scan(
		&d.ID, &d.GameID, &d.Screenshots, &d.VideoURL, &d.Description, &d.Website,
		&d.Genres, &d.Tags, &d.SupportLanguages, &d.HeaderImage,
		&d.MetacriticScore, &d.OpencriticScore, &d.ReviewsSummary,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
