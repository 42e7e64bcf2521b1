package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

type roleStore struct {
	tx pgx.Tx
}

var _ persistence.RoleStore = roleStore{}

func (r roleStore) Upsert(ctx context.Context, role *contracts.GameCompanyRole) error {
	query := `
		INSERT INTO game_company_roles (game_id, company_id, role, created_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (game_id, company_id, role) DO NOTHING`
	_, err := r.tx.Exec(ctx, query, role.GameID, role.CompanyID, string(role.Role))
	if err != nil {
		return fmt.Errorf("upsert company role: %w", err)
	}
	return nil
}

func (r roleStore) ListCompanySlugsByGameID(ctx context.Context, gameID int64) ([]string, error) {
	query := `
		SELECT c.slug
		FROM game_company_roles r
		JOIN companies c ON c.id = r.company_id
		WHERE r.game_id = $1
		ORDER BY c.slug ASC`
	rows, err := r.tx.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("list company slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan company slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}
