package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

type companyStore struct {
	tx pgx.Tx
}

var _ persistence.CompanyStore = companyStore{}

func (c companyStore) FindBySlug(ctx context.Context, slug string) (*contracts.Company, error) {
	return c.findOne(ctx, "WHERE lower(slug) = lower($1)", slug)
}

func (c companyStore) FindByName(ctx context.Context, name string) (*contracts.Company, error) {
	return c.findOne(ctx, "WHERE lower(name) = lower($1)", name)
}

func (c companyStore) findOne(ctx context.Context, predicate string, arg any) (*contracts.Company, error) {
	query := `SELECT id, slug, name, created_at FROM companies ` + predicate
	row := c.tx.QueryRow(ctx, query, arg)
	var company contracts.Company
	if err := row.Scan(&company.ID, &company.Slug, &company.Name, &company.CreatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	return &company, nil
}

func (c companyStore) Insert(ctx context.Context, company *contracts.Company) (int64, error) {
	query := `INSERT INTO companies (slug, name, created_at) VALUES ($1,$2,$3) RETURNING id`
	var id int64
	err := c.tx.QueryRow(ctx, query, company.Slug, company.Name, company.CreatedAt).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, persistence.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert company: %w", err)
	}
	return id, nil
}
