package persistence

import (
	"context"

	"gamecatalog/internal/contracts"
)

// GameStore is the games table's read/write surface. Implementations return
// ErrNotFound for missing rows and ErrDuplicateKey on unique-index collision.
type GameStore interface {
	// FindByID resolves an internal row ID directly, used only by the
	// single-record command's idKind=internal path to recover the
	// storeId/metaId a refetch needs.
	FindByID(ctx context.Context, id int64) (*contracts.Game, error)
	FindByStoreID(ctx context.Context, storeID int64) (*contracts.Game, error)
	FindByMetaID(ctx context.Context, metaID int64) (*contracts.Game, error)
	// FindBySlug matches case-insensitively against either slug or
	// originalSlug, per spec.md §4.6 step 1.
	FindBySlug(ctx context.Context, slug string) (*contracts.Game, error)
	// FindCandidatesByCompactName is the pre-filter feeding cross-source
	// linkage: a short list of same-ish-named games for MatchingEngine to
	// score, used only when the incoming record carries exactly one of
	// StoreID/MetaID and no direct identifier/slug lookup found a row.
	FindCandidatesByCompactName(ctx context.Context, compactName string, limit int) ([]*contracts.Game, error)
	Insert(ctx context.Context, g *contracts.Game) (int64, error)
	Update(ctx context.Context, g *contracts.Game) error
	// SlugExists satisfies slugpolicy.UniquenessChecker.
	SlugExists(ctx context.Context, slug string, excludeSelfID *int64) (bool, error)
	// MergeInto reassigns every GameDetail/GameRelease/GameCompanyRole row
	// owned by fromID onto toID, then deletes the fromID game row. Used only
	// by Orchestrator.MergeDuplicates; fromID and toID must already refer to
	// rows the caller has determined are duplicates of the same title.
	MergeInto(ctx context.Context, fromID, toID int64) error
}

// DetailStore is the game_details table's read/write surface.
type DetailStore interface {
	GetByGameID(ctx context.Context, gameID int64) (*contracts.GameDetail, error)
	Insert(ctx context.Context, d *contracts.GameDetail) error
	Update(ctx context.Context, d *contracts.GameDetail) error
}

// ReleaseStore is the game_releases table's read/write surface. Upsert keys
// on (gameId, platform, store, coalesce(storeAppId,'')) and never deletes.
type ReleaseStore interface {
	Upsert(ctx context.Context, r *contracts.GameRelease) error
	ListByGameID(ctx context.Context, gameID int64) ([]contracts.GameRelease, error)
}

// CompanyStore is the companies table's read/write surface.
type CompanyStore interface {
	FindBySlug(ctx context.Context, slug string) (*contracts.Company, error)
	FindByName(ctx context.Context, name string) (*contracts.Company, error)
	Insert(ctx context.Context, c *contracts.Company) (int64, error)
}

// RoleStore is the game_company_roles table's read/write surface. Upsert is
// a no-op when the (gameId, companyId, role) triple already exists.
type RoleStore interface {
	Upsert(ctx context.Context, r *contracts.GameCompanyRole) error
	// ListCompanySlugsByGameID feeds matching.SubjectFromGame's company
	// overlap signal.
	ListCompanySlugsByGameID(ctx context.Context, gameID int64) ([]string, error)
}

// Repository bundles the per-transaction store handles TxManager hands to a
// callback. Every store obtained from the same Repository participates in
// the same underlying transaction.
type Repository interface {
	Games() GameStore
	Details() DetailStore
	Releases() ReleaseStore
	Companies() CompanyStore
	Roles() RoleStore
}

// TxManager runs fn within a single transaction, committing on nil error and
// rolling back otherwise. Implemented by postgres (pgx.Tx) and memory (one
// mutex held for fn's duration, with no rollback of writes fn already made)
// so Orchestrator stays storage-agnostic.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}
