// Package memory provides in-process fakes for internal/persistence's
// Repository/TxManager interfaces, grounded on the teacher's in-memory
// store fakes used by internal/ingestion/runner_test.go's mock sources:
// plain maps guarded by one mutex, no real transactional isolation beyond
// that mutex (adequate for single-process unit tests).
package memory

import (
	"context"
	"strings"
	"sync"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
)

// Store is a single in-memory database backing every Repository accessor.
// Safe for concurrent use; WithTx holds the lock for the whole callback so
// callbacks never interleave, but unlike Postgres it has no rollback (see
// WithTx).
type Store struct {
	mu sync.Mutex

	games      map[int64]*contracts.Game
	details    map[int64]*contracts.GameDetail // keyed by gameID
	releases   map[int64][]*contracts.GameRelease
	companies  map[int64]*contracts.Company
	roles      map[int64][]*contracts.GameCompanyRole // keyed by gameID
	nextGameID int64
	nextCoID   int64
}

// NewStore builds an empty in-memory database.
func NewStore() *Store {
	return &Store{
		games:     make(map[int64]*contracts.Game),
		details:   make(map[int64]*contracts.GameDetail),
		releases:  make(map[int64][]*contracts.GameRelease),
		companies: make(map[int64]*contracts.Company),
		roles:     make(map[int64][]*contracts.GameCompanyRole),
	}
}

// WithTx implements persistence.TxManager. The entire store is locked for
// fn's duration, so a failing fn leaves no partial writes only because it
// never reaches the map mutations it would have made — there is no rollback
// log; callers must treat an error return as "nothing committed" and not
// mutate maps before returning one.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repo persistence.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, repository{s})
}

var _ persistence.TxManager = (*Store)(nil)

type repository struct{ s *Store }

func (r repository) Games() persistence.GameStore         { return gameStore{r.s} }
func (r repository) Details() persistence.DetailStore     { return detailStore{r.s} }
func (r repository) Releases() persistence.ReleaseStore   { return releaseStore{r.s} }
func (r repository) Companies() persistence.CompanyStore { return companyStore{r.s} }
func (r repository) Roles() persistence.RoleStore         { return roleStore{r.s} }

type gameStore struct{ s *Store }

func (g gameStore) FindByID(_ context.Context, id int64) (*contracts.Game, error) {
	if game, ok := g.s.games[id]; ok {
		return cloneGame(game), nil
	}
	return nil, persistence.ErrNotFound
}

func (g gameStore) FindByStoreID(_ context.Context, storeID int64) (*contracts.Game, error) {
	for _, game := range g.s.games {
		if game.StoreID != nil && *game.StoreID == storeID {
			return cloneGame(game), nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (g gameStore) FindByMetaID(_ context.Context, metaID int64) (*contracts.Game, error) {
	for _, game := range g.s.games {
		if game.MetaID != nil && *game.MetaID == metaID {
			return cloneGame(game), nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (g gameStore) FindBySlug(_ context.Context, slug string) (*contracts.Game, error) {
	lower := strings.ToLower(slug)
	for _, game := range g.s.games {
		if strings.ToLower(game.Slug) == lower || strings.ToLower(game.OriginalSlug) == lower {
			return cloneGame(game), nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (g gameStore) FindCandidatesByCompactName(_ context.Context, compactName string, limit int) ([]*contracts.Game, error) {
	needle := foldCompact(compactName)
	var out []*contracts.Game
	for _, game := range g.s.games {
		hay := foldCompact(game.Name)
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			out = append(out, cloneGame(game))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// foldCompact lowercases and drops everything but letters/digits, so a
// hyphenated or spaced compactName lines up with a raw stored Name the way a
// real compact-name column would (see internal/normalize.NormalizeName).
func foldCompact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (g gameStore) Insert(_ context.Context, game *contracts.Game) (int64, error) {
	g.s.nextGameID++
	id := g.s.nextGameID
	stored := cloneGame(game)
	stored.ID = id
	g.s.games[id] = stored
	return id, nil
}

func (g gameStore) Update(_ context.Context, game *contracts.Game) error {
	if _, ok := g.s.games[game.ID]; !ok {
		return persistence.ErrNotFound
	}
	g.s.games[game.ID] = cloneGame(game)
	return nil
}

func (g gameStore) SlugExists(_ context.Context, slug string, excludeSelfID *int64) (bool, error) {
	lower := strings.ToLower(slug)
	for _, game := range g.s.games {
		if excludeSelfID != nil && game.ID == *excludeSelfID {
			continue
		}
		if strings.ToLower(game.Slug) == lower || strings.ToLower(game.OriginalSlug) == lower {
			return true, nil
		}
	}
	return false, nil
}

// MergeInto reassigns fromID's releases, company roles, and detail row onto
// toID, preferring toID's own row on any unique-key collision, then deletes
// the fromID game row.
func (g gameStore) MergeInto(_ context.Context, fromID, toID int64) error {
	if fromID == toID {
		return nil
	}
	if _, ok := g.s.games[fromID]; !ok {
		return persistence.ErrNotFound
	}

	kept := g.s.releases[toID]
	for _, row := range g.s.releases[fromID] {
		collides := false
		for _, existing := range kept {
			if existing.Platform == row.Platform && existing.Store == row.Store &&
				coalesce(existing.StoreAppID) == coalesce(row.StoreAppID) {
				collides = true
				break
			}
		}
		if !collides {
			moved := *row
			moved.GameID = toID
			kept = append(kept, &moved)
		}
	}
	g.s.releases[toID] = kept
	delete(g.s.releases, fromID)

	keptRoles := g.s.roles[toID]
	for _, row := range g.s.roles[fromID] {
		collides := false
		for _, existing := range keptRoles {
			if existing.CompanyID == row.CompanyID && existing.Role == row.Role {
				collides = true
				break
			}
		}
		if !collides {
			moved := *row
			moved.GameID = toID
			keptRoles = append(keptRoles, &moved)
		}
	}
	g.s.roles[toID] = keptRoles
	delete(g.s.roles, fromID)

	if _, hasDetail := g.s.details[toID]; !hasDetail {
		if fromDetail, ok := g.s.details[fromID]; ok {
			moved := *fromDetail
			moved.GameID = toID
			g.s.details[toID] = &moved
		}
	}
	delete(g.s.details, fromID)

	delete(g.s.games, fromID)
	return nil
}

func cloneGame(g *contracts.Game) *contracts.Game {
	clone := *g
	return &clone
}

type detailStore struct{ s *Store }

func (d detailStore) GetByGameID(_ context.Context, gameID int64) (*contracts.GameDetail, error) {
	detail, ok := d.s.details[gameID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	clone := *detail
	return &clone, nil
}

func (d detailStore) Insert(_ context.Context, detail *contracts.GameDetail) error {
	clone := *detail
	d.s.details[detail.GameID] = &clone
	return nil
}

func (d detailStore) Update(_ context.Context, detail *contracts.GameDetail) error {
	if _, ok := d.s.details[detail.GameID]; !ok {
		return persistence.ErrNotFound
	}
	clone := *detail
	d.s.details[detail.GameID] = &clone
	return nil
}

type releaseStore struct{ s *Store }

func (r releaseStore) Upsert(_ context.Context, release *contracts.GameRelease) error {
	existing := r.s.releases[release.GameID]
	for i, row := range existing {
		if row.Platform == release.Platform && row.Store == release.Store &&
			coalesce(row.StoreAppID) == coalesce(release.StoreAppID) {
			clone := *release
			clone.ID = row.ID
			existing[i] = &clone
			return nil
		}
	}
	clone := *release
	clone.ID = int64(len(existing) + 1)
	r.s.releases[release.GameID] = append(existing, &clone)
	return nil
}

func (r releaseStore) ListByGameID(_ context.Context, gameID int64) ([]contracts.GameRelease, error) {
	rows := r.s.releases[gameID]
	out := make([]contracts.GameRelease, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

func coalesce(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type companyStore struct{ s *Store }

func (c companyStore) FindBySlug(_ context.Context, slug string) (*contracts.Company, error) {
	lower := strings.ToLower(slug)
	for _, company := range c.s.companies {
		if strings.ToLower(company.Slug) == lower {
			clone := *company
			return &clone, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (c companyStore) FindByName(_ context.Context, name string) (*contracts.Company, error) {
	lower := strings.ToLower(name)
	for _, company := range c.s.companies {
		if strings.ToLower(company.Name) == lower {
			clone := *company
			return &clone, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (c companyStore) Insert(_ context.Context, company *contracts.Company) (int64, error) {
	for _, existing := range c.s.companies {
		if strings.EqualFold(existing.Slug, company.Slug) {
			return 0, persistence.ErrDuplicateKey
		}
	}
	c.s.nextCoID++
	id := c.s.nextCoID
	clone := *company
	clone.ID = id
	c.s.companies[id] = &clone
	return id, nil
}

type roleStore struct{ s *Store }

func (r roleStore) Upsert(_ context.Context, role *contracts.GameCompanyRole) error {
	existing := r.s.roles[role.GameID]
	for _, row := range existing {
		if row.CompanyID == role.CompanyID && row.Role == role.Role {
			return nil
		}
	}
	clone := *role
	r.s.roles[role.GameID] = append(existing, &clone)
	return nil
}

func (r roleStore) ListCompanySlugsByGameID(_ context.Context, gameID int64) ([]string, error) {
	roles := r.s.roles[gameID]
	slugs := make([]string, 0, len(roles))
	for _, role := range roles {
		if company, ok := r.s.companies[role.CompanyID]; ok {
			slugs = append(slugs, company.Slug)
		}
	}
	return slugs, nil
}
