package contracts

import "time"

// Game is a unique title, the central row every other entity hangs off.
// Corresponds to the games table in PostgreSQL.
//
// Invariants (enforced by unique indexes, see internal/persistence/postgres):
//   - StoreID unique where not null
//   - MetaID unique where not null
//   - lower(Slug) unique
//   - lower(OriginalSlug) unique
//   - at least one of StoreID/MetaID set
type Game struct {
	ID                 int64
	StoreID            *int64
	MetaID             *int64
	Name               string
	OriginalName       string
	Slug               string
	OriginalSlug       string
	GameType           GameType
	ParentStoreID      *int64
	ParentMetaID       *int64
	ReleaseDate        *time.Time
	ReleaseDateRaw     string
	ReleaseStatus      ReleaseStatus
	ComingSoon         bool
	PopularityScore    int // [0,100]
	FollowersCache     *int64
	SteamLastRefreshAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsDLC reports whether the game is downloadable content for a parent title.
func (g *Game) IsDLC() bool {
	return g.GameType == GameTypeDLC
}

// GameDetail holds the 0..1 editorial detail row for a non-DLC Game whose
// PopularityScore is >= 40. Corresponds to the game_details table.
type GameDetail struct {
	ID               int64
	GameID           int64
	Screenshots      []string
	VideoURL         *string
	Description      *string
	Website          *string
	Genres           []string
	Tags             []string
	SupportLanguages []string
	HeaderImage      *string
	MetacriticScore  *int
	OpencriticScore  *int
	ReviewsSummary   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GameRelease is N per Game, keyed by (GameID, Platform, Store, StoreAppID).
// Corresponds to the game_releases table. Rows are never deleted by the
// pipeline; history is preserved across ingests.
type GameRelease struct {
	ID            int64
	GameID        int64
	Platform      Platform
	Store         Store
	StoreAppID    *string
	ReleaseDate   *time.Time
	ReleaseStatus ReleaseStatus
	PriceCents    *int64
	IsFree        bool
	Followers     *int64
	DataSource    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Company is unique by Slug and by case-insensitive Name.
// Corresponds to the companies table.
type Company struct {
	ID        int64
	Slug      string
	Name      string
	CreatedAt time.Time
}

// GameCompanyRole is the M:N join of a Game, a Company and its Role.
// Unique per (GameID, CompanyID, Role). Corresponds to game_company_roles.
type GameCompanyRole struct {
	ID        int64
	GameID    int64
	CompanyID int64
	Role      CompanyRole
	CreatedAt time.Time
}
