package contracts

import "time"

// Source identifies which upstream produced a ProcessedGame.
type Source string

const (
	SourceStore Source = "store"
	SourceMeta  Source = "meta"
)

// ProcessedGameCompany is a company reference normalized from a raw record,
// carried alongside a ProcessedGame so PersistenceOrchestrator can resolve
// or create Company rows and GameCompanyRole joins.
type ProcessedGameCompany struct {
	Name string
	Slug string
	Role CompanyRole
}

// ProcessedGameRelease is a platform/store release normalized from a raw
// record, carried alongside a ProcessedGame for GameRelease upsert.
type ProcessedGameRelease struct {
	Platform      Platform
	Store         Store
	StoreAppID    *string
	ReleaseDate   *time.Time
	ReleaseStatus ReleaseStatus
	PriceCents    *int64
	IsFree        bool
	Followers     *int64
	DataSource    string
}

// ProcessedGame is the canonical record emitted by the Normalizer — the
// lingua franca consumed by MatchingEngine and PersistenceOrchestrator.
// It carries exactly one source's identifier (StoreID xor MetaID) plus
// everything needed to find-or-create/update a Game row.
type ProcessedGame struct {
	Source Source

	StoreID *int64
	MetaID  *int64

	Name         string
	OriginalName string

	// SlugCandidate / OriginalSlugCandidate are the Normalizer's preferred
	// slugs before SlugPolicy resolves global uniqueness.
	SlugCandidate         string
	OriginalSlugCandidate string

	// CompactName/LooseSlug/TokenSet are matching-engine inputs produced by
	// name normalization (stopwords dropped, Roman numerals folded).
	CompactName string
	LooseSlug   string
	TokenSet    []string

	GameType      GameType
	ParentStoreID *int64
	ParentMetaID  *int64

	ReleaseDate    *time.Time
	ReleaseDateRaw string
	ReleaseStatus  ReleaseStatus
	ComingSoon     bool

	PopularityScore int
	FollowersCache  *int64

	Companies []ProcessedGameCompany
	Releases  []ProcessedGameRelease

	Detail *ProcessedGameDetail
}

// ProcessedGameDetail carries detail-page fields normalized from a raw
// record. Only ever attached when PopularityScore >= 40 and GameType == game.
type ProcessedGameDetail struct {
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
}

// RawRecord is the heterogeneous payload returned by a SourceClient before
// normalization. Fields are a superset of what Store and Meta can supply;
// Normalizer reads only the fields relevant to the originating Source.
type RawRecord struct {
	Source Source

	StoreAppID *int64
	MetaGameID *int64

	Name string

	Category        string   // Store product category, e.g. "game", "dlc", "soundtrack"
	MetaPlatforms   []string // Meta platform slugs, e.g. ["playstation5","pc"]
	StoreCategories []string // Store platform/category flags

	ParentStoreAppID *int64
	MetaParentGameID *int64

	ReleaseDateRaw string
	ComingSoon     bool

	FollowersCount *int64
	ReviewCount    *int64
	RatingPercent  *float64 // 0..100

	Companies []RawCompany
	Releases  []RawRelease

	Screenshots      []string
	VideoURL         *string
	Description      *string
	Website           *string
	Genres           []string
	Tags             []string
	SupportLanguages []string
	HeaderImage      *string
	MetacriticScore  *int
	OpencriticScore  *int
	ReviewsSummary   *string
}

// RawCompany is a company reference as it appears in a raw upstream payload.
type RawCompany struct {
	Name string
	Role CompanyRole
}

// RawRelease is a per-platform release as it appears in a raw upstream payload.
type RawRelease struct {
	Platform       string // pre-fold platform token, e.g. "playstation5"
	StoreAppID     *string
	ReleaseDateRaw string
	PriceCents     *int64
	IsFree         bool
	Followers      *int64
}
