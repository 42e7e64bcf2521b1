package normalize

import (
	"strings"
	"time"

	"gamecatalog/internal/contracts"
)

// detailPopularityFloor is the PopularityScore a game must reach before a
// GameDetail row is ever created or updated for it, per spec.md §4.5.
const detailPopularityFloor = 40

// Engine is the Normalizer: it maps one RawRecord to one ProcessedGame,
// rejecting records that can never become catalog entries (excluded
// products, records with no identifier at all) without touching storage.
//
// Engine holds no state beyond its injected clock, so a single instance is
// safe to share across a batch run's workers.
type Engine struct {
	now func() time.Time
}

// NewEngine builds a Normalizer. now defaults to time.Now when nil, overridable
// in tests so ReleaseStatus derivation is deterministic.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Normalize maps raw into a ProcessedGame, or returns a *NormalizationError
// (via errors.As) if raw can never be cataloged.
func (e *Engine) Normalize(raw *contracts.RawRecord) (*contracts.ProcessedGame, error) {
	if raw.StoreAppID == nil && raw.MetaGameID == nil {
		return nil, &NormalizationError{Reason: "missing identifier", Err: ErrMissingIdentifier}
	}
	if IsExcludedProduct(raw.Name) {
		return nil, &NormalizationError{Reason: "excluded product: " + raw.Name, Err: ErrExcludedProduct}
	}

	tokens := NormalizeName(raw.Name)
	originalTokens := NormalizeName(raw.Name)

	gameType := contracts.GameTypeGame
	if raw.ParentStoreAppID != nil || raw.MetaParentGameID != nil {
		gameType = contracts.GameTypeDLC
	}

	releaseDate, _ := ParseReleaseDate(raw.ReleaseDateRaw)
	releaseStatus := DeriveReleaseStatus(releaseDate, raw.ComingSoon, e.now())

	popularity := Popularity(raw.FollowersCount, raw.ReviewCount, raw.RatingPercent)

	releases := make([]contracts.ProcessedGameRelease, 0, len(raw.Releases))
	for _, r := range raw.Releases {
		platform, ok := FoldPlatform(r.Platform)
		if !ok {
			continue
		}
		relDate, _ := ParseReleaseDate(r.ReleaseDateRaw)
		releases = append(releases, contracts.ProcessedGameRelease{
			Platform:      platform,
			Store:         storeForRecord(raw.Source),
			StoreAppID:    r.StoreAppID,
			ReleaseDate:   relDate,
			ReleaseStatus: DeriveReleaseStatus(relDate, raw.ComingSoon, e.now()),
			PriceCents:    r.PriceCents,
			IsFree:        r.IsFree,
			Followers:     r.Followers,
			DataSource:    string(raw.Source),
		})
	}
	if len(releases) == 0 {
		if _, ok := anyFoldedPlatform(raw.StoreCategories, raw.MetaPlatforms); !ok {
			return nil, &NormalizationError{Reason: "no supported platform", Err: ErrUnsupportedPlatform}
		}
	}

	companies := make([]contracts.ProcessedGameCompany, 0, len(raw.Companies))
	for _, c := range raw.Companies {
		companyTokens := NormalizeName(c.Name)
		companies = append(companies, contracts.ProcessedGameCompany{
			Name: c.Name,
			Slug: companyTokens.LooseSlug,
			Role: c.Role,
		})
	}

	game := &contracts.ProcessedGame{
		Source: raw.Source,

		StoreID: raw.StoreAppID,
		MetaID:  raw.MetaGameID,

		Name:         strings.TrimSpace(raw.Name),
		OriginalName: strings.TrimSpace(raw.Name),

		SlugCandidate:         SlugCandidate(raw.Name),
		OriginalSlugCandidate: SlugCandidate(raw.Name),

		CompactName: tokens.Compact,
		LooseSlug:   tokens.LooseSlug,
		TokenSet:    originalTokens.Tokens,

		GameType:      gameType,
		ParentStoreID: raw.ParentStoreAppID,
		ParentMetaID:  raw.MetaParentGameID,

		ReleaseDate:    releaseDate,
		ReleaseDateRaw: raw.ReleaseDateRaw,
		ReleaseStatus:  releaseStatus,
		ComingSoon:     raw.ComingSoon,

		PopularityScore: popularity,
		FollowersCache:  raw.FollowersCount,

		Companies: companies,
		Releases:  releases,
	}

	if gameType == contracts.GameTypeGame && popularity >= detailPopularityFloor {
		game.Detail = &contracts.ProcessedGameDetail{
			Screenshots:      raw.Screenshots,
			VideoURL:         raw.VideoURL,
			Description:      raw.Description,
			Website:          raw.Website,
			Genres:           raw.Genres,
			Tags:             raw.Tags,
			SupportLanguages: raw.SupportLanguages,
			HeaderImage:      raw.HeaderImage,
			MetacriticScore:  raw.MetacriticScore,
			OpencriticScore:  raw.OpencriticScore,
			ReviewsSummary:   raw.ReviewsSummary,
		}
	}

	return game, nil
}

// storeForRecord maps the originating Source to the Store enum value used on
// GameRelease rows. Meta records carry no storefront of their own; they
// describe games already present on one, so releases built from a Meta
// record are tagged StoreOther until a later Store-sourced record supplies
// the concrete storefront.
func storeForRecord(source contracts.Source) contracts.Store {
	if source == contracts.SourceStore {
		return contracts.StoreSteam
	}
	return contracts.StoreOther
}

// anyFoldedPlatform reports whether at least one token across both lists
// folds into a supported platform family, used only to decide whether a
// record with zero explicit Releases should still be rejected as
// unsupported-platform.
func anyFoldedPlatform(lists ...[]string) (contracts.Platform, bool) {
	for _, list := range lists {
		for _, token := range list {
			if p, ok := FoldPlatform(token); ok {
				return p, true
			}
		}
	}
	return "", false
}
