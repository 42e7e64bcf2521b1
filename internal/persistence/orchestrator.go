package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/matching"
	"gamecatalog/internal/slugpolicy"
)

// detailPopularityFloor mirrors normalize.detailPopularityFloor; kept as its
// own constant since the two packages must not import each other just for
// this one number.
const detailPopularityFloor = 40

// candidateSearchLimit bounds the pre-filter query MatchingEngine scores
// against during cross-source linkage.
const candidateSearchLimit = 10

// maxDeadlockRetries is how many times Save retries a transaction that
// fails with a Postgres deadlock (SQLSTATE 40001), per spec.md §4.6.
const maxDeadlockRetries = 2

// SaveResult is what Orchestrator.Save reports for one record.
type SaveResult struct {
	Action        contracts.ItemAction
	GameID        int64
	Matching      *contracts.MatchingDecision // set only when cross-source matching ran
	FailureReason contracts.SaveFailureReason
}

// Orchestrator is the PersistenceOrchestrator: one Save call per record,
// always inside a single transaction.
type Orchestrator struct {
	tx      TxManager
	matcher *matching.Engine
	now     func() time.Time
}

// NewOrchestrator builds an Orchestrator. now defaults to time.Now when nil.
func NewOrchestrator(tx TxManager, matcher *matching.Engine, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{tx: tx, matcher: matcher, now: now}
}

// Save finds-or-creates the Game described by game and applies PATCH
// semantics on update. allowCreate mirrors CandidateSelector/BatchRunner's
// dry-run and bootstrap-vs-operational distinctions: when false, a record
// with no existing match is skipped rather than inserted.
func (o *Orchestrator) Save(ctx context.Context, game *contracts.ProcessedGame, allowCreate bool) (*SaveResult, error) {
	var result *SaveResult
	var saveErr error

	for attempt := 0; attempt <= maxDeadlockRetries; attempt++ {
		result, saveErr = nil, nil
		txErr := o.tx.WithTx(ctx, func(ctx context.Context, repo Repository) error {
			r, err := o.saveWithinTx(ctx, repo, game, allowCreate)
			result = r
			return err
		})
		if txErr == nil {
			return result, nil
		}
		if !isDeadlock(txErr) || attempt == maxDeadlockRetries {
			saveErr = txErr
			break
		}
		time.Sleep(deadlockBackoff(attempt))
	}

	reason := classifyFailure(saveErr)
	return &SaveResult{FailureReason: reason}, saveErr
}

func (o *Orchestrator) saveWithinTx(ctx context.Context, repo Repository, game *contracts.ProcessedGame, allowCreate bool) (*SaveResult, error) {
	existing, decision, err := o.findExisting(ctx, repo, game)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if !allowCreate {
			return &SaveResult{Action: contracts.ItemActionSkipped}, nil
		}
		id, err := o.create(ctx, repo, game)
		if err != nil {
			return nil, err
		}
		return &SaveResult{Action: contracts.ItemActionCreated, GameID: id, Matching: decision}, nil
	}

	if err := o.update(ctx, repo, existing, game); err != nil {
		return nil, err
	}
	return &SaveResult{Action: contracts.ItemActionUpdated, GameID: existing.ID, Matching: decision}, nil
}

// findExisting implements spec.md §4.6 step 1: storeId, then metaId, then
// slug, then (only when exactly one identifier is known) MatchingEngine
// against a short list of similarly-named candidates.
func (o *Orchestrator) findExisting(ctx context.Context, repo Repository, game *contracts.ProcessedGame) (*contracts.Game, *contracts.MatchingDecision, error) {
	if game.StoreID != nil {
		g, err := repo.Games().FindByStoreID(ctx, *game.StoreID)
		if err == nil {
			return g, nil, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
	}
	if game.MetaID != nil {
		g, err := repo.Games().FindByMetaID(ctx, *game.MetaID)
		if err == nil {
			return g, nil, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
	}
	for _, slug := range []string{game.SlugCandidate, game.OriginalSlugCandidate} {
		if slug == "" {
			continue
		}
		g, err := repo.Games().FindBySlug(ctx, slug)
		if err == nil {
			return g, nil, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
	}

	crossSource := (game.StoreID != nil) != (game.MetaID != nil)
	if !crossSource || o.matcher == nil {
		return nil, nil, nil
	}

	candidates, err := repo.Games().FindCandidatesByCompactName(ctx, game.CompactName, candidateSearchLimit)
	if err != nil {
		return nil, nil, err
	}

	incoming := matching.SubjectFromProcessedGame(game)
	var best *contracts.Game
	var bestMatch *contracts.MatchingDecision   // highest-scoring Auto decision, if any: picks existing
	var bestOverall *contracts.MatchingDecision // highest-scoring decision regardless of status: reported once
	for _, candidate := range candidates {
		subject, err := o.buildCandidateSubject(ctx, repo, candidate)
		if err != nil {
			return nil, nil, err
		}
		decision := o.matcher.Evaluate(incoming, subject, true)
		if bestOverall == nil || decision.Score > bestOverall.Score {
			bestOverall = decision
		}
		if decision.Status != contracts.MatchStatusAuto {
			continue
		}
		if bestMatch == nil || decision.Score > bestMatch.Score {
			best, bestMatch = candidate, decision
		}
	}
	o.matcher.Report(bestOverall)
	return best, bestMatch, nil
}

func (o *Orchestrator) buildCandidateSubject(ctx context.Context, repo Repository, g *contracts.Game) (matching.Subject, error) {
	companySlugs, err := repo.Roles().ListCompanySlugsByGameID(ctx, g.ID)
	if err != nil {
		return matching.Subject{}, err
	}
	var genres []string
	if detail, err := repo.Details().GetByGameID(ctx, g.ID); err == nil {
		genres = detail.Genres
	} else if !errors.Is(err, ErrNotFound) {
		return matching.Subject{}, err
	}
	releases, err := repo.Releases().ListByGameID(ctx, g.ID)
	if err != nil {
		return matching.Subject{}, err
	}
	pcRelease := false
	for _, r := range releases {
		if r.Platform == contracts.PlatformPC {
			pcRelease = true
			break
		}
	}
	return matching.SubjectFromGame(g, companySlugs, genres, pcRelease), nil
}

func (o *Orchestrator) create(ctx context.Context, repo Repository, game *contracts.ProcessedGame) (int64, error) {
	slugs := slugpolicy.NewManager(gameStoreChecker{repo.Games()}, o.now)

	slug, err := slugs.Resolve(ctx, slugpolicy.Input{
		Candidate: game.SlugCandidate,
		Name:      game.Name,
		Fallbacks: slugpolicy.Fallbacks{StoreID: game.StoreID, MetaID: game.MetaID},
	})
	if err != nil {
		return 0, fmt.Errorf("resolve slug: %w", err)
	}
	originalSlug, err := slugs.Resolve(ctx, slugpolicy.Input{
		Candidate: game.OriginalSlugCandidate,
		Name:      game.OriginalName,
		Fallbacks: slugpolicy.Fallbacks{StoreID: game.StoreID, MetaID: game.MetaID},
	})
	if err != nil {
		return 0, fmt.Errorf("resolve original slug: %w", err)
	}

	now := o.now()
	row := &contracts.Game{
		StoreID:         game.StoreID,
		MetaID:          game.MetaID,
		Name:            game.Name,
		OriginalName:    game.OriginalName,
		Slug:            slug,
		OriginalSlug:    originalSlug,
		GameType:        game.GameType,
		ParentStoreID:   game.ParentStoreID,
		ParentMetaID:    game.ParentMetaID,
		ReleaseDate:     game.ReleaseDate,
		ReleaseDateRaw:  game.ReleaseDateRaw,
		ReleaseStatus:   game.ReleaseStatus,
		ComingSoon:      game.ComingSoon,
		PopularityScore: game.PopularityScore,
		FollowersCache:  game.FollowersCache,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	id, err := repo.Games().Insert(ctx, row)
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	row.ID = id

	if row.GameType == contracts.GameTypeGame && row.PopularityScore >= detailPopularityFloor && game.Detail != nil {
		detail := detailRowFromProcessed(id, game.Detail)
		if err := repo.Details().Insert(ctx, detail); err != nil {
			return 0, fmt.Errorf("insert game detail: %w", err)
		}
	}

	if row.GameType != contracts.GameTypeDLC {
		if err := o.upsertReleases(ctx, repo, id, game.Releases); err != nil {
			return 0, err
		}
	}
	if err := o.upsertCompanies(ctx, repo, id, game.Companies); err != nil {
		return 0, err
	}

	return id, nil
}

// update applies PATCH semantics (spec.md §4.6 step 3): mutable fields
// always overwrite; identifier and parent-id fields fill only when
// currently null; isDlc is monotone upward; DLC rows skip details/releases.
func (o *Orchestrator) update(ctx context.Context, repo Repository, existing *contracts.Game, game *contracts.ProcessedGame) error {
	if existing.StoreID == nil {
		existing.StoreID = game.StoreID
	}
	if existing.MetaID == nil {
		existing.MetaID = game.MetaID
	}
	if existing.ParentStoreID == nil {
		existing.ParentStoreID = game.ParentStoreID
	}
	if existing.ParentMetaID == nil {
		existing.ParentMetaID = game.ParentMetaID
	}
	if game.GameType == contracts.GameTypeDLC {
		existing.GameType = contracts.GameTypeDLC // monotone: never downgrades dlc -> game
	}

	existing.Name = game.Name
	existing.OriginalName = game.OriginalName
	existing.ReleaseDate = game.ReleaseDate
	existing.ReleaseDateRaw = game.ReleaseDateRaw
	existing.ReleaseStatus = game.ReleaseStatus
	existing.ComingSoon = game.ComingSoon
	existing.PopularityScore = game.PopularityScore
	existing.FollowersCache = game.FollowersCache
	existing.UpdatedAt = o.now()

	if err := repo.Games().Update(ctx, existing); err != nil {
		return fmt.Errorf("update game: %w", err)
	}

	if existing.GameType != contracts.GameTypeDLC {
		if existing.PopularityScore >= detailPopularityFloor && game.Detail != nil {
			if detail, err := repo.Details().GetByGameID(ctx, existing.ID); err == nil {
				applyDetailPatch(detail, game.Detail)
				if err := repo.Details().Update(ctx, detail); err != nil {
					return fmt.Errorf("update game detail: %w", err)
				}
			} else if errors.Is(err, ErrNotFound) {
				if err := repo.Details().Insert(ctx, detailRowFromProcessed(existing.ID, game.Detail)); err != nil {
					return fmt.Errorf("insert game detail: %w", err)
				}
			} else {
				return err
			}
		}
		if err := o.upsertReleases(ctx, repo, existing.ID, game.Releases); err != nil {
			return err
		}
	}

	return o.upsertCompanies(ctx, repo, existing.ID, game.Companies)
}

func (o *Orchestrator) upsertReleases(ctx context.Context, repo Repository, gameID int64, releases []contracts.ProcessedGameRelease) error {
	for _, r := range releases {
		row := &contracts.GameRelease{
			GameID:        gameID,
			Platform:      r.Platform,
			Store:         r.Store,
			StoreAppID:    r.StoreAppID,
			ReleaseDate:   r.ReleaseDate,
			ReleaseStatus: r.ReleaseStatus,
			PriceCents:    r.PriceCents,
			IsFree:        r.IsFree,
			Followers:     r.Followers,
			DataSource:    r.DataSource,
		}
		if err := repo.Releases().Upsert(ctx, row); err != nil {
			return fmt.Errorf("upsert release: %w", err)
		}
	}
	return nil
}

// upsertCompanies resolves each company by slug, then by case-insensitive
// name, inserting on miss; a unique-violation on insert (a concurrent saver
// won the race) is treated as a cue to re-read rather than a failure, per
// spec.md §4.6 step 5.
func (o *Orchestrator) upsertCompanies(ctx context.Context, repo Repository, gameID int64, companies []contracts.ProcessedGameCompany) error {
	for _, c := range companies {
		companyID, err := o.resolveCompany(ctx, repo, c)
		if err != nil {
			return err
		}
		role := &contracts.GameCompanyRole{GameID: gameID, CompanyID: companyID, Role: c.Role}
		if err := repo.Roles().Upsert(ctx, role); err != nil {
			return fmt.Errorf("upsert company role: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) resolveCompany(ctx context.Context, repo Repository, c contracts.ProcessedGameCompany) (int64, error) {
	if existing, err := repo.Companies().FindBySlug(ctx, c.Slug); err == nil {
		return existing.ID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if existing, err := repo.Companies().FindByName(ctx, c.Name); err == nil {
		return existing.ID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	id, err := repo.Companies().Insert(ctx, &contracts.Company{Slug: c.Slug, Name: c.Name, CreatedAt: o.now()})
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrDuplicateKey) {
		return 0, fmt.Errorf("insert company: %w", err)
	}
	// Lost the race to a concurrent saver; the row now exists.
	existing, err := repo.Companies().FindBySlug(ctx, c.Slug)
	if err != nil {
		return 0, fmt.Errorf("re-read company after duplicate key: %w", err)
	}
	return existing.ID, nil
}

func detailRowFromProcessed(gameID int64, d *contracts.ProcessedGameDetail) *contracts.GameDetail {
	return &contracts.GameDetail{
		GameID:           gameID,
		Screenshots:      d.Screenshots,
		VideoURL:         d.VideoURL,
		Description:      d.Description,
		Website:          d.Website,
		Genres:           d.Genres,
		Tags:             d.Tags,
		SupportLanguages: d.SupportLanguages,
		HeaderImage:      d.HeaderImage,
		MetacriticScore:  d.MetacriticScore,
		OpencriticScore:  d.OpencriticScore,
		ReviewsSummary:   d.ReviewsSummary,
	}
}

func applyDetailPatch(existing *contracts.GameDetail, incoming *contracts.ProcessedGameDetail) {
	existing.Screenshots = incoming.Screenshots
	existing.VideoURL = incoming.VideoURL
	existing.Description = incoming.Description
	existing.Website = incoming.Website
	existing.Genres = incoming.Genres
	existing.Tags = incoming.Tags
	existing.SupportLanguages = incoming.SupportLanguages
	existing.HeaderImage = incoming.HeaderImage
	existing.MetacriticScore = incoming.MetacriticScore
	existing.OpencriticScore = incoming.OpencriticScore
	existing.ReviewsSummary = incoming.ReviewsSummary
}

// MergeOutcome reports what MergeDuplicates did with one duplicate group.
type MergeOutcome struct {
	CanonicalID int64
	MergedIDs   []int64
	Failures    map[int64]error
}

// MergeDuplicates collapses each group onto its first member (the
// convention DuplicateFinder's groups already follow: ascending by ID, so
// group[0] is the oldest row) by reassigning every child row from the rest
// of the group onto it via GameStore.MergeInto, one merge per transaction so
// one bad pair in a large batch never rolls back merges already committed.
func (o *Orchestrator) MergeDuplicates(ctx context.Context, groups [][]int64) ([]MergeOutcome, error) {
	outcomes := make([]MergeOutcome, 0, len(groups))
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		canonicalID := group[0]
		outcome := MergeOutcome{CanonicalID: canonicalID, Failures: map[int64]error{}}

		for _, dupID := range group[1:] {
			if dupID == canonicalID {
				continue
			}
			err := o.tx.WithTx(ctx, func(ctx context.Context, repo Repository) error {
				return repo.Games().MergeInto(ctx, dupID, canonicalID)
			})
			if err != nil {
				outcome.Failures[dupID] = err
				continue
			}
			outcome.MergedIDs = append(outcome.MergedIDs, dupID)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// gameStoreChecker adapts GameStore to slugpolicy.UniquenessChecker.
type gameStoreChecker struct {
	games GameStore
}

func (c gameStoreChecker) SlugExists(ctx context.Context, slug string, excludeSelfID *int64) (bool, error) {
	return c.games.SlugExists(ctx, slug, excludeSelfID)
}

var _ slugpolicy.UniquenessChecker = gameStoreChecker{}
