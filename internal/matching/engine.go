package matching

import (
	"fmt"
	"math"
	"strconv"

	"gamecatalog/internal/contracts"
)

// Weight constants from spec.md §4.4's similarity table. genreWeight is kept
// at 0 deliberately — see DESIGN.md "Open Questions" — genre overlap is
// still computed and surfaced in MatchBreakdown, just never folded into
// score.
const (
	nameWeight    = 0.45
	dateWeight    = 0.35
	companyWeight = 0.20
	genreWeight   = 0.0
	pcAlignBonus  = 0.05

	autoScoreFloor    = 0.5
	pendingScoreFloor = 0.3
	strongNameFloor   = 0.35
)

// Reporter receives every decision Engine produces, for audit-log emission.
// Implemented by internal/report.Writer; kept as a narrow interface here so
// matching never imports the report package.
type Reporter interface {
	Record(decision *contracts.MatchingDecision)
}

// Engine is the MatchingEngine: given a normalized incoming record and a
// single candidate already in storage, decides whether they describe the
// same title.
type Engine struct {
	reporter Reporter
}

// NewEngine builds a MatchingEngine. reporter may be nil (useful in tests
// that only care about the returned decision, not the audit trail).
func NewEngine(reporter Reporter) *Engine {
	return &Engine{reporter: reporter}
}

// Evaluate scores incoming against candidate and returns the decision.
// crossSourceLinkage is set by the caller when exactly one of incoming's
// StoreID/MetaID was already known (PersistenceOrchestrator's find-existing
// step only calls into matching in that situation).
func (e *Engine) Evaluate(incoming, candidate Subject, crossSourceLinkage bool) *contracts.MatchingDecision {
	slug := evaluateSlugMatch(incoming, candidate)

	nameJaccard := tokenJaccard(incoming.TokenSet, candidate.TokenSet)
	nameJW := jaroWinklerSimilarity(incoming.Name, candidate.Name)
	nameJWCompact := jaroWinklerSimilarity(incoming.CompactName, candidate.CompactName)
	nameScore := 0.5*nameJaccard + 0.3*nameJW + 0.2*nameJWCompact

	nameExactMatch := normalizedEqualFold(incoming.Name, candidate.Name)
	switch {
	case nameExactMatch:
		nameScore = 1.0
	case slug.matched:
		nameScore = math.Max(nameScore, 0.95)
	}

	dateScore, dateDiffDays := dateScoreAndDiff(incoming.ReleaseDate, candidate.ReleaseDate)
	companyOverlap, companyScore := overlap(incoming.CompanySlugs, candidate.CompanySlugs)
	genreOverlap, _ := overlap(incoming.Genres, candidate.Genres)

	pcAligned := incoming.PCRelease && candidate.PCRelease && dateScore >= 0.7
	pcBonus := 0.0
	if pcAligned {
		pcBonus = pcAlignBonus
	}

	score := nameWeight*nameScore + dateWeight*dateScore + companyWeight*companyScore + pcBonus
	score = math.Min(score, 1.0)

	releaseWithin365 := dateDiffDays != nil && *dateDiffDays <= 365
	signalCount := 0
	if slug.matched {
		signalCount++
	}
	if nameExactMatch {
		signalCount++
	}
	if releaseWithin365 {
		signalCount++
	}
	if len(companyOverlap) >= 1 {
		signalCount++
	}

	breakdown := contracts.MatchBreakdown{
		NameScore:      nameScore,
		DateScore:      dateScore,
		CompanyScore:   companyScore,
		GenreOverlap:   float64(len(genreOverlap)),
		PCAlignedBonus: pcBonus,
		NameExactMatch: nameExactMatch,
		SlugMatch:      slug.matched,
		DateDiffDays:   dateDiffDays,
		CompanyOverlap: companyOverlap,
	}
	flags := contracts.MatchFlags{
		SequelDisambiguated: slug.sequelDisambiguated,
		DuplicateCollision:  slug.duplicateCollision,
		CrossSourceLinkage:  crossSourceLinkage,
	}

	decision := &contracts.MatchingDecision{
		Score:          score,
		SignalCount:    signalCount,
		Breakdown:      breakdown,
		Flags:          flags,
		CandidateOneID: subjectIdentifier(candidate),
		CandidateTwoID: subjectIdentifier(incoming),
	}

	switch {
	case slug.sequelDisambiguated:
		decision.Status = contracts.MatchStatusRejected
		decision.Reason = "sequel disambiguation: original name carries an explicit sequel token"
	case slug.matched:
		// Equal slugs (or a confirmed duplicate-collision suffix) are the
		// highest-confidence signal the engine has — treated as conclusive
		// on their own rather than run back through the weighted score.
		decision.Status = contracts.MatchStatusAuto
		decision.MatchedGameID = candidate.GameID
		decision.Reason = fmt.Sprintf("slug match, score=%.3f signals=%d", score, signalCount)
	case score >= autoScoreFloor && (signalCount >= 2 || (nameScore >= strongNameFloor && signalCount >= 1)):
		decision.Status = contracts.MatchStatusAuto
		decision.MatchedGameID = candidate.GameID
		decision.Reason = fmt.Sprintf("score=%.3f signals=%d", score, signalCount)
	case score < autoScoreFloor && score >= pendingScoreFloor && signalCount >= 1:
		decision.Status = contracts.MatchStatusPending
		decision.Reason = fmt.Sprintf("score=%.3f signals=%d below auto floor", score, signalCount)
	default:
		decision.Status = contracts.MatchStatusRejected
		decision.Reason = fmt.Sprintf("score=%.3f signals=%d", score, signalCount)
	}

	return decision
}

// Report emits decision to the audit trail. Evaluate itself never reports:
// a caller that scores a record against several candidates (PersistenceOrchestrator's
// find-existing loop) must score each candidate before knowing which
// decision is the one worth keeping, and spec.md §8 wants exactly one audit
// line per record evaluated, not one per candidate scored.
func (e *Engine) Report(decision *contracts.MatchingDecision) {
	if e.reporter != nil && decision != nil {
		e.reporter.Record(decision)
	}
}

// subjectIdentifier renders a Subject's persisted GameID (if any) as the
// string the JSONL audit line expects; incoming records not yet saved
// produce "".
func subjectIdentifier(s Subject) string {
	if s.GameID == nil {
		return ""
	}
	return strconv.FormatInt(*s.GameID, 10)
}
