package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/normalize"
)

func subjectFromName(id *int64, name string, date *time.Time, companySlugs []string) Subject {
	tokens := normalize.NormalizeName(name)
	return Subject{
		GameID:       id,
		Name:         name,
		OriginalName: name,
		CompactName:  tokens.Compact,
		LooseSlug:    tokens.LooseSlug,
		TokenSet:     tokens.Tokens,
		ReleaseDate:  date,
		CompanySlugs: companySlugs,
	}
}

func gameID(v int64) *int64 { return &v }

func dateOf(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestEngine_Evaluate_SequelDisambiguationRejectsSubnauticaTwo(t *testing.T) {
	existing := subjectFromName(gameID(1), "Subnautica", nil, nil)
	incoming := subjectFromName(nil, "Subnautica 2", dateOf(2026, time.June, 1), nil)

	e := NewEngine(nil)
	decision := e.Evaluate(incoming, existing, false)

	assert.Equal(t, contracts.MatchStatusRejected, decision.Status)
	assert.True(t, decision.Flags.SequelDisambiguated)
	assert.Nil(t, decision.MatchedGameID)
}

func TestEngine_Evaluate_DuplicateCollisionMatchesStellarBlade(t *testing.T) {
	existing := subjectFromName(gameID(7), "Stellar Blade", nil, nil)
	incoming := subjectFromName(nil, "Stellar Blade", nil, nil)
	// Simulate the slug-collision artifact directly on the loose slug, since
	// the raw name carries no sequel token of its own.
	incoming.LooseSlug = existing.LooseSlug + "-2"

	e := NewEngine(nil)
	decision := e.Evaluate(incoming, existing, false)

	require.Equal(t, contracts.MatchStatusAuto, decision.Status)
	assert.True(t, decision.Flags.DuplicateCollision)
	require.NotNil(t, decision.MatchedGameID)
	assert.Equal(t, int64(7), *decision.MatchedGameID)
}

func TestEngine_Evaluate_CrossSourceAutoMatchEldenRing(t *testing.T) {
	existing := subjectFromName(gameID(42), "Elden Ring", dateOf(2022, time.February, 25), []string{"fromsoftware"})
	incoming := subjectFromName(nil, "Elden Ring", dateOf(2022, time.February, 25), []string{"fromsoftware"})

	e := NewEngine(nil)
	decision := e.Evaluate(incoming, existing, true)

	require.Equal(t, contracts.MatchStatusAuto, decision.Status)
	require.NotNil(t, decision.MatchedGameID)
	assert.Equal(t, int64(42), *decision.MatchedGameID)
	assert.True(t, decision.Breakdown.NameExactMatch)
	assert.True(t, decision.Breakdown.SlugMatch)
	require.NotNil(t, decision.Breakdown.DateDiffDays)
	assert.Equal(t, 0, *decision.Breakdown.DateDiffDays)
	assert.Equal(t, []string{"fromsoftware"}, decision.Breakdown.CompanyOverlap)
	assert.True(t, decision.Flags.CrossSourceLinkage)
}

func TestEngine_Evaluate_UnrelatedTitlesAreRejected(t *testing.T) {
	existing := subjectFromName(gameID(1), "Hades", dateOf(2020, time.September, 17), []string{"supergiant"})
	incoming := subjectFromName(nil, "Disco Elysium", dateOf(2019, time.October, 15), []string{"za-um"})

	e := NewEngine(nil)
	decision := e.Evaluate(incoming, existing, false)

	assert.Equal(t, contracts.MatchStatusRejected, decision.Status)
	assert.Nil(t, decision.MatchedGameID)
}

func TestTokenJaccard_IdenticalSetsScoreOne(t *testing.T) {
	assert.Equal(t, 1.0, tokenJaccard([]string{"a", "b"}, []string{"b", "a"}))
}

func TestDateScoreAndDiff_StepsByAbsoluteDifference(t *testing.T) {
	a := dateOf(2022, time.February, 25)
	b := dateOf(2022, time.February, 25)
	score, diff := dateScoreAndDiff(a, b)
	require.NotNil(t, diff)
	assert.Equal(t, 0, *diff)
	assert.Equal(t, 1.0, score)
}

func TestOverlap_EmptyEitherSideYieldsZero(t *testing.T) {
	_, score := overlap(nil, []string{"x"})
	assert.Equal(t, 0.0, score)
}
