package normalize

// followerSteps is the monotone step function mapping raw follower counts
// to a 0..100 popularity score, per spec.md §4.3. Steps are checked from
// the highest threshold down; the first satisfied step wins.
var followerSteps = []struct {
	minFollowers int64
	score        int
}{
	{1_000_000, 100},
	{500_000, 95},
	{200_000, 90},
	{100_000, 85},
	{50_000, 80},
	{20_000, 70},
	{10_000, 60},
	{5_000, 50},
	{1_000, 40},
	{500, 30},
	{100, 20},
	{10, 10},
	{0, 0},
}

// reviewCountSteps is the analogous step function over Meta review counts,
// used only when followers are unavailable (see Popularity doc comment).
// Thresholds sit roughly an order of magnitude below followerSteps because
// review counts run far smaller than follower counts for the same title.
var reviewCountSteps = []struct {
	minReviews int64
	score      int
}{
	{100_000, 100},
	{50_000, 95},
	{20_000, 90},
	{10_000, 85},
	{5_000, 80},
	{2_000, 70},
	{1_000, 60},
	{500, 50},
	{100, 40},
	{50, 30},
	{10, 20},
	{1, 10},
	{0, 0},
}

func stepScore(value int64, steps []struct {
	minFollowers int64
	score        int
}) int {
	for _, step := range steps {
		if value >= step.minFollowers {
			return step.score
		}
	}
	return 0
}

func reviewStepScore(value int64) int {
	for _, step := range reviewCountSteps {
		if value >= step.minReviews {
			return step.score
		}
	}
	return 0
}

// Popularity computes the 0..100 PopularityScore for a record. Resolution
// of spec.md §9's open question ("precise popularity mapping when both
// followersCache and meta review count are available"): followers take
// priority whenever known (matches "source uses followers-only in some
// scripts"); only when followers are nil does it fall back to a weighted
// blend of review count and rating (matches "hybrid elsewhere") — see
// DESIGN.md "Open Questions".
func Popularity(followers *int64, reviewCount *int64, ratingPercent *float64) int {
	if followers != nil {
		return stepScore(*followers, followerSteps)
	}

	var reviewScore, ratingScore float64
	if reviewCount != nil {
		reviewScore = float64(reviewStepScore(*reviewCount))
	}
	if ratingPercent != nil {
		ratingScore = clamp(*ratingPercent, 0, 100)
	}

	blended := 0.5*ratingScore + 0.5*reviewScore
	return int(clamp(blended, 0, 100))
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
