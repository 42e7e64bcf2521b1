package matching

import (
	"regexp"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// jaroWinkler is a reusable metric instance, grounded on
// josegonzalez-retro-metadata/pkg/internal/matching's package-level
// `jaroWinkler = metrics.NewJaroWinkler()`.
var jaroWinkler = metrics.NewJaroWinkler()

func jaroWinklerSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	return strutil.Similarity(strings.ToLower(a), strings.ToLower(b), jaroWinkler)
}

// tokenJaccard is the Jaccard index of two token sets.
func tokenJaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}
	intersection := 0
	for t := range set {
		if _, ok := inB[t]; ok {
			intersection++
		}
	}
	union := len(set)
	for t := range inB {
		if _, ok := set[t]; !ok {
			union++
		}
	}
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// dateDiffSteps is the step function mapping |Δdays| to a date score.
var dateDiffSteps = []struct {
	maxDays int
	score   float64
}{
	{0, 1.0}, {1, 0.95}, {3, 0.9}, {7, 0.8}, {14, 0.7}, {30, 0.6},
	{90, 0.5}, {180, 0.4}, {365, 0.3}, {730, 0.2}, {1825, 0.1},
}

// dateScoreAndDiff returns the step-function score and the (signed-positive)
// day difference, or (0, nil) if either date is unknown.
func dateScoreAndDiff(a, b *time.Time) (float64, *int) {
	if a == nil || b == nil {
		return 0.0, nil
	}
	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	days := int(diff.Hours() / 24)
	for _, step := range dateDiffSteps {
		if days <= step.maxDays {
			return step.score, &days
		}
	}
	return 0.0, &days
}

// overlap returns the intersection elements and the overlap ratio
// |intersection| / max(|a|,|b|). Empty on either side yields (nil, 0).
func overlap(a, b []string) ([]string, float64) {
	if len(a) == 0 || len(b) == 0 {
		return nil, 0.0
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	var inter []string
	for _, v := range a {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := inB[v]; ok {
			inter = append(inter, v)
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return inter, float64(len(inter)) / float64(denom)
}

// trailingSequelSuffix splits a loose slug like "subnautica-2" into
// ("subnautica", 2, true); a slug with no trailing numeric token returns
// (slug, 0, false). Roman numerals never reach here — NormalizeName already
// folds canonical Roman tokens to Arabic digits before LooseSlug is built.
var trailingSuffixPattern = regexp.MustCompile(`^(.+)-([0-9]+)$`)

func trailingSequelSuffix(looseSlug string) (base string, num int, hasSuffix bool) {
	m := trailingSuffixPattern.FindStringSubmatch(looseSlug)
	if m == nil {
		return looseSlug, 0, false
	}
	n := 0
	for _, r := range m[2] {
		n = n*10 + int(r-'0')
	}
	return m[1], n, true
}
