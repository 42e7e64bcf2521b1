package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength is the hard cap on any slug/originalSlug value, per
// spec.md §4.3 and §4.5.
const MaxSlugLength = 120

var (
	// slugDisallowedPattern keeps ASCII alnum, whitespace, hyphen, and the
	// Hangul syllable block so Korean titles slug meaningfully instead of
	// collapsing to empty.
	slugDisallowedPattern = regexp.MustCompile(`[^a-z0-9\s\-\x{AC00}-\x{D7A3}]`)
	slugWhitespacePattern = regexp.MustCompile(`\s+`)
	slugHyphenRunPattern  = regexp.MustCompile(`-+`)
)

// SlugCandidate derives a slug candidate from a name: NFKD normalize (Hangul
// syllables stay composed), lowercase, drop disallowed characters, collapse
// whitespace to hyphens, collapse hyphen runs, trim edge hyphens, cap at
// MaxSlugLength.
func SlugCandidate(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 0xAC00 && r <= 0xD7A3 {
			b.WriteRune(r)
			continue
		}
		b.WriteString(norm.NFKD.String(string(r)))
	}
	decomposed := b.String()
	lower := strings.ToLower(decomposed)
	cleaned := slugDisallowedPattern.ReplaceAllString(lower, "")
	hyphenated := slugWhitespacePattern.ReplaceAllString(cleaned, "-")
	collapsed := slugHyphenRunPattern.ReplaceAllString(hyphenated, "-")
	trimmed := strings.Trim(collapsed, "-")

	if len(trimmed) > MaxSlugLength {
		trimmed = strings.Trim(trimmed[:MaxSlugLength], "-")
	}
	return trimmed
}
