package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stopwords are dropped from the token set before matching, per spec.md §4.3.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "for": {},
	"edition": {}, "definitive": {}, "remastered": {}, "hd": {},
}

// tokenPattern splits a lowercased, accent-stripped name on runs of
// non-alphanumeric characters.
var tokenPattern = regexp.MustCompile(`[^a-z0-9]+`)

// NameTokens is the output of name normalization: a token set with
// stopwords dropped and Roman numerals folded, plus the two compact
// representations the matching engine scores against.
type NameTokens struct {
	// Tokens is the cleaned, stopword-free, Roman-numeral-folded token list.
	Tokens []string
	// Compact is Tokens joined with no separator, e.g. "finalfantasy7".
	Compact string
	// LooseSlug is Tokens joined with "-", e.g. "final-fantasy-7".
	LooseSlug string
}

// removeAccents strips Unicode combining marks after NFD decomposition,
// grounded on josegonzalez-retro-metadata/pkg/internal/normalization.
func removeAccents(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeName tokenizes a raw name: strip diacritics, lowercase, split on
// non-alphanumerics, fold canonical Roman numerals to Arabic digits, drop
// stopwords.
func NormalizeName(name string) NameTokens {
	lower := strings.ToLower(removeAccents(name))
	rawTokens := tokenPattern.Split(lower, -1)

	tokens := make([]string, 0, len(rawTokens))
	for _, t := range rawTokens {
		if t == "" {
			continue
		}
		if arabic, ok := canonicalRomanToArabic(t); ok {
			t = itoa(arabic)
		}
		if _, isStopword := stopwords[t]; isStopword {
			continue
		}
		tokens = append(tokens, t)
	}

	return NameTokens{
		Tokens:    tokens,
		Compact:   strings.Join(tokens, ""),
		LooseSlug: strings.Join(tokens, "-"),
	}
}

// itoa is a tiny base-10 formatter kept local to avoid pulling in strconv
// for a single call site used only here and in tests.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// SequelToken reports whether name carries an explicit sequel-number token:
// a bare digit token, or a canonical Roman numeral token in [2,20]. Exported
// for the matching engine's sequel-disambiguation rule (spec.md §4.4).
func SequelToken(name string) (int, bool) {
	return sequelToken(name)
}

// sequelToken reports whether name carries an explicit sequel-number token:
// a bare digit token, or a canonical Roman numeral token in [2,20] (I is
// excluded — it marks a first installment, not a sequel). Used by the
// matching engine's sequel-disambiguation rule (spec.md §4.4).
func sequelToken(originalName string) (int, bool) {
	lower := strings.ToLower(removeAccents(originalName))
	for _, raw := range tokenPattern.Split(lower, -1) {
		if raw == "" {
			continue
		}
		if n, ok := canonicalRomanToArabic(raw); ok && n >= 2 && n <= 20 {
			return n, true
		}
		if isDigits(raw) {
			if n, ok := parseDigits(raw); ok && n >= 2 {
				return n, true
			}
		}
	}
	return 0, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseDigits(s string) (int, bool) {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n, true
}
