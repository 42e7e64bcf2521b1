package normalize

import "strings"

// excludedProductTokens are whole-word (case-insensitive) markers of
// non-game products that should never reach the catalog, per spec.md §4.3.
var excludedProductTokens = map[string]struct{}{
	"soundtrack":  {},
	"wallpaper":   {},
	"screensaver": {},
	"sdk":         {},
	"server":      {},
	"benchmark":   {},
	"test":        {},
	"sample":      {},
	"trailer":     {},
	"video":       {},
	"playtest":    {},
}

// IsExcludedProduct reports whether name contains one of the excluded
// product heuristic tokens as a whole word (not a substring of a longer
// word — "Servermaster" does not match "server").
func IsExcludedProduct(name string) bool {
	lower := strings.ToLower(removeAccents(name))
	for _, token := range tokenPattern.Split(lower, -1) {
		if token == "" {
			continue
		}
		if _, excluded := excludedProductTokens[token]; excluded {
			return true
		}
	}
	return false
}
