package normalize

import (
	"strings"

	"gamecatalog/internal/contracts"
)

// platformFamilies maps every raw platform/category token seen from either
// Store or Meta onto one of the four supported families. All generations
// collapse onto their family (playstation3/4/5 → playstation), matching
// spec.md §4.3. Tokens absent from this table have no supported family and
// are dropped silently by FoldPlatform.
var platformFamilies = map[string]contracts.Platform{
	"pc":        contracts.PlatformPC,
	"windows":   contracts.PlatformPC,
	"win":       contracts.PlatformPC,
	"macos":     contracts.PlatformPC,
	"mac":       contracts.PlatformPC,
	"osx":       contracts.PlatformPC,
	"linux":     contracts.PlatformPC,
	"steamdeck": contracts.PlatformPC,

	"playstation":  contracts.PlatformPlayStation,
	"playstation3": contracts.PlatformPlayStation,
	"playstation4": contracts.PlatformPlayStation,
	"playstation5": contracts.PlatformPlayStation,
	"ps3":          contracts.PlatformPlayStation,
	"ps4":          contracts.PlatformPlayStation,
	"ps5":          contracts.PlatformPlayStation,
	"psvita":       contracts.PlatformPlayStation,
	"psvr":         contracts.PlatformPlayStation,
	"psvr2":        contracts.PlatformPlayStation,

	"xbox":          contracts.PlatformXbox,
	"xbox360":       contracts.PlatformXbox,
	"xboxone":       contracts.PlatformXbox,
	"xbox-one":      contracts.PlatformXbox,
	"xboxseriesx":   contracts.PlatformXbox,
	"xboxseriess":   contracts.PlatformXbox,
	"xbox-series-x": contracts.PlatformXbox,
	"xbox-series-s": contracts.PlatformXbox,

	"nintendo":        contracts.PlatformNintendo,
	"nintendoswitch":  contracts.PlatformNintendo,
	"nintendo-switch": contracts.PlatformNintendo,
	"switch":          contracts.PlatformNintendo,
	"wiiu":            contracts.PlatformNintendo,
	"wii-u":           contracts.PlatformNintendo,
	"3ds":             contracts.PlatformNintendo,
}

// normalizePlatformToken lowercases and strips spaces/underscores so lookups
// tolerate the formatting differences between Store category strings and
// Meta platform slugs ("PlayStation 5" vs "playstation5" vs "ps5").
func normalizePlatformToken(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	lower = strings.ReplaceAll(lower, " ", "")
	lower = strings.ReplaceAll(lower, "_", "")
	return lower
}

// FoldPlatform maps a raw Store category or Meta platform slug onto its
// supported family. ok is false for unsupported platforms (e.g. "stadia",
// "web"), which callers drop silently per spec.md §4.3.
func FoldPlatform(raw string) (platform contracts.Platform, ok bool) {
	token := normalizePlatformToken(raw)
	platform, ok = platformFamilies[token]
	return platform, ok
}

// PlatformsSummary is the folded view of a record's releases, used both by
// persistence (platformsSummary field) and by matching's PC-aligned bonus.
type PlatformsSummary struct {
	PC       bool
	Consoles []contracts.Platform // deduplicated, in first-seen order
}

// FoldPlatforms folds a list of raw platform tokens into a PlatformsSummary,
// collapsing duplicate console families (e.g. ["playstation5","playstation4","pc"]
// → PC=true, Consoles=["playstation"]) and dropping unsupported tokens.
func FoldPlatforms(raw []string) PlatformsSummary {
	summary := PlatformsSummary{}
	seen := make(map[contracts.Platform]bool, len(raw))

	for _, token := range raw {
		family, ok := FoldPlatform(token)
		if !ok {
			continue
		}
		if family == contracts.PlatformPC {
			summary.PC = true
			continue
		}
		if !seen[family] {
			seen[family] = true
			summary.Consoles = append(summary.Consoles, family)
		}
	}

	return summary
}
