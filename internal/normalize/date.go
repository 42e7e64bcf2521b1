package normalize

import (
	"strings"
	"time"

	"gamecatalog/internal/contracts"
)

// dateLayouts are the raw release-date formats tolerated from Store/Meta,
// tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"2 Jan, 2006",
	"January 2, 2006",
	"2006",
}

// ParseReleaseDate attempts each known layout against raw, returning the
// first successful parse. An empty or unparsable raw value yields (nil,
// false) — callers fall back to ReleaseStatusUnknown without failing
// normalization outright (a malformed date alone doesn't reject a record).
func ParseReleaseDate(raw string) (*time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// DeriveReleaseStatus infers ReleaseStatus from a parsed date (or its
// absence) and the upstream comingSoon flag.
func DeriveReleaseStatus(date *time.Time, comingSoon bool, now time.Time) contracts.ReleaseStatus {
	if comingSoon {
		return contracts.ReleaseStatusUpcoming
	}
	if date == nil {
		return contracts.ReleaseStatusUnknown
	}
	if date.After(now) {
		return contracts.ReleaseStatusUpcoming
	}
	return contracts.ReleaseStatusReleased
}
