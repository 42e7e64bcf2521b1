package matching

import (
	"strings"
	"time"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/normalize"
)

// Subject is the normalized view of either side of a comparison: the
// incoming ProcessedGame, or a candidate Game already persisted. Both sides
// are reduced to this one shape so Engine never imports the persistence
// package.
type Subject struct {
	GameID       *int64
	Name         string
	OriginalName string
	CompactName  string
	LooseSlug    string
	TokenSet     []string
	ReleaseDate  *time.Time
	CompanySlugs []string
	Genres       []string
	PCRelease    bool
}

// SubjectFromProcessedGame builds a Subject for a record fresh off the
// Normalizer — it has no GameID because it is not (yet) a persisted row.
func SubjectFromProcessedGame(g *contracts.ProcessedGame) Subject {
	companySlugs := make([]string, 0, len(g.Companies))
	for _, c := range g.Companies {
		companySlugs = append(companySlugs, c.Slug)
	}
	var genres []string
	if g.Detail != nil {
		genres = g.Detail.Genres
	}
	pc := false
	for _, r := range g.Releases {
		if r.Platform == contracts.PlatformPC {
			pc = true
			break
		}
	}
	return Subject{
		Name:         g.Name,
		OriginalName: g.OriginalName,
		CompactName:  g.CompactName,
		LooseSlug:    g.LooseSlug,
		TokenSet:     g.TokenSet,
		ReleaseDate:  g.ReleaseDate,
		CompanySlugs: companySlugs,
		Genres:       genres,
		PCRelease:    pc,
	}
}

// SubjectFromGame builds a Subject for a candidate already in storage.
// companySlugs/genres/pcRelease are supplied by the caller (persistence's
// read-side) since a bare Game row carries neither.
func SubjectFromGame(g *contracts.Game, companySlugs, genres []string, pcRelease bool) Subject {
	tokens := normalize.NormalizeName(g.OriginalName)
	return Subject{
		GameID:       &g.ID,
		Name:         g.Name,
		OriginalName: g.OriginalName,
		CompactName:  tokens.Compact,
		LooseSlug:    tokens.LooseSlug,
		TokenSet:     tokens.Tokens,
		ReleaseDate:  g.ReleaseDate,
		CompanySlugs: companySlugs,
		Genres:       genres,
		PCRelease:    pcRelease,
	}
}

func normalizedEqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
