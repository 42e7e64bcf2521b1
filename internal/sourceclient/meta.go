package sourceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"gamecatalog/internal/contracts"
)

// Meta is the SourceClient capability provider for the aggregator-style
// catalog (a RAWG-like /games API): broader platform and parent-game
// relationship data than Store, but no pricing.
type Meta struct {
	tr *transport
}

// NewMeta builds a Meta client against baseURL. apiKey is sent as a bearer
// token when non-empty.
func NewMeta(baseURL, apiKey string, httpClient *http.Client) *Meta {
	return &Meta{tr: newTransport(baseURL, apiKey, httpClient)}
}

type metaGame struct {
	ID              int64          `json:"id"`
	Slug            string         `json:"slug"`
	Name            string         `json:"name"`
	Released        string         `json:"released"`
	TBA             bool           `json:"tba"`
	BackgroundImage string         `json:"background_image"`
	Website         string         `json:"website"`
	Description     string         `json:"description_raw"`
	MetacriticScore *int           `json:"metacritic"`
	RatingsCount    *int64         `json:"ratings_count"`
	ParentGameID    *int64         `json:"parent_game_id"`
	Platforms       []metaPlatform `json:"platforms"`
	Genres          []metaGenre    `json:"genres"`
	Tags            []metaTag      `json:"tags"`
	Screenshots     []metaScreenshot `json:"short_screenshots"`
	ClipURL         *string        `json:"clip_url"`
	Developers      []metaCompany  `json:"developers"`
	Publishers      []metaCompany  `json:"publishers"`
}

type metaPlatform struct {
	Platform metaPlatformInfo `json:"platform"`
}

type metaPlatformInfo struct {
	Name        string  `json:"name"`
	ReleasedAt  string  `json:"released_at"`
	RequirementsMin *string `json:"requirements_min"`
}

type metaGenre struct {
	Name string `json:"name"`
}

type metaTag struct {
	Name string `json:"name"`
}

type metaScreenshot struct {
	Image string `json:"image"`
}

type metaCompany struct {
	Name string `json:"name"`
}

// FetchOne retrieves one Meta game by ID, or (nil, ErrNotFound) if the
// upstream responds 404.
func (m *Meta) FetchOne(ctx context.Context, gameID int64) (*contracts.RawRecord, error) {
	body, err := m.tr.get(ctx, "/games/"+strconv.FormatInt(gameID, 10), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch meta game %d: %w", gameID, err)
	}

	var game metaGame
	if err := json.Unmarshal(body, &game); err != nil {
		return nil, fmt.Errorf("%w: decode game: %v", ErrMalformed, err)
	}
	if game.ID == 0 {
		return nil, ErrNotFound
	}

	return toMetaRawRecord(&game), nil
}

// FetchMany satisfies internal/batch.Source, fetching each ID in sequence.
// Mirrors Store.FetchMany's not-found-skips, other-errors-abort shape.
func (m *Meta) FetchMany(ctx context.Context, ids []int64) ([]*contracts.RawRecord, error) {
	out := make([]*contracts.RawRecord, 0, len(ids))
	for _, id := range ids {
		raw, err := m.FetchOne(ctx, id)
		switch {
		case err == nil:
			out = append(out, raw)
		case isErrNotFound(err):
			continue
		default:
			return out, err
		}
	}
	return out, nil
}

func toMetaRawRecord(g *metaGame) *contracts.RawRecord {
	metaID := g.ID
	raw := &contracts.RawRecord{
		Source:          contracts.SourceMeta,
		MetaGameID:      &metaID,
		Name:            g.Name,
		ReleaseDateRaw:  g.Released,
		ComingSoon:      g.TBA,
		HeaderImage:     strPtrOrNil(g.BackgroundImage),
		Website:         strPtrOrNil(g.Website),
		Description:     strPtrOrNil(g.Description),
		MetacriticScore: g.MetacriticScore,
		ReviewCount:     g.RatingsCount,
		MetaParentGameID: g.ParentGameID,
		VideoURL:        g.ClipURL,
	}

	for _, genre := range g.Genres {
		raw.Genres = append(raw.Genres, genre.Name)
	}
	for _, tag := range g.Tags {
		raw.Tags = append(raw.Tags, tag.Name)
	}
	for _, shot := range g.Screenshots {
		raw.Screenshots = append(raw.Screenshots, shot.Image)
	}
	for _, p := range g.Platforms {
		raw.MetaPlatforms = append(raw.MetaPlatforms, p.Platform.Name)
		raw.Releases = append(raw.Releases, contracts.RawRelease{
			Platform:       p.Platform.Name,
			ReleaseDateRaw: p.Platform.ReleasedAt,
		})
	}
	for _, dev := range g.Developers {
		raw.Companies = append(raw.Companies, contracts.RawCompany{Name: dev.Name, Role: contracts.CompanyRoleDeveloper})
	}
	for _, pub := range g.Publishers {
		raw.Companies = append(raw.Companies, contracts.RawCompany{Name: pub.Name, Role: contracts.CompanyRolePublisher})
	}

	return raw
}
