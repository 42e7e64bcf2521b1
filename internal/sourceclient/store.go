package sourceclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"gamecatalog/internal/contracts"
)

// Store is the SourceClient capability provider for the Steam-like retail
// catalog: GET /ISteamApps/GetAppList for the full ID universe, GET
// /api/appdetails?appids=N for one record at a time.
type Store struct {
	tr *transport
}

// NewStore builds a Store client against baseURL (e.g. a Steam Web API
// or storefront mirror). apiKey is sent as a bearer token when non-empty.
func NewStore(baseURL, apiKey string, httpClient *http.Client) *Store {
	return &Store{tr: newTransport(baseURL, apiKey, httpClient)}
}

type storeAppListResponse struct {
	AppList struct {
		Apps []struct {
			AppID int64  `json:"appid"`
			Name  string `json:"name"`
		} `json:"apps"`
	} `json:"applist"`
}

// ListAllStoreIDs satisfies internal/candidates.StoreCatalog: every app ID
// the Store catalog currently lists, regardless of category.
func (s *Store) ListAllStoreIDs(ctx context.Context) ([]int64, error) {
	body, err := s.tr.get(ctx, "/ISteamApps/GetAppList/v2/", nil)
	if err != nil {
		return nil, fmt.Errorf("list store app ids: %w", err)
	}

	var resp storeAppListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode app list: %v", ErrMalformed, err)
	}

	ids := make([]int64, len(resp.AppList.Apps))
	for i, app := range resp.AppList.Apps {
		ids[i] = app.AppID
	}
	return ids, nil
}

type storeAppDetailsEnvelope map[string]storeAppDetailsEntry

type storeAppDetailsEntry struct {
	Success bool             `json:"success"`
	Data    *storeAppDetails `json:"data"`
}

type storeAppDetails struct {
	SteamAppID       int64               `json:"steam_appid"`
	Type             string              `json:"type"` // "game", "dlc", "demo", "music", ...
	Name             string              `json:"name"`
	FullGame         *storeFullGame      `json:"fullgame"`
	ReleaseDate      storeReleaseDate    `json:"release_date"`
	Developers       []string            `json:"developers"`
	Publishers       []string            `json:"publishers"`
	Platforms        map[string]bool     `json:"platforms"`
	Genres           []storeGenre        `json:"genres"`
	Categories       []storeCategory     `json:"categories"`
	PriceOverview    *storePriceOverview `json:"price_overview"`
	IsFree           bool                `json:"is_free"`
	HeaderImage      string              `json:"header_image"`
	Website          string              `json:"website"`
	Screenshots      []storeScreenshot   `json:"screenshots"`
	Movies           []storeMovie        `json:"movies"`
	Metacritic       *storeMetacritic    `json:"metacritic"`
	ShortDescription string              `json:"short_description"`
	SupportedLangs   string              `json:"supported_languages"`
	Recommendations  *storeRecommendations `json:"recommendations"`
}

type storeFullGame struct {
	AppID int64 `json:"appid"`
}

type storeReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

type storeGenre struct {
	Description string `json:"description"`
}

type storeCategory struct {
	Description string `json:"description"`
}

type storePriceOverview struct {
	Final int64 `json:"final"`
}

type storeScreenshot struct {
	PathFull string `json:"path_full"`
}

type storeMovie struct {
	Webm storeMovieWebm `json:"webm"`
}

type storeMovieWebm struct {
	Max string `json:"max"`
}

type storeMetacritic struct {
	Score int `json:"score"`
}

type storeRecommendations struct {
	Total int64 `json:"total"`
}

// FetchOne retrieves one Store app by ID, or (nil, ErrNotFound) if Store
// reports success=false for it.
func (s *Store) FetchOne(ctx context.Context, appID int64) (*contracts.RawRecord, error) {
	body, err := s.tr.get(ctx, "/api/appdetails", map[string]string{"appids": strconv.FormatInt(appID, 10)})
	if err != nil {
		return nil, fmt.Errorf("fetch store app %d: %w", appID, err)
	}

	var envelope storeAppDetailsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode app details: %v", ErrMalformed, err)
	}

	entry, ok := envelope[strconv.FormatInt(appID, 10)]
	if !ok || !entry.Success || entry.Data == nil {
		return nil, ErrNotFound
	}

	return toStoreRawRecord(entry.Data), nil
}

// FetchMany satisfies internal/batch.Source, fetching each ID in sequence.
// A single ID's failure (other than ErrNotFound, which just yields no
// record) is returned immediately; BatchRunner treats that as a fetch-batch
// failure, matching spec.md's "a batch never rolls back other rows" applying
// only to the save side, not the fetch side.
func (s *Store) FetchMany(ctx context.Context, ids []int64) ([]*contracts.RawRecord, error) {
	out := make([]*contracts.RawRecord, 0, len(ids))
	for _, id := range ids {
		raw, err := s.FetchOne(ctx, id)
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

func toStoreRawRecord(d *storeAppDetails) *contracts.RawRecord {
	appID := d.SteamAppID
	raw := &contracts.RawRecord{
		Source:         contracts.SourceStore,
		StoreAppID:     &appID,
		Name:           d.Name,
		Category:       d.Type,
		ReleaseDateRaw: d.ReleaseDate.Date,
		ComingSoon:     d.ReleaseDate.ComingSoon,
		HeaderImage:    strPtrOrNil(d.HeaderImage),
		Website:        strPtrOrNil(d.Website),
		Description:    strPtrOrNil(d.ShortDescription),
	}

	if d.FullGame != nil {
		raw.ParentStoreAppID = &d.FullGame.AppID
	}
	if d.Recommendations != nil {
		raw.ReviewCount = &d.Recommendations.Total
	}
	if d.Metacritic != nil {
		raw.MetacriticScore = &d.Metacritic.Score
	}

	for _, g := range d.Genres {
		raw.Genres = append(raw.Genres, g.Description)
	}
	for _, c := range d.Categories {
		raw.StoreCategories = append(raw.StoreCategories, c.Description)
	}
	for platform, supported := range d.Platforms {
		if supported {
			raw.Releases = append(raw.Releases, contracts.RawRelease{
				Platform:       platform,
				StoreAppID:     strPtr(strconv.FormatInt(appID, 10)),
				ReleaseDateRaw: d.ReleaseDate.Date,
				IsFree:         d.IsFree,
			})
			if d.PriceOverview != nil {
				raw.Releases[len(raw.Releases)-1].PriceCents = &d.PriceOverview.Final
			}
		}
	}
	for _, s := range d.Screenshots {
		raw.Screenshots = append(raw.Screenshots, s.PathFull)
	}
	for _, m := range d.Movies {
		if m.Webm.Max != "" {
			video := m.Webm.Max
			raw.VideoURL = &video
			break
		}
	}
	for _, dev := range d.Developers {
		raw.Companies = append(raw.Companies, contracts.RawCompany{Name: dev, Role: contracts.CompanyRoleDeveloper})
	}
	for _, pub := range d.Publishers {
		raw.Companies = append(raw.Companies, contracts.RawCompany{Name: pub, Role: contracts.CompanyRolePublisher})
	}

	return raw
}

func strPtr(s string) *string { return &s }

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isErrNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
