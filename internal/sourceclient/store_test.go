package sourceclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"gamecatalog/internal/contracts"
)

func TestStore_ListAllStoreIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ISteamApps/GetAppList/v2/", r.URL.Path)
		w.Write([]byte(`{"applist":{"apps":[{"appid":10,"name":"Counter-Strike"},{"appid":20,"name":"Team Fortress"}]}}`))
	}))
	defer server.Close()

	store := NewStore(server.URL, "", nil)
	ids, err := store.ListAllStoreIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{10, 20}, ids)
}

func TestStore_FetchOne_MapsFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "400", r.URL.Query().Get("appids"))
		fmt.Fprint(w, `{"400":{"success":true,"data":{
			"steam_appid":400,
			"type":"game",
			"name":"Portal",
			"fullgame":{"appid":70},
			"release_date":{"coming_soon":false,"date":"2007-10-10"},
			"developers":["Valve"],
			"publishers":["Valve"],
			"platforms":{"windows":true,"linux":false},
			"genres":[{"description":"Puzzle"}],
			"categories":[{"description":"Single-player"}],
			"price_overview":{"final":999},
			"is_free":false,
			"header_image":"http://example.com/header.jpg",
			"website":"http://example.com",
			"screenshots":[{"path_full":"http://example.com/shot1.jpg"}],
			"movies":[{"webm":{"max":"http://example.com/movie.webm"}}],
			"metacritic":{"score":90},
			"short_description":"A test of portals.",
			"recommendations":{"total":12345}
		}}}`)
	}))
	defer server.Close()

	store := NewStore(server.URL, "", nil)
	raw, err := store.FetchOne(context.Background(), 400)
	require.NoError(t, err)
	require.Equal(t, contracts.SourceStore, raw.Source)
	require.Equal(t, int64(400), *raw.StoreAppID)
	require.Equal(t, "Portal", raw.Name)
	require.Equal(t, "game", raw.Category)
	require.Equal(t, int64(70), *raw.ParentStoreAppID)
	require.Equal(t, int64(12345), *raw.ReviewCount)
	require.Equal(t, 90, *raw.MetacriticScore)
	require.Equal(t, []string{"Puzzle"}, raw.Genres)
	require.Equal(t, []string{"Single-player"}, raw.StoreCategories)
	require.Len(t, raw.Releases, 1)
	require.Equal(t, "windows", raw.Releases[0].Platform)
	require.Equal(t, int64(999), *raw.Releases[0].PriceCents)
	require.Len(t, raw.Screenshots, 1)
	require.Equal(t, "http://example.com/movie.webm", *raw.VideoURL)
	require.Len(t, raw.Companies, 2)
}

func TestStore_FetchOne_NotFoundWhenUpstreamSaysFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"999":{"success":false,"data":null}}`)
	}))
	defer server.Close()

	store := NewStore(server.URL, "", nil)
	_, err := store.FetchOne(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_FetchMany_SkipsNotFoundAndContinues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		appID := r.URL.Query().Get("appids")
		switch appID {
		case "1":
			fmt.Fprint(w, `{"1":{"success":true,"data":{"steam_appid":1,"name":"Game One","type":"game","release_date":{},"platforms":{}}}}`)
		case "2":
			fmt.Fprint(w, `{"2":{"success":false,"data":null}}`)
		case "3":
			fmt.Fprint(w, `{"3":{"success":true,"data":{"steam_appid":3,"name":"Game Three","type":"game","release_date":{},"platforms":{}}}}`)
		}
	}))
	defer server.Close()

	store := NewStore(server.URL, "", nil)
	records, err := store.FetchMany(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Game One", records[0].Name)
	require.Equal(t, "Game Three", records[1].Name)
}
