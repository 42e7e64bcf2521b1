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

func TestMeta_FetchOne_MapsFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/games/3498", r.URL.Path)
		fmt.Fprint(w, `{
			"id":3498,
			"slug":"grand-theft-auto-v",
			"name":"Grand Theft Auto V",
			"released":"2013-09-17",
			"tba":false,
			"background_image":"http://example.com/bg.jpg",
			"website":"http://example.com",
			"description_raw":"An open world game.",
			"metacritic":92,
			"ratings_count":6500,
			"parent_game_id":null,
			"platforms":[{"platform":{"name":"PC","released_at":"2015-04-14"}}],
			"genres":[{"name":"Action"}],
			"tags":[{"name":"Open World"}],
			"short_screenshots":[{"image":"http://example.com/shot.jpg"}],
			"clip_url":"http://example.com/clip.mp4",
			"developers":[{"name":"Rockstar North"}],
			"publishers":[{"name":"Rockstar Games"}]
		}`)
	}))
	defer server.Close()

	meta := NewMeta(server.URL, "", nil)
	raw, err := meta.FetchOne(context.Background(), 3498)
	require.NoError(t, err)
	require.Equal(t, contracts.SourceMeta, raw.Source)
	require.Equal(t, int64(3498), *raw.MetaGameID)
	require.Equal(t, "Grand Theft Auto V", raw.Name)
	require.Equal(t, 92, *raw.MetacriticScore)
	require.Equal(t, int64(6500), *raw.ReviewCount)
	require.Nil(t, raw.MetaParentGameID)
	require.Equal(t, []string{"Action"}, raw.Genres)
	require.Equal(t, []string{"Open World"}, raw.Tags)
	require.Equal(t, []string{"PC"}, raw.MetaPlatforms)
	require.Len(t, raw.Releases, 1)
	require.Equal(t, "PC", raw.Releases[0].Platform)
	require.Equal(t, "http://example.com/clip.mp4", *raw.VideoURL)
	require.Len(t, raw.Companies, 2)
}

func TestMeta_FetchOne_NotFoundOn404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	meta := NewMeta(server.URL, "", nil)
	_, err := meta.FetchOne(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMeta_FetchMany_StopsOnNonNotFoundError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	meta := NewMeta(server.URL, "", nil)
	tr := newTransport(server.URL, "", nil)
	tr.sleep = noSleep
	meta.tr = tr

	records, err := meta.FetchMany(context.Background(), []int64{1, 2})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUpstream5xx)
	require.Empty(t, records)
}
