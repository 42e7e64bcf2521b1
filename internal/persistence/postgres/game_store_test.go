package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/persistence"
	"gamecatalog/internal/persistence/postgres"
)

func TestGameStore_InsertFindUpdate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	txm := postgres.NewTxManager(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	var gameID int64
	err := txm.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
		id, err := repo.Games().Insert(ctx, &contracts.Game{
			StoreID:       ptr(int64(1245620)),
			Name:          "Elden Ring",
			OriginalName:  "Elden Ring",
			Slug:          "elden-ring",
			OriginalSlug:  "elden-ring",
			GameType:      contracts.GameTypeGame,
			ReleaseDate:   ptr(time.Date(2022, time.February, 25, 0, 0, 0, 0, time.UTC)),
			ReleaseStatus: contracts.ReleaseStatusReleased,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		gameID = id
		return err
	})
	require.NoError(t, err)
	require.NotZero(t, gameID)

	err = txm.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
		found, err := repo.Games().FindByStoreID(ctx, 1245620)
		require.NoError(t, err)
		require.Equal(t, gameID, found.ID)
		require.Equal(t, "Elden Ring", found.Name)

		bySlug, err := repo.Games().FindBySlug(ctx, "ELDEN-RING")
		require.NoError(t, err)
		require.Equal(t, gameID, bySlug.ID)

		found.PopularityScore = 80
		found.UpdatedAt = now.Add(time.Hour)
		require.NoError(t, repo.Games().Update(ctx, found))
		return nil
	})
	require.NoError(t, err)

	err = txm.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
		found, err := repo.Games().FindByStoreID(ctx, 1245620)
		require.NoError(t, err)
		require.Equal(t, 80, found.PopularityScore)

		_, err = repo.Games().FindByMetaID(ctx, 999)
		require.ErrorIs(t, err, persistence.ErrNotFound)

		exists, err := repo.Games().SlugExists(ctx, "elden-ring", nil)
		require.NoError(t, err)
		require.True(t, exists)

		excludeSelf, err := repo.Games().SlugExists(ctx, "elden-ring", &found.ID)
		require.NoError(t, err)
		require.False(t, excludeSelf)

		candidates, err := repo.Games().FindCandidatesByCompactName(ctx, "Elden Ring Deluxe", 10)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestCompanyStore_InsertDuplicateSlug(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	txm := postgres.NewTxManager(pool)
	ctx := context.Background()

	err := txm.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
		_, err := repo.Companies().Insert(ctx, &contracts.Company{Slug: "fromsoftware", Name: "FromSoftware", CreatedAt: time.Now().UTC()})
		return err
	})
	require.NoError(t, err)

	err = txm.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
		_, err := repo.Companies().Insert(ctx, &contracts.Company{Slug: "fromsoftware", Name: "FromSoftware K.K.", CreatedAt: time.Now().UTC()})
		return err
	})
	require.ErrorIs(t, err, persistence.ErrDuplicateKey)
}

func TestReleaseStore_UpsertIsIdempotentOnIdentity(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	txm := postgres.NewTxManager(pool)
	ctx := context.Background()

	var gameID int64
	err := txm.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
		id, err := repo.Games().Insert(ctx, &contracts.Game{
			StoreID: ptr(int64(1)), Name: "Hollow Knight", OriginalName: "Hollow Knight",
			Slug: "hollow-knight", OriginalSlug: "hollow-knight", GameType: contracts.GameTypeGame,
			ReleaseStatus: contracts.ReleaseStatusReleased, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		})
		gameID = id
		return err
	})
	require.NoError(t, err)

	upsert := func(priceCents int64) error {
		return txm.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
			return repo.Releases().Upsert(ctx, &contracts.GameRelease{
				GameID: gameID, Platform: contracts.PlatformPC, Store: contracts.StoreSteam,
				ReleaseStatus: contracts.ReleaseStatusReleased, PriceCents: ptr(priceCents),
			})
		})
	}
	require.NoError(t, upsert(1499))
	require.NoError(t, upsert(999))

	err = txm.WithTx(ctx, func(ctx context.Context, repo persistence.Repository) error {
		releases, err := repo.Releases().ListByGameID(ctx, gameID)
		require.NoError(t, err)
		require.Len(t, releases, 1)
		require.Equal(t, int64(999), *releases[0].PriceCents)
		return nil
	})
	require.NoError(t, err)
}
