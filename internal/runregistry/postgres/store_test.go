package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecatalog/internal/contracts"
	registrypostgres "gamecatalog/internal/runregistry/postgres"
)

func TestStore_InsertGetUpdateRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	store := registrypostgres.NewStore(pool)

	started := time.Now().UTC().Truncate(time.Second)
	run := &contracts.PipelineRun{
		ID:           "run-abc",
		PipelineType: "refresh-window",
		Trigger:      "cron",
		Status:       contracts.RunStatusRunning,
		StartedAt:    started,
	}
	require.NoError(t, store.InsertRun(ctx, run))

	got, err := store.GetRun(ctx, "run-abc")
	require.NoError(t, err)
	assert.Equal(t, contracts.RunStatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)

	finished := started.Add(time.Minute)
	got.Status = contracts.RunStatusCompleted
	got.FinishedAt = &finished
	got.TotalItems = 5
	got.CompletedItems = 4
	got.FailedItems = 1
	got.SummaryMessage = "done"
	require.NoError(t, store.UpdateRun(ctx, got))

	updated, err := store.GetRun(ctx, "run-abc")
	require.NoError(t, err)
	assert.Equal(t, contracts.RunStatusCompleted, updated.Status)
	assert.Equal(t, 5, updated.TotalItems)
	assert.Equal(t, "done", updated.SummaryMessage)
	require.NotNil(t, updated.FinishedAt)

	item := &contracts.PipelineItem{
		ID:         "item-1",
		RunID:      "run-abc",
		TargetType: contracts.ItemTargetStore,
		TargetID:   "1245620",
		Action:     contracts.ItemActionCreated,
		Status:     contracts.ItemStatusSuccess,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.InsertItem(ctx, item))
}

func TestStore_GetRun_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := registrypostgres.NewStore(pool)
	_, err := store.GetRun(context.Background(), "does-not-exist")
	require.Error(t, err)
}
