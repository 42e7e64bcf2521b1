package runregistry_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecatalog/internal/contracts"
	"gamecatalog/internal/runregistry"
	"gamecatalog/internal/runregistry/memory"
)

func TestRegistry_BeginRecordFinalize(t *testing.T) {
	store := memory.NewStore()
	var seq int
	reg := runregistry.NewRegistry(store,
		func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
		func() string { seq++; return "id-" + strconv.Itoa(seq) },
	)
	ctx := context.Background()

	runID, err := reg.BeginRun(ctx, "ingest-new", "manual")
	require.NoError(t, err)
	assert.Equal(t, "id-1", runID)

	require.NoError(t, reg.RecordItem(ctx, runID, contracts.ItemTargetStore, "1245620", contracts.ItemActionCreated, contracts.ItemStatusSuccess, ""))
	require.NoError(t, reg.RecordItem(ctx, runID, contracts.ItemTargetStore, "99", contracts.ItemActionSkipped, contracts.ItemStatusFailed, "validation_failed"))

	items := store.ItemsFor(runID)
	require.Len(t, items, 2)
	assert.Equal(t, contracts.ItemActionCreated, items[0].Action)
	assert.Equal(t, "validation_failed", items[1].Reason)

	err = reg.FinalizeRun(ctx, runID, contracts.RunStatusCompleted, contracts.RunCounters{TotalItems: 2, CompletedItems: 1, FailedItems: 1}, "ok")
	require.NoError(t, err)

	run, err := reg.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, contracts.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.TotalItems)
	assert.Equal(t, 1, run.FailedItems)
	require.NotNil(t, run.FinishedAt)
}

func TestRegistry_FinalizeUnknownRun_ReturnsNotFound(t *testing.T) {
	store := memory.NewStore()
	reg := runregistry.NewRegistry(store, nil, nil)

	err := reg.FinalizeRun(context.Background(), "missing", contracts.RunStatusFailed, contracts.RunCounters{}, "boom")
	require.Error(t, err)
}
