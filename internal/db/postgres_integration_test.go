//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/content-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := Connect(ctx, dsn)
	if err != nil {
		t.Skipf("database not reachable: %v", err)
	}
	_, err = store.Migrate(ctx)
	require.NoError(t, err)
	return store
}

func TestPostgresStore_ClientLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	store := setupTestDB(t)
	defer store.Close()
	ctx := context.Background()

	email := "it-" + uuid.NewString() + "@example.com"
	created, err := store.CreateClient(ctx, sampleIntake("Integration", email, "Acme"))
	require.NoError(t, err)
	defer store.DeleteClient(ctx, created.ID) //nolint:errcheck

	_, err = store.CreateClient(ctx, sampleIntake("Again", email, ""))
	assert.True(t, IsDuplicateEmail(err))

	company := "Acme Holdings"
	updated, err := store.UpdateClient(ctx, created.ID, &types.ClientProfileUpdate{Company: &company})
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", updated.Company)
	assert.Equal(t, created.Name, updated.Name)

	page, err := store.ListClients(ctx, ClientListParams{Page: 1, PageSize: 10, Search: email})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestPostgresStore_PipelineRun_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	store := setupTestDB(t)
	defer store.Close()
	ctx := context.Background()

	client, err := store.CreateClient(ctx, sampleIntake("Runs", "runs-"+uuid.NewString()+"@example.com", ""))
	require.NoError(t, err)

	run, err := store.CreatePipelineRun(ctx, client.ID, types.StageContentGeneration, map[string]any{"prompt": "hi"})
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusPending, run.Status)

	require.NoError(t, store.FailPipelineRun(ctx, run.ID, "boom"))
	assert.ErrorIs(t, store.FailPipelineRun(ctx, run.ID, "again"), ErrRunAlreadyTerminal)

	runs, total, err := store.ListPipelineRuns(ctx, client.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunStatusFailed, runs[0].Status)

	require.NoError(t, store.DeleteClient(ctx, client.ID))
	_, err = store.GetPipelineRun(ctx, run.ID)
	assert.True(t, IsNotFound(err))

	_, err = store.CreatePipelineRun(ctx, client.ID, types.StageContentGeneration, nil)
	assert.True(t, IsNotFound(err))
}
