package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/prajwalbharadwajbm/clipescrow/internal/config"
	"github.com/prajwalbharadwajbm/clipescrow/internal/database"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to the database configured through DB_* when
// CLIPESCROW_POSTGRES_TESTS is set.
func newTestPostgres(t *testing.T) *database.DB {
	t.Helper()
	if os.Getenv("CLIPESCROW_POSTGRES_TESTS") == "" {
		t.Skip("set CLIPESCROW_POSTGRES_TESTS=1 to run postgres integration tests")
	}

	require.NoError(t, config.LoadConfigs())
	db, cleanup, err := database.Initialize(config.AppConfigInstance.DatabaseConfig, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return db
}

func TestPostgresRepository_RoundTrip(t *testing.T) {
	db := newTestPostgres(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	id := uuid.New().String()
	require.NoError(t, repo.SaveSupportedAsset(ctx, "USDC"))

	snap := sampleSnapshot(id, int64(uuid.New().ID()))
	deposit := receipt(uuid.New().String(), id, models.OpInitialDeposit)
	engage := receipt(uuid.New().String(), id, models.OpSubmitEngagement)
	engage.Unlocked = []int{0, 1}
	require.NoError(t, repo.SaveCampaign(ctx, snap, deposit, engage))

	snap.Campaign.PoolBalance = decimal.NewFromInt(900)
	snap.Users[0].Withdrawn = decimal.NewFromInt(600)
	require.NoError(t, repo.SaveCampaign(ctx, snap, deposit))

	snapshots, err := repo.LoadCampaigns(ctx)
	require.NoError(t, err)

	var loaded *models.CampaignSnapshot
	for i := range snapshots {
		if snapshots[i].Campaign.ID == id {
			loaded = &snapshots[i]
		}
	}
	require.NotNil(t, loaded)
	assert.True(t, decimal.NewFromInt(900).Equal(loaded.Campaign.PoolBalance))
	assert.True(t, decimal.NewFromInt(600).Equal(loaded.Users[0].Withdrawn))
	require.Len(t, loaded.Applied, 2)
	assert.Equal(t, []int{0, 1}, loaded.Applied[1].Unlocked)

	ops, err := repo.ListOperations(ctx, id)
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	assets, err := repo.LoadSupportedAssets(ctx)
	require.NoError(t, err)
	assert.Contains(t, assets, "USDC")
}

func TestPostgresRepository_JournalScopedToCampaign(t *testing.T) {
	db := newTestPostgres(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.SaveSupportedAsset(ctx, "USDC"))

	first, second := uuid.New().String(), uuid.New().String()
	require.NoError(t, repo.SaveCampaign(ctx, sampleSnapshot(first, int64(uuid.New().ID())), receipt("deposit-1", first, models.OpInitialDeposit)))
	require.NoError(t, repo.SaveCampaign(ctx, sampleSnapshot(second, int64(uuid.New().ID())), receipt("deposit-1", second, models.OpInitialDeposit)))

	for _, id := range []string{first, second} {
		ops, err := repo.ListOperations(ctx, id)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, id, ops[0].CampaignID)
	}
}
