package repository

import (
	"context"
	"testing"

	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedRepository_RecordsQueries(t *testing.T) {
	m := metrics.NewPrometheusMetrics(prometheus.NewRegistry())
	repo := NewInstrumentedRepository(NewMemoryRepository(), m)
	ctx := context.Background()

	require.NoError(t, repo.SaveCampaign(ctx, sampleSnapshot("c1", 1), receipt("op-1", "c1", models.OpCreateCampaign)))
	_, err := repo.ListOperations(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, repo.SaveSupportedAsset(ctx, "USDC"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseQueries.WithLabelValues("upsert", "campaigns")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseQueries.WithLabelValues("upsert", "operations")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseQueries.WithLabelValues("select", "operations")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseQueries.WithLabelValues("insert", "supported_assets")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DatabaseErrors.WithLabelValues("upsert", "query_error")))
}
