package repository

import (
	"context"

	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
)

// InstrumentedRepository wraps a repository with metrics collection
type InstrumentedRepository struct {
	next    service.Repository
	metrics *metrics.Metrics
}

// NewInstrumentedRepository creates a new instrumented repository
func NewInstrumentedRepository(repo service.Repository, metrics *metrics.Metrics) service.Repository {
	return &InstrumentedRepository{
		next:    repo,
		metrics: metrics,
	}
}

func (r *InstrumentedRepository) record(operation string, err error, tables ...string) {
	for _, table := range tables {
		r.metrics.RecordDatabaseQuery(operation, table)
	}
	if err != nil {
		r.metrics.RecordDatabaseError(operation, "query_error")
	}
}

// SaveCampaign implements service.Repository with metrics
func (r *InstrumentedRepository) SaveCampaign(ctx context.Context, snapshot models.CampaignSnapshot, journal ...models.OperationReceipt) (err error) {
	defer func() {
		tables := []string{"campaigns", "milestones", "user_stats"}
		if len(journal) > 0 {
			tables = append(tables, "operations")
		}
		r.record("upsert", err, tables...)
	}()

	return r.next.SaveCampaign(ctx, snapshot, journal...)
}

// LoadCampaigns implements service.Repository with metrics
func (r *InstrumentedRepository) LoadCampaigns(ctx context.Context) (snapshots []models.CampaignSnapshot, err error) {
	defer func() {
		r.record("select", err, "campaigns", "milestones", "user_stats", "operations")
	}()

	return r.next.LoadCampaigns(ctx)
}

// ListOperations implements service.Repository with metrics
func (r *InstrumentedRepository) ListOperations(ctx context.Context, campaignID string) (ops []models.OperationReceipt, err error) {
	defer func() {
		r.record("select", err, "operations")
	}()

	return r.next.ListOperations(ctx, campaignID)
}

// SaveSupportedAsset implements service.Repository with metrics
func (r *InstrumentedRepository) SaveSupportedAsset(ctx context.Context, asset string) (err error) {
	defer func() {
		r.record("insert", err, "supported_assets")
	}()

	return r.next.SaveSupportedAsset(ctx, asset)
}

// LoadSupportedAssets implements service.Repository with metrics
func (r *InstrumentedRepository) LoadSupportedAssets(ctx context.Context) (assets []string, err error) {
	defer func() {
		r.record("select", err, "supported_assets")
	}()

	return r.next.LoadSupportedAssets(ctx)
}
