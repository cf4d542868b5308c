package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
	"github.com/shopspring/decimal"
)

// CachedService serves campaign stats and milestones from the cache and
// drops a campaign's projections after every mutation of it.
//
// Each campaign carries an invalidation generation. A read that missed only
// stores what it fetched if no mutation finished in between, so a slow
// reader cannot put pre-mutation state back into the cache.
type CachedService struct {
	service.CampaignLedgerService
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  log.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

// NewCachedService wraps next with the projection cache
func NewCachedService(next service.CampaignLedgerService, cache Cache, ttl time.Duration, m *metrics.Metrics, logger log.Logger) service.CampaignLedgerService {
	return &CachedService{
		CampaignLedgerService: next,
		cache:                 cache,
		ttl:                   ttl,
		metrics:               m,
		logger:                log.With(logger, "component", "cache"),
		generations:           make(map[string]uint64),
	}
}

func (cs *CachedService) generation(campaignID string) uint64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.generations[campaignID]
}

// store runs set unless campaignID was invalidated since gen was taken.
// The check and the store happen under cs.mu, which invalidate also takes
// before dropping the entries.
func (cs *CachedService) store(campaignID string, gen uint64, set func() error) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.generations[campaignID] != gen {
		return nil
	}
	return set()
}

func (cs *CachedService) recordLookup(err error) {
	if cs.metrics == nil {
		return
	}
	if err != nil {
		cs.metrics.RecordCacheRequest("miss")
		return
	}
	cs.metrics.RecordCacheRequest("hit")
}

// GetCampaignStats retrieves stats from cache first, then the ledger
func (cs *CachedService) GetCampaignStats(ctx context.Context, campaignID string) (models.CampaignStats, error) {
	stats, err := cs.cache.GetCampaignStats(ctx, campaignID)
	cs.recordLookup(err)
	if err == nil {
		return stats, nil
	}

	gen := cs.generation(campaignID)
	stats, err = cs.CampaignLedgerService.GetCampaignStats(ctx, campaignID)
	if err != nil {
		return models.CampaignStats{}, err
	}
	err = cs.store(campaignID, gen, func() error {
		return cs.cache.SetCampaignStats(ctx, stats, cs.ttl)
	})
	if err != nil {
		level.Warn(cs.logger).Log("msg", "failed to cache stats", "campaign_id", campaignID, "error", err)
	}
	return stats, nil
}

// GetMilestones retrieves milestones from cache first, then the ledger
func (cs *CachedService) GetMilestones(ctx context.Context, campaignID string) ([]models.Milestone, error) {
	milestones, err := cs.cache.GetMilestones(ctx, campaignID)
	cs.recordLookup(err)
	if err == nil {
		return milestones, nil
	}

	gen := cs.generation(campaignID)
	milestones, err = cs.CampaignLedgerService.GetMilestones(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	err = cs.store(campaignID, gen, func() error {
		return cs.cache.SetMilestones(ctx, campaignID, milestones, cs.ttl)
	})
	if err != nil {
		level.Warn(cs.logger).Log("msg", "failed to cache milestones", "campaign_id", campaignID, "error", err)
	}
	return milestones, nil
}

// invalidate runs after every campaign mutation, failed ones included:
// a mutation that failed to persist has still been applied in memory.
func (cs *CachedService) invalidate(ctx context.Context, campaignID string, rec models.OperationReceipt, err error) (models.OperationReceipt, error) {
	cs.mu.Lock()
	cs.generations[campaignID]++
	cs.mu.Unlock()

	if cerr := cs.cache.Invalidate(ctx, campaignID); cerr != nil {
		level.Warn(cs.logger).Log("msg", "failed to invalidate cache", "campaign_id", campaignID, "error", cerr)
	}
	return rec, err
}

// InitialDeposit implements service.CampaignLedgerService
func (cs *CachedService) InitialDeposit(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.InitialDeposit(ctx, caller, opID, campaignID, amount)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// DepositMore implements service.CampaignLedgerService
func (cs *CachedService) DepositMore(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.DepositMore(ctx, caller, opID, campaignID, amount)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// SubmitEngagement implements service.CampaignLedgerService
func (cs *CachedService) SubmitEngagement(ctx context.Context, caller models.Caller, opID, campaignID string, req models.EngagementRequest) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.SubmitEngagement(ctx, caller, opID, campaignID, req)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// WithdrawRewards implements service.CampaignLedgerService
func (cs *CachedService) WithdrawRewards(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.WithdrawRewards(ctx, caller, opID, campaignID, participant)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// BlacklistUser implements service.CampaignLedgerService
func (cs *CachedService) BlacklistUser(ctx context.Context, caller models.Caller, opID, campaignID string, req models.BlacklistRequest) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.BlacklistUser(ctx, caller, opID, campaignID, req)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// RemoveFromBlacklist implements service.CampaignLedgerService
func (cs *CachedService) RemoveFromBlacklist(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.RemoveFromBlacklist(ctx, caller, opID, campaignID, participant)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// EmergencyPause implements service.CampaignLedgerService
func (cs *CachedService) EmergencyPause(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.EmergencyPause(ctx, caller, opID, campaignID)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// ResumeCampaign implements service.CampaignLedgerService
func (cs *CachedService) ResumeCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.ResumeCampaign(ctx, caller, opID, campaignID)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// CancelCampaign implements service.CampaignLedgerService
func (cs *CachedService) CancelCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.CancelCampaign(ctx, caller, opID, campaignID)
	return cs.invalidate(ctx, campaignID, rec, err)
}

// CompleteCampaign implements service.CampaignLedgerService
func (cs *CachedService) CompleteCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	rec, err := cs.CampaignLedgerService.CompleteCampaign(ctx, caller, opID, campaignID)
	return cs.invalidate(ctx, campaignID, rec, err)
}
