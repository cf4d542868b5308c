package middleware

import (
	"context"
	"time"

	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
	"github.com/shopspring/decimal"
)

// serviceMetricsMiddleware records ledger mutation outcomes and publishes
// pool balances. Reads pass straight through.
type serviceMetricsMiddleware struct {
	service.CampaignLedgerService
	metrics *metrics.Metrics
}

// NewServiceMetricsMiddleware creates a new service metrics middleware
func NewServiceMetricsMiddleware(m *metrics.Metrics) func(service.CampaignLedgerService) service.CampaignLedgerService {
	return func(next service.CampaignLedgerService) service.CampaignLedgerService {
		return &serviceMetricsMiddleware{
			CampaignLedgerService: next,
			metrics:               m,
		}
	}
}

// resultLabel is "ok" or the error kind
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(models.KindOf(err))
}

func (mw *serviceMetricsMiddleware) observe(op models.Operation, begin time.Time, rec models.OperationReceipt, err error) {
	mw.metrics.RecordLedgerOperation(string(op), resultLabel(err), time.Since(begin).Seconds())
	if err == nil && rec.CampaignID != "" {
		mw.metrics.SetPoolBalance(rec.CampaignID, rec.PoolBalance.InexactFloat64())
	}
}

func (mw *serviceMetricsMiddleware) CreateCampaign(ctx context.Context, caller models.Caller, opID string, req models.CreateCampaignRequest) (resp models.CreateCampaignResponse, err error) {
	defer func(begin time.Time) { mw.observe(models.OpCreateCampaign, begin, resp.Receipt, err) }(time.Now())
	return mw.CampaignLedgerService.CreateCampaign(ctx, caller, opID, req)
}

func (mw *serviceMetricsMiddleware) InitialDeposit(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpInitialDeposit, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.InitialDeposit(ctx, caller, opID, campaignID, amount)
}

func (mw *serviceMetricsMiddleware) DepositMore(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpDepositMore, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.DepositMore(ctx, caller, opID, campaignID, amount)
}

func (mw *serviceMetricsMiddleware) SubmitEngagement(ctx context.Context, caller models.Caller, opID, campaignID string, req models.EngagementRequest) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpSubmitEngagement, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.SubmitEngagement(ctx, caller, opID, campaignID, req)
}

func (mw *serviceMetricsMiddleware) WithdrawRewards(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpWithdrawRewards, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.WithdrawRewards(ctx, caller, opID, campaignID, participant)
}

func (mw *serviceMetricsMiddleware) BlacklistUser(ctx context.Context, caller models.Caller, opID, campaignID string, req models.BlacklistRequest) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpBlacklistUser, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.BlacklistUser(ctx, caller, opID, campaignID, req)
}

func (mw *serviceMetricsMiddleware) RemoveFromBlacklist(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpRemoveFromBlacklist, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.RemoveFromBlacklist(ctx, caller, opID, campaignID, participant)
}

func (mw *serviceMetricsMiddleware) EmergencyPause(ctx context.Context, caller models.Caller, opID, campaignID string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpEmergencyPause, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.EmergencyPause(ctx, caller, opID, campaignID)
}

func (mw *serviceMetricsMiddleware) ResumeCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpResumeCampaign, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.ResumeCampaign(ctx, caller, opID, campaignID)
}

func (mw *serviceMetricsMiddleware) CancelCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpCancelCampaign, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.CancelCampaign(ctx, caller, opID, campaignID)
}

func (mw *serviceMetricsMiddleware) CompleteCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) { mw.observe(models.OpCompleteCampaign, begin, rec, err) }(time.Now())
	return mw.CampaignLedgerService.CompleteCampaign(ctx, caller, opID, campaignID)
}
