package middleware

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	reqcontext "github.com/prajwalbharadwajbm/clipescrow/internal/context"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
	"github.com/shopspring/decimal"
)

// loggingMiddleware logs every ledger call with its caller and outcome
type loggingMiddleware struct {
	logger log.Logger
	next   service.CampaignLedgerService
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger log.Logger) func(service.CampaignLedgerService) service.CampaignLedgerService {
	return func(next service.CampaignLedgerService) service.CampaignLedgerService {
		return &loggingMiddleware{
			logger: logger,
			next:   next,
		}
	}
}

// log writes one line per call. Ledger rejections are expected traffic and
// log at info; custodian, persistence and unknown failures log at error.
func (mw *loggingMiddleware) log(ctx context.Context, method, campaignID string, begin time.Time, err error, kv ...any) {
	// Build log fields
	fields := []any{
		"method", method,
		"request_id", reqcontext.GetRequestID(ctx),
		"took", time.Since(begin),
	}
	if campaignID != "" {
		fields = append(fields, "campaign_id", campaignID)
	}
	if remoteAddr := reqcontext.GetRemoteAddr(ctx); remoteAddr != "" {
		fields = append(fields, "remote_addr", remoteAddr)
	}
	fields = append(fields, kv...)

	// Add error information if present
	logger := level.Info(mw.logger)
	if err != nil {
		fields = append(fields, "error", err.Error(), "kind", models.KindOf(err), "success", false)
		if models.Retryable(err) || models.KindOf(err) == models.KindInternal {
			logger = level.Error(mw.logger)
		}
	} else {
		fields = append(fields, "success", true)
	}
	logger.Log(fields...)
}

func callerFields(caller models.Caller, opID string) []any {
	return []any{"caller", caller.ID, "role", caller.Role, "operation_id", opID}
}

func (mw *loggingMiddleware) AddSupportedAsset(ctx context.Context, caller models.Caller, asset string) (err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "AddSupportedAsset", "", begin, err, "caller", caller.ID, "asset", asset)
	}(time.Now())
	return mw.next.AddSupportedAsset(ctx, caller, asset)
}

func (mw *loggingMiddleware) SupportedAssets(ctx context.Context) (assets []string, err error) {
	defer func(begin time.Time) {
		level.Debug(mw.logger).Log("method", "SupportedAssets", "count", len(assets), "took", time.Since(begin))
	}(time.Now())
	return mw.next.SupportedAssets(ctx)
}

func (mw *loggingMiddleware) CreateCampaign(ctx context.Context, caller models.Caller, opID string, req models.CreateCampaignRequest) (resp models.CreateCampaignResponse, err error) {
	defer func(begin time.Time) {
		kv := append(callerFields(caller, opID),
			"brand", req.Brand,
			"asset", req.RewardAsset,
			"budget", req.TotalBudget,
		)
		mw.log(ctx, "CreateCampaign", resp.CampaignID, begin, err, kv...)
	}(time.Now())
	return mw.next.CreateCampaign(ctx, caller, opID, req)
}

func (mw *loggingMiddleware) ListCampaigns(ctx context.Context) (resp models.CampaignListResponse, err error) {
	defer func(begin time.Time) {
		level.Debug(mw.logger).Log("method", "ListCampaigns", "active", len(resp.Campaigns), "took", time.Since(begin))
	}(time.Now())
	return mw.next.ListCampaigns(ctx)
}

func (mw *loggingMiddleware) InitialDeposit(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "InitialDeposit", campaignID, begin, err, append(callerFields(caller, opID), "amount", amount)...)
	}(time.Now())
	return mw.next.InitialDeposit(ctx, caller, opID, campaignID, amount)
}

func (mw *loggingMiddleware) DepositMore(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "DepositMore", campaignID, begin, err, append(callerFields(caller, opID), "amount", amount)...)
	}(time.Now())
	return mw.next.DepositMore(ctx, caller, opID, campaignID, amount)
}

func (mw *loggingMiddleware) SubmitEngagement(ctx context.Context, caller models.Caller, opID, campaignID string, req models.EngagementRequest) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		kv := append(callerFields(caller, opID),
			"participant", req.Participant,
			"score", req.Score,
			"unlocked", len(rec.Unlocked),
		)
		mw.log(ctx, "SubmitEngagement", campaignID, begin, err, kv...)
	}(time.Now())
	return mw.next.SubmitEngagement(ctx, caller, opID, campaignID, req)
}

func (mw *loggingMiddleware) WithdrawRewards(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		kv := append(callerFields(caller, opID), "participant", participant, "amount", rec.Amount)
		mw.log(ctx, "WithdrawRewards", campaignID, begin, err, kv...)
	}(time.Now())
	return mw.next.WithdrawRewards(ctx, caller, opID, campaignID, participant)
}

func (mw *loggingMiddleware) BlacklistUser(ctx context.Context, caller models.Caller, opID, campaignID string, req models.BlacklistRequest) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		kv := append(callerFields(caller, opID), "participant", req.Participant, "reason", req.Reason)
		mw.log(ctx, "BlacklistUser", campaignID, begin, err, kv...)
	}(time.Now())
	return mw.next.BlacklistUser(ctx, caller, opID, campaignID, req)
}

func (mw *loggingMiddleware) RemoveFromBlacklist(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "RemoveFromBlacklist", campaignID, begin, err, append(callerFields(caller, opID), "participant", participant)...)
	}(time.Now())
	return mw.next.RemoveFromBlacklist(ctx, caller, opID, campaignID, participant)
}

func (mw *loggingMiddleware) EmergencyPause(ctx context.Context, caller models.Caller, opID, campaignID string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "EmergencyPause", campaignID, begin, err, callerFields(caller, opID)...)
	}(time.Now())
	return mw.next.EmergencyPause(ctx, caller, opID, campaignID)
}

func (mw *loggingMiddleware) ResumeCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "ResumeCampaign", campaignID, begin, err, callerFields(caller, opID)...)
	}(time.Now())
	return mw.next.ResumeCampaign(ctx, caller, opID, campaignID)
}

func (mw *loggingMiddleware) CancelCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "CancelCampaign", campaignID, begin, err, append(callerFields(caller, opID), "refunded", rec.Amount)...)
	}(time.Now())
	return mw.next.CancelCampaign(ctx, caller, opID, campaignID)
}

func (mw *loggingMiddleware) CompleteCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (rec models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "CompleteCampaign", campaignID, begin, err, callerFields(caller, opID)...)
	}(time.Now())
	return mw.next.CompleteCampaign(ctx, caller, opID, campaignID)
}

// Reads log at debug; dashboards poll them.

func (mw *loggingMiddleware) GetCampaignStats(ctx context.Context, campaignID string) (stats models.CampaignStats, err error) {
	defer func(begin time.Time) {
		level.Debug(mw.logger).Log("method", "GetCampaignStats", "campaign_id", campaignID, "took", time.Since(begin), "err", err)
	}(time.Now())
	return mw.next.GetCampaignStats(ctx, campaignID)
}

func (mw *loggingMiddleware) GetMilestones(ctx context.Context, campaignID string) (milestones []models.Milestone, err error) {
	defer func(begin time.Time) {
		level.Debug(mw.logger).Log("method", "GetMilestones", "campaign_id", campaignID, "took", time.Since(begin), "err", err)
	}(time.Now())
	return mw.next.GetMilestones(ctx, campaignID)
}

func (mw *loggingMiddleware) GetUserStats(ctx context.Context, campaignID, participant string) (stats models.UserStatsResponse, err error) {
	defer func(begin time.Time) {
		level.Debug(mw.logger).Log("method", "GetUserStats", "campaign_id", campaignID, "participant", participant, "took", time.Since(begin), "err", err)
	}(time.Now())
	return mw.next.GetUserStats(ctx, campaignID, participant)
}

func (mw *loggingMiddleware) CalculateRewards(ctx context.Context, campaignID, participant string) (resp models.RewardResponse, err error) {
	defer func(begin time.Time) {
		level.Debug(mw.logger).Log("method", "CalculateRewards", "campaign_id", campaignID, "participant", participant, "took", time.Since(begin), "err", err)
	}(time.Now())
	return mw.next.CalculateRewards(ctx, campaignID, participant)
}

func (mw *loggingMiddleware) ListOperations(ctx context.Context, campaignID string) (ops []models.OperationReceipt, err error) {
	defer func(begin time.Time) {
		level.Debug(mw.logger).Log("method", "ListOperations", "campaign_id", campaignID, "count", len(ops), "took", time.Since(begin), "err", err)
	}(time.Now())
	return mw.next.ListOperations(ctx, campaignID)
}
