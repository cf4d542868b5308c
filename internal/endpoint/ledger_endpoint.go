package endpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
	"github.com/shopspring/decimal"
)

// LedgerEndpoints holds all endpoints for the campaign ledger service
type LedgerEndpoints struct {
	AddAssetEndpoint         endpoint.Endpoint
	ListAssetsEndpoint       endpoint.Endpoint
	CreateCampaignEndpoint   endpoint.Endpoint
	ListCampaignsEndpoint    endpoint.Endpoint
	InitialDepositEndpoint   endpoint.Endpoint
	DepositMoreEndpoint      endpoint.Endpoint
	SubmitEngagementEndpoint endpoint.Endpoint
	WithdrawRewardsEndpoint  endpoint.Endpoint
	BlacklistUserEndpoint    endpoint.Endpoint
	RemoveBlacklistEndpoint  endpoint.Endpoint
	PauseEndpoint            endpoint.Endpoint
	ResumeEndpoint           endpoint.Endpoint
	CancelEndpoint           endpoint.Endpoint
	CompleteEndpoint         endpoint.Endpoint
	GetStatsEndpoint         endpoint.Endpoint
	GetMilestonesEndpoint    endpoint.Endpoint
	GetUserStatsEndpoint     endpoint.Endpoint
	CalculateRewardsEndpoint endpoint.Endpoint
	ListOperationsEndpoint   endpoint.Endpoint
}

// MakeLedgerEndpoints creates endpoints for the ledger service
func MakeLedgerEndpoints(s service.CampaignLedgerService) LedgerEndpoints {
	return LedgerEndpoints{
		AddAssetEndpoint:         makeAddAssetEndpoint(s),
		ListAssetsEndpoint:       makeListAssetsEndpoint(s),
		CreateCampaignEndpoint:   makeCreateCampaignEndpoint(s),
		ListCampaignsEndpoint:    makeListCampaignsEndpoint(s),
		InitialDepositEndpoint:   makeDepositEndpoint(s.InitialDeposit),
		DepositMoreEndpoint:      makeDepositEndpoint(s.DepositMore),
		SubmitEngagementEndpoint: makeSubmitEngagementEndpoint(s),
		WithdrawRewardsEndpoint:  makeParticipantEndpoint(s.WithdrawRewards),
		BlacklistUserEndpoint:    makeBlacklistUserEndpoint(s),
		RemoveBlacklistEndpoint:  makeParticipantEndpoint(s.RemoveFromBlacklist),
		PauseEndpoint:            makeLifecycleEndpoint(s.EmergencyPause),
		ResumeEndpoint:           makeLifecycleEndpoint(s.ResumeCampaign),
		CancelEndpoint:           makeLifecycleEndpoint(s.CancelCampaign),
		CompleteEndpoint:         makeLifecycleEndpoint(s.CompleteCampaign),
		GetStatsEndpoint:         makeGetStatsEndpoint(s),
		GetMilestonesEndpoint:    makeGetMilestonesEndpoint(s),
		GetUserStatsEndpoint:     makeGetUserStatsEndpoint(s),
		CalculateRewardsEndpoint: makeCalculateRewardsEndpoint(s),
		ListOperationsEndpoint:   makeListOperationsEndpoint(s),
	}
}

// MutationRequest identifies who runs which operation on a campaign
type MutationRequest struct {
	Caller      models.Caller
	OperationID string
	CampaignID  string
}

// AddAssetRequest allow-lists an asset
type AddAssetRequest struct {
	Caller models.Caller
	Asset  string
}

// CreateCampaignRequest creates a campaign
type CreateCampaignRequest struct {
	Caller      models.Caller
	OperationID string
	Campaign    models.CreateCampaignRequest
}

// DepositRequest moves brand funds into the pool
type DepositRequest struct {
	MutationRequest
	Amount decimal.Decimal
}

// EngagementRequest submits a verified engagement score
type EngagementRequest struct {
	MutationRequest
	Engagement models.EngagementRequest
}

// ParticipantRequest targets one participant of a campaign
type ParticipantRequest struct {
	MutationRequest
	Participant string
}

// BlacklistRequest flags a participant
type BlacklistRequest struct {
	MutationRequest
	Blacklist models.BlacklistRequest
}

// CampaignRequest reads one campaign
type CampaignRequest struct {
	CampaignID string
}

// UserRequest reads one participant of a campaign
type UserRequest struct {
	CampaignID  string
	Participant string
}

// ErrorResponse carries only an outcome
type ErrorResponse struct {
	Err error `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r ErrorResponse) Failed() error { return r.Err }

// AssetsResponse lists supported assets
type AssetsResponse struct {
	Assets []string `json:"assets"`
	Err    error    `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r AssetsResponse) Failed() error { return r.Err }

// CreateCampaignResponse carries the new campaign id and its receipt
type CreateCampaignResponse struct {
	models.CreateCampaignResponse
	Err error `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r CreateCampaignResponse) Failed() error { return r.Err }

// ListCampaignsResponse lists active campaigns
type ListCampaignsResponse struct {
	models.CampaignListResponse
	Err error `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r ListCampaignsResponse) Failed() error { return r.Err }

// ReceiptResponse is returned by every campaign mutation
type ReceiptResponse struct {
	Receipt models.OperationReceipt `json:"receipt"`
	Err     error                   `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r ReceiptResponse) Failed() error { return r.Err }

// StatsResponse carries the campaign dashboard projection
type StatsResponse struct {
	models.CampaignStats
	Err error `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r StatsResponse) Failed() error { return r.Err }

// MilestonesResponse carries the milestone table
type MilestonesResponse struct {
	Milestones []models.Milestone `json:"milestones"`
	Err        error              `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r MilestonesResponse) Failed() error { return r.Err }

// UserStatsResponse carries one participant's record
type UserStatsResponse struct {
	models.UserStatsResponse
	Err error `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r UserStatsResponse) Failed() error { return r.Err }

// RewardResponse carries a calculateRewards result
type RewardResponse struct {
	models.RewardResponse
	Err error `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r RewardResponse) Failed() error { return r.Err }

// OperationsResponse carries the campaign's operation journal
type OperationsResponse struct {
	Operations []models.OperationReceipt `json:"operations"`
	Err        error                     `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r OperationsResponse) Failed() error { return r.Err }

func makeAddAssetEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(AddAssetRequest)
		err := s.AddSupportedAsset(ctx, req.Caller, req.Asset)
		return ErrorResponse{Err: err}, nil
	}
}

func makeListAssetsEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		assets, err := s.SupportedAssets(ctx)
		return AssetsResponse{Assets: assets, Err: err}, nil
	}
}

func makeCreateCampaignEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CreateCampaignRequest)
		resp, err := s.CreateCampaign(ctx, req.Caller, req.OperationID, req.Campaign)
		return CreateCampaignResponse{CreateCampaignResponse: resp, Err: err}, nil
	}
}

func makeListCampaignsEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		list, err := s.ListCampaigns(ctx)
		return ListCampaignsResponse{CampaignListResponse: list, Err: err}, nil
	}
}

type depositFunc func(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error)

func makeDepositEndpoint(deposit depositFunc) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(DepositRequest)
		rec, err := deposit(ctx, req.Caller, req.OperationID, req.CampaignID, req.Amount)
		return ReceiptResponse{Receipt: rec, Err: err}, nil
	}
}

func makeSubmitEngagementEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(EngagementRequest)
		rec, err := s.SubmitEngagement(ctx, req.Caller, req.OperationID, req.CampaignID, req.Engagement)
		return ReceiptResponse{Receipt: rec, Err: err}, nil
	}
}

type participantFunc func(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (models.OperationReceipt, error)

func makeParticipantEndpoint(call participantFunc) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(ParticipantRequest)
		rec, err := call(ctx, req.Caller, req.OperationID, req.CampaignID, req.Participant)
		return ReceiptResponse{Receipt: rec, Err: err}, nil
	}
}

func makeBlacklistUserEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(BlacklistRequest)
		rec, err := s.BlacklistUser(ctx, req.Caller, req.OperationID, req.CampaignID, req.Blacklist)
		return ReceiptResponse{Receipt: rec, Err: err}, nil
	}
}

type lifecycleFunc func(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error)

func makeLifecycleEndpoint(call lifecycleFunc) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(MutationRequest)
		rec, err := call(ctx, req.Caller, req.OperationID, req.CampaignID)
		return ReceiptResponse{Receipt: rec, Err: err}, nil
	}
}

func makeGetStatsEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CampaignRequest)
		stats, err := s.GetCampaignStats(ctx, req.CampaignID)
		return StatsResponse{CampaignStats: stats, Err: err}, nil
	}
}

func makeGetMilestonesEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CampaignRequest)
		milestones, err := s.GetMilestones(ctx, req.CampaignID)
		return MilestonesResponse{Milestones: milestones, Err: err}, nil
	}
}

func makeGetUserStatsEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(UserRequest)
		stats, err := s.GetUserStats(ctx, req.CampaignID, req.Participant)
		return UserStatsResponse{UserStatsResponse: stats, Err: err}, nil
	}
}

func makeCalculateRewardsEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(UserRequest)
		reward, err := s.CalculateRewards(ctx, req.CampaignID, req.Participant)
		return RewardResponse{RewardResponse: reward, Err: err}, nil
	}
}

func makeListOperationsEndpoint(s service.CampaignLedgerService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CampaignRequest)
		ops, err := s.ListOperations(ctx, req.CampaignID)
		return OperationsResponse{Operations: ops, Err: err}, nil
	}
}

// GetCampaignStats is a helper method to call the stats endpoint
func (e LedgerEndpoints) GetCampaignStats(ctx context.Context, campaignID string) (models.CampaignStats, error) {
	response, err := e.GetStatsEndpoint(ctx, CampaignRequest{CampaignID: campaignID})
	if err != nil {
		return models.CampaignStats{}, err
	}
	resp := response.(StatsResponse)
	return resp.CampaignStats, resp.Err
}
