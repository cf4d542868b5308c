package endpoint

import (
	"context"
	"testing"

	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLedgerService mocks the service methods these tests call; the
// embedded interface panics on anything else.
type MockLedgerService struct {
	mock.Mock
	service.CampaignLedgerService
}

func (m *MockLedgerService) AddSupportedAsset(ctx context.Context, caller models.Caller, asset string) error {
	return m.Called(ctx, caller, asset).Error(0)
}

func (m *MockLedgerService) CreateCampaign(ctx context.Context, caller models.Caller, opID string, req models.CreateCampaignRequest) (models.CreateCampaignResponse, error) {
	args := m.Called(ctx, caller, opID, req)
	return args.Get(0).(models.CreateCampaignResponse), args.Error(1)
}

func (m *MockLedgerService) InitialDeposit(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error) {
	args := m.Called(ctx, caller, opID, campaignID, amount)
	return args.Get(0).(models.OperationReceipt), args.Error(1)
}

func (m *MockLedgerService) DepositMore(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error) {
	args := m.Called(ctx, caller, opID, campaignID, amount)
	return args.Get(0).(models.OperationReceipt), args.Error(1)
}

func (m *MockLedgerService) WithdrawRewards(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (models.OperationReceipt, error) {
	args := m.Called(ctx, caller, opID, campaignID, participant)
	return args.Get(0).(models.OperationReceipt), args.Error(1)
}

func (m *MockLedgerService) CancelCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	args := m.Called(ctx, caller, opID, campaignID)
	return args.Get(0).(models.OperationReceipt), args.Error(1)
}

func (m *MockLedgerService) GetCampaignStats(ctx context.Context, campaignID string) (models.CampaignStats, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(models.CampaignStats), args.Error(1)
}

func (m *MockLedgerService) CalculateRewards(ctx context.Context, campaignID, participant string) (models.RewardResponse, error) {
	args := m.Called(ctx, campaignID, participant)
	return args.Get(0).(models.RewardResponse), args.Error(1)
}

func TestMakeLedgerEndpoints(t *testing.T) {
	endpoints := MakeLedgerEndpoints(&MockLedgerService{})

	assert.NotNil(t, endpoints.AddAssetEndpoint)
	assert.NotNil(t, endpoints.CreateCampaignEndpoint)
	assert.NotNil(t, endpoints.InitialDepositEndpoint)
	assert.NotNil(t, endpoints.SubmitEngagementEndpoint)
	assert.NotNil(t, endpoints.CompleteEndpoint)
	assert.NotNil(t, endpoints.ListOperationsEndpoint)
}

func TestCreateCampaignEndpoint(t *testing.T) {
	svc := &MockLedgerService{}
	endpoints := MakeLedgerEndpoints(svc)
	caller := models.Brand("nike")
	campaign := models.CreateCampaignRequest{Brand: "nike", RewardAsset: "USDC", TotalBudget: decimal.NewFromInt(10_000)}

	svc.On("CreateCampaign", mock.Anything, caller, "op-1", campaign).
		Return(models.CreateCampaignResponse{CampaignID: "c1"}, nil)

	response, err := endpoints.CreateCampaignEndpoint(context.Background(), CreateCampaignRequest{
		Caller: caller, OperationID: "op-1", Campaign: campaign,
	})

	require.NoError(t, err)
	resp := response.(CreateCampaignResponse)
	assert.Equal(t, "c1", resp.CampaignID)
	assert.NoError(t, resp.Failed())
	svc.AssertExpectations(t)
}

func TestDepositEndpoints_RouteToTheRightOperation(t *testing.T) {
	svc := &MockLedgerService{}
	endpoints := MakeLedgerEndpoints(svc)
	caller := models.Brand("nike")
	amount := decimal.NewFromInt(1_500)
	req := DepositRequest{
		MutationRequest: MutationRequest{Caller: caller, OperationID: "op-1", CampaignID: "c1"},
		Amount:          amount,
	}

	svc.On("InitialDeposit", mock.Anything, caller, "op-1", "c1", amount).
		Return(models.OperationReceipt{Operation: models.OpInitialDeposit}, nil).Once()
	svc.On("DepositMore", mock.Anything, caller, "op-1", "c1", amount).
		Return(models.OperationReceipt{}, models.ErrInvalidState).Once()

	response, err := endpoints.InitialDepositEndpoint(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.OpInitialDeposit, response.(ReceiptResponse).Receipt.Operation)

	response, err = endpoints.DepositMoreEndpoint(context.Background(), req)
	require.NoError(t, err, "business errors travel in the response")
	assert.ErrorIs(t, response.(ReceiptResponse).Failed(), models.ErrInvalidState)

	svc.AssertExpectations(t)
}

func TestParticipantAndLifecycleEndpoints(t *testing.T) {
	svc := &MockLedgerService{}
	endpoints := MakeLedgerEndpoints(svc)
	alice := models.Participant("alice")
	admin := models.Admin("ops")

	svc.On("WithdrawRewards", mock.Anything, alice, "w-1", "c1", "alice").
		Return(models.OperationReceipt{Amount: decimal.NewFromInt(500)}, nil)
	svc.On("CancelCampaign", mock.Anything, admin, "x-1", "c1").
		Return(models.OperationReceipt{State: models.StateCancelled}, nil)

	response, err := endpoints.WithdrawRewardsEndpoint(context.Background(), ParticipantRequest{
		MutationRequest: MutationRequest{Caller: alice, OperationID: "w-1", CampaignID: "c1"},
		Participant:     "alice",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(response.(ReceiptResponse).Receipt.Amount))

	response, err = endpoints.CancelEndpoint(context.Background(), MutationRequest{Caller: admin, OperationID: "x-1", CampaignID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, response.(ReceiptResponse).Receipt.State)

	svc.AssertExpectations(t)
}

func TestAddAssetEndpoint_Error(t *testing.T) {
	svc := &MockLedgerService{}
	endpoints := MakeLedgerEndpoints(svc)
	brand := models.Brand("nike")

	svc.On("AddSupportedAsset", mock.Anything, brand, "USDC").Return(models.ErrUnauthorized)

	response, err := endpoints.AddAssetEndpoint(context.Background(), AddAssetRequest{Caller: brand, Asset: "USDC"})
	require.NoError(t, err)
	assert.ErrorIs(t, response.(ErrorResponse).Failed(), models.ErrUnauthorized)
}

func TestReadEndpoints(t *testing.T) {
	svc := &MockLedgerService{}
	endpoints := MakeLedgerEndpoints(svc)

	svc.On("GetCampaignStats", mock.Anything, "c1").Return(models.CampaignStats{CampaignID: "c1", CurrentMilestone: 2}, nil)
	svc.On("GetCampaignStats", mock.Anything, "missing").Return(models.CampaignStats{}, models.ErrCampaignNotFound)
	svc.On("CalculateRewards", mock.Anything, "c1", "bob").
		Return(models.RewardResponse{CampaignID: "c1", Participant: "bob", Amount: decimal.NewFromInt(1_000)}, nil)

	stats, err := endpoints.GetCampaignStats(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CurrentMilestone)

	_, err = endpoints.GetCampaignStats(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrCampaignNotFound)

	response, err := endpoints.CalculateRewardsEndpoint(context.Background(), UserRequest{CampaignID: "c1", Participant: "bob"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1_000).Equal(response.(RewardResponse).Amount))
}
