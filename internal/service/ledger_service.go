package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prajwalbharadwajbm/clipescrow/internal/ledger"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/shopspring/decimal"
)

// CampaignLedgerService defines the escrow ledger operations exposed to
// transports. Every mutation takes the caller capability and an operation
// id; an empty id gets a generated one.
type CampaignLedgerService interface {
	AddSupportedAsset(ctx context.Context, caller models.Caller, asset string) error
	SupportedAssets(ctx context.Context) ([]string, error)
	CreateCampaign(ctx context.Context, caller models.Caller, opID string, req models.CreateCampaignRequest) (models.CreateCampaignResponse, error)
	ListCampaigns(ctx context.Context) (models.CampaignListResponse, error)

	InitialDeposit(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error)
	DepositMore(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error)
	SubmitEngagement(ctx context.Context, caller models.Caller, opID, campaignID string, req models.EngagementRequest) (models.OperationReceipt, error)
	WithdrawRewards(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (models.OperationReceipt, error)
	BlacklistUser(ctx context.Context, caller models.Caller, opID, campaignID string, req models.BlacklistRequest) (models.OperationReceipt, error)
	RemoveFromBlacklist(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (models.OperationReceipt, error)
	EmergencyPause(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error)
	ResumeCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error)
	CancelCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error)
	CompleteCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error)

	GetCampaignStats(ctx context.Context, campaignID string) (models.CampaignStats, error)
	GetMilestones(ctx context.Context, campaignID string) ([]models.Milestone, error)
	GetUserStats(ctx context.Context, campaignID, participant string) (models.UserStatsResponse, error)
	CalculateRewards(ctx context.Context, campaignID, participant string) (models.RewardResponse, error)
	ListOperations(ctx context.Context, campaignID string) ([]models.OperationReceipt, error)
}

// Repository persists campaign state and the operation journal
type Repository interface {
	// SaveCampaign stores the snapshot and appends journal receipts in one
	// unit. Receipts already journaled are skipped.
	SaveCampaign(ctx context.Context, snapshot models.CampaignSnapshot, journal ...models.OperationReceipt) error
	// LoadCampaigns returns every stored campaign with its journal in Applied
	LoadCampaigns(ctx context.Context) ([]models.CampaignSnapshot, error)
	ListOperations(ctx context.Context, campaignID string) ([]models.OperationReceipt, error)
	SaveSupportedAsset(ctx context.Context, asset string) error
	LoadSupportedAssets(ctx context.Context) ([]string, error)
}

// LedgerService runs ledger operations against the registry and persists
// the affected campaign after each one.
type LedgerService struct {
	registry   *ledger.Registry
	repository Repository
	newOpID    func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedgerService creates a new ledger service
func NewLedgerService(registry *ledger.Registry, repo Repository) *LedgerService {
	return &LedgerService{
		registry:   registry,
		repository: repo,
		newOpID:    func() string { return uuid.New().String() },
		locks:      make(map[string]*sync.Mutex),
	}
}

// Bootstrap restores supported assets and campaigns from the repository
// and allow-lists seed assets that are not stored yet.
func (s *LedgerService) Bootstrap(ctx context.Context, seedAssets []string) error {
	assets, err := s.repository.LoadSupportedAssets(ctx)
	if err != nil {
		return fmt.Errorf("%w: load assets: %w", models.ErrPersistence, err)
	}
	for _, a := range assets {
		s.registry.RestoreAsset(a)
	}

	snapshots, err := s.repository.LoadCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("%w: load campaigns: %w", models.ErrPersistence, err)
	}
	for _, snap := range snapshots {
		s.registry.Restore(snap)
	}

	for _, a := range seedAssets {
		a = models.NormalizeAsset(a)
		if a == "" || s.registry.IsSupportedAsset(a) {
			continue
		}
		if err := s.repository.SaveSupportedAsset(ctx, a); err != nil {
			return fmt.Errorf("%w: seed asset %s: %w", models.ErrPersistence, a, err)
		}
		s.registry.RestoreAsset(a)
	}
	return nil
}

func (s *LedgerService) opID(opID string) string {
	if opID = strings.TrimSpace(opID); opID != "" {
		return opID
	}
	return s.newOpID()
}

// campaignLock serializes persistence of one campaign so a stale snapshot
// never overwrites a newer one.
func (s *LedgerService) campaignLock(campaignID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[campaignID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[campaignID] = l
	}
	return l
}

// persist stores the campaign's current snapshot together with rec. The
// snapshot is taken under the campaign's persist lock, so it always
// includes rec's effects.
func (s *LedgerService) persist(ctx context.Context, l *ledger.CampaignLedger, rec models.OperationReceipt) error {
	lock := s.campaignLock(l.ID())
	lock.Lock()
	defer lock.Unlock()

	if err := s.repository.SaveCampaign(ctx, l.Snapshot(), rec); err != nil {
		return fmt.Errorf("%w: campaign %s operation %s: %w", models.ErrPersistence, l.ID(), rec.OperationID, err)
	}
	return nil
}

type ledgerCall func(l *ledger.CampaignLedger, opID string) (models.OperationReceipt, error)

func (s *LedgerService) mutate(ctx context.Context, campaignID, opID string, call ledgerCall) (models.OperationReceipt, error) {
	l, err := s.registry.Campaign(campaignID)
	if err != nil {
		return models.OperationReceipt{}, err
	}
	rec, err := call(l, s.opID(opID))
	if err != nil {
		return models.OperationReceipt{}, err
	}
	if err := s.persist(ctx, l, rec); err != nil {
		return models.OperationReceipt{}, err
	}
	return rec, nil
}

// AddSupportedAsset allow-lists asset and stores it
func (s *LedgerService) AddSupportedAsset(ctx context.Context, caller models.Caller, asset string) error {
	if err := s.registry.AddSupportedAsset(caller, asset); err != nil {
		return err
	}
	if err := s.repository.SaveSupportedAsset(ctx, models.NormalizeAsset(asset)); err != nil {
		return fmt.Errorf("%w: asset %s: %w", models.ErrPersistence, asset, err)
	}
	return nil
}

// SupportedAssets lists allow-listed assets
func (s *LedgerService) SupportedAssets(_ context.Context) ([]string, error) {
	return s.registry.SupportedAssets(), nil
}

// CreateCampaign creates a campaign and persists its initial state
func (s *LedgerService) CreateCampaign(ctx context.Context, caller models.Caller, opID string, req models.CreateCampaignRequest) (models.CreateCampaignResponse, error) {
	rec, err := s.registry.CreateCampaign(ctx, caller, s.opID(opID), req)
	if err != nil {
		return models.CreateCampaignResponse{}, err
	}
	l, err := s.registry.Campaign(rec.CampaignID)
	if err != nil {
		return models.CreateCampaignResponse{}, err
	}
	if err := s.persist(ctx, l, rec); err != nil {
		return models.CreateCampaignResponse{}, err
	}
	return models.CreateCampaignResponse{CampaignID: rec.CampaignID, Receipt: rec}, nil
}

// ListCampaigns returns the non-terminal campaigns and the total count
func (s *LedgerService) ListCampaigns(_ context.Context) (models.CampaignListResponse, error) {
	campaigns := s.registry.ListActiveCampaigns()
	if campaigns == nil {
		campaigns = []models.CampaignInfo{}
	}
	return models.CampaignListResponse{
		Campaigns: campaigns,
		Count:     s.registry.CampaignCount(),
	}, nil
}

// InitialDeposit records the brand's one-time deposit
func (s *LedgerService) InitialDeposit(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.InitialDeposit(ctx, caller, id, amount)
	})
}

// DepositMore tops up the pool
func (s *LedgerService) DepositMore(ctx context.Context, caller models.Caller, opID, campaignID string, amount decimal.Decimal) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.DepositMore(ctx, caller, id, amount)
	})
}

// SubmitEngagement records a verified engagement score
func (s *LedgerService) SubmitEngagement(ctx context.Context, caller models.Caller, opID, campaignID string, req models.EngagementRequest) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.SubmitEngagement(ctx, caller, id, req.Participant, req.Score, req.EvidenceRef)
	})
}

// WithdrawRewards pays out the participant's current reward
func (s *LedgerService) WithdrawRewards(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.WithdrawRewards(ctx, caller, id, participant)
	})
}

// BlacklistUser flags a participant
func (s *LedgerService) BlacklistUser(ctx context.Context, caller models.Caller, opID, campaignID string, req models.BlacklistRequest) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.BlacklistUser(ctx, caller, id, req.Participant, req.Reason)
	})
}

// RemoveFromBlacklist clears a participant's flag
func (s *LedgerService) RemoveFromBlacklist(ctx context.Context, caller models.Caller, opID, campaignID, participant string) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.RemoveFromBlacklist(ctx, caller, id, participant)
	})
}

// EmergencyPause pauses an active campaign
func (s *LedgerService) EmergencyPause(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.EmergencyPause(ctx, caller, id)
	})
}

// ResumeCampaign resumes a paused campaign
func (s *LedgerService) ResumeCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.ResumeCampaign(ctx, caller, id)
	})
}

// CancelCampaign refunds the pool and cancels
func (s *LedgerService) CancelCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.CancelCampaign(ctx, caller, id)
	})
}

// CompleteCampaign completes a campaign whose target is reached
func (s *LedgerService) CompleteCampaign(ctx context.Context, caller models.Caller, opID, campaignID string) (models.OperationReceipt, error) {
	return s.mutate(ctx, campaignID, opID, func(l *ledger.CampaignLedger, id string) (models.OperationReceipt, error) {
		return l.CompleteCampaign(ctx, caller, id)
	})
}

// GetCampaignStats returns the campaign dashboard projection
func (s *LedgerService) GetCampaignStats(_ context.Context, campaignID string) (models.CampaignStats, error) {
	l, err := s.registry.Campaign(campaignID)
	if err != nil {
		return models.CampaignStats{}, err
	}
	return l.Stats(), nil
}

// GetMilestones returns the milestone table
func (s *LedgerService) GetMilestones(_ context.Context, campaignID string) ([]models.Milestone, error) {
	l, err := s.registry.Campaign(campaignID)
	if err != nil {
		return nil, err
	}
	return l.Milestones(), nil
}

// GetUserStats returns a participant's record
func (s *LedgerService) GetUserStats(_ context.Context, campaignID, participant string) (models.UserStatsResponse, error) {
	l, err := s.registry.Campaign(campaignID)
	if err != nil {
		return models.UserStatsResponse{}, err
	}
	return l.UserStats(participant), nil
}

// CalculateRewards returns what participant could withdraw now
func (s *LedgerService) CalculateRewards(_ context.Context, campaignID, participant string) (models.RewardResponse, error) {
	l, err := s.registry.Campaign(campaignID)
	if err != nil {
		return models.RewardResponse{}, err
	}
	return models.RewardResponse{
		CampaignID:  campaignID,
		Participant: strings.TrimSpace(participant),
		Amount:      l.CalculateRewards(participant),
	}, nil
}

// ListOperations returns the campaign's operation journal
func (s *LedgerService) ListOperations(ctx context.Context, campaignID string) ([]models.OperationReceipt, error) {
	if _, err := s.registry.Campaign(campaignID); err != nil {
		return nil, err
	}
	ops, err := s.repository.ListOperations(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("%w: list operations: %w", models.ErrPersistence, err)
	}
	if ops == nil {
		ops = []models.OperationReceipt{}
	}
	return ops, nil
}
