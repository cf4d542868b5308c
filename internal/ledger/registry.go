package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/shopspring/decimal"
)

// Registry is the campaign factory and the arena of campaign ledgers. Its
// lock only guards the arena and the asset allow-list; each ledger
// serializes its own mutations.
type Registry struct {
	mu        sync.RWMutex
	campaigns map[string]*CampaignLedger
	order     []string
	created   map[string]string
	assets    map[string]struct{}
	sequence  int64

	custodian AssetCustodian
	now       func() time.Time
	newID     func() string
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithClock overrides the time source
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator overrides campaign id generation
func WithIDGenerator(newID func() string) RegistryOption {
	return func(r *Registry) { r.newID = newID }
}

// NewRegistry creates an empty registry backed by custodian
func NewRegistry(custodian AssetCustodian, opts ...RegistryOption) *Registry {
	r := &Registry{
		campaigns: make(map[string]*CampaignLedger),
		created:   make(map[string]string),
		assets:    make(map[string]struct{}),
		custodian: custodian,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSupportedAsset allow-lists a reward asset. Existing campaigns are not
// affected.
func (r *Registry) AddSupportedAsset(caller models.Caller, asset string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	asset = models.NormalizeAsset(asset)
	if err := models.ValidateAsset(asset); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[asset] = struct{}{}
	return nil
}

// IsSupportedAsset reports whether asset is allow-listed
func (r *Registry) IsSupportedAsset(asset string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.assets[models.NormalizeAsset(asset)]
	return ok
}

// SupportedAssets lists the allow-list in sorted order
func (r *Registry) SupportedAssets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.assets))
	for a := range r.assets {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// CreateCampaign constructs a new ACTIVE campaign ledger with an empty pool
// and returns its creation receipt. Callers must be admin, or the brand
// creating its own campaign.
func (r *Registry) CreateCampaign(_ context.Context, caller models.Caller, opID string, req models.CreateCampaignRequest) (models.OperationReceipt, error) {
	req.Normalize()
	if !caller.IsAdmin() && !(caller.Role == models.RoleBrand && caller.Is(req.Brand)) {
		return models.OperationReceipt{}, fmt.Errorf("%w: only admin or the brand itself can create a campaign", models.ErrUnauthorized)
	}
	if err := req.Validate(); err != nil {
		return models.OperationReceipt{}, err
	}
	opID = strings.TrimSpace(opID)
	if err := models.ValidateOperationID(opID); err != nil {
		return models.OperationReceipt{}, err
	}
	if err := models.ValidateLength("caller", caller.ID, models.MaxIdentityLength); err != nil {
		return models.OperationReceipt{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.created[opID]; ok {
		rec, _ := r.campaigns[id].Receipt(opID)
		return rec, nil
	}

	if _, ok := r.assets[req.RewardAsset]; !ok {
		return models.OperationReceipt{}, fmt.Errorf("%w: %s", models.ErrUnsupportedAsset, req.RewardAsset)
	}

	now := r.now()
	r.sequence++
	c := models.Campaign{
		ID:                   r.newID(),
		Brand:                req.Brand,
		RewardAsset:          req.RewardAsset,
		TotalBudget:          req.TotalBudget,
		MinDepositRatio:      req.MinDepositRatio,
		DurationSeconds:      req.DurationSeconds,
		StartTime:            now,
		State:                models.StateActive,
		PoolBalance:          decimal.Zero,
		TotalEngagementScore: decimal.Zero,
		TotalDeposited:       decimal.Zero,
		TotalRewardsPaid:     decimal.Zero,
		TotalRefunded:        decimal.Zero,
		Sequence:             r.sequence,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	l := newCampaignLedger(c, r.custodian, r.now)

	rec := models.OperationReceipt{
		OperationID: opID,
		CampaignID:  c.ID,
		Operation:   models.OpCreateCampaign,
		Caller:      caller.ID,
		Amount:      c.TotalBudget,
		Score:       decimal.Zero,
		State:       c.State,
		PoolBalance: c.PoolBalance,
		At:          now,
	}
	l.applied[opID] = rec

	r.campaigns[c.ID] = l
	r.order = append(r.order, c.ID)
	r.created[opID] = c.ID
	return rec, nil
}

// Campaign looks up a ledger by id
func (r *Registry) Campaign(id string) (*CampaignLedger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCampaignNotFound, id)
	}
	return l, nil
}

// ListActiveCampaigns returns non-terminal campaigns in creation order
func (r *Registry) ListActiveCampaigns() []models.CampaignInfo {
	r.mu.RLock()
	ledgers := make([]*CampaignLedger, 0, len(r.order))
	for _, id := range r.order {
		ledgers = append(ledgers, r.campaigns[id])
	}
	r.mu.RUnlock()

	var out []models.CampaignInfo
	for _, l := range ledgers {
		c := l.Campaign()
		if !c.State.IsTerminal() {
			out = append(out, c.ToInfo())
		}
	}
	return out
}

// CampaignCount is the number of campaigns ever created
func (r *Registry) CampaignCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.campaigns)
}

// Restore loads a persisted campaign into the arena, replacing any ledger
// with the same id. A custodian implementing EscrowRestorer is re-seeded
// with the campaign's pool balance.
func (r *Registry) Restore(s models.CampaignSnapshot) {
	l := restoreCampaignLedger(s, r.custodian, r.now)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.campaigns[s.Campaign.ID]; !exists {
		r.order = append(r.order, s.Campaign.ID)
	}
	r.campaigns[s.Campaign.ID] = l
	if er, ok := r.custodian.(EscrowRestorer); ok {
		er.RestoreEscrow(s.Campaign.ID, s.Campaign.RewardAsset, s.Campaign.PoolBalance)
	}
	for _, rec := range s.Applied {
		if rec.Operation == models.OpCreateCampaign {
			r.created[rec.OperationID] = s.Campaign.ID
		}
	}
	if s.Campaign.Sequence > r.sequence {
		r.sequence = s.Campaign.Sequence
	}
	sort.SliceStable(r.order, func(i, j int) bool {
		return r.campaigns[r.order[i]].campaign.Sequence < r.campaigns[r.order[j]].campaign.Sequence
	})
}

// RestoreAsset allow-lists an asset loaded from storage
func (r *Registry) RestoreAsset(asset string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := models.NormalizeAsset(asset); a != "" {
		r.assets[a] = struct{}{}
	}
}
