package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
)

// memoryRepository implements service.Repository in process memory. State
// is lost on restart; used by the development server and tests.
type memoryRepository struct {
	mu        sync.RWMutex
	campaigns map[string]models.CampaignSnapshot
	journal   map[string][]models.OperationReceipt
	journaled map[string]struct{}
	assets    map[string]struct{}
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() service.Repository {
	return &memoryRepository{
		campaigns: make(map[string]models.CampaignSnapshot),
		journal:   make(map[string][]models.OperationReceipt),
		journaled: make(map[string]struct{}),
		assets:    make(map[string]struct{}),
	}
}

// SaveCampaign stores a copy of the snapshot and journals new receipts
func (r *memoryRepository) SaveCampaign(_ context.Context, snapshot models.CampaignSnapshot, journal ...models.OperationReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := snapshot.Campaign.ID
	r.campaigns[id] = copySnapshot(snapshot)
	for _, rec := range journal {
		key := journalKey(rec)
		if _, ok := r.journaled[key]; ok {
			continue
		}
		r.journaled[key] = struct{}{}
		r.journal[rec.CampaignID] = append(r.journal[rec.CampaignID], copyReceipt(rec))
	}
	return nil
}

// LoadCampaigns returns every campaign in creation order
func (r *memoryRepository) LoadCampaigns(_ context.Context) ([]models.CampaignSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.CampaignSnapshot, 0, len(r.campaigns))
	for id, s := range r.campaigns {
		snap := copySnapshot(s)
		for _, rec := range r.journal[id] {
			snap.Applied = append(snap.Applied, copyReceipt(rec))
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Campaign.Sequence < out[j].Campaign.Sequence
	})
	return out, nil
}

// ListOperations returns the campaign journal in append order
func (r *memoryRepository) ListOperations(_ context.Context, campaignID string) ([]models.OperationReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]models.OperationReceipt, 0, len(r.journal[campaignID]))
	for _, rec := range r.journal[campaignID] {
		ops = append(ops, copyReceipt(rec))
	}
	return ops, nil
}

// SaveSupportedAsset stores an allow-listed asset
func (r *memoryRepository) SaveSupportedAsset(_ context.Context, asset string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[asset] = struct{}{}
	return nil
}

// LoadSupportedAssets returns stored assets sorted
func (r *memoryRepository) LoadSupportedAssets(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.assets))
	for a := range r.assets {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

// copySnapshot deep-copies the snapshot, dropping Applied: the journal is
// the source of applied operations.
func copySnapshot(s models.CampaignSnapshot) models.CampaignSnapshot {
	out := models.CampaignSnapshot{
		Campaign:   s.Campaign,
		Milestones: append([]models.Milestone(nil), s.Milestones...),
		Users:      make([]models.UserStat, len(s.Users)),
	}
	for i, u := range s.Users {
		if u.LastSubmissionAt != nil {
			t := *u.LastSubmissionAt
			u.LastSubmissionAt = &t
		}
		out.Users[i] = u
	}
	return out
}

// journalKey scopes an operation id to its campaign
func journalKey(rec models.OperationReceipt) string {
	return rec.CampaignID + "/" + rec.OperationID
}

func copyReceipt(rec models.OperationReceipt) models.OperationReceipt {
	rec.Unlocked = append([]int(nil), rec.Unlocked...)
	return rec
}
