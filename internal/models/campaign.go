package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignState represents the lifecycle state of a campaign
type CampaignState string

// enum values for CampaignState
const (
	StateActive    CampaignState = "ACTIVE"
	StatePaused    CampaignState = "PAUSED"
	StateCompleted CampaignState = "COMPLETED"
	StateCancelled CampaignState = "CANCELLED"
)

// IsTerminal returns true for COMPLETED and CANCELLED
func (s CampaignState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// IsValid reports whether s is one of the known states
func (s CampaignState) IsValid() bool {
	switch s {
	case StateActive, StatePaused, StateCompleted, StateCancelled:
		return true
	}
	return false
}

// BasisPoints is the denominator for MinDepositRatio.
const BasisPoints = 10000

// Campaign is a brand-sponsored engagement drive together with its escrow
// bookkeeping. It is the persisted shape of a campaign ledger.
type Campaign struct {
	ID              string          `json:"id" db:"id"`
	Brand           string          `json:"brand" db:"brand"`
	RewardAsset     string          `json:"reward_asset" db:"reward_asset"`
	TotalBudget     decimal.Decimal `json:"total_budget" db:"total_budget"`
	MinDepositRatio int64           `json:"min_deposit_ratio" db:"min_deposit_ratio"`
	DurationSeconds int64           `json:"duration_seconds" db:"duration_seconds"`
	StartTime       time.Time       `json:"start_time" db:"start_time"`

	State                CampaignState   `json:"state" db:"state"`
	Deposited            bool            `json:"deposited" db:"deposited"`
	PoolBalance          decimal.Decimal `json:"pool_balance" db:"pool_balance"`
	TotalEngagementScore decimal.Decimal `json:"total_engagement_score" db:"total_engagement_score"`
	CurrentMilestone     int             `json:"current_milestone" db:"current_milestone"`

	TotalDeposited   decimal.Decimal `json:"total_deposited" db:"total_deposited"`
	TotalRewardsPaid decimal.Decimal `json:"total_rewards_paid" db:"total_rewards_paid"`
	TotalRefunded    decimal.Decimal `json:"total_refunded" db:"total_refunded"`

	Sequence  int64     `json:"sequence" db:"sequence"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive returns true if campaign accepts engagement
func (c *Campaign) IsActive() bool {
	return c.State == StateActive
}

// EndTime is the informational end of the campaign window
func (c *Campaign) EndTime() time.Time {
	return c.StartTime.Add(time.Duration(c.DurationSeconds) * time.Second)
}

// CampaignSnapshot is the full state of one campaign ledger, used for
// persistence and restore.
type CampaignSnapshot struct {
	Campaign   Campaign           `json:"campaign"`
	Milestones []Milestone        `json:"milestones"`
	Users      []UserStat         `json:"users"`
	Applied    []OperationReceipt `json:"applied,omitempty"`
}

// CampaignStats is the read projection returned to dashboards
type CampaignStats struct {
	CampaignID           string          `json:"campaign_id"`
	Brand                string          `json:"brand"`
	RewardAsset          string          `json:"reward_asset"`
	State                CampaignState   `json:"state"`
	TotalBudget          decimal.Decimal `json:"total_budget"`
	PoolBalance          decimal.Decimal `json:"balance"`
	TotalEngagementScore decimal.Decimal `json:"engagement"`
	CurrentMilestone     int             `json:"milestone"`
	TimeRemaining        int64           `json:"time_remaining"`
	ParticipantCount     int             `json:"participant_count"`
	TotalDeposited       decimal.Decimal `json:"total_deposited"`
	TotalRewardsPaid     decimal.Decimal `json:"total_rewards_paid"`
	TotalRefunded        decimal.Decimal `json:"total_refunded"`
}

// CampaignInfo is the registry view of a campaign
type CampaignInfo struct {
	CampaignID  string          `json:"campaign_id"`
	Brand       string          `json:"brand"`
	RewardAsset string          `json:"reward_asset"`
	TotalBudget decimal.Decimal `json:"total_budget"`
	State       CampaignState   `json:"state"`
	Sequence    int64           `json:"sequence"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToInfo converts Campaign to CampaignInfo
func (c *Campaign) ToInfo() CampaignInfo {
	return CampaignInfo{
		CampaignID:  c.ID,
		Brand:       c.Brand,
		RewardAsset: c.RewardAsset,
		TotalBudget: c.TotalBudget,
		State:       c.State,
		Sequence:    c.Sequence,
		CreatedAt:   c.CreatedAt,
	}
}
