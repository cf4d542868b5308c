package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStat is the per (campaign, participant) engagement record
type UserStat struct {
	Participant      string          `json:"participant" db:"participant"`
	TotalScore       decimal.Decimal `json:"total_score" db:"total_score"`
	SubmissionCount  int64           `json:"submission_count" db:"submission_count"`
	Withdrawn        decimal.Decimal `json:"total_rewards" db:"withdrawn"`
	IsBlacklisted    bool            `json:"is_blacklisted" db:"is_blacklisted"`
	BlacklistReason  string          `json:"blacklist_reason,omitempty" db:"blacklist_reason"`
	LastSubmissionAt *time.Time      `json:"last_submission_at,omitempty" db:"last_submission_at"`
}

// UserStatsResponse is the read projection for one participant
type UserStatsResponse struct {
	CampaignID string `json:"campaign_id"`
	UserStat
	PendingReward decimal.Decimal `json:"pending_reward"`
}
