package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation names a ledger mutation
type Operation string

const (
	OpCreateCampaign      Operation = "create_campaign"
	OpInitialDeposit      Operation = "initial_deposit"
	OpDepositMore         Operation = "deposit_more"
	OpSubmitEngagement    Operation = "submit_engagement"
	OpWithdrawRewards     Operation = "withdraw_rewards"
	OpBlacklistUser       Operation = "blacklist_user"
	OpRemoveFromBlacklist Operation = "remove_from_blacklist"
	OpEmergencyPause      Operation = "emergency_pause"
	OpResumeCampaign      Operation = "resume_campaign"
	OpCancelCampaign      Operation = "cancel_campaign"
	OpCompleteCampaign    Operation = "complete_campaign"
)

// OperationReceipt is the audit record of one successful mutation. The
// OperationID doubles as idempotency key: replaying it returns this receipt.
type OperationReceipt struct {
	OperationID string          `json:"operation_id" db:"operation_id"`
	CampaignID  string          `json:"campaign_id" db:"campaign_id"`
	Operation   Operation       `json:"operation" db:"operation"`
	Caller      string          `json:"caller" db:"caller"`
	Participant string          `json:"participant,omitempty" db:"participant"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Score       decimal.Decimal `json:"score" db:"score"`
	EvidenceRef string          `json:"evidence_ref,omitempty" db:"evidence_ref"`
	Reason      string          `json:"reason,omitempty" db:"reason"`
	Unlocked    []int           `json:"unlocked_milestones,omitempty" db:"-"`
	State       CampaignState   `json:"state" db:"state"`
	PoolBalance decimal.Decimal `json:"pool_balance" db:"pool_balance"`
	At          time.Time       `json:"at" db:"at"`
}
