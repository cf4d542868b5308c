package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Identifier limits, matching the storage schema
const (
	MaxIdentityLength    = 255
	MaxOperationIDLength = 128
	MaxAssetLength       = 32
)

// CreateCampaignRequest represents a registry createCampaign call
type CreateCampaignRequest struct {
	Brand           string          `json:"brand"`
	RewardAsset     string          `json:"reward_asset"`
	TotalBudget     decimal.Decimal `json:"total_budget"`
	MinDepositRatio int64           `json:"min_deposit_ratio"`
	DurationSeconds int64           `json:"duration_seconds"`
}

// Validate checks the campaign parameters
func (r *CreateCampaignRequest) Validate() error {
	if err := ValidateIdentity("brand", r.Brand); err != nil {
		return err
	}
	if err := ValidateAsset(r.RewardAsset); err != nil {
		return err
	}
	if err := ValidateAmount("total budget", r.TotalBudget); err != nil {
		return err
	}
	if r.MinDepositRatio <= 0 || r.MinDepositRatio > BasisPoints {
		return fmt.Errorf("%w: min deposit ratio must be in (0, %d]", ErrInvalidArgument, BasisPoints)
	}
	if r.DurationSeconds <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidArgument)
	}
	return nil
}

// Normalize trims identities and upper-cases the asset symbol
func (r *CreateCampaignRequest) Normalize() {
	r.Brand = strings.TrimSpace(r.Brand)
	r.RewardAsset = NormalizeAsset(r.RewardAsset)
}

// NormalizeAsset is the canonical form of an asset identifier
func NormalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// AddAssetRequest adds an asset to the supported allow-list
type AddAssetRequest struct {
	Asset string `json:"asset"`
}

// AmountRequest carries a deposit amount
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// EngagementRequest is a verified engagement event
type EngagementRequest struct {
	Participant string          `json:"participant"`
	Score       decimal.Decimal `json:"score"`
	EvidenceRef string          `json:"evidence_ref"`
}

// Validate checks the engagement event
func (r *EngagementRequest) Validate() error {
	if err := ValidateIdentity("participant", r.Participant); err != nil {
		return err
	}
	return ValidateAmount("score", r.Score)
}

// BlacklistRequest flags a participant
type BlacklistRequest struct {
	Participant string `json:"participant"`
	Reason      string `json:"reason"`
}

// Validate checks the blacklisted participant
func (r *BlacklistRequest) Validate() error {
	return ValidateIdentity("participant", r.Participant)
}

// ValidateIdentity requires a non-empty account id that fits the schema
func ValidateIdentity(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: missing %s", ErrInvalidArgument, name)
	}
	return ValidateLength(name, id, MaxIdentityLength)
}

// ValidateOperationID requires a non-empty idempotency key that fits the schema
func ValidateOperationID(opID string) error {
	if strings.TrimSpace(opID) == "" {
		return fmt.Errorf("%w: missing operation id", ErrInvalidArgument)
	}
	return ValidateLength("operation id", opID, MaxOperationIDLength)
}

// ValidateAsset requires a non-empty asset symbol that fits the schema
func ValidateAsset(asset string) error {
	if strings.TrimSpace(asset) == "" {
		return fmt.Errorf("%w: missing asset", ErrInvalidArgument)
	}
	return ValidateLength("asset", asset, MaxAssetLength)
}

// ValidateLength rejects values longer than max characters. Empty values
// pass.
func ValidateLength(name, value string, max int) error {
	if n := utf8.RuneCountInString(value); n > max {
		return fmt.Errorf("%w: %s is %d characters, limit is %d", ErrInvalidArgument, name, n, max)
	}
	return nil
}

// ValidateAmount requires a positive whole number of base units
func ValidateAmount(name string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidArgument, name)
	}
	if !d.Equal(d.Truncate(0)) {
		return fmt.Errorf("%w: %s must be a whole number of base units", ErrInvalidArgument, name)
	}
	return nil
}
