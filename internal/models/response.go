package models

import "github.com/shopspring/decimal"

// ErrorResponse represents error response format
type ErrorResponse struct {
	Error     string    `json:"error"`
	Kind      ErrorKind `json:"kind"`
	Retryable bool      `json:"retryable"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Error:     err.Error(),
		Kind:      KindOf(err),
		Retryable: Retryable(err),
	}
}

// CampaignListResponse is returned by the campaign listing
type CampaignListResponse struct {
	Campaigns []CampaignInfo `json:"campaigns"`
	Count     int            `json:"count"`
}

// RewardResponse carries a calculateRewards result
type RewardResponse struct {
	CampaignID  string          `json:"campaign_id"`
	Participant string          `json:"participant"`
	Amount      decimal.Decimal `json:"amount"`
}

// CreateCampaignResponse carries the id of a new campaign
type CreateCampaignResponse struct {
	CampaignID string           `json:"campaign_id"`
	Receipt    OperationReceipt `json:"receipt"`
}
