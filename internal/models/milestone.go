package models

import "github.com/shopspring/decimal"

// Milestone is an engagement checkpoint. EngagementThreshold is a
// percentage of the campaign target; FundingRequired is the share of the
// budget the brand is expected to have fronted by then.
type Milestone struct {
	Index               int             `json:"index" db:"idx"`
	EngagementThreshold int64           `json:"engagement_threshold" db:"engagement_threshold"`
	FundingRequired     decimal.Decimal `json:"funding_required" db:"funding_required"`
	Unlocked            bool            `json:"unlocked" db:"unlocked"`
}
