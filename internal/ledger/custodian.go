package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrTransferConflict is returned by a custodian when a transfer key is
// reused for a different movement. It is permanent for that key.
var ErrTransferConflict = errors.New("transfer key reused with different transfer")

// Transfer is one asset movement requested from the custodian. Key is the
// idempotency key: a custodian must apply a given key at most once.
type Transfer struct {
	Key        string
	CampaignID string
	Asset      string
	// Account is the external party: the depositing brand on Credit, the
	// recipient on Debit.
	Account string
	Amount  decimal.Decimal
}

// AssetCustodian holds and moves the reward asset on behalf of the ledger.
// Implementations must not call back into the ledger.
type AssetCustodian interface {
	// Credit moves Amount from Account into the campaign escrow
	Credit(ctx context.Context, t Transfer) error
	// Debit moves Amount from the campaign escrow to Account
	Debit(ctx context.Context, t Transfer) error
}

// EscrowRestorer is implemented by custodians that keep escrow in process
// and must be re-seeded from persisted pool balances on restore.
type EscrowRestorer interface {
	RestoreEscrow(campaignID, asset string, amount decimal.Decimal)
}

// transferKey scopes an operation id to its campaign. Operation ids are
// only unique within one campaign.
func transferKey(campaignID, opID string) string {
	return campaignID + "/" + opID
}
