package custodian

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prajwalbharadwajbm/clipescrow/internal/ledger"
	"github.com/shopspring/decimal"
)

// Custodian errors
var (
	ErrInsufficientFunds  = errors.New("insufficient account balance")
	ErrInsufficientEscrow = errors.New("insufficient escrow balance")
	ErrKeyConflict        = ledger.ErrTransferConflict
	ErrInvalidTransfer    = errors.New("invalid transfer")
)

type direction string

const (
	directionCredit direction = "credit"
	directionDebit  direction = "debit"
)

type appliedTransfer struct {
	direction direction
	transfer  ledger.Transfer
}

// FailureFunc lets tests make the custodian fail a transfer before it is
// applied. Returning nil lets the transfer through.
type FailureFunc func(direction string, t ledger.Transfer) error

// Memory is an in-process custodian holding per-account balances and one
// escrow balance per (campaign, asset). Transfers are idempotent by key.
type Memory struct {
	mu        sync.Mutex
	balances  map[string]decimal.Decimal
	escrow    map[string]decimal.Decimal
	applied   map[string]appliedTransfer
	unlimited bool
	failure   FailureFunc
}

// MemoryOption configures a Memory custodian
type MemoryOption func(*Memory)

// WithUnlimitedSource lets credits draw from accounts with no minted
// balance. Used by the development server where brands fund off-ledger.
func WithUnlimitedSource() MemoryOption {
	return func(m *Memory) { m.unlimited = true }
}

// NewMemory creates an empty in-memory custodian
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		balances: make(map[string]decimal.Decimal),
		escrow:   make(map[string]decimal.Decimal),
		applied:  make(map[string]appliedTransfer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func accountKey(account, asset string) string {
	return asset + "/" + account
}

func escrowKey(campaignID, asset string) string {
	return asset + "/" + campaignID
}

// InjectFailure installs fn; pass nil to clear it
func (m *Memory) InjectFailure(fn FailureFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = fn
}

// Mint gives account amount of asset
func (m *Memory) Mint(account, asset string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := accountKey(account, asset)
	m.balances[k] = m.balances[k].Add(amount)
}

// Balance returns the account's balance of asset
func (m *Memory) Balance(account, asset string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountKey(account, asset)]
}

// Escrow returns the amount held for a campaign
func (m *Memory) Escrow(campaignID, asset string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.escrow[escrowKey(campaignID, asset)]
}

// RestoreEscrow sets the amount held for a campaign. It implements
// ledger.EscrowRestorer so a restored ledger and its escrow agree.
func (m *Memory) RestoreEscrow(campaignID, asset string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escrow[escrowKey(campaignID, asset)] = amount
}

// Credit implements ledger.AssetCustodian
func (m *Memory) Credit(ctx context.Context, t ledger.Transfer) error {
	return m.apply(ctx, directionCredit, t)
}

// Debit implements ledger.AssetCustodian
func (m *Memory) Debit(ctx context.Context, t ledger.Transfer) error {
	return m.apply(ctx, directionDebit, t)
}

func (m *Memory) apply(ctx context.Context, dir direction, t ledger.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Key == "" || t.CampaignID == "" || t.Account == "" || !t.Amount.IsPositive() {
		return fmt.Errorf("%w: %+v", ErrInvalidTransfer, t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.applied[t.Key]; ok {
		if prev.direction != dir || prev.transfer.CampaignID != t.CampaignID || prev.transfer.Account != t.Account ||
			prev.transfer.Asset != t.Asset || !prev.transfer.Amount.Equal(t.Amount) {
			return fmt.Errorf("%w: %s", ErrKeyConflict, t.Key)
		}
		return nil
	}

	if m.failure != nil {
		if err := m.failure(string(dir), t); err != nil {
			return err
		}
	}

	ak := accountKey(t.Account, t.Asset)
	ek := escrowKey(t.CampaignID, t.Asset)
	switch dir {
	case directionCredit:
		if !m.unlimited && m.balances[ak].LessThan(t.Amount) {
			return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, t.Account, m.balances[ak], t.Amount)
		}
		if !m.unlimited {
			m.balances[ak] = m.balances[ak].Sub(t.Amount)
		}
		m.escrow[ek] = m.escrow[ek].Add(t.Amount)
	case directionDebit:
		if m.escrow[ek].LessThan(t.Amount) {
			return fmt.Errorf("%w: campaign %s holds %s, needs %s", ErrInsufficientEscrow, t.CampaignID, m.escrow[ek], t.Amount)
		}
		m.escrow[ek] = m.escrow[ek].Sub(t.Amount)
		m.balances[ak] = m.balances[ak].Add(t.Amount)
	}

	m.applied[t.Key] = appliedTransfer{direction: dir, transfer: t}
	return nil
}
