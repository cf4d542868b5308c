package custodian

import (
	"context"
	"errors"
	"testing"

	"github.com/go-kit/log"
	"github.com/prajwalbharadwajbm/clipescrow/internal/ledger"
	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transfer(key, account string, amount int64) ledger.Transfer {
	return ledger.Transfer{
		Key:        key,
		CampaignID: "campaign-1",
		Asset:      "USDC",
		Account:    account,
		Amount:     decimal.NewFromInt(amount),
	}
}

func TestMemory_CreditAndDebit(t *testing.T) {
	m := NewMemory()
	m.Mint("brand", "USDC", decimal.NewFromInt(1000))
	ctx := context.Background()

	require.NoError(t, m.Credit(ctx, transfer("k1", "brand", 600)))
	assert.True(t, decimal.NewFromInt(400).Equal(m.Balance("brand", "USDC")))
	assert.True(t, decimal.NewFromInt(600).Equal(m.Escrow("campaign-1", "USDC")))

	require.NoError(t, m.Debit(ctx, transfer("k2", "alice", 250)))
	assert.True(t, decimal.NewFromInt(250).Equal(m.Balance("alice", "USDC")))
	assert.True(t, decimal.NewFromInt(350).Equal(m.Escrow("campaign-1", "USDC")))
}

func TestMemory_Rejections(t *testing.T) {
	m := NewMemory()
	m.Mint("brand", "USDC", decimal.NewFromInt(100))
	ctx := context.Background()

	err := m.Credit(ctx, transfer("k1", "brand", 101))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	err = m.Debit(ctx, transfer("k2", "alice", 1))
	assert.ErrorIs(t, err, ErrInsufficientEscrow)

	err = m.Credit(ctx, transfer("", "brand", 1))
	assert.ErrorIs(t, err, ErrInvalidTransfer)

	err = m.Credit(ctx, transfer("k3", "brand", 0))
	assert.ErrorIs(t, err, ErrInvalidTransfer)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = m.Credit(cancelled, transfer("k4", "brand", 1))
	assert.ErrorIs(t, err, context.Canceled)

	assert.True(t, decimal.NewFromInt(100).Equal(m.Balance("brand", "USDC")))
}

func TestMemory_IdempotentKeys(t *testing.T) {
	m := NewMemory()
	m.Mint("brand", "USDC", decimal.NewFromInt(1000))
	ctx := context.Background()

	require.NoError(t, m.Credit(ctx, transfer("k1", "brand", 500)))
	require.NoError(t, m.Credit(ctx, transfer("k1", "brand", 500)))
	assert.True(t, decimal.NewFromInt(500).Equal(m.Escrow("campaign-1", "USDC")))

	err := m.Credit(ctx, transfer("k1", "brand", 400))
	assert.ErrorIs(t, err, ErrKeyConflict)

	err = m.Debit(ctx, transfer("k1", "brand", 500))
	assert.ErrorIs(t, err, ErrKeyConflict)
}

func TestMemory_KeyConflictAcrossCampaigns(t *testing.T) {
	m := NewMemory(WithUnlimitedSource())
	ctx := context.Background()

	require.NoError(t, m.Credit(ctx, transfer("deposit-1", "brand", 500)))

	other := transfer("deposit-1", "brand", 500)
	other.CampaignID = "campaign-2"
	err := m.Credit(ctx, other)
	assert.ErrorIs(t, err, ErrKeyConflict)
	assert.ErrorIs(t, err, ledger.ErrTransferConflict)
	assert.True(t, m.Escrow("campaign-2", "USDC").IsZero())
}

func TestMemory_RestoreEscrow(t *testing.T) {
	m := NewMemory()
	var _ ledger.EscrowRestorer = m

	m.RestoreEscrow("campaign-1", "USDC", decimal.NewFromInt(700))
	m.RestoreEscrow("campaign-1", "USDC", decimal.NewFromInt(700))
	assert.True(t, decimal.NewFromInt(700).Equal(m.Escrow("campaign-1", "USDC")))

	require.NoError(t, m.Debit(context.Background(), transfer("k1", "alice", 700)))
	assert.True(t, decimal.NewFromInt(700).Equal(m.Balance("alice", "USDC")))
}

func TestMemory_UnlimitedSource(t *testing.T) {
	m := NewMemory(WithUnlimitedSource())
	require.NoError(t, m.Credit(context.Background(), transfer("k1", "brand", 1_000_000)))
	assert.True(t, decimal.NewFromInt(1_000_000).Equal(m.Escrow("campaign-1", "USDC")))
}

func TestMemory_InjectFailure(t *testing.T) {
	m := NewMemory(WithUnlimitedSource())
	boom := errors.New("node unreachable")
	ctx := context.Background()

	m.InjectFailure(func(direction string, _ ledger.Transfer) error {
		if direction == "credit" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, m.Credit(ctx, transfer("k1", "brand", 10)), boom)
	assert.True(t, m.Escrow("campaign-1", "USDC").IsZero())

	// a failed key was never applied, so it can be retried
	m.InjectFailure(nil)
	require.NoError(t, m.Credit(ctx, transfer("k1", "brand", 10)))
	assert.True(t, decimal.NewFromInt(10).Equal(m.Escrow("campaign-1", "USDC")))
}

func TestInstrumented_RecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := metrics.NewPrometheusMetrics(reg)
	m := NewMemory()
	c := NewInstrumented(m, mt, log.NewNopLogger())
	ctx := context.Background()

	m.Mint("brand", "USDC", decimal.NewFromInt(100))
	require.NoError(t, c.Credit(ctx, transfer("k1", "brand", 40)))
	assert.Error(t, c.Debit(ctx, transfer("k2", "alice", 41)))

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.CustodianCalls.WithLabelValues("credit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.CustodianCalls.WithLabelValues("debit", "error")))
	assert.Equal(t, 40.0, testutil.ToFloat64(mt.AssetMoved.WithLabelValues("credit", "USDC")))
}

func TestInstrumented_ForwardsRestoreEscrow(t *testing.T) {
	m := NewMemory()
	c := NewInstrumented(m, metrics.NewPrometheusMetrics(prometheus.NewRegistry()), log.NewNopLogger())

	er, ok := c.(ledger.EscrowRestorer)
	require.True(t, ok)
	er.RestoreEscrow("campaign-1", "USDC", decimal.NewFromInt(250))
	assert.True(t, decimal.NewFromInt(250).Equal(m.Escrow("campaign-1", "USDC")))
}
