package custodian

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prajwalbharadwajbm/clipescrow/internal/ledger"
	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/shopspring/decimal"
)

// Instrumented wraps a custodian with metrics and logging
type Instrumented struct {
	next    ledger.AssetCustodian
	metrics *metrics.Metrics
	logger  log.Logger
}

// NewInstrumented creates a new instrumented custodian
func NewInstrumented(next ledger.AssetCustodian, m *metrics.Metrics, logger log.Logger) ledger.AssetCustodian {
	return &Instrumented{
		next:    next,
		metrics: m,
		logger:  log.With(logger, "component", "custodian"),
	}
}

// Credit implements ledger.AssetCustodian with metrics
func (c *Instrumented) Credit(ctx context.Context, t ledger.Transfer) error {
	return c.observe(string(directionCredit), t, func() error {
		return c.next.Credit(ctx, t)
	})
}

// Debit implements ledger.AssetCustodian with metrics
func (c *Instrumented) Debit(ctx context.Context, t ledger.Transfer) error {
	return c.observe(string(directionDebit), t, func() error {
		return c.next.Debit(ctx, t)
	})
}

// RestoreEscrow forwards to the wrapped custodian when it keeps escrow in
// process
func (c *Instrumented) RestoreEscrow(campaignID, asset string, amount decimal.Decimal) {
	er, ok := c.next.(ledger.EscrowRestorer)
	if !ok {
		return
	}
	er.RestoreEscrow(campaignID, asset, amount)
	level.Info(c.logger).Log("msg", "escrow restored", "campaign_id", campaignID, "asset", asset, "amount", amount.String())
}

func (c *Instrumented) observe(dir string, t ledger.Transfer, call func() error) (err error) {
	defer func(begin time.Time) {
		fields := []interface{}{
			"direction", dir,
			"key", t.Key,
			"campaign_id", t.CampaignID,
			"account", t.Account,
			"asset", t.Asset,
			"amount", t.Amount.String(),
			"took", time.Since(begin),
		}
		if err != nil {
			c.metrics.RecordCustodianCall(dir, "error")
			level.Warn(c.logger).Log(append(fields, "error", err.Error())...)
			return
		}
		c.metrics.RecordCustodianCall(dir, "ok")
		c.metrics.RecordAssetMoved(dir, t.Asset, t.Amount.InexactFloat64())
		level.Debug(c.logger).Log(fields...)
	}(time.Now())

	return call()
}
