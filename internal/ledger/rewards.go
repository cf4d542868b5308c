package ledger

import "github.com/shopspring/decimal"

// ComputeReward returns what a participant may withdraw right now.
//
// The participant's entitlement is its score share of everything the
// campaign has funded for rewards so far (current pool plus rewards already
// paid out), minus what it already withdrew. A withdrawal by one participant
// therefore does not shrink what the others are owed. The result is capped
// by the current pool, so a payout can never overdraw escrow even when late
// submissions dilute earlier withdrawals.
func ComputeReward(pool, rewardsPaid, userScore, withdrawn, totalScore decimal.Decimal) decimal.Decimal {
	if !totalScore.IsPositive() || !userScore.IsPositive() || !pool.IsPositive() {
		return decimal.Zero
	}
	funded := pool.Add(rewardsPaid)
	entitlement := floorDiv(funded.Mul(userScore), totalScore)
	owed := entitlement.Sub(withdrawn)
	if !owed.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(owed, pool)
}

// RequiredInitialDeposit is floor(totalBudget * ratio / 10000)
func RequiredInitialDeposit(totalBudget decimal.Decimal, minDepositRatio int64) decimal.Decimal {
	return floorDiv(totalBudget.Mul(decimal.NewFromInt(minDepositRatio)), decimal.NewFromInt(10000))
}
