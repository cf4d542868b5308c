package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func TestRequiredInitialDeposit(t *testing.T) {
	tests := []struct {
		budget int64
		ratio  int64
		want   int64
	}{
		{10_000_000_000, 1500, 1_500_000_000},
		{10_000_000_000, 10000, 10_000_000_000},
		{999, 1500, 149},
		{1, 1, 0},
	}

	for _, tt := range tests {
		got := RequiredInitialDeposit(d(tt.budget), tt.ratio)
		assert.True(t, d(tt.want).Equal(got), "budget=%d ratio=%d: got %s", tt.budget, tt.ratio, got)
	}
}

func TestComputeReward(t *testing.T) {
	tests := []struct {
		name                                               string
		pool, paid, userScore, withdrawn, totalScore, want int64
	}{
		{"no engagement", 1500, 0, 0, 0, 0, 0},
		{"sole participant takes pool", 1500, 0, 100, 0, 100, 1500},
		{"one third", 1500, 0, 100, 0, 300, 500},
		{"two thirds", 1500, 0, 200, 0, 300, 1000},
		{"floor division", 100, 0, 1, 0, 3, 33},
		{"already withdrawn share", 1000, 500, 100, 500, 300, 0},
		{"others unaffected by withdrawal", 1000, 500, 200, 0, 300, 1000},
		{"capped by pool", 100, 900, 1, 0, 2, 100},
		{"empty pool", 0, 1500, 100, 0, 100, 0},
		{"diluted below withdrawn", 0, 1500, 100, 1500, 200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeReward(d(tt.pool), d(tt.paid), d(tt.userScore), d(tt.withdrawn), d(tt.totalScore))
			assert.True(t, d(tt.want).Equal(got), "got %s want %d", got, tt.want)
		})
	}
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, int64(0), ProgressPercent(d(0), d(10_000)))
	assert.Equal(t, int64(15), ProgressPercent(d(1_500), d(10_000)))
	assert.Equal(t, int64(14), ProgressPercent(d(1_499), d(10_000)))
	assert.Equal(t, int64(250), ProgressPercent(d(25_000), d(10_000)))
	assert.Equal(t, int64(0), ProgressPercent(d(100), d(0)))
}

func TestMilestoneTable(t *testing.T) {
	table := NewMilestoneTable(d(10_000))

	entries := table.Entries()
	assert.Len(t, entries, 4)
	for i, want := range []int64{2_500, 5_000, 7_500, 10_000} {
		assert.Equal(t, i, entries[i].Index)
		assert.True(t, d(want).Equal(entries[i].FundingRequired))
	}

	assert.Empty(t, table.Evaluate(14))
	assert.Equal(t, []int{0}, table.Evaluate(15))
	assert.Empty(t, table.Evaluate(15))
	assert.Equal(t, []int{1, 2}, table.Evaluate(70))
	assert.Equal(t, 3, table.UnlockedCount())
	assert.False(t, table.Complete())

	// progress never re-locks
	assert.Empty(t, table.Evaluate(0))
	assert.Equal(t, 3, table.UnlockedCount())

	assert.Equal(t, []int{3}, table.Evaluate(100))
	assert.True(t, table.Complete())

	// Entries hands out a copy
	entries = table.Entries()
	entries[0].Unlocked = false
	assert.Equal(t, 4, table.UnlockedCount())
}

func TestRestoreMilestoneTable(t *testing.T) {
	table := NewMilestoneTable(d(1_000))
	table.Evaluate(40)

	restored := restoreMilestoneTable(table.Entries())
	assert.Equal(t, table.Entries(), restored.Entries())
	assert.Equal(t, 2, restored.UnlockedCount())
}
