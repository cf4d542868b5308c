package ledger

import (
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/shopspring/decimal"
)

// Engagement thresholds (percent of target) and the matching funding
// shares (percent of budget), one pair per milestone.
var (
	milestoneThresholds = [4]int64{15, 40, 70, 100}
	milestoneFunding    = [4]int64{25, 50, 75, 100}
)

var hundred = decimal.NewFromInt(100)

// MilestoneTable is the fixed, ordered set of funding-unlock checkpoints
// of one campaign.
type MilestoneTable struct {
	entries []models.Milestone
}

// NewMilestoneTable builds the four-entry table for a budget
func NewMilestoneTable(totalBudget decimal.Decimal) MilestoneTable {
	entries := make([]models.Milestone, len(milestoneThresholds))
	for i := range milestoneThresholds {
		entries[i] = models.Milestone{
			Index:               i,
			EngagementThreshold: milestoneThresholds[i],
			FundingRequired:     floorDiv(totalBudget.Mul(decimal.NewFromInt(milestoneFunding[i])), hundred),
		}
	}
	return MilestoneTable{entries: entries}
}

// restoreMilestoneTable rebuilds a table from persisted entries
func restoreMilestoneTable(entries []models.Milestone) MilestoneTable {
	cp := make([]models.Milestone, len(entries))
	copy(cp, entries)
	return MilestoneTable{entries: cp}
}

// ProgressPercent is total engagement as a whole percentage of the budget
// target, truncated.
func ProgressPercent(totalScore, totalBudget decimal.Decimal) int64 {
	if !totalBudget.IsPositive() {
		return 0
	}
	p := floorDiv(totalScore.Mul(hundred), totalBudget)
	if p.GreaterThan(decimal.NewFromInt(1 << 62)) {
		return 1 << 62
	}
	return p.IntPart()
}

// Evaluate unlocks every milestone whose threshold is reached and returns
// the indexes unlocked by this call. Unlocking is monotonic.
func (t *MilestoneTable) Evaluate(progressPercent int64) []int {
	var unlocked []int
	for i := range t.entries {
		m := &t.entries[i]
		if !m.Unlocked && progressPercent >= m.EngagementThreshold {
			m.Unlocked = true
			unlocked = append(unlocked, m.Index)
		}
	}
	return unlocked
}

// UnlockedCount is the number of unlocked milestones
func (t *MilestoneTable) UnlockedCount() int {
	n := 0
	for _, m := range t.entries {
		if m.Unlocked {
			n++
		}
	}
	return n
}

// Complete reports whether the final (100%) milestone is unlocked
func (t *MilestoneTable) Complete() bool {
	if len(t.entries) == 0 {
		return false
	}
	return t.entries[len(t.entries)-1].Unlocked
}

// Entries returns a copy of the table
func (t *MilestoneTable) Entries() []models.Milestone {
	cp := make([]models.Milestone, len(t.entries))
	copy(cp, t.entries)
	return cp
}

// floorDiv is exact integer division for non-negative operands
func floorDiv(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}
