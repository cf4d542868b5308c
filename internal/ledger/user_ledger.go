package ledger

import (
	"sort"
	"time"

	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/shopspring/decimal"
)

// userLedger is the per-participant record of one campaign
type userLedger struct {
	stat models.UserStat
}

func newUserLedger(participant string) *userLedger {
	return &userLedger{stat: models.UserStat{
		Participant: participant,
		TotalScore:  decimal.Zero,
		Withdrawn:   decimal.Zero,
	}}
}

func (u *userLedger) addScore(score decimal.Decimal, at time.Time) {
	u.stat.TotalScore = u.stat.TotalScore.Add(score)
	u.stat.SubmissionCount++
	t := at
	u.stat.LastSubmissionAt = &t
}

func (u *userLedger) recordWithdrawal(amount decimal.Decimal) {
	u.stat.Withdrawn = u.stat.Withdrawn.Add(amount)
}

// blacklist does not touch score or past withdrawals
func (u *userLedger) blacklist(reason string) {
	u.stat.IsBlacklisted = true
	u.stat.BlacklistReason = reason
}

func (u *userLedger) unblacklist() {
	u.stat.IsBlacklisted = false
	u.stat.BlacklistReason = ""
}

func (u *userLedger) snapshot() models.UserStat {
	s := u.stat
	if u.stat.LastSubmissionAt != nil {
		t := *u.stat.LastSubmissionAt
		s.LastSubmissionAt = &t
	}
	return s
}

// userBook holds the lazily created user ledgers of one campaign
type userBook map[string]*userLedger

func (b userBook) get(participant string) (*userLedger, bool) {
	u, ok := b[participant]
	return u, ok
}

func (b userBook) getOrCreate(participant string) *userLedger {
	if u, ok := b[participant]; ok {
		return u
	}
	u := newUserLedger(participant)
	b[participant] = u
	return u
}

func (b userBook) isBlacklisted(participant string) bool {
	u, ok := b[participant]
	return ok && u.stat.IsBlacklisted
}

// participants counts users with at least one accepted submission
func (b userBook) participants() int {
	n := 0
	for _, u := range b {
		if u.stat.SubmissionCount > 0 {
			n++
		}
	}
	return n
}

func (b userBook) snapshot() []models.UserStat {
	out := make([]models.UserStat, 0, len(b))
	for _, u := range b {
		out = append(out, u.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Participant < out[j].Participant
	})
	return out
}
