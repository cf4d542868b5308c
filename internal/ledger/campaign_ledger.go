package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/shopspring/decimal"
)

// CampaignLedger is the escrow aggregate of one campaign. All mutations are
// serialized on its own mutex; the custodian is called with the lock held
// and state is committed only after the custodian confirms.
type CampaignLedger struct {
	mu         sync.Mutex
	campaign   models.Campaign
	milestones MilestoneTable
	users      userBook
	applied    map[string]models.OperationReceipt

	custodian AssetCustodian
	now       func() time.Time
}

func newCampaignLedger(c models.Campaign, custodian AssetCustodian, now func() time.Time) *CampaignLedger {
	return &CampaignLedger{
		campaign:   c,
		milestones: NewMilestoneTable(c.TotalBudget),
		users:      make(userBook),
		applied:    make(map[string]models.OperationReceipt),
		custodian:  custodian,
		now:        now,
	}
}

// restoreCampaignLedger re-hydrates a ledger from a persisted snapshot
func restoreCampaignLedger(s models.CampaignSnapshot, custodian AssetCustodian, now func() time.Time) *CampaignLedger {
	l := &CampaignLedger{
		campaign:   s.Campaign,
		milestones: restoreMilestoneTable(s.Milestones),
		users:      make(userBook, len(s.Users)),
		applied:    make(map[string]models.OperationReceipt, len(s.Applied)),
		custodian:  custodian,
		now:        now,
	}
	if len(s.Milestones) == 0 {
		l.milestones = NewMilestoneTable(s.Campaign.TotalBudget)
	}
	for _, u := range s.Users {
		l.users[u.Participant] = &userLedger{stat: u}
	}
	for _, r := range s.Applied {
		l.applied[r.OperationID] = r
	}
	return l
}

// ID returns the campaign id
func (l *CampaignLedger) ID() string {
	return l.campaign.ID
}

type mutation func(r *models.OperationReceipt) error

// execute runs fn under the campaign lock. An operation id that was already
// applied returns its original receipt without running fn again.
func (l *CampaignLedger) execute(caller models.Caller, opID string, op models.Operation, fn mutation) (models.OperationReceipt, error) {
	opID = strings.TrimSpace(opID)
	if err := models.ValidateOperationID(opID); err != nil {
		return models.OperationReceipt{}, err
	}
	if err := models.ValidateLength("caller", caller.ID, models.MaxIdentityLength); err != nil {
		return models.OperationReceipt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.applied[opID]; ok {
		if prev.Operation != op {
			return models.OperationReceipt{}, fmt.Errorf("%w: operation id %s already used for %s", models.ErrInvalidArgument, opID, prev.Operation)
		}
		return prev, nil
	}

	r := models.OperationReceipt{
		OperationID: opID,
		CampaignID:  l.campaign.ID,
		Operation:   op,
		Caller:      caller.ID,
		Amount:      decimal.Zero,
		Score:       decimal.Zero,
	}
	if err := fn(&r); err != nil {
		return models.OperationReceipt{}, err
	}

	now := l.now()
	l.campaign.UpdatedAt = now
	r.State = l.campaign.State
	r.PoolBalance = l.campaign.PoolBalance
	r.At = now
	l.applied[opID] = r
	return r, nil
}

func (l *CampaignLedger) requireBrand(caller models.Caller) error {
	if caller.Role != models.RoleBrand || !caller.Is(l.campaign.Brand) {
		return fmt.Errorf("%w: only brand can call", models.ErrUnauthorized)
	}
	return nil
}

func requireAdmin(caller models.Caller) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: only admin can call", models.ErrUnauthorized)
	}
	return nil
}

func (l *CampaignLedger) requireState(allowed ...models.CampaignState) error {
	for _, s := range allowed {
		if l.campaign.State == s {
			return nil
		}
	}
	return fmt.Errorf("%w: campaign is %s", models.ErrInvalidState, l.campaign.State)
}

func (l *CampaignLedger) credit(ctx context.Context, opID, from string, amount decimal.Decimal) error {
	err := l.custodian.Credit(ctx, Transfer{
		Key:        transferKey(l.campaign.ID, opID),
		CampaignID: l.campaign.ID,
		Asset:      l.campaign.RewardAsset,
		Account:    from,
		Amount:     amount,
	})
	if errors.Is(err, ErrTransferConflict) {
		return fmt.Errorf("%w: credit %s %s from %s: %w", models.ErrInvalidArgument, amount, l.campaign.RewardAsset, from, err)
	}
	if err != nil {
		return fmt.Errorf("%w: credit %s %s from %s: %w", models.ErrCustodianFailure, amount, l.campaign.RewardAsset, from, err)
	}
	return nil
}

func (l *CampaignLedger) debit(ctx context.Context, opID, to string, amount decimal.Decimal) error {
	err := l.custodian.Debit(ctx, Transfer{
		Key:        transferKey(l.campaign.ID, opID),
		CampaignID: l.campaign.ID,
		Asset:      l.campaign.RewardAsset,
		Account:    to,
		Amount:     amount,
	})
	if errors.Is(err, ErrTransferConflict) {
		return fmt.Errorf("%w: debit %s %s to %s: %w", models.ErrInvalidArgument, amount, l.campaign.RewardAsset, to, err)
	}
	if err != nil {
		return fmt.Errorf("%w: debit %s %s to %s: %w", models.ErrCustodianFailure, amount, l.campaign.RewardAsset, to, err)
	}
	return nil
}

// InitialDeposit is the brand's one-time skin-in-the-game deposit
func (l *CampaignLedger) InitialDeposit(ctx context.Context, caller models.Caller, opID string, amount decimal.Decimal) (models.OperationReceipt, error) {
	return l.execute(caller, opID, models.OpInitialDeposit, func(r *models.OperationReceipt) error {
		if err := l.requireBrand(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StateActive); err != nil {
			return err
		}
		if l.campaign.Deposited || !l.campaign.PoolBalance.IsZero() {
			return fmt.Errorf("%w: initial deposit already made", models.ErrAlreadyDeposited)
		}
		if err := models.ValidateAmount("amount", amount); err != nil {
			return err
		}
		required := RequiredInitialDeposit(l.campaign.TotalBudget, l.campaign.MinDepositRatio)
		if amount.LessThan(required) {
			return fmt.Errorf("%w: %s is below the required %s", models.ErrInsufficientDeposit, amount, required)
		}
		if amount.GreaterThan(l.campaign.TotalBudget) {
			return fmt.Errorf("%w: %s exceeds budget %s", models.ErrBudgetExceeded, amount, l.campaign.TotalBudget)
		}
		if err := l.credit(ctx, r.OperationID, caller.ID, amount); err != nil {
			return err
		}

		l.campaign.Deposited = true
		l.campaign.PoolBalance = l.campaign.PoolBalance.Add(amount)
		l.campaign.TotalDeposited = l.campaign.TotalDeposited.Add(amount)
		r.Amount = amount
		return nil
	})
}

// DepositMore tops up the pool after the initial deposit. The pool never
// exceeds the total budget.
func (l *CampaignLedger) DepositMore(ctx context.Context, caller models.Caller, opID string, amount decimal.Decimal) (models.OperationReceipt, error) {
	return l.execute(caller, opID, models.OpDepositMore, func(r *models.OperationReceipt) error {
		if err := l.requireBrand(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StateActive); err != nil {
			return err
		}
		if !l.campaign.Deposited {
			return fmt.Errorf("%w: initial deposit required first", models.ErrInvalidState)
		}
		if err := models.ValidateAmount("amount", amount); err != nil {
			return err
		}
		next := l.campaign.PoolBalance.Add(amount)
		if next.GreaterThan(l.campaign.TotalBudget) {
			return fmt.Errorf("%w: pool would reach %s of %s", models.ErrBudgetExceeded, next, l.campaign.TotalBudget)
		}
		if err := l.credit(ctx, r.OperationID, caller.ID, amount); err != nil {
			return err
		}

		l.campaign.PoolBalance = next
		l.campaign.TotalDeposited = l.campaign.TotalDeposited.Add(amount)
		r.Amount = amount
		return nil
	})
}

// SubmitEngagement records a verified engagement score for a participant
// and re-evaluates the milestone table. Milestones never move funds.
func (l *CampaignLedger) SubmitEngagement(_ context.Context, caller models.Caller, opID, participant string, score decimal.Decimal, evidenceRef string) (models.OperationReceipt, error) {
	participant = strings.TrimSpace(participant)
	return l.execute(caller, opID, models.OpSubmitEngagement, func(r *models.OperationReceipt) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StateActive); err != nil {
			return err
		}
		req := models.EngagementRequest{Participant: participant, Score: score, EvidenceRef: evidenceRef}
		if err := req.Validate(); err != nil {
			return err
		}
		if l.users.isBlacklisted(participant) {
			return fmt.Errorf("%w: %s", models.ErrParticipantBlacklisted, participant)
		}

		l.users.getOrCreate(participant).addScore(score, l.now())
		l.campaign.TotalEngagementScore = l.campaign.TotalEngagementScore.Add(score)
		r.Unlocked = l.milestones.Evaluate(ProgressPercent(l.campaign.TotalEngagementScore, l.campaign.TotalBudget))
		l.campaign.CurrentMilestone = l.milestones.UnlockedCount()

		r.Participant = participant
		r.Score = score
		r.EvidenceRef = evidenceRef
		return nil
	})
}

// CalculateRewards is the amount participant could withdraw now
func (l *CampaignLedger) CalculateRewards(participant string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rewardFor(strings.TrimSpace(participant))
}

func (l *CampaignLedger) rewardFor(participant string) decimal.Decimal {
	u, ok := l.users.get(participant)
	if !ok {
		return decimal.Zero
	}
	return ComputeReward(
		l.campaign.PoolBalance,
		l.campaign.TotalRewardsPaid,
		u.stat.TotalScore,
		u.stat.Withdrawn,
		l.campaign.TotalEngagementScore,
	)
}

// WithdrawRewards pays the participant's current reward out of the pool.
// Allowed while ACTIVE, PAUSED or COMPLETED.
func (l *CampaignLedger) WithdrawRewards(ctx context.Context, caller models.Caller, opID, participant string) (models.OperationReceipt, error) {
	participant = strings.TrimSpace(participant)
	return l.execute(caller, opID, models.OpWithdrawRewards, func(r *models.OperationReceipt) error {
		if err := models.ValidateIdentity("participant", participant); err != nil {
			return err
		}
		if caller.Role != models.RoleParticipant || !caller.Is(participant) {
			return fmt.Errorf("%w: participants can only withdraw their own rewards", models.ErrUnauthorized)
		}
		if err := l.requireState(models.StateActive, models.StatePaused, models.StateCompleted); err != nil {
			return err
		}
		if l.users.isBlacklisted(participant) {
			return fmt.Errorf("%w: %s", models.ErrParticipantBlacklisted, participant)
		}
		amount := l.rewardFor(participant)
		if !amount.IsPositive() {
			return models.ErrNoRewardsAvailable
		}
		if err := l.debit(ctx, r.OperationID, participant, amount); err != nil {
			return err
		}

		l.campaign.PoolBalance = l.campaign.PoolBalance.Sub(amount)
		l.campaign.TotalRewardsPaid = l.campaign.TotalRewardsPaid.Add(amount)
		l.users.getOrCreate(participant).recordWithdrawal(amount)
		r.Participant = participant
		r.Amount = amount
		return nil
	})
}

// BlacklistUser excludes a participant from submissions and withdrawals.
// Score and past withdrawals are left untouched. A participant without
// submissions gets a zero record carrying only the flag; it is not counted
// as a participant.
func (l *CampaignLedger) BlacklistUser(_ context.Context, caller models.Caller, opID, participant, reason string) (models.OperationReceipt, error) {
	participant = strings.TrimSpace(participant)
	return l.execute(caller, opID, models.OpBlacklistUser, func(r *models.OperationReceipt) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StateActive, models.StatePaused); err != nil {
			return err
		}
		req := models.BlacklistRequest{Participant: participant, Reason: reason}
		if err := req.Validate(); err != nil {
			return err
		}
		l.users.getOrCreate(participant).blacklist(reason)
		r.Participant = participant
		r.Reason = reason
		return nil
	})
}

// RemoveFromBlacklist lifts the exclusion flag
func (l *CampaignLedger) RemoveFromBlacklist(_ context.Context, caller models.Caller, opID, participant string) (models.OperationReceipt, error) {
	participant = strings.TrimSpace(participant)
	return l.execute(caller, opID, models.OpRemoveFromBlacklist, func(r *models.OperationReceipt) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StateActive, models.StatePaused); err != nil {
			return err
		}
		if err := models.ValidateIdentity("participant", participant); err != nil {
			return err
		}
		if u, ok := l.users.get(participant); ok {
			u.unblacklist()
		}
		r.Participant = participant
		return nil
	})
}

// EmergencyPause moves ACTIVE to PAUSED
func (l *CampaignLedger) EmergencyPause(_ context.Context, caller models.Caller, opID string) (models.OperationReceipt, error) {
	return l.execute(caller, opID, models.OpEmergencyPause, func(_ *models.OperationReceipt) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StateActive); err != nil {
			return err
		}
		l.campaign.State = models.StatePaused
		return nil
	})
}

// ResumeCampaign moves PAUSED back to ACTIVE
func (l *CampaignLedger) ResumeCampaign(_ context.Context, caller models.Caller, opID string) (models.OperationReceipt, error) {
	return l.execute(caller, opID, models.OpResumeCampaign, func(_ *models.OperationReceipt) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StatePaused); err != nil {
			return err
		}
		l.campaign.State = models.StateActive
		return nil
	})
}

// CancelCampaign refunds the whole pool to the brand and closes the
// campaign. Accrued scores are kept for audit.
func (l *CampaignLedger) CancelCampaign(ctx context.Context, caller models.Caller, opID string) (models.OperationReceipt, error) {
	return l.execute(caller, opID, models.OpCancelCampaign, func(r *models.OperationReceipt) error {
		if err := l.requireBrand(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StateActive, models.StatePaused); err != nil {
			return err
		}
		refund := l.campaign.PoolBalance
		if refund.IsPositive() {
			if err := l.debit(ctx, r.OperationID, l.campaign.Brand, refund); err != nil {
				return err
			}
		}

		l.campaign.PoolBalance = decimal.Zero
		l.campaign.TotalRefunded = l.campaign.TotalRefunded.Add(refund)
		l.campaign.State = models.StateCancelled
		r.Amount = refund
		return nil
	})
}

// CompleteCampaign closes an ACTIVE campaign whose engagement target is
// fully reached. Participants withdraw afterwards.
func (l *CampaignLedger) CompleteCampaign(_ context.Context, caller models.Caller, opID string) (models.OperationReceipt, error) {
	return l.execute(caller, opID, models.OpCompleteCampaign, func(_ *models.OperationReceipt) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if err := l.requireState(models.StateActive); err != nil {
			return err
		}
		if !l.milestones.Complete() {
			return fmt.Errorf("%w: engagement target not reached", models.ErrInvalidState)
		}
		l.campaign.State = models.StateCompleted
		return nil
	})
}

// Campaign returns a copy of the campaign record
func (l *CampaignLedger) Campaign() models.Campaign {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.campaign
}

// State returns the lifecycle state
func (l *CampaignLedger) State() models.CampaignState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.campaign.State
}

// Stats is the dashboard projection
func (l *CampaignLedger) Stats() models.CampaignStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.campaign
	var remaining int64
	if !c.State.IsTerminal() {
		if left := c.EndTime().Sub(l.now()); left > 0 {
			remaining = int64(left / time.Second)
		}
	}
	return models.CampaignStats{
		CampaignID:           c.ID,
		Brand:                c.Brand,
		RewardAsset:          c.RewardAsset,
		State:                c.State,
		TotalBudget:          c.TotalBudget,
		PoolBalance:          c.PoolBalance,
		TotalEngagementScore: c.TotalEngagementScore,
		CurrentMilestone:     c.CurrentMilestone,
		TimeRemaining:        remaining,
		ParticipantCount:     l.users.participants(),
		TotalDeposited:       c.TotalDeposited,
		TotalRewardsPaid:     c.TotalRewardsPaid,
		TotalRefunded:        c.TotalRefunded,
	}
}

// UserStats returns the participant record; unknown participants get a
// zero record.
func (l *CampaignLedger) UserStats(participant string) models.UserStatsResponse {
	participant = strings.TrimSpace(participant)
	l.mu.Lock()
	defer l.mu.Unlock()

	stat := newUserLedger(participant).snapshot()
	if u, ok := l.users.get(participant); ok {
		stat = u.snapshot()
	}
	return models.UserStatsResponse{
		CampaignID:    l.campaign.ID,
		UserStat:      stat,
		PendingReward: l.rewardFor(participant),
	}
}

// Milestones returns a copy of the milestone table
func (l *CampaignLedger) Milestones() []models.Milestone {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.milestones.Entries()
}

// Snapshot captures the full ledger state for persistence
func (l *CampaignLedger) Snapshot() models.CampaignSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	applied := make([]models.OperationReceipt, 0, len(l.applied))
	for _, r := range l.applied {
		applied = append(applied, r)
	}
	sort.Slice(applied, func(i, j int) bool {
		return applied[i].At.Before(applied[j].At)
	})
	return models.CampaignSnapshot{
		Campaign:   l.campaign,
		Milestones: l.milestones.Entries(),
		Users:      l.users.snapshot(),
		Applied:    applied,
	}
}

// Receipt looks up an applied operation by id
func (l *CampaignLedger) Receipt(opID string) (models.OperationReceipt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.applied[opID]
	return r, ok
}
