package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/prajwalbharadwajbm/clipescrow/internal/database"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
)

// PostgresRepository implements service.Repository using PostgreSQL
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *database.DB) service.Repository {
	return &PostgresRepository{
		db: db,
	}
}

type milestoneRow struct {
	CampaignID string `db:"campaign_id"`
	models.Milestone
}

type userStatRow struct {
	CampaignID string `db:"campaign_id"`
	models.UserStat
}

type operationRow struct {
	models.OperationReceipt
	Unlocked pq.Int64Array `db:"unlocked"`
	Seq      int64         `db:"seq"`
}

func (r operationRow) receipt() models.OperationReceipt {
	rec := r.OperationReceipt
	rec.Unlocked = nil
	for _, idx := range r.Unlocked {
		rec.Unlocked = append(rec.Unlocked, int(idx))
	}
	return rec
}

const upsertCampaignQuery = `
	INSERT INTO campaigns (
		id, brand, reward_asset, total_budget, min_deposit_ratio, duration_seconds, start_time,
		state, deposited, pool_balance, total_engagement_score, current_milestone,
		total_deposited, total_rewards_paid, total_refunded, sequence, created_at, updated_at
	) VALUES (
		:id, :brand, :reward_asset, :total_budget, :min_deposit_ratio, :duration_seconds, :start_time,
		:state, :deposited, :pool_balance, :total_engagement_score, :current_milestone,
		:total_deposited, :total_rewards_paid, :total_refunded, :sequence, :created_at, :updated_at
	)
	ON CONFLICT (id) DO UPDATE SET
		state = EXCLUDED.state,
		deposited = EXCLUDED.deposited,
		pool_balance = EXCLUDED.pool_balance,
		total_engagement_score = EXCLUDED.total_engagement_score,
		current_milestone = EXCLUDED.current_milestone,
		total_deposited = EXCLUDED.total_deposited,
		total_rewards_paid = EXCLUDED.total_rewards_paid,
		total_refunded = EXCLUDED.total_refunded,
		updated_at = EXCLUDED.updated_at
`

const upsertMilestoneQuery = `
	INSERT INTO milestones (campaign_id, idx, engagement_threshold, funding_required, unlocked)
	VALUES (:campaign_id, :idx, :engagement_threshold, :funding_required, :unlocked)
	ON CONFLICT (campaign_id, idx) DO UPDATE SET unlocked = EXCLUDED.unlocked
`

const upsertUserStatQuery = `
	INSERT INTO user_stats (
		campaign_id, participant, total_score, submission_count, withdrawn,
		is_blacklisted, blacklist_reason, last_submission_at
	) VALUES (
		:campaign_id, :participant, :total_score, :submission_count, :withdrawn,
		:is_blacklisted, :blacklist_reason, :last_submission_at
	)
	ON CONFLICT (campaign_id, participant) DO UPDATE SET
		total_score = EXCLUDED.total_score,
		submission_count = EXCLUDED.submission_count,
		withdrawn = EXCLUDED.withdrawn,
		is_blacklisted = EXCLUDED.is_blacklisted,
		blacklist_reason = EXCLUDED.blacklist_reason,
		last_submission_at = EXCLUDED.last_submission_at
`

const insertOperationQuery = `
	INSERT INTO operations (
		operation_id, campaign_id, operation, caller, participant, amount, score,
		evidence_ref, reason, unlocked, state, pool_balance, at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (campaign_id, operation_id) DO NOTHING
`

const selectOperationsQuery = `
	SELECT seq, operation_id, campaign_id, operation, caller, participant, amount, score,
		evidence_ref, reason, unlocked, state, pool_balance, at
	FROM operations
`

// SaveCampaign upserts the campaign, its milestones and user stats and
// journals the receipts in one transaction.
func (r *PostgresRepository) SaveCampaign(ctx context.Context, snapshot models.CampaignSnapshot, journal ...models.OperationReceipt) error {
	id := snapshot.Campaign.ID

	return r.db.Transact(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, upsertCampaignQuery, snapshot.Campaign); err != nil {
			return fmt.Errorf("failed to upsert campaign %s: %w", id, err)
		}

		for _, m := range snapshot.Milestones {
			if _, err := tx.NamedExecContext(ctx, upsertMilestoneQuery, milestoneRow{CampaignID: id, Milestone: m}); err != nil {
				return fmt.Errorf("failed to upsert milestone %d of %s: %w", m.Index, id, err)
			}
		}

		for _, u := range snapshot.Users {
			if _, err := tx.NamedExecContext(ctx, upsertUserStatQuery, userStatRow{CampaignID: id, UserStat: u}); err != nil {
				return fmt.Errorf("failed to upsert user %s of %s: %w", u.Participant, id, err)
			}
		}

		for _, rec := range journal {
			unlocked := make(pq.Int64Array, len(rec.Unlocked))
			for i, idx := range rec.Unlocked {
				unlocked[i] = int64(idx)
			}
			_, err := tx.ExecContext(ctx, insertOperationQuery,
				rec.OperationID, rec.CampaignID, rec.Operation, rec.Caller, rec.Participant,
				rec.Amount, rec.Score, rec.EvidenceRef, rec.Reason, unlocked,
				rec.State, rec.PoolBalance, rec.At,
			)
			if err != nil {
				return fmt.Errorf("failed to journal operation %s: %w", rec.OperationID, err)
			}
		}
		return nil
	})
}

// LoadCampaigns reads every campaign with milestones, users and journal
func (r *PostgresRepository) LoadCampaigns(ctx context.Context) ([]models.CampaignSnapshot, error) {
	var campaigns []models.Campaign
	err := r.db.SelectContext(ctx, &campaigns, `
		SELECT id, brand, reward_asset, total_budget, min_deposit_ratio, duration_seconds, start_time,
			state, deposited, pool_balance, total_engagement_score, current_milestone,
			total_deposited, total_rewards_paid, total_refunded, sequence, created_at, updated_at
		FROM campaigns
		ORDER BY sequence
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	if len(campaigns) == 0 {
		return []models.CampaignSnapshot{}, nil
	}

	var milestones []milestoneRow
	err = r.db.SelectContext(ctx, &milestones, `
		SELECT campaign_id, idx, engagement_threshold, funding_required, unlocked
		FROM milestones
		ORDER BY campaign_id, idx
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}

	var users []userStatRow
	err = r.db.SelectContext(ctx, &users, `
		SELECT campaign_id, participant, total_score, submission_count, withdrawn,
			is_blacklisted, blacklist_reason, last_submission_at
		FROM user_stats
		ORDER BY campaign_id, participant
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user stats: %w", err)
	}

	var ops []operationRow
	if err := r.db.SelectContext(ctx, &ops, selectOperationsQuery+" ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}

	milestonesByCampaign := make(map[string][]models.Milestone)
	for _, m := range milestones {
		milestonesByCampaign[m.CampaignID] = append(milestonesByCampaign[m.CampaignID], m.Milestone)
	}
	usersByCampaign := make(map[string][]models.UserStat)
	for _, u := range users {
		usersByCampaign[u.CampaignID] = append(usersByCampaign[u.CampaignID], u.UserStat)
	}
	opsByCampaign := make(map[string][]models.OperationReceipt)
	for _, op := range ops {
		opsByCampaign[op.CampaignID] = append(opsByCampaign[op.CampaignID], op.receipt())
	}

	snapshots := make([]models.CampaignSnapshot, 0, len(campaigns))
	for _, c := range campaigns {
		snapshots = append(snapshots, models.CampaignSnapshot{
			Campaign:   c,
			Milestones: milestonesByCampaign[c.ID],
			Users:      usersByCampaign[c.ID],
			Applied:    opsByCampaign[c.ID],
		})
	}
	return snapshots, nil
}

// ListOperations returns a campaign's journal in append order
func (r *PostgresRepository) ListOperations(ctx context.Context, campaignID string) ([]models.OperationReceipt, error) {
	var rows []operationRow
	if err := r.db.SelectContext(ctx, &rows, selectOperationsQuery+" WHERE campaign_id = $1 ORDER BY seq", campaignID); err != nil {
		return nil, fmt.Errorf("failed to query operations of %s: %w", campaignID, err)
	}

	ops := make([]models.OperationReceipt, 0, len(rows))
	for _, row := range rows {
		ops = append(ops, row.receipt())
	}
	return ops, nil
}

// SaveSupportedAsset stores an allow-listed asset
func (r *PostgresRepository) SaveSupportedAsset(ctx context.Context, asset string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO supported_assets (asset) VALUES ($1) ON CONFLICT (asset) DO NOTHING`, asset)
	if err != nil {
		return fmt.Errorf("failed to save asset %s: %w", asset, err)
	}
	return nil
}

// LoadSupportedAssets returns stored assets sorted
func (r *PostgresRepository) LoadSupportedAssets(ctx context.Context) ([]string, error) {
	var assets []string
	if err := r.db.SelectContext(ctx, &assets, `SELECT asset FROM supported_assets ORDER BY asset`); err != nil {
		return nil, fmt.Errorf("failed to query supported assets: %w", err)
	}
	return assets, nil
}
