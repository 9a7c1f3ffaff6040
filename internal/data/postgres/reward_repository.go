package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecocollect-billing/internal/domain/reward"
	"github.com/ecocollect-billing/internal/platform/persistence"
)

const rewardsCollectionConstraint = "rewards_source_collection_id_key"

// RewardRepository implements the reward.Repository interface for PostgreSQL
type RewardRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRewardRepository creates a new PostgreSQL reward repository
func NewRewardRepository(logger *slog.Logger, db *persistence.PostgresDB) reward.Repository {
	return &RewardRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *RewardRepository) WithTx(tx pgx.Tx) reward.Repository {
	return &RewardRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const rewardColumns = `id, resident_id, source_collection_id, category, label, amount, unit, earned_date,
		used, used_amount, used_date, used_for, created_by, created_at`

func scanReward(row pgx.Row) (*reward.Reward, error) {
	var rw reward.Reward
	err := row.Scan(
		&rw.ID,
		&rw.ResidentID,
		&rw.SourceCollectionID,
		&rw.Category,
		&rw.Label,
		&rw.Amount,
		&rw.Unit,
		&rw.EarnedDate,
		&rw.Used,
		&rw.UsedAmount,
		&rw.UsedDate,
		&rw.UsedFor,
		&rw.CreatedBy,
		&rw.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rw, nil
}

// Create stores a new reward credit
func (r *RewardRepository) Create(ctx context.Context, rw *reward.Reward) error {
	query := `
		INSERT INTO rewards (id, resident_id, source_collection_id, category, label, amount, unit, earned_date,
			used, used_amount, used_date, used_for, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		rw.ID,
		rw.ResidentID,
		rw.SourceCollectionID,
		rw.Category,
		rw.Label,
		rw.Amount,
		rw.Unit,
		rw.EarnedDate,
		rw.Used,
		rw.UsedAmount,
		rw.UsedDate,
		rw.UsedFor,
		rw.CreatedBy,
		rw.CreatedAt,
	)
	if err != nil {
		if uniqueViolation(err, rewardsCollectionConstraint) {
			return reward.ErrDuplicateReward{CollectionID: rw.SourceCollectionID}
		}
		r.logger.Error("Failed to create reward", "reward_id", rw.ID.String(), "error", err)
		return fmt.Errorf("failed to create reward: %w", err)
	}

	return nil
}

// GetByID retrieves a reward by its ID
func (r *RewardRepository) GetByID(ctx context.Context, id uuid.UUID) (*reward.Reward, error) {
	query := `
		SELECT ` + rewardColumns + `
		FROM rewards
		WHERE id = $1
	`

	rw, err := scanReward(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reward.ErrRewardNotFound{RewardID: id}
		}
		r.logger.Error("Failed to get reward", "reward_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	return rw, nil
}

// ListUnused retrieves a resident's unredeemed rewards, oldest earned first.
// The ordering is the redemption order: credits are consumed FIFO.
func (r *RewardRepository) ListUnused(ctx context.Context, residentID uuid.UUID) ([]*reward.Reward, error) {
	query := `
		SELECT ` + rewardColumns + `
		FROM rewards
		WHERE resident_id = $1 AND used = FALSE
		ORDER BY earned_date ASC, created_at ASC
	`

	return r.listRewards(ctx, query, residentID)
}

// ListByResident retrieves all of a resident's rewards, newest earned first
func (r *RewardRepository) ListByResident(ctx context.Context, residentID uuid.UUID) ([]*reward.Reward, error) {
	query := `
		SELECT ` + rewardColumns + `
		FROM rewards
		WHERE resident_id = $1
		ORDER BY earned_date DESC, created_at DESC
	`

	return r.listRewards(ctx, query, residentID)
}

func (r *RewardRepository) listRewards(ctx context.Context, query string, residentID uuid.UUID) ([]*reward.Reward, error) {
	rows, err := r.querier.Query(ctx, query, residentID)
	if err != nil {
		r.logger.Error("Failed to list rewards", "resident_id", residentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []*reward.Reward
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			r.logger.Error("Failed to scan reward", "error", err)
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, rw)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over rewards", "error", err)
		return nil, fmt.Errorf("error iterating over rewards: %w", err)
	}

	return rewards, nil
}

// Redeem consumes a reward with a compare-and-set on the used flag. A
// concurrent settlement that already consumed the credit is reported as
// ErrAlreadyUsed so the caller can skip it and move on.
func (r *RewardRepository) Redeem(ctx context.Context, id uuid.UUID, usedAmount int64, usedFor string, usedAt time.Time) error {
	query := `
		UPDATE rewards
		SET used = TRUE, used_amount = $1, used_date = $2, used_for = $3
		WHERE id = $4 AND used = FALSE
	`

	result, err := r.querier.Exec(ctx, query, usedAmount, usedAt, usedFor, id)
	if err != nil {
		r.logger.Error("Failed to redeem reward", "reward_id", id.String(), "error", err)
		return fmt.Errorf("failed to redeem reward: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return reward.ErrAlreadyUsed{RewardID: id}
	}

	return nil
}
