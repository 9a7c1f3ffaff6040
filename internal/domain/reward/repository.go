package reward

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines reward persistence operations
type Repository interface {
	Create(ctx context.Context, r *Reward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reward, error)

	// ListUnused returns redeemable rewards ordered by earned date
	// ascending, so redemption consumes the oldest credits first.
	ListUnused(ctx context.Context, residentID uuid.UUID) ([]*Reward, error)

	// ListByResident returns every reward, used and unused, newest earned first
	ListByResident(ctx context.Context, residentID uuid.UUID) ([]*Reward, error)

	// Redeem consumes the reward whole with a compare-and-set on the used
	// flag. usedAmount records how much value was actually applied, which
	// may be less than the reward's amount; the remainder is forfeited.
	// Returns ErrAlreadyUsed if a concurrent redemption won the race.
	Redeem(ctx context.Context, id uuid.UUID, usedAmount int64, usedFor string, usedAt time.Time) error

	WithTx(tx pgx.Tx) Repository
}

// ErrRewardNotFound indicates missing reward
type ErrRewardNotFound struct {
	RewardID uuid.UUID
}

func (e ErrRewardNotFound) Error() string {
	return "reward not found: " + e.RewardID.String()
}

// ErrAlreadyUsed indicates the reward was consumed by a concurrent
// redemption; callers treat it as unavailable and move on
type ErrAlreadyUsed struct {
	RewardID uuid.UUID
}

func (e ErrAlreadyUsed) Error() string {
	return "reward already used: " + e.RewardID.String()
}

// ErrDuplicateReward indicates a reward was already credited for the same
// collection and category
type ErrDuplicateReward struct {
	CollectionID uuid.UUID
}

func (e ErrDuplicateReward) Error() string {
	return "reward already credited for collection: " + e.CollectionID.String()
}
