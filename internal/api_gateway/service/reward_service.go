package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/domain/reward"
)

// RewardServiceImpl implements the RewardService interface
type RewardServiceImpl struct {
	rewardRepo reward.Repository
}

// NewRewardService creates a new reward service
func NewRewardService(rewardRepo reward.Repository) RewardService {
	return &RewardServiceImpl{
		rewardRepo: rewardRepo,
	}
}

// ListRewards returns the resident's rewards split into unused and used
func (s *RewardServiceImpl) ListRewards(ctx context.Context, residentID uuid.UUID) ([]*reward.Reward, []*reward.Reward, error) {
	all, err := s.rewardRepo.ListByResident(ctx, residentID)
	if err != nil {
		return nil, nil, err
	}

	var unused, used []*reward.Reward
	for _, r := range all {
		if r.Used {
			used = append(used, r)
		} else {
			unused = append(unused, r)
		}
	}

	return unused, used, nil
}
