package services

import (
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
	"gorm.io/gorm"
)

// RewardService manages the merchant reward catalog and the plan-limit
// visibility gate. Rewards beyond the merchant's plan limit stay in the
// catalog but are greyed out and not redeemable.
type RewardService struct {
	db              *gorm.DB
	validator       *infrastructures.Validator
	merchantService *MerchantService
}

func NewRewardService(db *gorm.DB, validator *infrastructures.Validator, merchantService *MerchantService) *RewardService {
	return &RewardService{
		db:              db,
		validator:       validator,
		merchantService: merchantService,
	}
}

func (s *RewardService) CreateReward(merchantId uuid.UUID, req *models.RewardCreateRequest) (*models.Reward, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.RewardType == models.RewardTypeUSDCPayout {
		if req.USDCAmount == nil || !req.USDCAmount.IsPositive() {
			return nil, errors.NewBadRequestError("USDC payout rewards require a positive usdc_amount")
		}
	} else if req.USDCAmount != nil {
		return nil, errors.NewBadRequestError("usdc_amount is only valid for USDC payout rewards")
	}

	reward := &models.Reward{
		MerchantID:  merchantId,
		Name:        req.Name,
		Description: req.Description,
		PointsCost:  req.PointsCost,
		RewardType:  req.RewardType,
		USDCAmount:  req.USDCAmount,
		IsActive:    true,
		SortOrder:   req.SortOrder,
	}

	if err := s.db.Create(reward).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to create reward")
	}

	return reward, nil
}

func (s *RewardService) GetReward(rewardId uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	err := s.db.Where("id = ?", rewardId).First(&reward).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Reward not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get reward")
	}

	return &reward, nil
}

func (s *RewardService) UpdateReward(merchantId, rewardId uuid.UUID, req *models.RewardUpdateRequest) (*models.Reward, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	reward, err := s.GetReward(rewardId)
	if err != nil {
		return nil, err
	}
	if reward.MerchantID != merchantId {
		return nil, errors.NewForbiddenError("Reward belongs to another merchant")
	}

	if req.Name != nil {
		reward.Name = *req.Name
	}
	if req.Description != nil {
		reward.Description = req.Description
	}
	if req.PointsCost != nil {
		reward.PointsCost = *req.PointsCost
	}
	if req.USDCAmount != nil {
		if reward.RewardType != models.RewardTypeUSDCPayout {
			return nil, errors.NewBadRequestError("usdc_amount is only valid for USDC payout rewards")
		}
		reward.USDCAmount = req.USDCAmount
	}
	if req.IsActive != nil {
		reward.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		reward.SortOrder = *req.SortOrder
	}

	if reward.RewardType == models.RewardTypeUSDCPayout && (reward.USDCAmount == nil || !reward.USDCAmount.IsPositive()) {
		return nil, errors.NewBadRequestError("USDC payout rewards require a positive usdc_amount")
	}

	if err := s.db.Save(reward).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to update reward")
	}

	return reward, nil
}

func (s *RewardService) DeleteReward(merchantId, rewardId uuid.UUID) error {
	reward, err := s.GetReward(rewardId)
	if err != nil {
		return err
	}
	if reward.MerchantID != merchantId {
		return errors.NewForbiddenError("Reward belongs to another merchant")
	}

	if err := s.db.Delete(reward).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to delete reward")
	}

	return nil
}

// GetRewardVisibility computes which active rewards fall within the
// merchant's plan limit. Rewards are ranked by sort_order then points_cost;
// everything past the limit is greyed. Computed on every call so a plan
// change takes effect immediately.
func (s *RewardService) GetRewardVisibility(merchantId uuid.UUID) (*models.RewardVisibility, error) {
	merchant, err := s.merchantService.GetMerchant(merchantId)
	if err != nil {
		return nil, err
	}

	rewards, err := s.activeRewards(merchantId)
	if err != nil {
		return nil, err
	}

	limit := s.merchantService.RewardLimitForPlan(merchant.Plan)

	visibility := &models.RewardVisibility{
		Active: make([]uuid.UUID, 0, len(rewards)),
		Greyed: make([]uuid.UUID, 0),
	}
	for i, reward := range rewards {
		if limit == RewardLimitUnlimited || i < limit {
			visibility.Active = append(visibility.Active, reward.ID)
		} else {
			visibility.Greyed = append(visibility.Greyed, reward.ID)
		}
	}

	return visibility, nil
}

// ListRewards returns the merchant's active catalog with each reward
// annotated by its computed greyed flag.
func (s *RewardService) ListRewards(merchantId uuid.UUID) ([]models.RewardListItem, error) {
	merchant, err := s.merchantService.GetMerchant(merchantId)
	if err != nil {
		return nil, err
	}

	rewards, err := s.activeRewards(merchantId)
	if err != nil {
		return nil, err
	}

	limit := s.merchantService.RewardLimitForPlan(merchant.Plan)

	items := make([]models.RewardListItem, 0, len(rewards))
	for i, reward := range rewards {
		items = append(items, models.RewardListItem{
			Reward: reward,
			Greyed: limit != RewardLimitUnlimited && i >= limit,
		})
	}

	return items, nil
}

// IsRedeemable gates a redemption attempt: the reward must exist, belong to
// the merchant, be active, and sit within the plan limit. A greyed reward
// fails with PLAN_RESTRICTED.
func (s *RewardService) IsRedeemable(merchantId, rewardId uuid.UUID) (*models.Reward, error) {
	reward, err := s.GetReward(rewardId)
	if err != nil {
		return nil, err
	}
	if reward.MerchantID != merchantId || !reward.IsActive {
		return nil, errors.NewNotFoundError("Reward not found")
	}

	visibility, err := s.GetRewardVisibility(merchantId)
	if err != nil {
		return nil, err
	}
	for _, greyedId := range visibility.Greyed {
		if greyedId == rewardId {
			return nil, errors.NewUnprocessableError(errors.CodePlanRestricted, "Reward is not available on the merchant's current plan")
		}
	}

	return reward, nil
}

func (s *RewardService) activeRewards(merchantId uuid.UUID) ([]models.Reward, error) {
	var rewards []models.Reward
	err := s.db.Where("merchant_id = ? AND is_active = ?", merchantId, true).
		Order("sort_order ASC, points_cost ASC").
		Find(&rewards).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to list rewards")
	}

	return rewards, nil
}
