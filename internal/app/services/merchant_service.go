package services

import (
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
	"gorm.io/gorm"
)

// RewardLimitUnlimited marks a plan without a reward-count cap.
const RewardLimitUnlimited = -1

// planRewardLimits is the static plan → active-reward-count table. Greying is
// recomputed from it on every read, so a plan change takes effect without a
// migration.
var planRewardLimits = map[models.MerchantPlan]int{
	models.MerchantPlanFree:    3,
	models.MerchantPlanStarter: 10,
	models.MerchantPlanGrowth:  25,
	models.MerchantPlanPro:     RewardLimitUnlimited,
}

type MerchantService struct {
	db        *gorm.DB
	validator *infrastructures.Validator
}

func NewMerchantService(db *gorm.DB, validator *infrastructures.Validator) *MerchantService {
	return &MerchantService{
		db:        db,
		validator: validator,
	}
}

func (s *MerchantService) GetMerchant(merchantId uuid.UUID) (*models.Merchant, error) {
	var merchant models.Merchant
	err := s.db.Where("id = ?", merchantId).First(&merchant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Merchant not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get merchant")
	}

	return &merchant, nil
}

func (s *MerchantService) GetMerchantBySlug(slug string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := s.db.Where("slug = ?", slug).First(&merchant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Merchant not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get merchant")
	}

	return &merchant, nil
}

func (s *MerchantService) UpdateMerchant(merchantId uuid.UUID, req *models.MerchantUpdateRequest) (*models.Merchant, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	merchant, err := s.GetMerchant(merchantId)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		merchant.Name = *req.Name
	}
	if req.Plan != nil {
		merchant.Plan = *req.Plan
	}
	if req.VIPThreshold != nil {
		merchant.VIPThreshold = *req.VIPThreshold
	}
	if req.SuperThreshold != nil {
		merchant.SuperThreshold = *req.SuperThreshold
	}
	if req.PayoutsEnabled != nil {
		merchant.PayoutsEnabled = *req.PayoutsEnabled
	}
	if req.PayoutMilestonePoints != nil {
		merchant.PayoutMilestonePoints = *req.PayoutMilestonePoints
	}
	if req.PayoutAmountUSD != nil {
		merchant.PayoutAmountUSD = *req.PayoutAmountUSD
	}
	if req.PayoutMonthlyBudgetUSD != nil {
		merchant.PayoutMonthlyBudgetUSD = req.PayoutMonthlyBudgetUSD
	}
	if req.PayoutBudgetResetDay != nil {
		merchant.PayoutBudgetResetDay = *req.PayoutBudgetResetDay
	}

	if merchant.SuperThreshold < merchant.VIPThreshold {
		return nil, errors.NewBadRequestError("Super threshold must be greater than or equal to VIP threshold")
	}

	if err := s.db.Save(merchant).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to update merchant")
	}

	return merchant, nil
}

// RewardLimitForPlan returns the number of rewards redeemable under a plan,
// or RewardLimitUnlimited.
func (s *MerchantService) RewardLimitForPlan(plan models.MerchantPlan) int {
	if limit, ok := planRewardLimits[plan]; ok {
		return limit
	}
	return planRewardLimits[models.MerchantPlanFree]
}
