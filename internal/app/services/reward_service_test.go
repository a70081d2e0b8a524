package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRewardService(db *gorm.DB) *RewardService {
	validator := newTestValidator()
	merchantService := NewMerchantService(db, validator)
	return NewRewardService(db, validator, merchantService)
}

func seedRewards(t *testing.T, db *gorm.DB, merchantId uuid.UUID, n int) []*models.Reward {
	t.Helper()

	rewards := make([]*models.Reward, 0, n)
	for i := 0; i < n; i++ {
		reward := &models.Reward{
			MerchantID: merchantId,
			Name:       fmt.Sprintf("Reward %d", i),
			PointsCost: int64(100 * (i + 1)),
			RewardType: models.RewardTypeTraditional,
			IsActive:   true,
			SortOrder:  i,
		}
		require.NoError(t, db.Create(reward).Error)
		rewards = append(rewards, reward)
	}
	return rewards
}

func setPlan(t *testing.T, db *gorm.DB, merchantId uuid.UUID, plan models.MerchantPlan) {
	t.Helper()
	require.NoError(t, db.Model(&models.Merchant{}).Where("id = ?", merchantId).Update("plan", plan).Error)
}

func TestCreateRewardValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestRewardService(db)
	merchant := createTestMerchant(t, db)

	// Payout reward without an amount is rejected.
	_, err := svc.CreateReward(merchant.ID, &models.RewardCreateRequest{
		Name:       "Cash out",
		PointsCost: 1000,
		RewardType: models.RewardTypeUSDCPayout,
	})
	require.Error(t, err)

	amount := decimal.NewFromInt(5)
	reward, err := svc.CreateReward(merchant.ID, &models.RewardCreateRequest{
		Name:       "Cash out",
		PointsCost: 1000,
		RewardType: models.RewardTypeUSDCPayout,
		USDCAmount: &amount,
	})
	require.NoError(t, err)
	assert.True(t, reward.IsActive)

	// Traditional reward must not carry a USDC amount.
	_, err = svc.CreateReward(merchant.ID, &models.RewardCreateRequest{
		Name:       "Free Coffee",
		PointsCost: 100,
		RewardType: models.RewardTypeTraditional,
		USDCAmount: &amount,
	})
	require.Error(t, err)
}

func TestRewardVisibilityPlanLimits(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestRewardService(db)
	merchant := createTestMerchant(t, db)
	setPlan(t, db, merchant.ID, models.MerchantPlanFree)
	rewards := seedRewards(t, db, merchant.ID, 5)

	visibility, err := svc.GetRewardVisibility(merchant.ID)
	require.NoError(t, err)
	assert.Len(t, visibility.Active, 3)
	assert.Len(t, visibility.Greyed, 2)

	// Ranking is sort_order then points_cost, so the first three stay active.
	assert.Equal(t, rewards[0].ID, visibility.Active[0])
	assert.Equal(t, rewards[3].ID, visibility.Greyed[0])
}

func TestRewardVisibilityPlanChangeAppliesImmediately(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestRewardService(db)
	merchant := createTestMerchant(t, db)
	setPlan(t, db, merchant.ID, models.MerchantPlanFree)
	seedRewards(t, db, merchant.ID, 5)

	visibility, err := svc.GetRewardVisibility(merchant.ID)
	require.NoError(t, err)
	assert.Len(t, visibility.Greyed, 2)

	setPlan(t, db, merchant.ID, models.MerchantPlanPro)

	visibility, err = svc.GetRewardVisibility(merchant.ID)
	require.NoError(t, err)
	assert.Len(t, visibility.Active, 5)
	assert.Empty(t, visibility.Greyed)
}

func TestListRewardsAnnotatesGreyed(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestRewardService(db)
	merchant := createTestMerchant(t, db)
	setPlan(t, db, merchant.ID, models.MerchantPlanFree)
	seedRewards(t, db, merchant.ID, 4)

	items, err := svc.ListRewards(merchant.ID)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.False(t, items[0].Greyed)
	assert.False(t, items[2].Greyed)
	assert.True(t, items[3].Greyed)
}

func TestIsRedeemable(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestRewardService(db)
	merchant := createTestMerchant(t, db)
	other := createTestMerchant(t, db)
	setPlan(t, db, merchant.ID, models.MerchantPlanFree)
	rewards := seedRewards(t, db, merchant.ID, 4)

	// Within the plan limit.
	_, err := svc.IsRedeemable(merchant.ID, rewards[0].ID)
	require.NoError(t, err)

	// Greyed reward is plan restricted.
	_, err = svc.IsRedeemable(merchant.ID, rewards[3].ID)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodePlanRestricted))

	// Another merchant's reward reads as not found.
	_, err = svc.IsRedeemable(other.ID, rewards[0].ID)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	// Deactivated reward reads as not found.
	require.NoError(t, db.Model(&models.Reward{}).Where("id = ?", rewards[0].ID).Update("is_active", false).Error)
	_, err = svc.IsRedeemable(merchant.ID, rewards[0].ID)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}
