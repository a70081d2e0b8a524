package services

import (
	"testing"

	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeTier(t *testing.T) {
	tests := []struct {
		name   string
		points int64
		want   models.Tier
	}{
		{"zero points", 0, models.TierBase},
		{"just below vip", 99, models.TierBase},
		{"at vip threshold", 100, models.TierVIP},
		{"between thresholds", 499, models.TierVIP},
		{"at super threshold", 500, models.TierSuper},
		{"above super", 10000, models.TierSuper},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecomputeTier(tt.points, 100, 500))
		})
	}
}

func TestGetBalanceLazyInit(t *testing.T) {
	db := setupTestDB(t)
	ledger, _ := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	balance, err := ledger.GetBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Points)
	assert.Equal(t, models.TierBase, balance.Tier)

	// The ledger row now exists with a referral code.
	var merchantMember models.MerchantMember
	require.NoError(t, db.Where("merchant_id = ? AND member_id = ?", merchant.ID, member.ID).First(&merchantMember).Error)
	require.NotNil(t, merchantMember.ReferralCode)
	assert.NotEmpty(t, *merchantMember.ReferralCode)
}

func TestCreditRecomputesTierAndRecordsTransaction(t *testing.T) {
	db := setupTestDB(t)
	ledger, _ := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	balance, err := ledger.Credit(merchant.ID, member.ID, 150, "scan", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance.Points)
	assert.Equal(t, models.TierVIP, balance.Tier)

	var txns []models.RewardTransaction
	require.NoError(t, db.Where("merchant_id = ? AND member_id = ?", merchant.ID, member.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, models.RewardTransactionTypeEarn, txns[0].Type)
	assert.Equal(t, int64(150), txns[0].Amount)
	assert.Equal(t, models.RewardTransactionStatusSuccess, txns[0].Status)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	db := setupTestDB(t)
	ledger, _ := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	_, err := ledger.Credit(merchant.ID, member.ID, 0, "scan", nil)
	require.Error(t, err)

	_, err = ledger.Credit(merchant.ID, member.ID, -5, "scan", nil)
	require.Error(t, err)
}

func TestCreditUpdatesVisitProjection(t *testing.T) {
	db := setupTestDB(t)
	ledger, _ := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	businessId := createTestMember(t, db).ID // any uuid will do as a location id

	_, err := ledger.Credit(merchant.ID, member.ID, 10, "scan", &businessId)
	require.NoError(t, err)
	_, err = ledger.Credit(merchant.ID, member.ID, 10, "scan", &businessId)
	require.NoError(t, err)

	var businessMember models.BusinessMember
	require.NoError(t, db.Where("business_id = ? AND member_id = ?", businessId, member.ID).First(&businessMember).Error)
	assert.Equal(t, int64(2), businessMember.VisitCount)
	assert.NotNil(t, businessMember.LastScanAt)

	// Points live on the merchant-level row only.
	balance, err := ledger.GetBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.Points)
}

func TestDebitInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	ledger, _ := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	_, err := ledger.Credit(merchant.ID, member.ID, 50, "scan", nil)
	require.NoError(t, err)

	_, err = ledger.Debit(merchant.ID, member.ID, 100, "redeem", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientBal))

	// Balance untouched, no REDEEM row written.
	balance, err := ledger.GetBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.Points)

	var count int64
	require.NoError(t, db.Model(&models.RewardTransaction{}).
		Where("member_id = ? AND type = ?", member.ID, models.RewardTransactionTypeRedeem).
		Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDebitRecomputesTierDownward(t *testing.T) {
	db := setupTestDB(t)
	ledger, _ := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	_, err := ledger.Credit(merchant.ID, member.ID, 600, "scan", nil)
	require.NoError(t, err)

	balance, err := ledger.Debit(merchant.ID, member.ID, 550, "redeem", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.Points)
	assert.Equal(t, models.TierBase, balance.Tier)
}

func TestAdjustPointsClampsAtZero(t *testing.T) {
	db := setupTestDB(t)
	ledger, _ := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	_, err := ledger.Credit(merchant.ID, member.ID, 30, "scan", nil)
	require.NoError(t, err)

	reason := "fraud correction"
	balance, err := ledger.AdjustPoints(merchant.ID, member.ID, -100, &reason)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Points)

	// The recorded delta is the applied one, keeping the stream summable.
	var adjust models.RewardTransaction
	require.NoError(t, db.Where("member_id = ? AND type = ?", member.ID, models.RewardTransactionTypeAdjust).First(&adjust).Error)
	assert.Equal(t, int64(-30), adjust.Amount)
}

func TestAdjustPointsRejectsZeroDelta(t *testing.T) {
	db := setupTestDB(t)
	ledger, _ := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	_, err := ledger.AdjustPoints(merchant.ID, member.ID, 0, nil)
	require.Error(t, err)
}
