package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRedemptionService(db *gorm.DB) (*RedemptionService, *LedgerService) {
	validator := newTestValidator()
	identityService := NewIdentityService()
	memberService := NewMemberService(db, validator, identityService)
	merchantService := NewMerchantService(db, validator)
	transactionService := NewTransactionService(db)
	ledgerService := NewLedgerService(db, transactionService)
	rewardService := NewRewardService(db, validator, merchantService)
	auditService := NewAuditService(db)
	payoutService := NewPayoutService(db, &infrastructures.TreasuryClient{}, transactionService, memberService, merchantService, NewNotificationService())

	return NewRedemptionService(db, validator, ledgerService, rewardService, payoutService, auditService, memberService), ledgerService
}

func createRedemption(t *testing.T, svc *RedemptionService, memberId uuid.UUID, merchantId, rewardId uuid.UUID) *models.RedemptionCreateResponse {
	t.Helper()

	resp, err := svc.Create(memberId, &models.RedemptionCreateRequest{
		MerchantID: merchantId.String(),
		RewardID:   rewardId.String(),
	})
	require.NoError(t, err)
	return resp
}

func TestCreateRedemption(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	resp := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)
	assert.True(t, strings.HasPrefix(resp.QRCodeData, pkg.QRRedeemPrefix))
	assert.Equal(t, resp.QRCodeHash, pkg.StripQRPrefix(resp.QRCodeData))
	assert.WithinDuration(t, time.Now().Add(RedemptionTTL), resp.ExpiresAt, 5*time.Second)

	// Creating does not hold points.
	balance, err := ledger.GetBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance.Points)
}

func TestCreateRedemptionInsufficientPoints(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 50, "scan", nil)
	require.NoError(t, err)

	_, err = svc.Create(member.ID, &models.RedemptionCreateRequest{
		MerchantID: merchant.ID.String(),
		RewardID:   reward.ID.String(),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientPoints))
}

func TestCreateRedemptionReturnsExistingPending(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	first := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)
	second := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	assert.Equal(t, first.RedemptionID, second.RedemptionID)
	assert.Equal(t, first.QRCodeHash, second.QRCodeHash)
}

func TestDuplicateLivePendingRejectedBySchema(t *testing.T) {
	db := setupTestDB(t)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	first := &models.RedemptionRequest{
		MemberID:   member.ID,
		MerchantID: merchant.ID,
		RewardID:   reward.ID,
		QRCodeHash: "hash-one",
		Status:     models.RedemptionStatusPending,
		ExpiresAt:  time.Now().Add(RedemptionTTL),
	}
	require.NoError(t, db.Create(first).Error)

	// A second PENDING row for the same (member, reward) violates the partial
	// unique index even when two writers raced past the application check.
	second := &models.RedemptionRequest{
		MemberID:   member.ID,
		MerchantID: merchant.ID,
		RewardID:   reward.ID,
		QRCodeHash: "hash-two",
		Status:     models.RedemptionStatusPending,
		ExpiresAt:  time.Now().Add(RedemptionTTL),
	}
	require.Error(t, db.Create(second).Error)

	// Terminal rows do not occupy the index slot.
	declined := &models.RedemptionRequest{
		MemberID:   member.ID,
		MerchantID: merchant.ID,
		RewardID:   reward.ID,
		QRCodeHash: "hash-three",
		Status:     models.RedemptionStatusDeclined,
		ExpiresAt:  time.Now().Add(RedemptionTTL),
	}
	require.NoError(t, db.Create(declined).Error)
}

func TestCreateAfterStalePendingMintsNewCode(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	first := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	// The old request lapses but the sweep has not run yet.
	require.NoError(t, db.Model(&models.RedemptionRequest{}).
		Where("id = ?", first.RedemptionID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	second := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)
	assert.NotEqual(t, first.RedemptionID, second.RedemptionID)
	assert.NotEqual(t, first.QRCodeHash, second.QRCodeHash)

	var stale models.RedemptionRequest
	require.NoError(t, db.Where("id = ?", first.RedemptionID).First(&stale).Error)
	assert.Equal(t, models.RedemptionStatusExpired, stale.Status)
}

func TestVerifyRedemption(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	resp, err := svc.Verify(merchant.ID, &models.RedemptionVerifyRequest{QRCodeData: created.QRCodeData})
	require.NoError(t, err)
	assert.Equal(t, created.RedemptionID, resp.RedemptionID)
	assert.Equal(t, reward.Name, resp.RewardName)
	assert.Equal(t, int64(100), resp.PointsCost)
	assert.Equal(t, int64(200), resp.CurrentPoints)
	assert.Positive(t, resp.ExpiresInSecs)

	// Verify is read-only; the request stays PENDING.
	var redemption models.RedemptionRequest
	require.NoError(t, db.Where("id = ?", created.RedemptionID).First(&redemption).Error)
	assert.Equal(t, models.RedemptionStatusPending, redemption.Status)
}

func TestVerifyWrongMerchant(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	other := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	_, err = svc.Verify(other.ID, &models.RedemptionVerifyRequest{QRCodeData: created.QRCodeData})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeWrongMerchant))
}

func TestVerifyUnknownCode(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)

	_, err := svc.Verify(merchant.ID, &models.RedemptionVerifyRequest{QRCodeData: "gob:redeem:deadbeef"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestConfirmRedemption(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 150, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	resp, err := svc.Confirm(merchant.ID, created.RedemptionID, &models.RedemptionConfirmRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), resp.PointsDeducted)
	assert.Equal(t, int64(50), resp.NewBalance)
	assert.Equal(t, models.TierBase, resp.NewTier)
	assert.Nil(t, resp.Payout)

	var redemption models.RedemptionRequest
	require.NoError(t, db.Where("id = ?", created.RedemptionID).First(&redemption).Error)
	assert.Equal(t, models.RedemptionStatusConfirmed, redemption.Status)
	require.NotNil(t, redemption.ConfirmedAt)

	// REDEEM transaction written, linked to the redemption.
	var txn models.RewardTransaction
	require.NoError(t, db.Where("redemption_id = ?", created.RedemptionID).First(&txn).Error)
	assert.Equal(t, models.RewardTransactionTypeRedeem, txn.Type)
	assert.Equal(t, int64(-100), txn.Amount)

	// Status history recorded.
	var history []models.RedemptionStatusHistory
	require.NoError(t, db.Where("redemption_id = ?", created.RedemptionID).Find(&history).Error)
	assert.Len(t, history, 2) // PENDING on create, CONFIRMED on confirm
}

func TestConfirmTwiceConflicts(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 300, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	_, err = svc.Confirm(merchant.ID, created.RedemptionID, &models.RedemptionConfirmRequest{}, nil)
	require.NoError(t, err)

	_, err = svc.Confirm(merchant.ID, created.RedemptionID, &models.RedemptionConfirmRequest{}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAlreadyConfirmed))

	// Only one debit happened.
	balance, err := ledger.GetBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance.Points)
}

func TestConfirmInsufficientPointsLeavesPending(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 100, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	// Balance drops between create and confirm.
	reason := "correction"
	_, err = ledger.AdjustPoints(merchant.ID, member.ID, -50, &reason)
	require.NoError(t, err)

	_, err = svc.Confirm(merchant.ID, created.RedemptionID, &models.RedemptionConfirmRequest{}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientPoints))

	// The request survives as PENDING so the member can earn more and retry.
	var redemption models.RedemptionRequest
	require.NoError(t, db.Where("id = ?", created.RedemptionID).First(&redemption).Error)
	assert.Equal(t, models.RedemptionStatusPending, redemption.Status)

	balance, err := ledger.GetBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.Points)
}

func TestConfirmExpiredRequest(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	// Force the TTL to lapse.
	require.NoError(t, db.Model(&models.RedemptionRequest{}).
		Where("id = ?", created.RedemptionID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = svc.Confirm(merchant.ID, created.RedemptionID, &models.RedemptionConfirmRequest{}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeExpired))

	// The lazy flip persisted even though the confirm failed.
	var redemption models.RedemptionRequest
	require.NoError(t, db.Where("id = ?", created.RedemptionID).First(&redemption).Error)
	assert.Equal(t, models.RedemptionStatusExpired, redemption.Status)

	// No points moved.
	balance, err := ledger.GetBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance.Points)
}

func TestDeclineRedemption(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	reason := "out of stock"
	declined, err := svc.Decline(merchant.ID, created.RedemptionID, &models.RedemptionDeclineRequest{Reason: &reason}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusDeclined, declined.Status)
	require.NotNil(t, declined.DeclineReason)
	assert.Equal(t, reason, *declined.DeclineReason)

	// Declining never touches the balance.
	balance, err := ledger.GetBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance.Points)

	// And confirm afterwards conflicts.
	_, err = svc.Confirm(merchant.ID, created.RedemptionID, &models.RedemptionConfirmRequest{}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAlreadyDeclined))
}

func TestCancelRedemption(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	other := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	// Only the owner may cancel.
	_, err = svc.Cancel(other.ID, created.RedemptionID)
	require.Error(t, err)

	cancelled, err := svc.Cancel(member.ID, created.RedemptionID)
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusCancelled, cancelled.Status)

	_, err = svc.Confirm(merchant.ID, created.RedemptionID, &models.RedemptionConfirmRequest{}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAlreadyCancelled))
}

func TestGetStatusLazyExpiry(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	status, err := svc.GetStatus(member.ID, created.RedemptionID)
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusPending, status.Status)
	assert.Positive(t, status.ExpiresInSecs)

	require.NoError(t, db.Model(&models.RedemptionRequest{}).
		Where("id = ?", created.RedemptionID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	status, err = svc.GetStatus(member.ID, created.RedemptionID)
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusExpired, status.Status)
	assert.Equal(t, int64(0), status.ExpiresInSecs)
}

func TestExpireStaleRequests(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	for i := 0; i < 3; i++ {
		member := createTestMember(t, db)
		_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
		require.NoError(t, err)
		createRedemption(t, svc, member.ID, merchant.ID, reward.ID)
	}

	// Age two of the three.
	var stale []models.RedemptionRequest
	require.NoError(t, db.Limit(2).Find(&stale).Error)
	for _, r := range stale {
		require.NoError(t, db.Model(&models.RedemptionRequest{}).
			Where("id = ?", r.ID).
			Update("expires_at", time.Now().Add(-time.Minute)).Error)
	}

	n, err := svc.ExpireStaleRequests()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	pending, err := svc.ListPendingForMerchant(merchant.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestHistoryScopedToOwningMerchant(t *testing.T) {
	db := setupTestDB(t)
	svc, ledger := newTestRedemptionService(db)
	merchant := createTestMerchant(t, db)
	other := createTestMerchant(t, db)
	member := createTestMember(t, db)
	reward := createTestReward(t, db, merchant.ID, 100)

	_, err := ledger.Credit(merchant.ID, member.ID, 200, "scan", nil)
	require.NoError(t, err)

	created := createRedemption(t, svc, member.ID, merchant.ID, reward.ID)

	reason := "out of stock"
	_, err = svc.Decline(merchant.ID, created.RedemptionID, &models.RedemptionDeclineRequest{Reason: &reason}, nil)
	require.NoError(t, err)

	history, err := svc.History(merchant.ID, created.RedemptionID)
	require.NoError(t, err)
	assert.Len(t, history, 2) // PENDING on create, DECLINED on decline

	// Another merchant's key must not read this tenant's transitions.
	_, err = svc.History(other.ID, created.RedemptionID)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeWrongMerchant))

	_, err = svc.History(merchant.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}
