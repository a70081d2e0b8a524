package services

import (
	"testing"

	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTransactionsByMemberPagination(t *testing.T) {
	db := setupTestDB(t)
	ledger, svc := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	for i := 0; i < 15; i++ {
		_, err := ledger.Credit(merchant.ID, member.ID, 10, "scan", nil)
		require.NoError(t, err)
	}

	page1, err := svc.GetTransactionsByMember(merchant.ID, member.ID, &models.PaginationRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 10)
	assert.Equal(t, 15, page1.TotalItems)
	assert.Equal(t, 2, page1.TotalPages)
	assert.True(t, page1.HasNext)
	assert.False(t, page1.HasPrev)

	page2, err := svc.GetTransactionsByMember(merchant.ID, member.ID, &models.PaginationRequest{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 5)
	assert.False(t, page2.HasNext)
	assert.True(t, page2.HasPrev)
}

func TestResolvePayoutIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ledger, svc := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	_, err := ledger.Credit(merchant.ID, member.ID, 100, "scan", nil)
	require.NoError(t, err)

	var merchantMember models.MerchantMember
	require.NoError(t, db.Where("merchant_id = ? AND member_id = ?", merchant.ID, member.ID).First(&merchantMember).Error)

	amount := decimal.NewFromInt(5)
	payout := &models.RewardTransaction{
		MerchantMemberID: merchantMember.ID,
		MerchantID:       merchant.ID,
		MemberID:         member.ID,
		Type:             models.RewardTransactionTypePayout,
		Amount:           0,
		USDCAmount:       &amount,
		Status:           models.RewardTransactionStatusPending,
	}
	require.NoError(t, svc.Record(payout))

	txHash := "0xabc"
	require.NoError(t, svc.ResolvePayout(payout.ID, true, &txHash, nil))

	resolved, err := svc.GetTransaction(payout.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RewardTransactionStatusSuccess, resolved.Status)
	require.NotNil(t, resolved.TxHash)
	assert.Equal(t, txHash, *resolved.TxHash)

	// A second, contradictory resolution is dropped.
	errMsg := "late failure callback"
	require.NoError(t, svc.ResolvePayout(payout.ID, false, nil, &errMsg))

	resolved, err = svc.GetTransaction(payout.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RewardTransactionStatusSuccess, resolved.Status)
	assert.Nil(t, resolved.ErrorMessage)
}

func TestReconcileBalance(t *testing.T) {
	db := setupTestDB(t)
	ledger, svc := newTestLedger(db)
	merchant := createTestMerchant(t, db)
	member := createTestMember(t, db)

	_, err := ledger.Credit(merchant.ID, member.ID, 100, "scan", nil)
	require.NoError(t, err)
	_, err = ledger.Debit(merchant.ID, member.ID, 30, "redeem", nil)
	require.NoError(t, err)

	report, err := svc.ReconcileMemberBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, int64(70), report.LedgerPoints)
	assert.Equal(t, int64(70), report.StreamPoints)
	assert.Equal(t, int64(0), report.Drift)

	// Introduce drift behind the ledger's back.
	require.NoError(t, db.Model(&models.MerchantMember{}).
		Where("merchant_id = ? AND member_id = ?", merchant.ID, member.ID).
		Update("points", 99).Error)

	report, err = svc.ReconcileMemberBalance(merchant.ID, member.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, int64(29), report.Drift)
}
