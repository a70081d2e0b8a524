package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB opens a per-test in-memory database and migrates the full
// schema. Each test gets its own named memory DB so parallel tests never
// share state.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Member{},
		&models.Merchant{},
		&models.MerchantMember{},
		&models.BusinessMember{},
		&models.Reward{},
		&models.RedemptionRequest{},
		&models.RewardTransaction{},
		&models.StaffAPIKey{},
		&models.AuditLog{},
		&models.RedemptionStatusHistory{},
	)
	require.NoError(t, err)

	return db
}

func newTestValidator() *infrastructures.Validator {
	return infrastructures.NewValidator()
}

func createTestMerchant(t *testing.T, db *gorm.DB) *models.Merchant {
	t.Helper()

	merchant := &models.Merchant{
		Slug:           "cafe-" + uuid.NewString()[:8],
		Name:           "Test Cafe",
		Plan:           models.MerchantPlanGrowth,
		VIPThreshold:   100,
		SuperThreshold: 500,
	}
	require.NoError(t, db.Create(merchant).Error)
	return merchant
}

func createTestMember(t *testing.T, db *gorm.DB) *models.Member {
	t.Helper()

	email := uuid.NewString()[:8] + "@example.com"
	member := &models.Member{
		ID:    uuid.New(),
		Email: &email,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func createTestReward(t *testing.T, db *gorm.DB, merchantId uuid.UUID, pointsCost int64) *models.Reward {
	t.Helper()

	reward := &models.Reward{
		MerchantID: merchantId,
		Name:       "Free Coffee",
		PointsCost: pointsCost,
		RewardType: models.RewardTypeTraditional,
		IsActive:   true,
	}
	require.NoError(t, db.Create(reward).Error)
	return reward
}

// newTestLedger wires a ledger service with its recorder against the test DB.
func newTestLedger(db *gorm.DB) (*LedgerService, *TransactionService) {
	transactionService := NewTransactionService(db)
	return NewLedgerService(db, transactionService), transactionService
}
