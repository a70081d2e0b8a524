package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndResolveStaffKey(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStaffKeyService(db)
	merchant := createTestMerchant(t, db)
	ctx := context.Background()

	resp, err := svc.CreateKey(ctx, merchant.ID, "Counter scanner", []models.StaffKeyScope{models.StaffKeyScopeVerify, models.StaffKeyScopeRedeem}, 0, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.APIKey, "sk_"))
	assert.Equal(t, 100, resp.Key.RateLimit) // default

	// Plaintext resolves to the stored key.
	key, err := svc.GetKey(ctx, resp.APIKey)
	require.NoError(t, err)
	assert.Equal(t, resp.Key.ID, key.ID)
	assert.True(t, key.HasScope(models.StaffKeyScopeVerify))
	assert.False(t, key.HasScope(models.StaffKeyScopeAdmin))

	// A bogus key does not.
	_, err = svc.GetKey(ctx, "sk_bogus")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestStaffKeyAdminImpliesAllScopes(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStaffKeyService(db)
	merchant := createTestMerchant(t, db)

	resp, err := svc.CreateKey(context.Background(), merchant.ID, "Owner key", []models.StaffKeyScope{models.StaffKeyScopeAdmin}, 50, nil)
	require.NoError(t, err)

	assert.True(t, resp.Key.HasScope(models.StaffKeyScopeVerify))
	assert.True(t, resp.Key.HasScope(models.StaffKeyScopeRedeem))
	assert.True(t, resp.Key.HasScope(models.StaffKeyScopeCatalog))
}

func TestStaffKeyInvalidScope(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStaffKeyService(db)
	merchant := createTestMerchant(t, db)

	_, err := svc.CreateKey(context.Background(), merchant.ID, "Bad key", []models.StaffKeyScope{"SUDO"}, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestRevokeStaffKey(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStaffKeyService(db)
	merchant := createTestMerchant(t, db)
	other := createTestMerchant(t, db)
	ctx := context.Background()

	resp, err := svc.CreateKey(ctx, merchant.ID, "Counter scanner", []models.StaffKeyScope{models.StaffKeyScopeVerify}, 0, nil)
	require.NoError(t, err)

	// Another merchant cannot revoke it.
	err = svc.RevokeKey(ctx, resp.Key.ID, other.ID)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	require.NoError(t, svc.RevokeKey(ctx, resp.Key.ID, merchant.ID))

	_, err = svc.GetKey(ctx, resp.APIKey)
	assert.ErrorIs(t, err, ErrAPIKeyExpired)

	// Revoking twice fails.
	err = svc.RevokeKey(ctx, resp.Key.ID, merchant.ID)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestExpiredStaffKey(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStaffKeyService(db)
	merchant := createTestMerchant(t, db)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	resp, err := svc.CreateKey(ctx, merchant.ID, "Old key", []models.StaffKeyScope{models.StaffKeyScopeVerify}, 0, &past)
	require.NoError(t, err)

	_, err = svc.GetKey(ctx, resp.APIKey)
	assert.ErrorIs(t, err, ErrAPIKeyExpired)
}
