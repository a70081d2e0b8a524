package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrAPIKeyExpired = errors.New("API key expired")
	ErrInvalidScope  = errors.New("invalid scope")
)

// StaffKeyService manages the API keys used by merchant staff devices (the
// scanner app). Keys are stored hashed.
type StaffKeyService struct {
	db *gorm.DB
}

func NewStaffKeyService(db *gorm.DB) *StaffKeyService {
	return &StaffKeyService{db: db}
}

// CreateKey creates a new staff API key. The plaintext key is returned once
// and never stored.
func (s *StaffKeyService) CreateKey(ctx context.Context, merchantID uuid.UUID, keyName string, scopes []models.StaffKeyScope, rateLimit int, expiresAt *time.Time) (*models.StaffKeyCreateResponse, error) {
	for _, scope := range scopes {
		if !s.isValidScope(scope) {
			return nil, ErrInvalidScope
		}
	}

	if rateLimit <= 0 {
		rateLimit = 100
	}

	apiKey, prefix, err := s.generateKey()
	if err != nil {
		return nil, err
	}

	key := &models.StaffAPIKey{
		MerchantID: merchantID,
		KeyName:    keyName,
		KeyHash:    hashKey(apiKey),
		Prefix:     prefix,
		Scopes:     scopes,
		RateLimit:  rateLimit,
		ExpiresAt:  expiresAt,
	}

	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, err
	}

	return &models.StaffKeyCreateResponse{Key: key, APIKey: apiKey}, nil
}

// GetKey resolves a plaintext API key to its active record.
func (s *StaffKeyService) GetKey(ctx context.Context, apiKey string) (*models.StaffAPIKey, error) {
	var key models.StaffAPIKey
	if err := s.db.WithContext(ctx).Where("key_hash = ?", hashKey(apiKey)).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}

	if !key.IsActive() {
		return nil, ErrAPIKeyExpired
	}

	return &key, nil
}

// TouchKey updates the last-used timestamp, best-effort.
func (s *StaffKeyService) TouchKey(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&models.StaffAPIKey{}).
		Where("id = ?", id).
		Update("last_used_at", now).Error
}

// ListKeys lists all API keys for a merchant
func (s *StaffKeyService) ListKeys(ctx context.Context, merchantID uuid.UUID) ([]models.StaffAPIKey, error) {
	var keys []models.StaffAPIKey
	if err := s.db.WithContext(ctx).Where("merchant_id = ?", merchantID).Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// RevokeKey revokes an API key
func (s *StaffKeyService) RevokeKey(ctx context.Context, id uuid.UUID, merchantID uuid.UUID) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.StaffAPIKey{}).
		Where("id = ? AND merchant_id = ? AND revoked_at IS NULL", id, merchantID).
		Update("revoked_at", now)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidAPIKey
	}
	return nil
}

// generateKey generates a new API key with prefix
func (s *StaffKeyService) generateKey() (string, string, error) {
	prefix := "sk"
	bytes := make([]byte, 20)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}

	encoded := base32.StdEncoding.EncodeToString(bytes)
	encoded = strings.ReplaceAll(encoded, "=", "")

	return prefix + "_" + encoded, prefix, nil
}

func hashKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// isValidScope checks if a scope is valid
func (s *StaffKeyService) isValidScope(scope models.StaffKeyScope) bool {
	switch scope {
	case models.StaffKeyScopeVerify,
		models.StaffKeyScopeRedeem,
		models.StaffKeyScopeCatalog,
		models.StaffKeyScopeAdmin:
		return true
	default:
		return false
	}
}
