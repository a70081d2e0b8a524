package models

import (
	"time"

	"github.com/google/uuid"
)

// StaffKeyScope represents a staff API key permission scope.
type StaffKeyScope string

const (
	StaffKeyScopeVerify  StaffKeyScope = "VERIFY"
	StaffKeyScopeRedeem  StaffKeyScope = "REDEEM"
	StaffKeyScopeCatalog StaffKeyScope = "CATALOG"
	StaffKeyScopeAdmin   StaffKeyScope = "ADMIN"
)

// StaffAPIKey authenticates a merchant staff device (the QR scanner app).
// Only the SHA-256 hash of the key is stored; the plaintext is returned once
// at creation time.
type StaffAPIKey struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"merchant_id"`
	KeyName    string          `gorm:"type:varchar(100);not null" json:"key_name"`
	KeyHash    string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Prefix     string          `gorm:"type:varchar(16);not null" json:"prefix"`
	Scopes     []StaffKeyScope `gorm:"serializer:json" json:"scopes"`
	RateLimit  int             `gorm:"not null;default:100" json:"rate_limit"`
	LastUsedAt *time.Time      `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	RevokedAt  *time.Time      `json:"revoked_at,omitempty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsExpired checks if the key is past its expiry.
func (k *StaffAPIKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*k.ExpiresAt)
}

// IsActive checks if the key is neither revoked nor expired.
func (k *StaffAPIKey) IsActive() bool {
	return k.RevokedAt == nil && !k.IsExpired()
}

// HasScope checks if the key carries a specific scope. ADMIN implies all.
func (k *StaffAPIKey) HasScope(scope StaffKeyScope) bool {
	for _, s := range k.Scopes {
		if s == scope || s == StaffKeyScopeAdmin {
			return true
		}
	}
	return false
}

type StaffKeyCreateRequest struct {
	KeyName   string          `json:"key_name" validate:"required,max=100"`
	Scopes    []StaffKeyScope `json:"scopes" validate:"required,min=1,dive,oneof=VERIFY REDEEM CATALOG ADMIN"`
	RateLimit int             `json:"rate_limit" validate:"omitempty,min=1,max=1000"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// StaffKeyCreateResponse carries the plaintext key exactly once.
type StaffKeyCreateResponse struct {
	Key    *StaffAPIKey `json:"key"`
	APIKey string       `json:"api_key"`
}
