package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tier string

const (
	TierBase  Tier = "BASE"
	TierVIP   Tier = "VIP"
	TierSuper Tier = "SUPER"
)

// MerchantMember is the authoritative points ledger row: exactly one per
// (merchant, member) pair, aggregated across the merchant's locations. Created
// lazily on first merchant-scoped interaction. All points mutations go through
// the ledger service, which serializes them with a row lock.
type MerchantMember struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_merchant_member,priority:1" json:"merchant_id"`
	MemberID              uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_merchant_member,priority:2" json:"member_id"`
	Points                int64          `gorm:"not null;default:0" json:"points"`
	Tier                  Tier           `gorm:"type:varchar(10);not null;default:'BASE'" json:"tier"`
	LastBirthdayClaimYear *int           `json:"last_birthday_claim_year,omitempty"`
	ReferralCode          *string        `gorm:"type:varchar(20);uniqueIndex" json:"referral_code,omitempty"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BusinessMember is the location-scoped visit projection. It carries no points
// column: the MerchantMember row is the only balance holder, and this table is
// rebuilt from the same transaction stream for analytics.
type BusinessMember struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_business_member,priority:1" json:"business_id"`
	MerchantID uuid.UUID  `gorm:"type:uuid;not null;index" json:"merchant_id"`
	MemberID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_business_member,priority:2" json:"member_id"`
	VisitCount int64      `gorm:"not null;default:0" json:"visit_count"`
	LastScanAt *time.Time `json:"last_scan_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BalanceResponse is what members and staff see for a (merchant, member) pair.
type BalanceResponse struct {
	MerchantID uuid.UUID `json:"merchant_id"`
	MemberID   uuid.UUID `json:"member_id"`
	Points     int64     `json:"points"`
	Tier       Tier      `json:"tier"`
}

type AdjustPointsRequest struct {
	MemberID string  `json:"member_id" validate:"required,uuid"`
	Delta    int64   `json:"delta" validate:"required"`
	Reason   *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}
