package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RewardType string

const (
	RewardTypeTraditional RewardType = "TRADITIONAL"
	RewardTypeUSDCPayout  RewardType = "USDC_PAYOUT"
)

// Reward is a catalog item. Greying (plan-limit visibility) is computed on
// read, never stored, so plan changes apply instantly.
type Reward struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Name        string           `gorm:"type:varchar(255);not null" json:"name"`
	Description *string          `gorm:"type:text" json:"description,omitempty"`
	PointsCost  int64            `gorm:"not null" json:"points_cost"`
	RewardType  RewardType       `gorm:"type:varchar(20);not null;default:'TRADITIONAL'" json:"reward_type"`
	USDCAmount  *decimal.Decimal `gorm:"type:decimal(18,6)" json:"usdc_amount,omitempty"`
	IsActive    bool             `gorm:"not null;default:true" json:"is_active"`
	SortOrder   int              `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"deleted_at"`
}

type RewardCreateRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	PointsCost  int64            `json:"points_cost" validate:"required,gt=0"`
	RewardType  RewardType       `json:"reward_type" validate:"required,oneof=TRADITIONAL USDC_PAYOUT"`
	USDCAmount  *decimal.Decimal `json:"usdc_amount,omitempty"`
	SortOrder   int              `json:"sort_order" validate:"min=0"`
}

type RewardUpdateRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	PointsCost  *int64           `json:"points_cost,omitempty" validate:"omitempty,gt=0"`
	USDCAmount  *decimal.Decimal `json:"usdc_amount,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	SortOrder   *int             `json:"sort_order,omitempty" validate:"omitempty,min=0"`
}

// RewardVisibility splits a merchant's active catalog into the rewards within
// the plan limit and the greyed remainder.
type RewardVisibility struct {
	Active []uuid.UUID `json:"active"`
	Greyed []uuid.UUID `json:"greyed"`
}

// RewardListItem annotates a reward with its computed visibility for display.
type RewardListItem struct {
	Reward
	Greyed bool `json:"greyed"`
}
