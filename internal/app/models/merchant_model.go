package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MerchantPlan string

const (
	MerchantPlanFree    MerchantPlan = "FREE"
	MerchantPlanStarter MerchantPlan = "STARTER"
	MerchantPlanGrowth  MerchantPlan = "GROWTH"
	MerchantPlanPro     MerchantPlan = "PRO"
)

// Merchant is a tenant. Tier thresholds and payout settings are read by the
// ledger and payout services on every mutation, so changing them takes effect
// immediately without touching member rows.
type Merchant struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Slug           string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Name           string       `gorm:"type:varchar(255);not null" json:"name"`
	Plan           MerchantPlan `gorm:"type:varchar(20);not null;default:'FREE'" json:"plan"`
	VIPThreshold   int64        `gorm:"not null;default:100" json:"vip_threshold"`
	SuperThreshold int64        `gorm:"not null;default:500" json:"super_threshold"`

	PayoutsEnabled         bool             `gorm:"not null;default:false" json:"payouts_enabled"`
	PayoutMilestonePoints  int64            `gorm:"not null;default:0" json:"payout_milestone_points"`
	PayoutAmountUSD        decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"payout_amount_usd"`
	PayoutMonthlyBudgetUSD *decimal.Decimal `gorm:"type:decimal(18,6)" json:"payout_monthly_budget_usd,omitempty"`
	PayoutBudgetResetDay   int              `gorm:"not null;default:1" json:"payout_budget_reset_day"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

type MerchantUpdateRequest struct {
	Name                   *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Plan                   *MerchantPlan    `json:"plan,omitempty" validate:"omitempty,oneof=FREE STARTER GROWTH PRO"`
	VIPThreshold           *int64           `json:"vip_threshold,omitempty" validate:"omitempty,gt=0"`
	SuperThreshold         *int64           `json:"super_threshold,omitempty" validate:"omitempty,gt=0"`
	PayoutsEnabled         *bool            `json:"payouts_enabled,omitempty"`
	PayoutMilestonePoints  *int64           `json:"payout_milestone_points,omitempty" validate:"omitempty,min=0"`
	PayoutAmountUSD        *decimal.Decimal `json:"payout_amount_usd,omitempty" validate:"omitempty"`
	PayoutMonthlyBudgetUSD *decimal.Decimal `json:"payout_monthly_budget_usd,omitempty" validate:"omitempty"`
	PayoutBudgetResetDay   *int             `json:"payout_budget_reset_day,omitempty" validate:"omitempty,min=1,max=28"`
}
