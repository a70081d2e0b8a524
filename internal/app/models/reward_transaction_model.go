package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RewardTransactionType string

const (
	RewardTransactionTypeEarn   RewardTransactionType = "EARN"
	RewardTransactionTypeRedeem RewardTransactionType = "REDEEM"
	RewardTransactionTypeAdjust RewardTransactionType = "ADJUST"
	RewardTransactionTypePayout RewardTransactionType = "PAYOUT"
)

type RewardTransactionStatus string

const (
	RewardTransactionStatusPending RewardTransactionStatus = "PENDING"
	RewardTransactionStatusSuccess RewardTransactionStatus = "SUCCESS"
	RewardTransactionStatusFailed  RewardTransactionStatus = "FAILED"
)

// RewardTransaction is the append-only audit ledger. Amount is the signed
// points delta (negative for debits, zero for PAYOUT rows, whose value lives
// in USDCAmount). The only permitted mutation is resolving a PAYOUT row from
// PENDING to SUCCESS or FAILED.
type RewardTransaction struct {
	ID               uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantMemberID uuid.UUID               `gorm:"type:uuid;not null;index" json:"merchant_member_id"`
	MerchantID       uuid.UUID               `gorm:"type:uuid;not null;index" json:"merchant_id"`
	MemberID         uuid.UUID               `gorm:"type:uuid;not null;index" json:"member_id"`
	BusinessID       *uuid.UUID              `gorm:"type:uuid" json:"business_id,omitempty"`
	RedemptionID     *uuid.UUID              `gorm:"type:uuid;index" json:"redemption_id,omitempty"`
	Type             RewardTransactionType   `gorm:"type:varchar(10);not null" json:"type"`
	Amount           int64                   `gorm:"not null;default:0" json:"amount"`
	USDCAmount       *decimal.Decimal        `gorm:"type:decimal(18,6)" json:"usdc_amount,omitempty"`
	Reason           *string                 `gorm:"type:varchar(500)" json:"reason,omitempty"`
	Status           RewardTransactionStatus `gorm:"type:varchar(10);not null;default:'SUCCESS'" json:"status"`
	TxHash           *string                 `gorm:"type:varchar(80)" json:"tx_hash,omitempty"`
	ErrorMessage     *string                 `gorm:"type:varchar(500)" json:"error_message,omitempty"`
	CreatedAt        time.Time               `gorm:"autoCreateTime" json:"created_at"`
}

// ReconciliationReport compares the persisted running total against the summed
// transaction stream. Advisory only: drift is reported, never auto-corrected.
type ReconciliationReport struct {
	MerchantMemberID uuid.UUID `json:"merchant_member_id"`
	LedgerPoints     int64     `json:"ledger_points"`
	StreamPoints     int64     `json:"stream_points"`
	Drift            int64     `json:"drift"`
	Consistent       bool      `json:"consistent"`
}
