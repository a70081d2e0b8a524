package models

import (
	"time"

	"github.com/google/uuid"
)

type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "PENDING"
	RedemptionStatusConfirmed RedemptionStatus = "CONFIRMED"
	RedemptionStatusDeclined  RedemptionStatus = "DECLINED"
	RedemptionStatusCancelled RedemptionStatus = "CANCELLED"
	RedemptionStatusExpired   RedemptionStatus = "EXPIRED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s RedemptionStatus) IsTerminal() bool {
	return s != RedemptionStatusPending
}

// RedemptionRequest is the time-boxed coordination object between a member's
// redeem intent and the staff confirmation. It never holds a balance; the
// ledger row does. Mutated only by the verify/confirm/decline/cancel/expire
// transitions. The partial unique index admits at most one PENDING row per
// (member, reward), so concurrent creates cannot mint two live codes.
type RedemptionRequest struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID      uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_redemption_requests_live_pending,where:status = 'PENDING'" json:"member_id"`
	MerchantID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"merchant_id"`
	RewardID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_redemption_requests_live_pending,where:status = 'PENDING'" json:"reward_id"`
	BusinessID    *uuid.UUID       `gorm:"type:uuid" json:"business_id,omitempty"`
	QRCodeHash    string           `gorm:"type:varchar(128);uniqueIndex;not null" json:"qr_code_hash"`
	Status        RedemptionStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	MemberNote    *string          `gorm:"type:varchar(500)" json:"member_note,omitempty"`
	DeclineReason *string          `gorm:"type:varchar(500)" json:"decline_reason,omitempty"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	ExpiresAt     time.Time        `gorm:"not null;index" json:"expires_at"`
	ConfirmedAt   *time.Time       `json:"confirmed_at,omitempty"`
	DeclinedAt    *time.Time       `json:"declined_at,omitempty"`
}

// IsExpired reports whether the request's TTL has lapsed, regardless of the
// persisted status (expiry is flipped lazily on read).
func (r *RedemptionRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type RedemptionCreateRequest struct {
	MerchantID string  `json:"merchant_id" validate:"required,uuid"`
	RewardID   string  `json:"reward_id" validate:"required,uuid"`
	BusinessID *string `json:"business_id,omitempty" validate:"omitempty,uuid"`
	MemberNote *string `json:"member_note,omitempty" validate:"omitempty,max=500"`
}

type RedemptionCreateResponse struct {
	RedemptionID uuid.UUID `json:"redemption_id"`
	QRCodeData   string    `json:"qr_code_data"`
	QRCodeHash   string    `json:"qr_code_hash"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type RedemptionVerifyRequest struct {
	QRCodeData string `json:"qr_code_data" validate:"required,max=160"`
}

// RedemptionVerifyResponse is the staff-facing read-only preview shown before
// confirming.
type RedemptionVerifyResponse struct {
	RedemptionID  uuid.UUID `json:"redemption_id"`
	MemberID      uuid.UUID `json:"member_id"`
	MemberEmail   *string   `json:"member_email,omitempty"`
	RewardID      uuid.UUID `json:"reward_id"`
	RewardName    string    `json:"reward_name"`
	PointsCost    int64     `json:"points_cost"`
	MemberNote    *string   `json:"member_note,omitempty"`
	CurrentPoints int64     `json:"current_points"`
	Tier          Tier      `json:"tier"`
	ExpiresInSecs int64     `json:"expires_in_secs"`
}

type RedemptionConfirmRequest struct {
	BusinessID *string `json:"business_id,omitempty" validate:"omitempty,uuid"`
}

// PayoutOutcome reports the settlement leg of a USDC reward confirmation. The
// points debit has already committed by the time this is populated.
type PayoutOutcome struct {
	Status       RewardTransactionStatus `json:"status"`
	TxHash       *string                 `json:"tx_hash,omitempty"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
}

type RedemptionConfirmResponse struct {
	RedemptionID   uuid.UUID      `json:"redemption_id"`
	RewardName     string         `json:"reward_name"`
	PointsDeducted int64          `json:"points_deducted"`
	NewBalance     int64          `json:"new_balance"`
	NewTier        Tier           `json:"new_tier"`
	Payout         *PayoutOutcome `json:"payout,omitempty"`
}

type RedemptionDeclineRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type RedemptionStatusResponse struct {
	RedemptionID  uuid.UUID        `json:"redemption_id"`
	Status        RedemptionStatus `json:"status"`
	ExpiresInSecs int64            `json:"expires_in_secs"`
}
