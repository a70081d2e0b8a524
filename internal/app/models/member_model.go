package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member is a natural person enrolled with one or more merchants. The ID is
// the subject ID issued by the external identity service, so sessions resolve
// directly to this row.
type Member struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email         *string        `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	WalletAddress *string        `gorm:"type:varchar(64);uniqueIndex" json:"wallet_address,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

type MemberRegisterRequest struct {
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	WalletAddress *string `json:"wallet_address,omitempty" validate:"omitempty,max=64"`
}

type MemberUpdateRequest struct {
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	WalletAddress *string `json:"wallet_address,omitempty" validate:"omitempty,max=64"`
}

// IdentityUser is the profile returned by the external identity service.
type IdentityUser struct {
	ID              uuid.UUID  `json:"id,omitempty"`
	Email           string     `json:"email,omitempty"`
	WalletAddress   string     `json:"wallet_address,omitempty"`
	FullName        string     `json:"full_name,omitempty"`
	IsEmailVerified bool       `json:"is_email_verified,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}
