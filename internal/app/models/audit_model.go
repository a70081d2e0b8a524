package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
)

// AuditLog records changes made to any entity in the system.
type AuditLog struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	TableName string      `json:"table_name" gorm:"type:varchar(50);not null"`
	RecordID  uuid.UUID   `json:"record_id" gorm:"type:uuid;not null"`
	Action    AuditAction `json:"action" gorm:"type:varchar(20);not null"`
	OldData   *string     `json:"old_data" gorm:"type:jsonb"`
	NewData   *string     `json:"new_data" gorm:"type:jsonb"`
	ChangedBy *uuid.UUID  `json:"changed_by" gorm:"type:uuid"`
	ChangedAt time.Time   `json:"changed_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// RedemptionStatusHistory records every redemption state transition with the
// acting party, for staff dispute resolution.
type RedemptionStatusHistory struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	RedemptionID uuid.UUID         `json:"redemption_id" gorm:"type:uuid;not null;index"`
	FromStatus   *RedemptionStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus     RedemptionStatus  `json:"to_status" gorm:"type:varchar(20);not null"`
	Reason       *string           `json:"reason" gorm:"type:text"`
	ActorID      *uuid.UUID        `json:"actor_id" gorm:"type:uuid"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}
