package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"gorm.io/gorm"
)

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// LogAudit creates an audit log entry for any change in the system
func (s *AuditService) LogAudit(tableName string, recordID uuid.UUID, action models.AuditAction, oldData, newData interface{}, changedBy *uuid.UUID) error {
	var oldDataJSON, newDataJSON *string

	if oldData != nil {
		jsonBytes, err := json.Marshal(oldData)
		if err != nil {
			return fmt.Errorf("failed to marshal old data: %w", err)
		}
		strJSON := string(jsonBytes)
		oldDataJSON = &strJSON
	}

	if newData != nil {
		jsonBytes, err := json.Marshal(newData)
		if err != nil {
			return fmt.Errorf("failed to marshal new data: %w", err)
		}
		strJSON := string(jsonBytes)
		newDataJSON = &strJSON
	}

	auditLog := &models.AuditLog{
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		OldData:   oldDataJSON,
		NewData:   newDataJSON,
		ChangedBy: changedBy,
		ChangedAt: time.Now(),
	}

	if err := s.db.Create(auditLog).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to create audit log")
	}

	return nil
}

// LogRedemptionStatusChange records a redemption state transition inside the
// same database transaction that performs it, so history never disagrees with
// the request row.
func (s *AuditService) LogRedemptionStatusChange(
	tx *gorm.DB,
	redemptionID uuid.UUID,
	fromStatus, toStatus models.RedemptionStatus,
	reason *string,
	actorID *uuid.UUID,
) error {
	// A creation event has no prior status.
	var from *models.RedemptionStatus
	if fromStatus != "" {
		from = &fromStatus
	}

	history := &models.RedemptionStatusHistory{
		RedemptionID: redemptionID,
		FromStatus:   from,
		ToStatus:     toStatus,
		Reason:       reason,
		ActorID:      actorID,
		CreatedAt:    time.Now(),
	}

	if err := tx.Create(history).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to create redemption status history")
	}

	return nil
}

// GetRedemptionStatusHistory retrieves the transition history for a redemption
func (s *AuditService) GetRedemptionStatusHistory(redemptionID uuid.UUID) ([]*models.RedemptionStatusHistory, error) {
	var history []*models.RedemptionStatusHistory
	if err := s.db.Where("redemption_id = ?", redemptionID).
		Order("created_at DESC").
		Find(&history).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get redemption status history")
	}

	return history, nil
}
