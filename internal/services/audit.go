package services

import (
	"gorm.io/gorm"

	"motobms/internal/models"
)

// RecordAudit appends one audit row. Failures are returned, not fatal; the
// caller decides whether a missing audit row should roll back the action.
func RecordAudit(tx *gorm.DB, userID uint, entityType string, entityID uint, action string) error {
	return tx.Create(&models.AuditLog{
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
	}).Error
}
