package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/helpdeck/helpdeck/internal/shared/constants"
)

// AuditLogModel represents the database persistence model for audit log
// entries. Rows are append-only; there is no update or delete path.
type AuditLogModel struct {
	ID           uint   `gorm:"primarykey"`
	UserID       string `gorm:"not null;size:64;index"`
	Action       string `gorm:"not null;size:100;index"`
	ResourceType string `gorm:"size:100;index"`
	ResourceID   string `gorm:"size:64"`
	Severity     string `gorm:"not null;size:20;index"`
	Status       string `gorm:"not null;size:20;index"`
	Metadata     datatypes.JSON
	Timestamp    time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (AuditLogModel) TableName() string {
	return constants.TableAuditLogs
}
