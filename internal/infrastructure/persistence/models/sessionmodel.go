package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/helpdeck/helpdeck/internal/shared/constants"
)

// SessionModel represents the database persistence model for sessions.
type SessionModel struct {
	ID                string    `gorm:"primarykey;size:64"`
	UserID            string    `gorm:"not null;size:64;index"`
	TokenID           string    `gorm:"not null;size:64"`
	ExpiresAt         time.Time `gorm:"not null;index"`
	LastTokenRotation time.Time `gorm:"not null"`
	LastSeenAt        time.Time `gorm:"not null"`
	Metadata          datatypes.JSON
	CreatedAt         time.Time
}

// TableName specifies the table name for GORM
func (SessionModel) TableName() string {
	return constants.TableSessions
}
