package migration

import (
	"github.com/helpdeck/helpdeck/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.SessionModel{},
		&models.AuditLogModel{},
	}
}
