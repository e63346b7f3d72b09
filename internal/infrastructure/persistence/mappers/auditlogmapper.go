package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/helpdeck/helpdeck/internal/domain/audit"
	"github.com/helpdeck/helpdeck/internal/infrastructure/persistence/models"
)

// AuditLogMapper handles the conversion between audit Entry domain entities and persistence models.
type AuditLogMapper interface {
	// ToModel converts a domain entity to a persistence model.
	ToModel(entity *audit.Entry) (*models.AuditLogModel, error)

	// ToDomain converts a persistence model to a domain entity.
	ToDomain(model *models.AuditLogModel) (*audit.Entry, error)
}

// AuditLogMapperImpl is the concrete implementation of AuditLogMapper.
type AuditLogMapperImpl struct{}

// NewAuditLogMapper creates a new AuditLogMapper.
func NewAuditLogMapper() AuditLogMapper {
	return &AuditLogMapperImpl{}
}

// ToModel converts a domain entity to a persistence model.
func (m *AuditLogMapperImpl) ToModel(entity *audit.Entry) (*models.AuditLogModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadataJSON datatypes.JSON
	if len(entity.Metadata) > 0 {
		data, err := json.Marshal(entity.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		metadataJSON = data
	}

	return &models.AuditLogModel{
		ID:           entity.ID,
		UserID:       entity.UserID,
		Action:       entity.Action,
		ResourceType: entity.ResourceType,
		ResourceID:   entity.ResourceID,
		Severity:     string(entity.Severity),
		Status:       string(entity.Status),
		Metadata:     metadataJSON,
		Timestamp:    entity.Timestamp,
	}, nil
}

// ToDomain converts a persistence model to a domain entity.
func (m *AuditLogMapperImpl) ToDomain(model *models.AuditLogModel) (*audit.Entry, error) {
	if model == nil {
		return nil, nil
	}

	var metadata map[string]any
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
		}
	}

	return &audit.Entry{
		ID:           model.ID,
		UserID:       model.UserID,
		Action:       model.Action,
		ResourceType: model.ResourceType,
		ResourceID:   model.ResourceID,
		Severity:     audit.Severity(model.Severity),
		Status:       audit.Status(model.Status),
		Metadata:     metadata,
		Timestamp:    model.Timestamp,
	}, nil
}
