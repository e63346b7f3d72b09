package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/helpdeck/helpdeck/internal/domain/session"
	"github.com/helpdeck/helpdeck/internal/infrastructure/persistence/models"
)

// SessionMapper handles the conversion between Session domain entities and persistence models.
type SessionMapper interface {
	// ToModel converts a domain entity to a persistence model.
	ToModel(entity *session.Session) (*models.SessionModel, error)

	// ToDomain converts a persistence model to a domain entity.
	ToDomain(model *models.SessionModel) (*session.Session, error)
}

// SessionMapperImpl is the concrete implementation of SessionMapper.
type SessionMapperImpl struct{}

// NewSessionMapper creates a new SessionMapper.
func NewSessionMapper() SessionMapper {
	return &SessionMapperImpl{}
}

// ToModel converts a domain entity to a persistence model.
func (m *SessionMapperImpl) ToModel(entity *session.Session) (*models.SessionModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadataJSON datatypes.JSON
	if len(entity.Metadata) > 0 {
		data, err := json.Marshal(entity.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session metadata: %w", err)
		}
		metadataJSON = data
	}

	return &models.SessionModel{
		ID:                entity.ID,
		UserID:            entity.UserID,
		TokenID:           entity.TokenID,
		ExpiresAt:         entity.ExpiresAt,
		LastTokenRotation: entity.LastTokenRotation,
		LastSeenAt:        entity.LastSeenAt,
		Metadata:          metadataJSON,
		CreatedAt:         entity.CreatedAt,
	}, nil
}

// ToDomain converts a persistence model to a domain entity.
func (m *SessionMapperImpl) ToDomain(model *models.SessionModel) (*session.Session, error) {
	if model == nil {
		return nil, nil
	}

	metadata := make(map[string]string)
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session metadata: %w", err)
		}
	}

	return &session.Session{
		ID:                model.ID,
		UserID:            model.UserID,
		TokenID:           model.TokenID,
		ExpiresAt:         model.ExpiresAt,
		LastTokenRotation: model.LastTokenRotation,
		LastSeenAt:        model.LastSeenAt,
		Metadata:          metadata,
		CreatedAt:         model.CreatedAt,
	}, nil
}
