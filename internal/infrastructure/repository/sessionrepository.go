package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/helpdeck/helpdeck/internal/domain/session"
	"github.com/helpdeck/helpdeck/internal/infrastructure/persistence/mappers"
	"github.com/helpdeck/helpdeck/internal/infrastructure/persistence/models"
	"github.com/helpdeck/helpdeck/internal/shared/biztime"
	"github.com/helpdeck/helpdeck/internal/shared/errors"
)

type SessionRepository struct {
	db     *gorm.DB
	mapper mappers.SessionMapper
}

func NewSessionRepository(db *gorm.DB) session.Repository {
	return &SessionRepository{
		db:     db,
		mapper: mappers.NewSessionMapper(),
	}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	model, err := r.mapper.ToModel(s)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*session.Session, error) {
	var model models.SessionModel
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("session not found")
		}
		return nil, fmt.Errorf("failed to get session by ID: %w", err)
	}
	return r.mapper.ToDomain(&model)
}

func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) ([]*session.Session, error) {
	var sessionModels []models.SessionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, biztime.NowUTC()).
		Order("last_seen_at DESC").
		Find(&sessionModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions by user ID: %w", err)
	}

	sessions := make([]*session.Session, len(sessionModels))
	for i := range sessionModels {
		s, err := r.mapper.ToDomain(&sessionModels[i])
		if err != nil {
			return nil, err
		}
		sessions[i] = s
	}
	return sessions, nil
}

func (r *SessionRepository) Update(ctx context.Context, s *session.Session) error {
	model, err := r.mapper.ToModel(s)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("session not found")
	}
	return nil
}

// UpdateToken installs a new token guarded on the rotation stamp the caller
// read. Concurrent rotations race on the same stamp and exactly one write
// lands; the rest observe ErrRotationConflict and must re-read.
func (r *SessionRepository) UpdateToken(ctx context.Context, sessionID string, prevRotation time.Time, tokenID string, rotatedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Where("id = ? AND last_token_rotation = ?", sessionID, prevRotation).
		Updates(map[string]any{
			"token_id":            tokenID,
			"last_token_rotation": rotatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update session token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.SessionModel{}).
			Where("id = ?", sessionID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		if count == 0 {
			return errors.NewNotFoundError("session not found")
		}
		return session.ErrRotationConflict
	}
	return nil
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID string, seenAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Where("id = ?", sessionID).
		Update("last_seen_at", seenAt).Error
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&models.SessionModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("session not found")
	}
	return nil
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SessionModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete sessions by user ID: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", biztime.NowUTC()).
		Delete(&models.SessionModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
