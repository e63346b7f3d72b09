package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/helpdeck/helpdeck/internal/domain/audit"
	"github.com/helpdeck/helpdeck/internal/infrastructure/persistence/mappers"
	"github.com/helpdeck/helpdeck/internal/infrastructure/persistence/models"
)

const (
	defaultSearchLimit = 100
	maxSearchLimit     = 1000
)

type AuditLogRepository struct {
	db     *gorm.DB
	mapper mappers.AuditLogMapper
}

func NewAuditLogRepository(db *gorm.DB) audit.Repository {
	return &AuditLogRepository{
		db:     db,
		mapper: mappers.NewAuditLogMapper(),
	}
}

func (r *AuditLogRepository) Append(ctx context.Context, entry *audit.Entry) error {
	model, err := r.mapper.ToModel(entry)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	entry.ID = model.ID
	return nil
}

func (r *AuditLogRepository) Search(ctx context.Context, filter audit.Filter) ([]*audit.Entry, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", string(filter.Severity))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if !filter.From.IsZero() {
		query = query.Where("timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("timestamp < ?", filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var logModels []models.AuditLogModel
	err := query.Order("timestamp DESC").Limit(limit).Find(&logModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search audit entries: %w", err)
	}

	entries := make([]*audit.Entry, len(logModels))
	for i := range logModels {
		e, err := r.mapper.ToDomain(&logModels[i])
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	return entries, nil
}
