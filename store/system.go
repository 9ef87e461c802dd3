package store

import (
	"context"
	"fmt"

	"auragold-backend/models"

	"gorm.io/gorm/clause"
)

// SaveError upserts a captured error; diagnosis updates reuse the same id.
func (s *Store) SaveError(ctx context.Context, e models.AppError) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("save error %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) SaveActivity(ctx context.Context, a models.ActivityLog) error {
	if err := s.conn(ctx).Create(&a).Error; err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

func (s *Store) RecentErrors(ctx context.Context, limit int) ([]models.AppError, error) {
	var out []models.AppError
	if err := s.conn(ctx).Order("timestamp DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("recent errors: %w", err)
	}
	return out, nil
}

func (s *Store) RecentActivities(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	if err := s.conn(ctx).Order("timestamp DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("recent activities: %w", err)
	}
	return out, nil
}

func (s *Store) ClearErrors(ctx context.Context) error {
	return s.conn(ctx).Where("1 = 1").Delete(&models.AppError{}).Error
}

func (s *Store) ClearActivities(ctx context.Context) error {
	return s.conn(ctx).Where("1 = 1").Delete(&models.ActivityLog{}).Error
}
