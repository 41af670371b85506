package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-matching-service/internal/models"
)

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity log repository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Create stores an activity log entry
func (r *activityRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.ActivityDate.IsZero() {
		log.ActivityDate = time.Now()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// List returns activity logs, newest first
func (r *activityRepository) List(ctx context.Context, opts ActivityListOptions) ([]models.ActivityLog, int64, error) {
	var logs []models.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ActivityLog{})
	if opts.ActivityType != "" {
		query = query.Where("activity_type = ?", opts.ActivityType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	if err := query.Order("activity_date DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
