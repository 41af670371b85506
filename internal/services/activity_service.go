package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"order-matching-service/internal/events"
	"order-matching-service/internal/models"
	"order-matching-service/internal/repository"
)

// ActivityRecorder records activity log entries without blocking the caller.
// Failures are logged and never reported back.
type ActivityRecorder interface {
	Record(log *models.ActivityLog)
}

// ActivityService stores activity log entries and mirrors them to the event bus
type ActivityService struct {
	repo      repository.ActivityRepository
	publisher events.Publisher
	logger    *logrus.Entry
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewActivityService creates a new activity service
func NewActivityService(repo repository.ActivityRepository, publisher events.Publisher, logger *logrus.Logger) *ActivityService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ActivityService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "activity"),
		timeout:   10 * time.Second,
	}
}

// Log stores an entry and publishes it. A publish failure is logged only.
func (s *ActivityService) Log(ctx context.Context, log *models.ActivityLog) error {
	if err := s.repo.Create(ctx, log); err != nil {
		return err
	}
	if err := s.publisher.PublishActivity(ctx, log); err != nil {
		s.logger.WithError(err).WithField("activityType", log.ActivityType).Warn("Failed to publish activity event")
	}
	return nil
}

// Record logs an entry in the background
func (s *ActivityService) Record(log *models.ActivityLog) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Log(ctx, log); err != nil {
			s.logger.WithError(err).WithField("activityType", log.ActivityType).Warn("Failed to write activity log")
		}
	}()
}

// Wait blocks until background writes have finished
func (s *ActivityService) Wait() {
	s.wg.Wait()
}

// List retrieves activity logs
func (s *ActivityService) List(ctx context.Context, opts repository.ActivityListOptions) ([]models.ActivityLog, int64, error) {
	return s.repo.List(ctx, opts)
}
