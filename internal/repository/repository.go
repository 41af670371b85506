package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-matching-service/internal/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// ProductRepository reads the product catalog
type ProductRepository interface {
	List(ctx context.Context) ([]models.Product, error)
}

// OrderRepository persists orders
type OrderRepository interface {
	List(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	CreateBatch(ctx context.Context, orders []*models.Order) error
	UpdateMatching(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistingOrderIDs(ctx context.Context, marketplace models.Marketplace, orderIDs []string) (map[string]bool, error)
}

// BundleMatchRepository persists bundle matches
type BundleMatchRepository interface {
	List(ctx context.Context) ([]models.BundleMatch, error)
	Create(ctx context.Context, match *models.BundleMatch) error
	Update(ctx context.Context, match *models.BundleMatch) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ActivityRepository persists activity log entries
type ActivityRepository interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	List(ctx context.Context, opts ActivityListOptions) ([]models.ActivityLog, int64, error)
}

// ActivityListOptions contains options for listing activity logs
type ActivityListOptions struct {
	ActivityType string
	Limit        int
	Offset       int
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
