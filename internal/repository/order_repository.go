package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-matching-service/internal/models"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// List returns all orders, newest first
func (r *orderRepository) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Order("order_date DESC").
		Find(&orders).Error
	return orders, err
}

// GetByID retrieves an order by ID
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// Create creates an order
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// CreateBatch creates orders in one transaction
func (r *orderRepository) CreateBatch(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, order := range orders {
			if order.ID == uuid.Nil {
				order.ID = uuid.New()
			}
			if err := tx.Create(order).Error; err != nil {
				return fmt.Errorf("failed to create order %s: %w", order.OrderID, err)
			}
		}
		return nil
	})
}

// UpdateMatching writes an order's items and matching flag
func (r *orderRepository) UpdateMatching(ctx context.Context, order *models.Order) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"items":                     order.Items,
			"requires_product_matching": order.RequiresProductMatching,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus writes an order's fulfilment status
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("order_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an order
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistingOrderIDs returns which of the marketplace order numbers are already stored
func (r *orderRepository) ExistingOrderIDs(ctx context.Context, marketplace models.Marketplace, orderIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(orderIDs) == 0 {
		return existing, nil
	}

	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("marketplace = ? AND order_id IN ?", marketplace, orderIDs).
		Pluck("order_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}
