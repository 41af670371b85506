package repository

import (
	"context"

	"gorm.io/gorm"

	"order-matching-service/internal/models"
)

type productRepository struct {
	db    *gorm.DB
	cache *Cache
}

// NewProductRepository creates a product repository with optional caching
func NewProductRepository(db *gorm.DB, cache *Cache) ProductRepository {
	return &productRepository{db: db, cache: cache}
}

// List returns the whole catalog ordered by name
func (r *productRepository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if r.cache.get(ctx, productListCacheKey, &products) {
		return products, nil
	}

	if err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, err
	}

	r.cache.set(ctx, productListCacheKey, products)
	return products, nil
}
