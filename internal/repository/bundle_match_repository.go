package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-matching-service/internal/models"
)

type bundleMatchRepository struct {
	db    *gorm.DB
	cache *Cache
}

// NewBundleMatchRepository creates a bundle match repository with optional caching
func NewBundleMatchRepository(db *gorm.DB, cache *Cache) BundleMatchRepository {
	return &bundleMatchRepository{db: db, cache: cache}
}

// List returns all bundle matches, most recently matched first
func (r *bundleMatchRepository) List(ctx context.Context) ([]models.BundleMatch, error) {
	var matches []models.BundleMatch
	if r.cache.get(ctx, bundleMatchListCacheKey, &matches) {
		return matches, nil
	}

	if err := r.db.WithContext(ctx).Order("last_matched DESC").Find(&matches).Error; err != nil {
		return nil, err
	}

	r.cache.set(ctx, bundleMatchListCacheKey, matches)
	return matches, nil
}

// Create creates a bundle match
func (r *bundleMatchRepository) Create(ctx context.Context, match *models.BundleMatch) error {
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	if match.LastMatched.IsZero() {
		match.LastMatched = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(match).Error; err != nil {
		return err
	}
	r.cache.invalidate(ctx, bundleMatchListCacheKey)
	return nil
}

// Update overwrites the mutable fields of an existing bundle match
func (r *bundleMatchRepository) Update(ctx context.Context, match *models.BundleMatch) error {
	result := r.db.WithContext(ctx).
		Model(&models.BundleMatch{}).
		Where("id = ?", match.ID).
		Updates(map[string]interface{}{
			"matched_product_ids":   match.MatchedProductIDs,
			"match_count":           match.MatchCount,
			"last_matched":          match.LastMatched,
			"original_product_name": match.OriginalProductName,
		})
	if result.Error != nil {
		return result.Error
	}
	r.cache.invalidate(ctx, bundleMatchListCacheKey)
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a bundle match
func (r *bundleMatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.BundleMatch{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	r.cache.invalidate(ctx, bundleMatchListCacheKey)
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
