package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-matching-service/internal/models"
	"order-matching-service/internal/reconcile"
	"order-matching-service/internal/repository"
)

// UnknownProductName is shown for matched ids that no longer resolve
const UnknownProductName = "Unknown Product"

// BundleMatchView is a bundle match with its products resolved for display
type BundleMatchView struct {
	models.BundleMatch
	ProductNames []string `json:"productNames"`
}

// BundleMatchService manages the remembered SKU matches
type BundleMatchService struct {
	matches  repository.BundleMatchRepository
	products repository.ProductRepository
	activity ActivityRecorder
	logger   *logrus.Entry
}

// NewBundleMatchService creates a new bundle match service
func NewBundleMatchService(matches repository.BundleMatchRepository, products repository.ProductRepository, activity ActivityRecorder, logger *logrus.Logger) *BundleMatchService {
	return &BundleMatchService{
		matches:  matches,
		products: products,
		activity: activity,
		logger:   logger.WithField("component", "bundle_matches"),
	}
}

// List returns bundle matches, most recently matched first. search filters
// on marketplace, original SKU or original product name.
func (s *BundleMatchService) List(ctx context.Context, search string) ([]BundleMatchView, error) {
	matches, err := s.matches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundle matches: %w", err)
	}
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	catalog := reconcile.NewCatalog(products)

	term := strings.ToLower(strings.TrimSpace(search))
	views := make([]BundleMatchView, 0, len(matches))
	for _, m := range matches {
		if term != "" && !bundleMatchesSearch(&m, term) {
			continue
		}
		views = append(views, BundleMatchView{
			BundleMatch:  m,
			ProductNames: productNames(catalog, m.MatchedProductIDs),
		})
	}
	return views, nil
}

// Delete removes a bundle match. Orders already matched through it are not touched.
func (s *BundleMatchService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.matches.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrBundleMatchNotFound
	}
	if s.activity != nil {
		s.activity.Record(models.NewActivityLog(models.ActivityBundleDeleted).
			WithResource(id.String()).
			WithError(err).
			Build())
	}
	if err != nil {
		return fmt.Errorf("failed to delete bundle match: %w", err)
	}
	s.logger.WithField("bundleMatchId", id).Info("Deleted bundle match")
	return nil
}

func bundleMatchesSearch(m *models.BundleMatch, term string) bool {
	return strings.Contains(strings.ToLower(string(m.Marketplace)), term) ||
		strings.Contains(strings.ToLower(m.OriginalSKU), term) ||
		strings.Contains(strings.ToLower(m.OriginalProductName), term)
}

func productNames(catalog reconcile.Catalog, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := catalog.Lookup(id); ok {
			names = append(names, p.Name)
		} else {
			names = append(names, UnknownProductName)
		}
	}
	return names
}
