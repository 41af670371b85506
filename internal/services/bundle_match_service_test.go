package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"order-matching-service/internal/models"
	"order-matching-service/internal/repository"
)

func TestBundleMatchService_ListResolvesNames(t *testing.T) {
	matches := new(MockBundleMatchRepository)
	products := new(MockProductRepository)
	svc := NewBundleMatchService(matches, products, nil, testLogger())

	matches.On("List", mock.Anything).Return([]models.BundleMatch{
		{ID: uuid.New(), Marketplace: models.MarketplaceAmazon, OriginalSKU: "BUNDLE-1", OriginalProductName: "Mystery Bundle", MatchedProductIDs: pq.StringArray{"p1", "gone"}},
		{ID: uuid.New(), Marketplace: models.MarketplaceEtsy, OriginalSKU: "CANDLE", MatchedProductIDs: pq.StringArray{"p1"}},
	}, nil)
	products.On("List", mock.Anything).Return([]models.Product{{ID: "p1", Name: "Blue Mug"}}, nil)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"Blue Mug", UnknownProductName}, all[0].ProductNames)

	filtered, err := svc.List(context.Background(), "mystery")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "BUNDLE-1", filtered[0].OriginalSKU)

	filtered, err = svc.List(context.Background(), "etsy")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "CANDLE", filtered[0].OriginalSKU)
}

func TestBundleMatchService_Delete(t *testing.T) {
	matches := new(MockBundleMatchRepository)
	activity := &recordingActivity{}
	svc := NewBundleMatchService(matches, new(MockProductRepository), activity, testLogger())

	id := uuid.New()
	missing := uuid.New()
	matches.On("Delete", mock.Anything, id).Return(nil)
	matches.On("Delete", mock.Anything, missing).Return(repository.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.ErrorIs(t, svc.Delete(context.Background(), missing), ErrBundleMatchNotFound)

	logs := activity.entries()
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActivityBundleDeleted, logs[0].ActivityType)
	assert.Equal(t, id.String(), *logs[0].ResourceID)
}
