package services

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"order-matching-service/internal/clients"
	"order-matching-service/internal/models"
	"order-matching-service/internal/repository"
)

// MockProductRepository is a mock implementation of repository.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

var _ repository.ProductRepository = (*MockProductRepository)(nil)

func (m *MockProductRepository) List(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

// MockOrderRepository is a mock implementation of repository.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

var _ repository.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) List(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil && order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockOrderRepository) CreateBatch(ctx context.Context, orders []*models.Order) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateMatching(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) ExistingOrderIDs(ctx context.Context, marketplace models.Marketplace, orderIDs []string) (map[string]bool, error) {
	args := m.Called(ctx, marketplace, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

// MockBundleMatchRepository is a mock implementation of repository.BundleMatchRepository
type MockBundleMatchRepository struct {
	mock.Mock
}

var _ repository.BundleMatchRepository = (*MockBundleMatchRepository)(nil)

func (m *MockBundleMatchRepository) List(ctx context.Context) ([]models.BundleMatch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BundleMatch), args.Error(1)
}

func (m *MockBundleMatchRepository) Create(ctx context.Context, match *models.BundleMatch) error {
	args := m.Called(ctx, match)
	if args.Error(0) == nil && match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockBundleMatchRepository) Update(ctx context.Context, match *models.BundleMatch) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockBundleMatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockActivityRepository is a mock implementation of repository.ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

var _ repository.ActivityRepository = (*MockActivityRepository)(nil)

func (m *MockActivityRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockActivityRepository) List(ctx context.Context, opts repository.ActivityListOptions) ([]models.ActivityLog, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.ActivityLog), args.Get(1).(int64), args.Error(2)
}

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishActivity(ctx context.Context, log *models.ActivityLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockPublisher) Close() {
	m.Called()
}

// MockOrderSource is a mock implementation of clients.OrderSource
type MockOrderSource struct {
	mock.Mock
}

func (m *MockOrderSource) Marketplace() models.Marketplace {
	return models.MarketplaceShopify
}

func (m *MockOrderSource) GetOrders(ctx context.Context, opts *clients.OrderListOptions) (*clients.OrdersResult, error) {
	args := m.Called(ctx, opts.Cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.OrdersResult), args.Error(1)
}

type staticProvider struct {
	source clients.OrderSource
	err    error
}

func (p staticProvider) OrderSource(context.Context, models.Marketplace) (clients.OrderSource, error) {
	return p.source, p.err
}

// recordingActivity keeps recorded activity entries in memory
type recordingActivity struct {
	mu   sync.Mutex
	logs []*models.ActivityLog
}

func (r *recordingActivity) Record(log *models.ActivityLog) {
	r.mu.Lock()
	r.logs = append(r.logs, log)
	r.mu.Unlock()
}

func (r *recordingActivity) entries() []*models.ActivityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.ActivityLog(nil), r.logs...)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
