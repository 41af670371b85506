package handlers

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"order-matching-service/internal/models"
	"order-matching-service/internal/reconcile"
	"order-matching-service/internal/repository"
	"order-matching-service/internal/services"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ListComplete(ctx context.Context, filter services.OrderFilter) (*services.OrderList, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrderList), args.Error(1)
}

func (m *MockOrderService) ListIncomplete(ctx context.Context, search string) ([]models.Order, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, reconcile.OrderState, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, reconcile.StateNeedsMatching, args.Error(2)
	}
	return args.Get(0).(*models.Order), args.Get(1).(reconcile.OrderState), args.Error(2)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderService) CreateTestOrder(ctx context.Context) (*models.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockOrderImporter struct {
	mock.Mock
}

func (m *MockOrderImporter) Preview(ctx context.Context, file io.Reader, fileName string, marketplace models.Marketplace) (*services.ImportPreview, error) {
	body, _ := io.ReadAll(file)
	args := m.Called(ctx, string(body), fileName, marketplace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ImportPreview), args.Error(1)
}

func (m *MockOrderImporter) Import(ctx context.Context, file io.Reader, fileName string, marketplace models.Marketplace) (*services.ImportResult, error) {
	body, _ := io.ReadAll(file)
	args := m.Called(ctx, string(body), fileName, marketplace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ImportResult), args.Error(1)
}

type MockChannelPuller struct {
	mock.Mock
}

func (m *MockChannelPuller) Pull(ctx context.Context, marketplace models.Marketplace, opts services.PullOptions) (*services.PullResult, error) {
	args := m.Called(ctx, marketplace, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PullResult), args.Error(1)
}

type MockBundleMatchService struct {
	mock.Mock
}

func (m *MockBundleMatchService) List(ctx context.Context, search string) ([]services.BundleMatchView, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.BundleMatchView), args.Error(1)
}

func (m *MockBundleMatchService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockActivityLister struct {
	mock.Mock
}

func (m *MockActivityLister) List(ctx context.Context, opts repository.ActivityListOptions) ([]models.ActivityLog, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.ActivityLog), args.Get(1).(int64), args.Error(2)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) StartSession() *services.SessionView {
	args := m.Called()
	return args.Get(0).(*services.SessionView)
}

func (m *MockReconciler) GetSession(sessionID string) (*services.SessionView, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionView), args.Error(1)
}

func (m *MockReconciler) OpenOrder(ctx context.Context, sessionID string, orderID uuid.UUID) (*services.Workspace, error) {
	args := m.Called(ctx, sessionID, orderID)
	return workspaceResult(args)
}

func (m *MockReconciler) SelectProducts(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int, productIDs []string) (*services.Workspace, error) {
	args := m.Called(ctx, sessionID, orderID, itemIndex, productIDs)
	return workspaceResult(args)
}

func (m *MockReconciler) ToggleProduct(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int, productID string) (*services.Workspace, error) {
	args := m.Called(ctx, sessionID, orderID, itemIndex, productID)
	return workspaceResult(args)
}

func (m *MockReconciler) ClearItem(ctx context.Context, sessionID string, orderID uuid.UUID, itemIndex int) (*services.Workspace, error) {
	args := m.Called(ctx, sessionID, orderID, itemIndex)
	return workspaceResult(args)
}

func (m *MockReconciler) ResetAutoMatches(sessionID string) (*services.SessionView, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionView), args.Error(1)
}

func (m *MockReconciler) SaveMatches(ctx context.Context, sessionID string, orderIDs []uuid.UUID) (*services.SaveResult, error) {
	args := m.Called(ctx, sessionID, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SaveResult), args.Error(1)
}

func workspaceResult(args mock.Arguments) (*services.Workspace, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Workspace), args.Error(1)
}
