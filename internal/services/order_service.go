package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-matching-service/internal/models"
	"order-matching-service/internal/reconcile"
	"order-matching-service/internal/repository"
)

const (
	testShippingCost = 5.00
	testTaxRate      = 0.10
)

// OrderService serves the two order queues and order maintenance
type OrderService struct {
	orders   repository.OrderRepository
	activity ActivityRecorder
	logger   *logrus.Entry
	rand     *rand.Rand
	now      func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(orders repository.OrderRepository, activity ActivityRecorder, logger *logrus.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		activity: activity,
		logger:   logger.WithField("component", "orders"),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// Named date ranges accepted by OrderFilter.DateRange
const (
	DateRangeToday     = "today"
	DateRangeYesterday = "yesterday"
	DateRangeLast7     = "last7days"
	DateRangeLast30    = "last30days"
)

// Sort keys accepted by OrderFilter.SortField
const (
	SortByOrderDate   = "order_date"
	SortByTotal       = "total"
	SortByItems       = "items"
	SortByOrderID     = "order_id"
	SortByCustomer    = "customer_name"
	SortByMarketplace = "marketplace"
	SortByStatus      = "order_status"
)

// OrderFilter narrows and sorts the completed orders view. Empty fields
// and "all" do not filter.
type OrderFilter struct {
	Search      string
	Status      string
	Marketplace string
	DateRange   string
	SortField   string
	Ascending   bool
}

// OrderList is the completed orders view together with the size of the
// matching queue
type OrderList struct {
	Orders          []models.Order `json:"data"`
	Total           int            `json:"total"`
	IncompleteCount int            `json:"incompleteCount"`
}

// ListComplete returns the orders whose lines are all matched, filtered
// and sorted by f. Orders default to newest first.
func (s *OrderService) ListComplete(ctx context.Context, f OrderFilter) (*OrderList, error) {
	since, err := s.rangeStart(f.DateRange)
	if err != nil {
		return nil, err
	}
	less, err := orderLess(f.SortField)
	if err != nil {
		return nil, err
	}

	p, err := s.partition(ctx)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	status := filterValue(f.Status)
	marketplace := filterValue(f.Marketplace)

	orders := make([]models.Order, 0, len(p.Complete))
	for _, order := range p.Complete {
		if term != "" && !orderMatchesSearch(&order, term) && !customerMatchesSearch(&order, term) {
			continue
		}
		if status != "" && !strings.EqualFold(order.OrderStatus, status) {
			continue
		}
		if marketplace != "" && !strings.EqualFold(string(order.Marketplace), marketplace) {
			continue
		}
		if !since.IsZero() && order.OrderDate.Before(since) {
			continue
		}
		orders = append(orders, order)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		if f.Ascending {
			return less(&orders[i], &orders[j])
		}
		return less(&orders[j], &orders[i])
	})

	return &OrderList{
		Orders:          orders,
		Total:           len(orders),
		IncompleteCount: len(p.NeedsMatching),
	}, nil
}

// rangeStart returns the earliest order date a named range admits. The
// zero time means unbounded.
func (s *OrderService) rangeStart(name string) (time.Time, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch filterValue(name) {
	case "":
		return time.Time{}, nil
	case DateRangeToday:
		return midnight, nil
	case DateRangeYesterday:
		return midnight.AddDate(0, 0, -1), nil
	case DateRangeLast7:
		return now.AddDate(0, 0, -7), nil
	case DateRangeLast30:
		return now.AddDate(0, 0, -30), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown date range %q", ErrInvalidFilter, name)
	}
}

func orderLess(field string) (func(a, b *models.Order) bool, error) {
	switch field {
	case "", SortByOrderDate:
		return func(a, b *models.Order) bool { return a.OrderDate.Before(b.OrderDate) }, nil
	case SortByTotal:
		return func(a, b *models.Order) bool { return a.Total < b.Total }, nil
	case SortByItems:
		return func(a, b *models.Order) bool { return len(a.Items) < len(b.Items) }, nil
	case SortByOrderID:
		return func(a, b *models.Order) bool { return a.OrderID < b.OrderID }, nil
	case SortByCustomer:
		return func(a, b *models.Order) bool { return a.CustomerName < b.CustomerName }, nil
	case SortByMarketplace:
		return func(a, b *models.Order) bool { return a.Marketplace < b.Marketplace }, nil
	case SortByStatus:
		return func(a, b *models.Order) bool { return a.OrderStatus < b.OrderStatus }, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalidFilter, field)
	}
}

func filterValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// ListIncomplete returns the matching queue. search filters by order
// number, item name or item SKU, case-insensitively.
func (s *OrderService) ListIncomplete(ctx context.Context, search string) ([]models.Order, error) {
	p, err := s.partition(ctx)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return p.NeedsMatching, nil
	}

	filtered := make([]models.Order, 0, len(p.NeedsMatching))
	for _, order := range p.NeedsMatching {
		if orderMatchesSearch(&order, term) {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

func (s *OrderService) partition(ctx context.Context) (reconcile.Partition, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return reconcile.Partition{}, fmt.Errorf("failed to list orders: %w", err)
	}
	return reconcile.PartitionOrders(orders), nil
}

func orderMatchesSearch(order *models.Order, term string) bool {
	if strings.Contains(strings.ToLower(order.OrderID), term) {
		return true
	}
	for _, item := range order.Items {
		if strings.Contains(strings.ToLower(item.ProductName), term) ||
			strings.Contains(strings.ToLower(item.ProductSKU), term) {
			return true
		}
	}
	return false
}

func customerMatchesSearch(order *models.Order, term string) bool {
	return strings.Contains(strings.ToLower(order.CustomerName), term) ||
		strings.Contains(strings.ToLower(order.CustomerEmail), term)
}

// Get returns one order with its queue state
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, reconcile.OrderState, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrOrderNotFound
		}
		return nil, 0, err
	}
	return order, reconcile.Classify(order), nil
}

// Delete removes an order
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.orders.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrderNotFound
	}
	s.record(models.NewActivityLog(models.ActivityOrderDeleted).
		WithResource(id.String()).
		WithError(err).
		Build())
	return err
}

// UpdateStatus moves an order to another fulfilment status. Setting the
// current status is a no-op and is not logged.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsOrderStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.OrderStatus == status {
		return order, nil
	}

	previous := order.OrderStatus
	err = s.orders.UpdateStatus(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	s.record(models.NewActivityLog(models.ActivityOrderStatus).
		WithResource(order.OrderID).
		WithDetails(models.JSONB{
			"orderId":         order.ID.String(),
			"externalOrderId": order.OrderID,
			"previousStatus":  previous,
			"newStatus":       status,
			"marketplace":     string(order.Marketplace),
		}).
		WithError(err).
		Build())
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"orderId": order.OrderID,
		"from":    previous,
		"to":      status,
	}).Info("Updated order status")

	order.OrderStatus = status
	return order, nil
}

// CreateTestOrder seeds an order whose lines all need matching
func (s *OrderService) CreateTestOrder(ctx context.Context) (*models.Order, error) {
	prefix := fmt.Sprintf("TEST-%d", s.rand.Intn(10000))
	count := s.rand.Intn(5) + 1

	items := make(models.OrderItems, 0, count)
	subtotal := 0.0
	for i := 1; i <= count; i++ {
		item := models.OrderItem{
			ProductSKU:  fmt.Sprintf("%s-SKU%d", prefix, i),
			ProductName: fmt.Sprintf("Test Product %d Needs Matching", i),
			Quantity:    s.rand.Intn(5) + 1,
			Price:       roundCents(s.rand.Float64()*50 + 9.99),
		}
		subtotal += item.Total()
		items = append(items, item)
	}
	subtotal = roundCents(subtotal)
	tax := roundCents(subtotal * testTaxRate)

	order := &models.Order{
		OrderID:                 prefix + "-ORDER",
		Marketplace:             models.KnownMarketplaces[s.rand.Intn(len(models.KnownMarketplaces))],
		OrderDate:               s.now(),
		CustomerName:            "Test Customer",
		CustomerEmail:           "test@example.com",
		OrderStatus:             models.OrderStatusProcessing,
		Items:                   items,
		RequiresProductMatching: true,
		Subtotal:                subtotal,
		ShippingCost:            testShippingCost,
		Tax:                     tax,
		Total:                   roundCents(subtotal + testShippingCost + tax),
	}

	err := s.orders.Create(ctx, order)
	s.record(models.NewActivityLog(models.ActivityOrderCreated).
		WithResource(order.OrderID).
		WithDetails(models.JSONB{"items": count, "marketplace": string(order.Marketplace)}).
		WithError(err).
		Build())
	if err != nil {
		return nil, fmt.Errorf("failed to create test order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"orderId": order.OrderID, "items": count}).Info("Created test order")
	return order, nil
}

func (s *OrderService) record(log *models.ActivityLog) {
	if s.activity != nil {
		s.activity.Record(log)
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
