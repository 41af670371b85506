package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"order-matching-service/internal/clients"
	"order-matching-service/internal/clients/shopify"
	"order-matching-service/internal/models"
	"order-matching-service/internal/repository"
	"order-matching-service/internal/secrets"
)

// OrderSourceProvider opens a client for a sales channel
type OrderSourceProvider interface {
	OrderSource(ctx context.Context, marketplace models.Marketplace) (clients.OrderSource, error)
}

// ShopifyCredentialSource resolves Shopify credentials by secret id
type ShopifyCredentialSource interface {
	GetShopifyCredentials(ctx context.Context, secretID string) (*secrets.ShopifyCredentials, error)
}

// SecretSourceProvider builds channel clients from credentials in Secret Manager
type SecretSourceProvider struct {
	secrets       ShopifyCredentialSource
	shopifySecret string
}

// NewSecretSourceProvider creates a provider. A nil credential source
// leaves every channel unavailable.
func NewSecretSourceProvider(secrets ShopifyCredentialSource, shopifySecret string) *SecretSourceProvider {
	return &SecretSourceProvider{secrets: secrets, shopifySecret: shopifySecret}
}

// OrderSource returns a client for the marketplace
func (p *SecretSourceProvider) OrderSource(ctx context.Context, marketplace models.Marketplace) (clients.OrderSource, error) {
	if marketplace != models.MarketplaceShopify {
		return nil, &clients.UnsupportedMarketplaceError{Marketplace: string(marketplace)}
	}
	if p.secrets == nil || p.shopifySecret == "" {
		return nil, ErrChannelUnavailable
	}
	creds, err := p.secrets.GetShopifyCredentials(ctx, p.shopifySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to load Shopify credentials: %w", err)
	}
	client, err := shopify.NewClient(shopify.Credentials{Store: creds.Store, AccessToken: creds.AccessToken})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// PullOptions limits an order pull
type PullOptions struct {
	CreatedAfter time.Time
}

// PullResult is the outcome of an order pull
type PullResult struct {
	Marketplace models.Marketplace `json:"marketplace"`
	Pages       int                `json:"pages"`
	Fetched     int                `json:"fetched"`
	Created     int                `json:"created"`
	Skipped     int                `json:"skipped"`
	OrderIDs    []string           `json:"orderIds"`
}

// ChannelSyncService pulls new orders from sales channels into the matching queue
type ChannelSyncService struct {
	provider OrderSourceProvider
	orders   repository.OrderRepository
	activity ActivityRecorder
	guard    *PullGuard
	pageSize int
	maxPages int
	logger   *logrus.Entry
}

// NewChannelSyncService creates a new channel sync service
func NewChannelSyncService(provider OrderSourceProvider, orders repository.OrderRepository, activity ActivityRecorder, pageSize, maxPages int, logger *logrus.Logger) *ChannelSyncService {
	if pageSize <= 0 {
		pageSize = 50
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	return &ChannelSyncService{
		provider: provider,
		orders:   orders,
		activity: activity,
		guard:    NewPullGuard(1),
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger.WithField("component", "channel_sync"),
	}
}

// Pull fetches orders from the channel and stores the ones not seen before.
// Every stored order needs matching; its lines carry the channel's SKUs.
func (s *ChannelSyncService) Pull(ctx context.Context, marketplace models.Marketplace, opts PullOptions) (*PullResult, error) {
	release, ok := s.guard.TryAcquire(string(marketplace))
	if !ok {
		return nil, ErrPullInProgress
	}
	defer release()

	result, err := s.pull(ctx, marketplace, opts)

	details := models.JSONB{"marketplace": string(marketplace)}
	if result != nil {
		details["fetched"] = result.Fetched
		details["orders_count"] = result.Created
		details["skipped"] = result.Skipped
	}
	if s.activity != nil {
		s.activity.Record(models.NewActivityLog(models.ActivityOrdersSynced).
			WithResource(string(marketplace)).
			WithDetails(details).
			WithError(err).
			Build())
	}

	if err != nil {
		s.logger.WithError(err).WithField("marketplace", marketplace).Warn("Order pull failed")
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"marketplace": marketplace,
		"fetched":     result.Fetched,
		"created":     result.Created,
		"skipped":     result.Skipped,
	}).Info("Pulled orders")
	return result, nil
}

func (s *ChannelSyncService) pull(ctx context.Context, marketplace models.Marketplace, opts PullOptions) (*PullResult, error) {
	source, err := s.provider.OrderSource(ctx, marketplace)
	if err != nil {
		return nil, err
	}

	result := &PullResult{Marketplace: source.Marketplace(), OrderIDs: []string{}}
	seen := make(map[string]bool)
	cursor := ""

	for result.Pages < s.maxPages {
		page, err := source.GetOrders(ctx, &clients.OrderListOptions{
			Limit:        s.pageSize,
			Cursor:       cursor,
			CreatedAfter: opts.CreatedAfter,
		})
		if err != nil {
			return result, fmt.Errorf("failed to fetch orders page %d: %w", result.Pages+1, err)
		}
		result.Pages++
		result.Fetched += len(page.Orders)

		candidates := make([]*models.Order, 0, len(page.Orders))
		numbers := make([]string, 0, len(page.Orders))
		for _, ext := range page.Orders {
			order := convertExternalOrder(ext, result.Marketplace)
			if order == nil || seen[order.OrderID] {
				result.Skipped++
				continue
			}
			seen[order.OrderID] = true
			candidates = append(candidates, order)
			numbers = append(numbers, order.OrderID)
		}

		existing, err := s.orders.ExistingOrderIDs(ctx, result.Marketplace, numbers)
		if err != nil {
			return result, fmt.Errorf("failed to check existing orders: %w", err)
		}

		toCreate := make([]*models.Order, 0, len(candidates))
		for _, order := range candidates {
			if existing[order.OrderID] {
				result.Skipped++
				continue
			}
			toCreate = append(toCreate, order)
		}
		if len(toCreate) > 0 {
			if err := s.orders.CreateBatch(ctx, toCreate); err != nil {
				return result, fmt.Errorf("failed to store pulled orders: %w", err)
			}
			for _, order := range toCreate {
				result.OrderIDs = append(result.OrderIDs, order.OrderID)
			}
			result.Created += len(toCreate)
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return result, nil
}

// convertExternalOrder maps a channel order onto an unmatched order.
// Cancelled orders and orders without lines are dropped.
func convertExternalOrder(ext clients.ExternalOrder, marketplace models.Marketplace) *models.Order {
	if ext.CancelledAt != nil || len(ext.LineItems) == 0 {
		return nil
	}

	number := ext.OrderNumber
	if number == "" {
		number = ext.ID
	}

	order := &models.Order{
		OrderID:                 number,
		Marketplace:             marketplace,
		OrderDate:               ext.CreatedAt,
		CustomerEmail:           ext.Email,
		OrderStatus:             ext.FulfillmentStatus,
		Items:                   make(models.OrderItems, 0, len(ext.LineItems)),
		RequiresProductMatching: true,
		Subtotal:                ext.SubtotalPrice,
		ShippingCost:            ext.TotalShipping,
		Tax:                     ext.TotalTax,
		Total:                   ext.TotalPrice,
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now()
	}
	if order.OrderStatus == "" {
		order.OrderStatus = models.OrderStatusProcessing
	}
	if ext.Customer != nil {
		order.CustomerName = ext.Customer.FullName()
		if order.CustomerEmail == "" {
			order.CustomerEmail = ext.Customer.Email
		}
	}
	if ext.ShippingAddress != nil {
		order.ShippingCountry = ext.ShippingAddress.CountryCode
		if order.ShippingCountry == "" {
			order.ShippingCountry = ext.ShippingAddress.Country
		}
	}

	for _, li := range ext.LineItems {
		qty := li.Quantity
		if qty < 1 {
			qty = 1
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductSKU:  li.SKU,
			ProductName: li.DisplayName(),
			Quantity:    qty,
			Price:       li.Price,
		})
	}
	if order.Subtotal == 0 {
		for _, item := range order.Items {
			order.Subtotal += item.Total()
		}
		order.Subtotal = roundCents(order.Subtotal)
	}
	if order.Total == 0 {
		order.Total = roundCents(order.Subtotal + order.ShippingCost + order.Tax)
	}
	return order
}
