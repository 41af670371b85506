package clients

import (
	"context"
	"time"

	"order-matching-service/internal/models"
)

// OrderSource fetches orders from an external sales channel
type OrderSource interface {
	// Marketplace returns the channel the orders belong to
	Marketplace() models.Marketplace

	// GetOrders returns one page of orders
	GetOrders(ctx context.Context, opts *OrderListOptions) (*OrdersResult, error)
}

// OrderListOptions contains paging and filter options for order listing
type OrderListOptions struct {
	Limit         int
	Cursor        string
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// OrdersResult contains paginated order results
type OrdersResult struct {
	Orders     []ExternalOrder
	NextCursor string
	HasMore    bool
}

// ExternalOrder represents an order from an external marketplace
type ExternalOrder struct {
	ID                string             `json:"id"`
	OrderNumber       string             `json:"orderNumber"`
	Email             string             `json:"email,omitempty"`
	Currency          string             `json:"currency"`
	TotalPrice        float64            `json:"totalPrice"`
	SubtotalPrice     float64            `json:"subtotalPrice"`
	TotalTax          float64            `json:"totalTax"`
	TotalShipping     float64            `json:"totalShipping"`
	FinancialStatus   string             `json:"financialStatus"`
	FulfillmentStatus string             `json:"fulfillmentStatus"`
	LineItems         []ExternalLineItem `json:"lineItems"`
	ShippingAddress   *ExternalAddress   `json:"shippingAddress,omitempty"`
	Customer          *ExternalCustomer  `json:"customer,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	CancelledAt       *time.Time         `json:"cancelledAt,omitempty"`
}

// ExternalLineItem represents an order line item from an external marketplace
type ExternalLineItem struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	VariantTitle string  `json:"variantTitle,omitempty"`
	SKU          string  `json:"sku,omitempty"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
}

// DisplayName returns the title with the variant appended when present
func (li ExternalLineItem) DisplayName() string {
	if li.VariantTitle == "" {
		return li.Title
	}
	return li.Title + " - " + li.VariantTitle
}

// ExternalAddress represents an address from an external marketplace
type ExternalAddress struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	City        string `json:"city"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode,omitempty"`
}

// ExternalCustomer represents a customer from an external marketplace
type ExternalCustomer struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// FullName joins first and last name
func (c *ExternalCustomer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// UnsupportedMarketplaceError is returned when no client exists for a marketplace
type UnsupportedMarketplaceError struct {
	Marketplace string
}

func (e *UnsupportedMarketplaceError) Error() string {
	return "unsupported marketplace: " + e.Marketplace
}
