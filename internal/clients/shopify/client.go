package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"order-matching-service/internal/clients"
	"order-matching-service/internal/models"
)

const (
	apiVersion = "2024-01"
)

// ErrCircuitOpen is returned while the store is failing repeatedly
var ErrCircuitOpen = errors.New("shopify circuit breaker open")

// Credentials identifies a Shopify store
type Credentials struct {
	Store       string `json:"store"` // without .myshopify.com
	AccessToken string `json:"access_token"`
}

// Client reads orders from the Shopify Admin API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
	breaker     *clients.CircuitBreaker
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetrier replaces the default retry policy
func WithRetrier(r *clients.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

// NewClient creates a new Shopify Admin API client
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if creds.Store == "" {
		return nil, fmt.Errorf("missing store name")
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("missing access_token")
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     fmt.Sprintf("https://%s.myshopify.com", creds.Store),
		accessToken: creds.AccessToken,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1), // 2 requests per second
		retrier:     clients.NewRetrier(nil),
		breaker:     clients.NewCircuitBreaker(5, time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Marketplace returns the channel the client reads from
func (c *Client) Marketplace() models.Marketplace {
	return models.MarketplaceShopify
}

// GetOrders fetches one page of orders
func (c *Client) GetOrders(ctx context.Context, opts *clients.OrderListOptions) (*clients.OrdersResult, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "50")
	}
	if opts.Cursor != "" {
		// page_info requests may not repeat other filters
		params.Set("page_info", opts.Cursor)
	} else {
		if !opts.CreatedAfter.IsZero() {
			params.Set("created_at_min", opts.CreatedAfter.Format(time.RFC3339))
		}
		if !opts.CreatedBefore.IsZero() {
			params.Set("created_at_max", opts.CreatedBefore.Format(time.RFC3339))
		}
		params.Set("status", "any")
	}

	body, headers, err := c.get(ctx, "/orders.json", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Orders []shopifyOrder `json:"orders"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse orders response: %w", err)
	}

	orders := make([]clients.ExternalOrder, 0, len(response.Orders))
	for _, o := range response.Orders {
		orders = append(orders, convertOrder(o))
	}

	result := &clients.OrdersResult{Orders: orders}
	if link := headers.Get("Link"); link != "" {
		result.NextCursor, result.HasMore = parsePagination(link)
	}
	return result, nil
}

// get performs an authenticated, rate limited GET with retries
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, http.Header, error) {
	if !c.breaker.Allow() {
		return nil, nil, ErrCircuitOpen
	}

	fullURL := fmt.Sprintf("%s/admin/api/%s%s", c.baseURL, apiVersion, path)
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	resp, err := c.retrier.DoHTTP(ctx, func(ctx context.Context) (*http.Response, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Shopify-Access-Token", c.accessToken)
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		c.breaker.RecordFailure()
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, nil, err
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode >= 500 {
			c.breaker.RecordFailure()
		}
		return nil, nil, fmt.Errorf("Shopify API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.breaker.RecordSuccess()
	return respBody, resp.Header, nil
}

type shopifyOrder struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Currency          string            `json:"currency"`
	TotalPrice        string            `json:"total_price"`
	SubtotalPrice     string            `json:"subtotal_price"`
	TotalTax          string            `json:"total_tax"`
	ShippingLines     []shopifyShipping `json:"shipping_lines"`
	FinancialStatus   string            `json:"financial_status"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	LineItems         []shopifyLineItem `json:"line_items"`
	ShippingAddress   *shopifyAddress   `json:"shipping_address"`
	Customer          *shopifyCustomer  `json:"customer"`
	CreatedAt         time.Time         `json:"created_at"`
	CancelledAt       *time.Time        `json:"cancelled_at"`
}

type shopifyShipping struct {
	Price string `json:"price"`
}

type shopifyLineItem struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
}

type shopifyAddress struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	City        string `json:"city"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

type shopifyCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func convertOrder(o shopifyOrder) clients.ExternalOrder {
	order := clients.ExternalOrder{
		ID:                strconv.FormatInt(o.ID, 10),
		OrderNumber:       o.Name,
		Email:             o.Email,
		Currency:          o.Currency,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		CreatedAt:         o.CreatedAt,
		CancelledAt:       o.CancelledAt,
	}

	order.TotalPrice, _ = strconv.ParseFloat(o.TotalPrice, 64)
	order.SubtotalPrice, _ = strconv.ParseFloat(o.SubtotalPrice, 64)
	order.TotalTax, _ = strconv.ParseFloat(o.TotalTax, 64)
	for _, s := range o.ShippingLines {
		v, _ := strconv.ParseFloat(s.Price, 64)
		order.TotalShipping += v
	}

	for _, item := range o.LineItems {
		li := clients.ExternalLineItem{
			ID:           strconv.FormatInt(item.ID, 10),
			Title:        item.Title,
			VariantTitle: item.VariantTitle,
			SKU:          item.SKU,
			Quantity:     item.Quantity,
		}
		li.Price, _ = strconv.ParseFloat(item.Price, 64)
		order.LineItems = append(order.LineItems, li)
	}

	if a := o.ShippingAddress; a != nil {
		order.ShippingAddress = &clients.ExternalAddress{
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			City:        a.City,
			Country:     a.Country,
			CountryCode: a.CountryCode,
		}
	}
	if cu := o.Customer; cu != nil {
		order.Customer = &clients.ExternalCustomer{
			ID:        strconv.FormatInt(cu.ID, 10),
			Email:     cu.Email,
			FirstName: cu.FirstName,
			LastName:  cu.LastName,
		}
	}
	return order
}

// parsePagination reads the page_info cursor of the rel="next" link
func parsePagination(linkHeader string) (string, bool) {
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		urlPart := strings.TrimSpace(strings.Split(part, ";")[0])
		urlPart = strings.Trim(urlPart, "<>")
		if parsed, err := url.Parse(urlPart); err == nil {
			return parsed.Query().Get("page_info"), true
		}
	}
	return "", false
}
