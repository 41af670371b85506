package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// OrderItem is one line of an order. Items are addressed by position, so
// their order inside Order.Items is significant.
type OrderItem struct {
	ProductID         string   `json:"productId"`
	ProductSKU        string   `json:"productSku"`
	ProductName       string   `json:"productName"`
	Quantity          int      `json:"quantity"`
	Price             float64  `json:"price"`
	AdditionalMatches []string `json:"additionalMatches,omitempty"`
}

// Total returns price times quantity
func (i OrderItem) Total() float64 {
	return i.Price * float64(i.Quantity)
}

// IsMatched reports whether the item references a catalog product
func (i OrderItem) IsMatched() bool {
	return i.ProductID != ""
}

// OrderItems is stored as a JSONB array so item positions survive round trips
type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

func (items *OrderItems) Scan(value interface{}) error {
	if value == nil {
		*items = OrderItems{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for order items: %T", value)
	}
	return json.Unmarshal(bytes, items)
}

// Fulfilment states an order can be moved between
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
	OrderStatusRefunded   = "refunded"
)

var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCanceled,
	OrderStatusRefunded,
}

// IsOrderStatus reports whether s is one of OrderStatuses
func IsOrderStatus(s string) bool {
	return slices.Contains(OrderStatuses, s)
}

// Order is a marketplace order. OrderID is the marketplace-supplied number
// and is unique only together with Marketplace.
type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID     string      `gorm:"type:varchar(255);not null;index:idx_orders_marketplace_order,priority:2" json:"orderId"`
	Marketplace Marketplace `gorm:"type:varchar(100);not null;index:idx_orders_marketplace_order,priority:1" json:"marketplace"`
	OrderDate   time.Time   `json:"orderDate"`

	CustomerName    string `gorm:"type:varchar(255)" json:"customerName,omitempty"`
	CustomerEmail   string `gorm:"type:varchar(255)" json:"customerEmail,omitempty"`
	ShippingCountry string `gorm:"type:varchar(100)" json:"shippingCountry,omitempty"`
	OrderStatus     string `gorm:"type:varchar(50);default:'pending'" json:"orderStatus"`

	Items                   OrderItems `gorm:"type:jsonb;not null;default:'[]'" json:"items"`
	RequiresProductMatching bool       `gorm:"default:false;index:idx_orders_requires_matching" json:"requiresProductMatching"`

	Subtotal     float64 `gorm:"type:decimal(12,2);default:0" json:"subtotal"`
	ShippingCost float64 `gorm:"type:decimal(12,2);default:0" json:"shippingCost"`
	Tax          float64 `gorm:"type:decimal(12,2);default:0" json:"tax"`
	Total        float64 `gorm:"type:decimal(12,2);default:0" json:"total"`

	ImportedFile string `gorm:"type:varchar(500)" json:"importedFile,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// Clone returns a deep copy of the order
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make(OrderItems, len(o.Items))
	for i, item := range o.Items {
		c.Items[i] = item
		if item.AdditionalMatches != nil {
			c.Items[i].AdditionalMatches = append([]string(nil), item.AdditionalMatches...)
		}
	}
	return &c
}
