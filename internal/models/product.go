package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Product is an entry of the internal catalog. The matching core only reads it.
type Product struct {
	ID           string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(500);not null" json:"name"`
	SKU          string         `gorm:"type:varchar(255);index:idx_products_sku" json:"sku"`
	Marketplaces pq.StringArray `gorm:"type:text[]" json:"marketplaces"`
	Quantity     int            `gorm:"default:0" json:"quantity"`
	Price        float64        `gorm:"type:decimal(12,2);default:0" json:"price"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns an id when the caller did not supply one
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// SellsOn reports whether the product is listed on the given marketplace
func (p *Product) SellsOn(m Marketplace) bool {
	for _, v := range p.Marketplaces {
		if Marketplace(v) == m {
			return true
		}
	}
	return false
}
