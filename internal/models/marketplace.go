package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// Marketplace is the sales channel an order or bundle match belongs to.
// It is an open set: imports and test orders may introduce other values.
type Marketplace string

const (
	MarketplaceAmazon    Marketplace = "Amazon"
	MarketplaceEbay      Marketplace = "eBay"
	MarketplaceWalmart   Marketplace = "Walmart"
	MarketplaceEtsy      Marketplace = "Etsy"
	MarketplaceShopify   Marketplace = "Shopify"
	MarketplaceLastPrice Marketplace = "LASTPRICE"
)

// KnownMarketplaces lists the channels offered by default
var KnownMarketplaces = []Marketplace{
	MarketplaceAmazon,
	MarketplaceEbay,
	MarketplaceWalmart,
	MarketplaceEtsy,
	MarketplaceShopify,
	MarketplaceLastPrice,
}

// ParseMarketplace matches a known marketplace case-insensitively and
// otherwise returns the trimmed input unchanged.
func ParseMarketplace(s string) Marketplace {
	s = strings.TrimSpace(s)
	for _, m := range KnownMarketplaces {
		if strings.EqualFold(string(m), s) {
			return m
		}
	}
	return Marketplace(s)
}

// JSONB custom type for PostgreSQL JSONB
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, j)
}
