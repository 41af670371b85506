package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BundleMatch remembers which catalog products an external listing was
// matched to. The logical key (Marketplace, OriginalSKU) is not a unique
// constraint; callers search for an existing record before writing.
type BundleMatch struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Marketplace         Marketplace    `gorm:"type:varchar(100);not null;index:idx_bundle_matches_key,priority:1" json:"marketplace"`
	OriginalSKU         string         `gorm:"type:varchar(255);not null;index:idx_bundle_matches_key,priority:2" json:"originalSku"`
	OriginalProductName string         `gorm:"type:varchar(500)" json:"originalProductName"`
	MatchedProductIDs   pq.StringArray `gorm:"type:text[];not null" json:"matchedProductIds"`
	MatchCount          int            `gorm:"not null;default:1" json:"matchCount"`
	LastMatched         time.Time      `gorm:"index:idx_bundle_matches_last_matched" json:"lastMatched"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for BundleMatch
func (BundleMatch) TableName() string {
	return "bundle_matches"
}

// BundleKey is the logical identity of a bundle match
type BundleKey struct {
	Marketplace Marketplace
	SKU         string
}

// Key returns the logical key of the record
func (b *BundleMatch) Key() BundleKey {
	return BundleKey{Marketplace: b.Marketplace, SKU: b.OriginalSKU}
}

// PrimaryProductID returns the first matched product, or "" when empty
func (b *BundleMatch) PrimaryProductID() string {
	if len(b.MatchedProductIDs) == 0 {
		return ""
	}
	return b.MatchedProductIDs[0]
}
