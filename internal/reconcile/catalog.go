// Package reconcile matches marketplace order lines to catalog products.
// Everything here is a pure function over snapshots of the catalog, the
// bundle match cache and the caller's session; no function performs I/O.
// Callers load the snapshots, call into this package and apply the
// returned writes themselves.
package reconcile

import (
	"order-matching-service/internal/models"
)

// Catalog is a snapshot of the product catalog indexed by product id
type Catalog map[string]models.Product

// NewCatalog indexes a product list
func NewCatalog(products []models.Product) Catalog {
	c := make(Catalog, len(products))
	for _, p := range products {
		c[p.ID] = p
	}
	return c
}

// Lookup returns the product with the given id
func (c Catalog) Lookup(id string) (models.Product, bool) {
	p, ok := c[id]
	return p, ok
}

// Has reports whether id resolves to a live product
func (c Catalog) Has(id string) bool {
	_, ok := c[id]
	return ok
}

// Live returns the ids that resolve, keeping their order
func (c Catalog) Live(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if c.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// MatchIndex is a snapshot of the bundle match cache indexed by its logical key
type MatchIndex map[models.BundleKey]models.BundleMatch

// NewMatchIndex indexes bundle matches. The store does not enforce key
// uniqueness, so when several records share a key the most recently
// matched one is kept.
func NewMatchIndex(matches []models.BundleMatch) MatchIndex {
	idx := make(MatchIndex, len(matches))
	for _, m := range matches {
		key := m.Key()
		if prev, ok := idx[key]; ok && !m.LastMatched.After(prev.LastMatched) {
			continue
		}
		idx[key] = m
	}
	return idx
}

// Find looks up the record for (marketplace, sku)
func (idx MatchIndex) Find(marketplace models.Marketplace, sku string) (models.BundleMatch, bool) {
	m, ok := idx[models.BundleKey{Marketplace: marketplace, SKU: sku}]
	return m, ok
}
