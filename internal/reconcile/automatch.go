package reconcile

import (
	"order-matching-service/internal/models"
)

// AutoMatchResult is the outcome of AutoMatch. Selections and AutoFlags are
// new maps; the inputs are never modified.
type AutoMatchResult struct {
	Selections Selections
	AutoFlags  AutoFlags

	// Applied lists the lines that received a selection in this call
	Applied []SelectionKey
	// Stale lists lines whose bundle match exists but resolves to no live product
	Stale []SelectionKey
}

// AutoMatch suggests selections for an order's lines from the bundle match
// cache. A line is skipped when it already has a selection or was already
// auto-applied. A line only matches a record with the same marketplace and
// SKU, and only the record's ids that still exist in the catalog are used.
// If none survive, the line stays unmatched.
func AutoMatch(order *models.Order, catalog Catalog, matches MatchIndex, selections Selections, flags AutoFlags) AutoMatchResult {
	res := AutoMatchResult{
		Selections: selections.Clone(),
		AutoFlags:  flags.Clone(),
	}
	if order == nil {
		return res
	}

	for i, item := range order.Items {
		key := SelectionKey{OrderID: order.ID, ItemIndex: i}
		if len(res.Selections[key]) > 0 || res.AutoFlags[key] {
			continue
		}

		match, ok := matches.Find(order.Marketplace, item.ProductSKU)
		if !ok {
			continue
		}

		live := catalog.Live(dedupe(match.MatchedProductIDs))
		if len(live) == 0 {
			res.Stale = append(res.Stale, key)
			continue
		}

		res.Selections[key] = live
		res.AutoFlags[key] = true
		res.Applied = append(res.Applied, key)
	}

	return res
}
