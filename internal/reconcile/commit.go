package reconcile

import (
	"time"

	"github.com/lib/pq"
	"order-matching-service/internal/models"
)

// WriteOp is the kind of bundle match write a commit asks for
type WriteOp string

const (
	OpCreate WriteOp = "create"
	OpUpdate WriteOp = "update"
)

// BundleMatchWrite is a bundle match record to persist. For OpUpdate,
// Match.ID is the id of the existing record.
type BundleMatchWrite struct {
	Op    WriteOp
	Match models.BundleMatch
}

// CommitResult holds everything the caller has to persist for one order
type CommitResult struct {
	Order        *models.Order
	Writes       []BundleMatchWrite
	MatchedItems int
}

// OrderChanged reports whether the order itself needs to be written
func (r *CommitResult) OrderChanged() bool {
	return r.MatchedItems > 0
}

// Commit turns the selections made for order into an updated order and the
// bundle match writes that record them. It performs no I/O.
//
// Each selected line takes the first selected product as its product and
// the remaining ones as additional matches; its SKU and name are replaced
// by the product's. The line's original SKU keys the bundle match write.
// Lines without a selection are left as they are.
//
// If any selected primary product is missing from the catalog the whole
// order is rejected with a *ProductNotFoundError and nothing is returned.
func Commit(order *models.Order, selections Selections, catalog Catalog, matches MatchIndex, now time.Time) (*CommitResult, error) {
	updated := order.Clone()
	res := &CommitResult{Order: updated}
	pending := make(map[models.BundleKey]int)

	for i, item := range order.Items {
		ids := dedupe(selections[SelectionKey{OrderID: order.ID, ItemIndex: i}])
		if len(ids) == 0 {
			continue
		}

		primary := ids[0]
		product, ok := catalog.Lookup(primary)
		if !ok {
			return nil, &ProductNotFoundError{OrderID: order.OrderID, ItemIndex: i, ProductID: primary}
		}

		line := &updated.Items[i]
		line.ProductID = primary
		line.ProductName = product.Name
		line.ProductSKU = product.SKU
		line.AdditionalMatches = append([]string(nil), ids[1:]...)
		res.MatchedItems++

		if item.ProductSKU == "" {
			continue
		}

		key := models.BundleKey{Marketplace: order.Marketplace, SKU: item.ProductSKU}
		// two lines with the same SKU in one order count as one match
		if j, ok := pending[key]; ok {
			w := &res.Writes[j]
			w.Match.MatchedProductIDs = pq.StringArray(append([]string(nil), ids...))
			if item.ProductName != "" {
				w.Match.OriginalProductName = item.ProductName
			}
			continue
		}

		var w BundleMatchWrite
		if existing, ok := matches.Find(order.Marketplace, item.ProductSKU); ok {
			w = BundleMatchWrite{Op: OpUpdate, Match: existing}
			w.Match.MatchCount = existing.MatchCount + 1
			if item.ProductName != "" {
				w.Match.OriginalProductName = item.ProductName
			}
		} else {
			w = BundleMatchWrite{Op: OpCreate, Match: models.BundleMatch{
				Marketplace:         order.Marketplace,
				OriginalSKU:         item.ProductSKU,
				OriginalProductName: item.ProductName,
				MatchCount:          1,
			}}
		}
		w.Match.MatchedProductIDs = pq.StringArray(append([]string(nil), ids...))
		w.Match.LastMatched = now

		pending[key] = len(res.Writes)
		res.Writes = append(res.Writes, w)
	}

	updated.RequiresProductMatching = !allMatched(updated)
	return res, nil
}

func allMatched(order *models.Order) bool {
	for _, item := range order.Items {
		if !item.IsMatched() {
			return false
		}
	}
	return true
}
