package reconcile

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check against these.
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrItemIndexOutOfRange = errors.New("item index out of range")
)

// ProductNotFoundError is returned by Commit when a selection's primary
// product no longer exists in the catalog.
type ProductNotFoundError struct {
	OrderID   string // marketplace order number, for user-facing messages
	ItemIndex int
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("order %s item %d: product %s not found", e.OrderID, e.ItemIndex, e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error {
	return ErrProductNotFound
}
