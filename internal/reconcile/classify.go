package reconcile

import (
	"order-matching-service/internal/models"
)

// OrderState is the queue an order belongs to
type OrderState int

const (
	StateComplete OrderState = iota
	StateNeedsMatching
)

func (s OrderState) String() string {
	switch s {
	case StateComplete:
		return "complete"
	case StateNeedsMatching:
		return "needs_matching"
	default:
		return "unknown"
	}
}

// NeedsMatching reports whether the order belongs in the matching queue:
// it is flagged, or any of its lines lacks a product. The second check
// catches orders written without the flag.
func NeedsMatching(order *models.Order) bool {
	if order.RequiresProductMatching {
		return true
	}
	for _, item := range order.Items {
		if !item.IsMatched() {
			return true
		}
	}
	return false
}

// Classify returns the state of an order
func Classify(order *models.Order) OrderState {
	if NeedsMatching(order) {
		return StateNeedsMatching
	}
	return StateComplete
}

// Partition splits orders into the two disjoint queues
type Partition struct {
	Complete      []models.Order
	NeedsMatching []models.Order
}

// PartitionOrders places every order in exactly one side, keeping input order
func PartitionOrders(orders []models.Order) Partition {
	p := Partition{
		Complete:      []models.Order{},
		NeedsMatching: []models.Order{},
	}
	for i := range orders {
		switch Classify(&orders[i]) {
		case StateNeedsMatching:
			p.NeedsMatching = append(p.NeedsMatching, orders[i])
		default:
			p.Complete = append(p.Complete, orders[i])
		}
	}
	return p
}
