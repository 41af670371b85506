package reconcile

import (
	"github.com/google/uuid"
	"order-matching-service/internal/models"
)

// Session is one operator's in-progress matching work. It is a value: every
// method returns a new Session and leaves the receiver untouched, so a
// caller can hold on to an earlier snapshot safely.
type Session struct {
	Selections Selections
	AutoFlags  AutoFlags
}

// NewSession returns an empty session
func NewSession() Session {
	return Session{
		Selections: Selections{},
		AutoFlags:  AutoFlags{},
	}
}

func (s Session) clone() Session {
	return Session{
		Selections: s.Selections.Clone(),
		AutoFlags:  s.AutoFlags.Clone(),
	}
}

// Select replaces the selection of a line. An empty list removes the key.
// The auto-applied flag is left as it is.
func (s Session) Select(orderID uuid.UUID, itemIndex int, productIDs []string) Session {
	next := s.clone()
	key := SelectionKey{OrderID: orderID, ItemIndex: itemIndex}

	ids := dedupe(productIDs)
	if len(ids) == 0 {
		delete(next.Selections, key)
		return next
	}
	next.Selections[key] = ids
	return next
}

// Toggle adds productID to the line's selection or removes it if present.
// Removing the last id removes the key.
func (s Session) Toggle(orderID uuid.UUID, itemIndex int, productID string) Session {
	key := SelectionKey{OrderID: orderID, ItemIndex: itemIndex}
	current := s.Selections[key]

	ids := make([]string, 0, len(current)+1)
	found := false
	for _, id := range current {
		if id == productID {
			found = true
			continue
		}
		ids = append(ids, id)
	}
	if !found {
		ids = append(ids, productID)
	}
	return s.Select(orderID, itemIndex, ids)
}

// Clear removes both the selection and the auto-applied flag of a line
func (s Session) Clear(orderID uuid.UUID, itemIndex int) Session {
	next := s.clone()
	key := SelectionKey{OrderID: orderID, ItemIndex: itemIndex}
	delete(next.Selections, key)
	delete(next.AutoFlags, key)
	return next
}

// IsComplete reports whether every line of the order either has a
// selection or is already matched in storage.
func (s Session) IsComplete(order *models.Order) bool {
	for i, item := range order.Items {
		key := SelectionKey{OrderID: order.ID, ItemIndex: i}
		if len(s.Selections[key]) == 0 && !item.IsMatched() {
			return false
		}
	}
	return true
}

// FullySelected reports whether every line of the order has a selection,
// ignoring what is already stored.
func (s Session) FullySelected(order *models.Order) bool {
	for i := range order.Items {
		if len(s.Selections[SelectionKey{OrderID: order.ID, ItemIndex: i}]) == 0 {
			return false
		}
	}
	return true
}

// ApplyAutoMatch runs AutoMatch for order against the session's state
func (s Session) ApplyAutoMatch(order *models.Order, catalog Catalog, matches MatchIndex) (Session, AutoMatchResult) {
	res := AutoMatch(order, catalog, matches, s.Selections, s.AutoFlags)
	return Session{Selections: res.Selections, AutoFlags: res.AutoFlags}, res
}

// ResetAutoMatches drops every auto-applied selection together with its flag
func (s Session) ResetAutoMatches() Session {
	next := s.clone()
	for key := range s.AutoFlags {
		delete(next.Selections, key)
	}
	next.AutoFlags = AutoFlags{}
	return next
}

// ClearAutoFlags forgets which selections were auto-applied, keeping the selections
func (s Session) ClearAutoFlags() Session {
	next := s.clone()
	next.AutoFlags = AutoFlags{}
	return next
}

// ClearOrder removes every selection and flag belonging to orderID
func (s Session) ClearOrder(orderID uuid.UUID) Session {
	next := s.clone()
	for key := range s.Selections {
		if key.OrderID == orderID {
			delete(next.Selections, key)
		}
	}
	for key := range s.AutoFlags {
		if key.OrderID == orderID {
			delete(next.AutoFlags, key)
		}
	}
	return next
}

// AutoAppliedCount returns how many lines of orderID are flagged auto-applied
func (s Session) AutoAppliedCount(orderID uuid.UUID) int {
	n := 0
	for key, v := range s.AutoFlags {
		if v && key.OrderID == orderID {
			n++
		}
	}
	return n
}
