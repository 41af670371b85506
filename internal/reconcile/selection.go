package reconcile

import (
	"github.com/google/uuid"
)

// SelectionKey addresses one line of one order. Items are positional, so
// reordering an order's items invalidates keys that point into it.
type SelectionKey struct {
	OrderID   uuid.UUID
	ItemIndex int
}

// Selections maps a line to the ordered set of chosen product ids. A key
// that is absent means the line has no selection; empty sets are never stored.
type Selections map[SelectionKey][]string

// AutoFlags marks lines whose selection came from a bundle match
type AutoFlags map[SelectionKey]bool

// Clone returns a deep copy
func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for k, ids := range s {
		out[k] = append([]string(nil), ids...)
	}
	return out
}

// Get returns the selection for key, or nil
func (s Selections) Get(key SelectionKey) []string {
	return s[key]
}

// Clone returns a copy
func (f AutoFlags) Clone() AutoFlags {
	out := make(AutoFlags, len(f))
	for k, v := range f {
		if v {
			out[k] = true
		}
	}
	return out
}

// dedupe drops empty and repeated ids, keeping first occurrences in order
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
