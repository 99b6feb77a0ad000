// Package service defines the backend-agnostic interface for to-do items.
package service

// Item represents a single to-do item.
type Item struct {
	ID    int64
	Title string
	Done  bool

	// Pending is set while an optimistic change to the item is unconfirmed.
	// Stores never persist it and always return items with Pending=false.
	Pending bool
}

// Clone returns a copy of items that shares no backing array with the input.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
