package optimistic

import "optask/internal/service"

// Snapshot is an immutable view of the collection.
type Snapshot struct {
	// Version increases by one with every published change.
	Version uint64

	Items   []service.Item
	Loading bool

	// Err is the last initial-load failure; nil once a load succeeds.
	Err error
}

// Stats are counts derived from a snapshot.
type Stats struct {
	Total     int
	Done      int
	Remaining int
}

// Stats computes the counts from Items.
func (s Snapshot) Stats() Stats {
	var done int
	for _, it := range s.Items {
		if it.Done {
			done++
		}
	}
	return Stats{Total: len(s.Items), Done: done, Remaining: len(s.Items) - done}
}

// Find returns the item with the given ID.
func (s Snapshot) Find(id int64) (service.Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return service.Item{}, false
}

func indexOf(items []service.Item, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(items []service.Item, i int) []service.Item {
	return append(items[:i:i], items[i+1:]...)
}

func prepend(items []service.Item, it service.Item) []service.Item {
	out := make([]service.Item, 0, len(items)+1)
	out = append(out, it)
	return append(out, items...)
}
