package model

// Todo is a single to-do entry as the backend stores it.
// ID is assigned by the backend and never changed by the client.
type Todo struct {
	ID   int    `json:"id"`
	Todo string `json:"todo"`
	Done bool   `json:"done"`
}

// NewTodo is the payload sent when creating an item.
type NewTodo struct {
	Todo string `json:"todo"`
	Done bool   `json:"done"`
}

// Partition splits items into active and done, keeping input order on each side.
func Partition(items []Todo) (active, done []Todo) {
	for _, it := range items {
		if it.Done {
			done = append(done, it)
		} else {
			active = append(active, it)
		}
	}
	return
}

// Stats counts done and active items.
func Stats(items []Todo) (done, active int) {
	for _, it := range items {
		if it.Done {
			done++
		} else {
			active++
		}
	}
	return
}

// Find returns the item with the given id.
func Find(items []Todo, id int) (Todo, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Todo{}, false
}
