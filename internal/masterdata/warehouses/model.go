package warehouses

// Warehouse represents a godown where stock is held.
type Warehouse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}
