package categories

// Category represents a product category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
