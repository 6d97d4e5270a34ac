package transports

// Transport represents a carrier referenced by purchases and sales.
type Transport struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
