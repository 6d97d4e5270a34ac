package products

import "github.com/shopspring/decimal"

// Product carries the denormalised quantity and sold counters maintained by
// the stock ledger; CRUD never writes them directly.
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	CategoryID int64           `json:"categoryId"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	Sold       int64           `json:"sold"`
}
