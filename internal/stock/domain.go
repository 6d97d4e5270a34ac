package stock

import (
	"errors"
	"time"
)

// Direction tells which way a movement changes on-hand quantity.
type Direction int

const (
	// Increase adds stock to the (product, warehouse) entry.
	Increase Direction = iota + 1
	// Decrease removes stock from the (product, warehouse) entry.
	Decrease
)

// Inverse returns the opposite direction, used when reversing an event.
func (d Direction) Inverse() Direction {
	if d == Increase {
		return Decrease
	}
	return Increase
}

func (d Direction) String() string {
	if d == Increase {
		return "increase"
	}
	return "decrease"
}

// Class separates movements that maintain the product sold counter from
// pure stock corrections.
type Class int

const (
	// ClassStock covers purchases, transfers and exchanges; sold untouched.
	ClassStock Class = iota + 1
	// ClassSale covers sells and purchase returns; decreases add to sold,
	// increases (their reversals) subtract from it.
	ClassSale
)

// Entry is the ledger row for one (product, warehouse) pair. Quantity never
// goes negative; the row is deleted when it reaches zero.
type Entry struct {
	ID          int64
	ProductID   int64
	CategoryID  int64
	WarehouseID int64
	Quantity    int64
	PurchaseID  int64 // back-reference to the purchase that created it, 0 when absent
	UpdatedAt   time.Time
}

// LineItem is the line shape shared by every business event. The JSON field
// names are contractual; grid clients depend on them.
type LineItem struct {
	ProductID   int64 `json:"productId" validate:"required,gt=0"`
	CategoryID  int64 `json:"categoryId" validate:"required,gt=0"`
	WarehouseID int64 `json:"warehouseId" validate:"required,gt=0"`
	Quantity    int64 `json:"quantity" validate:"required,gt=0"`
}

// Movement describes one directional application of an event's line items.
type Movement struct {
	Event      string
	Items      []LineItem
	Direction  Direction
	Class      Class
	PurchaseID int64 // stamped on entries created by a purchase
}

// Reversed returns the movement that undoes this one.
func (m Movement) Reversed() Movement {
	rev := m
	rev.Direction = m.Direction.Inverse()
	return rev
}

// EntryView joins reference names for the stock grid.
type EntryView struct {
	ID            int64  `json:"id"`
	ProductID     int64  `json:"productId"`
	ProductName   string `json:"productName"`
	CategoryID    int64  `json:"categoryId"`
	CategoryName  string `json:"categoryName"`
	WarehouseID   int64  `json:"warehouseId"`
	WarehouseName string `json:"warehouseName"`
	Quantity      int64  `json:"quantity"`
}

// ListFilters narrows the stock grid query.
type ListFilters struct {
	Page        int
	Limit       int
	Search      string
	WarehouseID int64
	CategoryID  int64
}

// ErrEntryNotFound indicates a missing (product, warehouse) ledger row.
var ErrEntryNotFound = errors.New("stock entry not found")
