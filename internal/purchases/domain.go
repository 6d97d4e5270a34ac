package purchases

import (
	"time"

	"github.com/stockline-erp/stockline/internal/stock"
)

// Purchase is an inbound stock event: goods received from a supplier. Its
// line items drive a ledger increase when created and the exact inverse when
// deleted.
type Purchase struct {
	ID            int64            `json:"id"`
	Reference     string           `json:"reference"`
	SupplierName  string           `json:"supplierName"`
	TransportID   int64            `json:"transportId,omitempty"`
	Remark        string           `json:"remark,omitempty"`
	TotalQuantity int64            `json:"totalQuantity"`
	Items         []stock.LineItem `json:"items"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Return is goods going back to the supplier. It decreases stock and, unlike
// a purchase, counts toward the product sold counter.
type Return struct {
	ID            int64            `json:"id"`
	Reference     string           `json:"reference"`
	SupplierName  string           `json:"supplierName"`
	TransportID   int64            `json:"transportId,omitempty"`
	Remark        string           `json:"remark,omitempty"`
	TotalQuantity int64            `json:"totalQuantity"`
	Items         []stock.LineItem `json:"items"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

const (
	eventPurchase = "purchase"
	eventReturn   = "purchase_return"
)

func (p Purchase) movement() stock.Movement {
	return stock.Movement{
		Event:      eventPurchase,
		Items:      p.Items,
		Direction:  stock.Increase,
		Class:      stock.ClassStock,
		PurchaseID: p.ID,
	}
}

func (r Return) movement() stock.Movement {
	return stock.Movement{
		Event:     eventReturn,
		Items:     r.Items,
		Direction: stock.Decrease,
		Class:     stock.ClassSale,
	}
}

func totalQuantity(items []stock.LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
