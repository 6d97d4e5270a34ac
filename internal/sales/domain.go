package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockline-erp/stockline/internal/stock"
)

// Sale is an outbound stock event: goods shipped to a customer. Creating one
// decreases stock and counts the quantities as sold; deleting restores both.
type Sale struct {
	ID            int64            `json:"id"`
	Reference     string           `json:"reference"`
	CustomerID    int64            `json:"customerId"`
	CustomerName  string           `json:"customerName,omitempty"`
	TransportID   int64            `json:"transportId,omitempty"`
	Remark        string           `json:"remark,omitempty"`
	TotalQuantity int64            `json:"totalQuantity"`
	TotalAmount   decimal.Decimal  `json:"totalAmount"`
	Items         []stock.LineItem `json:"items"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Return is goods coming back from a customer. It restores stock and
// subtracts the quantities from the sold counter.
type Return struct {
	ID            int64            `json:"id"`
	Reference     string           `json:"reference"`
	CustomerID    int64            `json:"customerId"`
	CustomerName  string           `json:"customerName,omitempty"`
	TransportID   int64            `json:"transportId,omitempty"`
	Remark        string           `json:"remark,omitempty"`
	TotalQuantity int64            `json:"totalQuantity"`
	Items         []stock.LineItem `json:"items"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

const (
	eventSale   = "sale"
	eventReturn = "sale_return"
)

func (s Sale) movement() stock.Movement {
	return stock.Movement{
		Event:     eventSale,
		Items:     s.Items,
		Direction: stock.Decrease,
		Class:     stock.ClassSale,
	}
}

func (r Return) movement() stock.Movement {
	return stock.Movement{
		Event:     eventReturn,
		Items:     r.Items,
		Direction: stock.Increase,
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
