package exchanges

import (
	"time"

	"github.com/stockline-erp/stockline/internal/stock"
)

// Exchange swaps stock between two products at one warehouse: the source
// product's quantity is decreased and the destination product's increased by
// the same amount, both sides in one transaction.
type Exchange struct {
	ID               int64     `json:"id"`
	Reference        string    `json:"reference"`
	WarehouseID      int64     `json:"warehouseId"`
	SourceProductID  int64     `json:"sourceProductId"`
	SourceCategoryID int64     `json:"sourceCategoryId"`
	DestProductID    int64     `json:"destProductId"`
	DestCategoryID   int64     `json:"destCategoryId"`
	Quantity         int64     `json:"quantity"`
	Remark           string    `json:"remark,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

const eventExchange = "exchange"

// movements returns the outbound and inbound halves of the swap.
func (e Exchange) movements() (out, in stock.Movement) {
	out = stock.Movement{
		Event: eventExchange,
		Items: []stock.LineItem{{
			ProductID:   e.SourceProductID,
			CategoryID:  e.SourceCategoryID,
			WarehouseID: e.WarehouseID,
			Quantity:    e.Quantity,
		}},
		Direction: stock.Decrease,
		Class:     stock.ClassStock,
	}
	in = stock.Movement{
		Event: eventExchange,
		Items: []stock.LineItem{{
			ProductID:   e.DestProductID,
			CategoryID:  e.DestCategoryID,
			WarehouseID: e.WarehouseID,
			Quantity:    e.Quantity,
		}},
		Direction: stock.Increase,
		Class:     stock.ClassStock,
	}
	return out, in
}
