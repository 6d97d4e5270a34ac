package transfers

import (
	"time"

	"github.com/stockline-erp/stockline/internal/stock"
)

// Transfer moves stock between two warehouses. Every item is decreased at
// the source and increased at the destination inside one transaction; the
// product counters net to zero.
type Transfer struct {
	ID                int64          `json:"id"`
	Reference         string         `json:"reference"`
	SourceWarehouseID int64          `json:"sourceWarehouseId"`
	DestWarehouseID   int64          `json:"destWarehouseId"`
	Remark            string         `json:"remark,omitempty"`
	TotalQuantity     int64          `json:"totalQuantity"`
	Items             []TransferItem `json:"items"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// TransferItem names what moves; the warehouses come from the header.
type TransferItem struct {
	ProductID  int64 `json:"productId" validate:"required,gt=0"`
	CategoryID int64 `json:"categoryId" validate:"required,gt=0"`
	Quantity   int64 `json:"quantity" validate:"required,gt=0"`
}

const eventTransfer = "transfer"

// movements returns the outbound and inbound halves of the transfer. The
// outbound decrease runs first so availability is checked before anything
// lands at the destination.
func (t Transfer) movements() (out, in stock.Movement) {
	outItems := make([]stock.LineItem, len(t.Items))
	inItems := make([]stock.LineItem, len(t.Items))
	for i, item := range t.Items {
		outItems[i] = stock.LineItem{
			ProductID:   item.ProductID,
			CategoryID:  item.CategoryID,
			WarehouseID: t.SourceWarehouseID,
			Quantity:    item.Quantity,
		}
		inItems[i] = stock.LineItem{
			ProductID:   item.ProductID,
			CategoryID:  item.CategoryID,
			WarehouseID: t.DestWarehouseID,
			Quantity:    item.Quantity,
		}
	}
	out = stock.Movement{Event: eventTransfer, Items: outItems, Direction: stock.Decrease, Class: stock.ClassStock}
	in = stock.Movement{Event: eventTransfer, Items: inItems, Direction: stock.Increase, Class: stock.ClassStock}
	return out, in
}

func totalQuantity(items []TransferItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
