package sales

import (
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Sales"

// BuildWorkbook renders sales into an xlsx workbook, one row per sale.
func BuildWorkbook(sales []Sale) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"Reference", "Customer", "Total Quantity", "Total Amount", "Remark", "Date"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, sale := range sales {
		row := i + 2
		values := []any{
			sale.Reference,
			sale.CustomerName,
			sale.TotalQuantity,
			sale.TotalAmount.String(),
			sale.Remark,
			sale.CreatedAt.Format("2006-01-02"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}
