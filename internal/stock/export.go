package stock

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Stock"

// BuildWorkbook renders stock entries into an xlsx workbook.
func BuildWorkbook(entries []EntryView) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"Product", "Category", "Warehouse", "Quantity"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, entry := range entries {
		row := i + 2
		values := []any{entry.ProductName, entry.CategoryName, entry.WarehouseName, entry.Quantity}
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

// ExportFilename names the attachment for grid downloads.
func ExportFilename(prefix string) string {
	return fmt.Sprintf("%s-export.xlsx", prefix)
}
