package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/SigitArif/POS/internal/storage"
	"github.com/xuri/excelize/v2"
)

const (
	salesSheet   = "Sales"
	summarySheet = "Summary"
	cellTime     = "2006-01-02 15:04:05"
)

// WriteXLSX writes the orders inside w as a workbook with one row per order
// followed by a totals row, plus a summary sheet.
func WriteXLSX(out io.Writer, orders []storage.SalesOrder, w Window) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}

	selected := make([]storage.SalesOrder, 0, len(orders))
	for _, order := range orders {
		if w.Contains(order.DateTime) {
			selected = append(selected, order)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].DateTime.Before(selected[j].DateTime)
	})

	header := []any{"Order ID", "Date Time", "Revenue", "Profit"}
	if err := f.SetSheetRow(salesSheet, "A1", &header); err != nil {
		return fmt.Errorf("export xlsx: header: %w", err)
	}
	for i, order := range selected {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		row := []any{
			order.ID,
			order.DateTime.Format(cellTime),
			order.TotalRevenue.InexactFloat64(),
			order.TotalProfit.InexactFloat64(),
		}
		if err := f.SetSheetRow(salesSheet, cell, &row); err != nil {
			return fmt.Errorf("export xlsx: row %d: %w", i+2, err)
		}
	}

	total := Range(selected, w)
	totalCell, err := excelize.CoordinatesToCellName(1, len(selected)+2)
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	totalRow := []any{"Total", "", total.Revenue.InexactFloat64(), total.Profit.InexactFloat64()}
	if err := f.SetSheetRow(salesSheet, totalCell, &totalRow); err != nil {
		return fmt.Errorf("export xlsx: totals: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	summary := [][]any{
		{"From", w.Start.Format(cellTime)},
		{"To", w.End.Format(cellTime)},
		{"Orders", total.Orders},
		{"Revenue", total.Revenue.InexactFloat64()},
		{"Profit", total.Profit.InexactFloat64()},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("export xlsx: summary: %w", err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("export xlsx: write: %w", err)
	}
	return nil
}
