package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/spamanager/spa-manager/internal/reporting"
)

const amountColumn = 6

// WriteSalesXLSX writes the listing rows as a single-sheet workbook. Amounts
// are stored as numbers so the sheet can sum them.
func WriteSalesXLSX(w io.Writer, rows []reporting.SaleRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, 0, len(Headers))
		for col, v := range record(row) {
			if col == amountColumn-1 {
				values = append(values, row.Amount.InexactFloat64())
				continue
			}
			values = append(values, v)
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}

	if err := styleSheet(f, len(rows)); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write xlsx: %w", err)
	}
	return nil
}

func styleSheet(f *excelize.File, rowCount int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}
	if rowCount > 0 {
		money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
		if err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(amountColumn)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, col+"2", fmt.Sprintf("%s%d", col, rowCount+1), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetName, "A", "A", 12); err != nil {
		return err
	}
	return f.SetColWidth(SheetName, "B", "I", 20)
}
