package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RenderXLSX renders the same ledger rows as a single-sheet workbook for
// consumers who want a spreadsheet instead of the CSV dialect.
func RenderXLSX(rows []LedgerRow) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Journal"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	write := func(col, rowNum int, v string) {
		cell, _ := excelize.CoordinatesToCellName(col, rowNum)
		_ = f.SetCellValue(sheet, cell, v)
	}

	for i, h := range header {
		write(i+1, 1, h)
	}
	for r, row := range rows {
		for c, cell := range row {
			write(c+1, r+2, cell)
		}
	}

	// Widen the columns readers actually scan.
	_ = f.SetColWidth(sheet, "B", "B", 12) // date
	_ = f.SetColWidth(sheet, "C", "C", 22) // debit account
	_ = f.SetColWidth(sheet, "F", "F", 24) // counterparty
	_ = f.SetColWidth(sheet, "S", "S", 48) // description

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
