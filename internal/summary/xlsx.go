// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summary

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the summary table.
const SheetName = "Summary"

var columns = []string{"ID", "Description", "Status", "Characters", "File", "Error"}

// Spreadsheet renders the record as an xlsx workbook with one row per job
// followed by a TOTAL row.
func (r Record) Spreadsheet() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"; rename it rather than adding a second sheet.
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	row := 2
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(SheetName, cell, v)
	}
	for _, e := range r.Entries {
		write(1, e.ID)
		write(2, e.Description)
		write(3, string(e.Status))
		write(4, e.Chars)
		write(5, e.File)
		write(6, e.Error)
		row++
	}
	write(1, "TOTAL")
	write(2, fmt.Sprintf("%d chapters", r.Succeeded))
	write(4, r.TotalChars)

	_ = f.SetColWidth(SheetName, "A", "A", 24)
	_ = f.SetColWidth(SheetName, "B", "B", 48)
	_ = f.SetColWidth(SheetName, "C", "D", 12)
	_ = f.SetColWidth(SheetName, "E", "E", 28)
	_ = f.SetColWidth(SheetName, "F", "F", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
