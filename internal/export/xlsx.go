package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of WriteXLSX output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX renders wb as an Excel workbook.
func WriteXLSX(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, sh := range wb.Sheets() {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sh.Name, err)
		}

		if err := writeSheet(f, sh); err != nil {
			return err
		}
		if err := f.SetRowStyle(sh.Name, 1, 1, bold); err != nil {
			return fmt.Errorf("style header of %s: %w", sh.Name, err)
		}
		if len(sh.Rows) > 0 {
			last, _ := excelize.ColumnNumberToName(len(sh.Rows[0]))
			if err := f.SetColWidth(sh.Name, "A", last, 18); err != nil {
				return fmt.Errorf("size columns of %s: %w", sh.Name, err)
			}
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh Sheet) error {
	for r := range sh.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.Name, cell, &sh.Rows[r]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sh.Name, r+1, err)
		}
	}
	return nil
}
