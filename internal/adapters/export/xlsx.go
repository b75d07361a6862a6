package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/example/labbook/internal/ports/secondary"
)

// XLSXEncoder writes a snapshot as an Excel workbook with one worksheet.
type XLSXEncoder struct{}

// NewXLSXEncoder creates an XLSX encoder.
func NewXLSXEncoder() *XLSXEncoder {
	return &XLSXEncoder{}
}

func (e *XLSXEncoder) Format() string { return "xlsx" }

func (e *XLSXEncoder) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Encode writes header and rows to a worksheet named after title. Every
// cell is written as text so batch IDs and lot codes keep their form.
func (e *XLSXEncoder) Encode(w io.Writer, title string, sheet secondary.Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	name := worksheetName(title)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	if err := setRow(f, name, 1, sheet.Header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range sheet.Rows {
		if err := setRow(f, name, i+2, row); err != nil {
			return err
		}
	}

	if len(sheet.Header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(sheet.Header))
		if err := f.SetColWidth(name, "A", last, 18); err != nil {
			return fmt.Errorf("failed to size columns: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheetName string, rowNo int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNo, err)
	}
	return nil
}

// worksheetName trims a title to Excel's 31-character limit.
func worksheetName(title string) string {
	if title == "" {
		return "Sheet1"
	}
	r := []rune(title)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}

var _ secondary.SnapshotEncoder = (*XLSXEncoder)(nil)
