// Package export contains snapshot encoders for downloads and uploads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/example/labbook/internal/ports/secondary"
)

const utf8BOM = "\ufeff"

// CSVEncoder writes a snapshot as UTF-8 CSV with a byte order mark.
type CSVEncoder struct{}

// NewCSVEncoder creates a CSV encoder.
func NewCSVEncoder() *CSVEncoder {
	return &CSVEncoder{}
}

func (e *CSVEncoder) Format() string { return "csv" }

func (e *CSVEncoder) ContentType() string { return "text/csv; charset=utf-8" }

// Encode writes header and rows to w.
func (e *CSVEncoder) Encode(w io.Writer, title string, sheet secondary.Sheet) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(sheet.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(sheet.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

var _ secondary.SnapshotEncoder = (*CSVEncoder)(nil)
