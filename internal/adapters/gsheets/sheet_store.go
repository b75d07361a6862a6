// Package gsheets binds the row store port to a Google Sheets worksheet.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/ports/secondary"
)

// Size of a worksheet created by Provision.
const (
	provisionRows    = 100
	provisionColumns = 20
)

// NewService creates a Sheets API client. credentialsJSON takes precedence
// over credentialsFile; with neither, application default credentials are used.
func NewService(ctx context.Context, credentialsFile, credentialsJSON string, opts ...option.ClientOption) (*sheets.Service, error) {
	switch {
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStoreUnavailable, "failed to create sheets client")
	}
	return svc, nil
}

// SheetStore implements secondary.RowStore over one worksheet.
type SheetStore struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
}

// NewSheetStore creates a row store for a worksheet of a spreadsheet.
func NewSheetStore(svc *sheets.Service, spreadsheetID, worksheet string) *SheetStore {
	return &SheetStore{svc: svc, spreadsheetID: spreadsheetID, worksheet: worksheet}
}

// Name identifies the store.
func (s *SheetStore) Name() string {
	return fmt.Sprintf("sheets:%s/%s", s.spreadsheetID, s.worksheet)
}

// ReadAll fetches every populated row as formatted text.
func (s *SheetStore) ReadAll(ctx context.Context) (*secondary.Sheet, error) {
	values, err := s.get(ctx, s.quoted())
	if err != nil {
		return nil, err
	}
	sheet := &secondary.Sheet{}
	if len(values) > 0 {
		sheet.Header = values[0]
		sheet.Rows = values[1:]
	}
	return sheet, nil
}

// ReadHeader fetches the first row only.
func (s *SheetStore) ReadHeader(ctx context.Context) ([]string, error) {
	values, err := s.get(ctx, s.quoted()+"!1:1")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// AppendRow inserts one row after the last populated row. Values are
// written as-is (RAW) so IDs like 20260107-CM-01 are never reinterpreted.
func (s *SheetStore) AppendRow(ctx context.Context, row []string) error {
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.quoted()+"!A1", &sheets.ValueRange{Values: toValues([][]string{row})}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return s.writeError(err, "append row")
	}
	return nil
}

// OverwriteAll clears the worksheet and writes the sheet from A1. The two
// calls are not atomic; a failure after the clear leaves the worksheet empty.
func (s *SheetStore) OverwriteAll(ctx context.Context, sheet secondary.Sheet) error {
	_, err := s.svc.Spreadsheets.Values.
		Clear(s.spreadsheetID, s.quoted(), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return s.writeError(err, "clear worksheet")
	}

	var values [][]string
	if len(sheet.Header) > 0 {
		values = append(values, sheet.Header)
	}
	values = append(values, sheet.Rows...)
	if len(values) == 0 {
		return nil
	}

	_, err = s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.quoted()+"!A1", &sheets.ValueRange{Values: toValues(values)}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return s.writeError(err, "write worksheet")
	}
	return nil
}

// Provision adds the worksheet to the spreadsheet if it is missing.
func (s *SheetStore) Provision(ctx context.Context) error {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return s.readError(err, "open spreadsheet")
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.worksheet {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: s.worksheet,
					GridProperties: &sheets.GridProperties{
						RowCount:    provisionRows,
						ColumnCount: provisionColumns,
					},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return s.writeError(err, "add worksheet")
	}
	return nil
}

func (s *SheetStore) get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.readError(err, "read worksheet")
	}
	return fromValues(resp.Values), nil
}

// quoted returns the worksheet title as an A1 sheet reference.
func (s *SheetStore) quoted() string {
	return "'" + strings.ReplaceAll(s.worksheet, "'", "''") + "'"
}

func (s *SheetStore) readError(err error, op string) error {
	msg := fmt.Sprintf("%s: failed to %s", s.Name(), op)
	if missingWorksheet(err) {
		return apperr.Wrap(err, apperr.ErrStoreUnavailable, msg+" (worksheet missing, run labbook init)")
	}
	return apperr.Wrap(err, apperr.ErrStoreUnavailable, msg)
}

func (s *SheetStore) writeError(err error, op string) error {
	msg := fmt.Sprintf("%s: failed to %s", s.Name(), op)
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case missingWorksheet(err):
			return apperr.Wrap(err, apperr.ErrStoreUnavailable, msg+" (worksheet missing, run labbook init)")
		case gerr.Code >= 500:
			return apperr.Wrap(err, apperr.ErrStoreUnavailable, msg)
		default:
			// Permission, quota and protected-range refusals.
			return apperr.Wrap(err, apperr.ErrStoreWriteRejected, msg)
		}
	}
	return apperr.Wrap(err, apperr.ErrStoreUnavailable, msg)
}

func missingWorksheet(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusNotFound {
		return true
	}
	return gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range")
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		out[i] = cells
	}
	return out
}

func fromValues(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, c := range row {
			if c != nil {
				cells[j] = fmt.Sprint(c)
			}
		}
		out[i] = cells
	}
	return out
}

var (
	_ secondary.RowStore    = (*SheetStore)(nil)
	_ secondary.Provisioner = (*SheetStore)(nil)
)
