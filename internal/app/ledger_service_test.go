package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/models"
	"github.com/example/labbook/internal/ports/primary"
	"github.com/example/labbook/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockRowStore implements secondary.RowStore for testing.
type mockRowStore struct {
	sheet        secondary.Sheet
	readErr      error
	appendErr    error
	overwriteErr error
	appends      int
	overwrites   int
}

func newMockRowStore(header []string, rows ...[]string) *mockRowStore {
	return &mockRowStore{sheet: secondary.Sheet{Header: header, Rows: rows}}
}

func (m *mockRowStore) Name() string { return "mock" }

func (m *mockRowStore) ReadAll(ctx context.Context) (*secondary.Sheet, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := secondary.Sheet{Header: append([]string(nil), m.sheet.Header...)}
	for _, r := range m.sheet.Rows {
		out.Rows = append(out.Rows, append([]string(nil), r...))
	}
	return &out, nil
}

func (m *mockRowStore) ReadHeader(ctx context.Context) ([]string, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]string(nil), m.sheet.Header...), nil
}

func (m *mockRowStore) AppendRow(ctx context.Context, row []string) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appends++
	if len(m.sheet.Header) == 0 {
		m.sheet.Header = row
		return nil
	}
	m.sheet.Rows = append(m.sheet.Rows, row)
	return nil
}

func (m *mockRowStore) OverwriteAll(ctx context.Context, sheet secondary.Sheet) error {
	if m.overwriteErr != nil {
		return m.overwriteErr
	}
	m.overwrites++
	m.sheet = sheet
	return nil
}

// mockEncoder implements secondary.SnapshotEncoder for testing.
type mockEncoder struct{}

func (mockEncoder) Format() string      { return "csv" }
func (mockEncoder) ContentType() string { return "text/csv" }
func (mockEncoder) Encode(w io.Writer, title string, sheet secondary.Sheet) error {
	_, err := io.WriteString(w, strings.Join(sheet.Header, ",")+"\n")
	for _, r := range sheet.Rows {
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, strings.Join(r, ",")+"\n")
	}
	return err
}

// mockUploader implements secondary.SnapshotUploader for testing.
type mockUploader struct {
	uploaded  map[string][]byte
	uploadErr error
}

func (m *mockUploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if m.uploaded == nil {
		m.uploaded = make(map[string][]byte)
	}
	m.uploaded[name] = data
	return "s3://bucket/" + name, nil
}

// ============================================================================
// Test Helper
// ============================================================================

var testDay = time.Date(2026, 1, 7, 9, 30, 0, 0, time.UTC)

func prepV2Header() []string {
	s, _ := schema.Lookup(schema.PrepV2)
	return s.Headers()
}

func usageHeader() []string {
	s, _ := schema.Lookup(schema.UsageV1)
	return s.Headers()
}

// prepRow builds a prep/v2 row with the given batch ID and timestamp.
func prepRow(id, at string) []string {
	return []string{id, at, "DMEM complete", "kim", "B-1", "F-1", "A-1", "7.4", "yes", "2026-02-07", ""}
}

func newTestLedgerService(t *testing.T, prep, usage *mockRowStore, uploader secondary.SnapshotUploader) *LedgerServiceImpl {
	t.Helper()
	prepSchema, err := schema.Lookup(schema.PrepV2)
	if err != nil {
		t.Fatalf("lookup prep schema: %v", err)
	}
	usageSchema, err := schema.Lookup(schema.UsageV1)
	if err != nil {
		t.Fatalf("lookup usage schema: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	service := NewLedgerService(
		NewRecordStore(prep, prepSchema),
		NewRecordStore(usage, usageSchema),
		[]secondary.SnapshotEncoder{mockEncoder{}},
		uploader,
		logger,
	)
	service.SetClock(func() time.Time { return testDay })
	return service
}

// ============================================================================
// NextBatchID Tests
// ============================================================================

func TestNextBatchID(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		expected string
	}{
		{
			name:     "empty table starts at 01",
			expected: "20260107-CM-01",
		},
		{
			name: "continues after today's maximum",
			rows: [][]string{
				prepRow("20260107-CM-01", "2026-01-07 08:00"),
				prepRow("20260107-CM-02", "2026-01-07 08:10"),
			},
			expected: "20260107-CM-03",
		},
		{
			name: "ignores other days",
			rows: [][]string{
				prepRow("20260106-CM-09", "2026-01-06 17:00"),
			},
			expected: "20260107-CM-01",
		},
		{
			name: "uses maximum not count",
			rows: [][]string{
				prepRow("20260107-CM-05", "2026-01-07 08:00"),
				prepRow("20260107-CM-02", "2026-01-07 08:10"),
			},
			expected: "20260107-CM-06",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prep := newMockRowStore(prepV2Header(), tt.rows...)
			service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

			id, err := service.NextBatchID(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, id)
			}
		})
	}
}

func TestNextBatchID_Malformed(t *testing.T) {
	prep := newMockRowStore(prepV2Header(), prepRow("20260107-CM-xx", "2026-01-07 08:00"))
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	_, err := service.NextBatchID(context.Background())
	if !errors.Is(err, apperr.ErrMalformedIdentifier) {
		t.Errorf("expected ErrMalformedIdentifier, got %v", err)
	}
}

func TestNextBatchID_StoreUnavailable(t *testing.T) {
	prep := newMockRowStore(nil)
	prep.readErr = apperr.Derive(apperr.ErrStoreUnavailable, "prep.csv does not exist")
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	_, err := service.NextBatchID(context.Background())
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

// ============================================================================
// LogPreparation Tests
// ============================================================================

func TestLogPreparation_Success(t *testing.T) {
	prep := newMockRowStore(prepV2Header())
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)
	sterilized := true

	resp, err := service.LogPreparation(context.Background(), primary.PreparationRequest{
		Material:   "DMEM complete",
		Operator:   "kim",
		Lots:       map[string]string{"fbs": "F-22", "Basal Media Lot": "B-7"},
		PH:         "7.40",
		Sterilized: &sterilized,
		ExpiryDate: "2026-02-07",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Record.BatchID != "20260107-CM-01" {
		t.Errorf("expected batch ID 20260107-CM-01, got %q", resp.Record.BatchID)
	}
	if resp.Record.Timestamp != "2026-01-07 09:30" {
		t.Errorf("expected timestamp 2026-01-07 09:30, got %q", resp.Record.Timestamp)
	}
	if len(prep.sheet.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(prep.sheet.Rows))
	}

	row := prep.sheet.Rows[0]
	expected := []string{"20260107-CM-01", "2026-01-07 09:30", "DMEM complete", "kim", "B-7", "F-22", "", "7.40", "yes", "2026-02-07", ""}
	for i := range expected {
		if row[i] != expected[i] {
			t.Errorf("column %d: expected %q, got %q", i, expected[i], row[i])
		}
	}
}

func TestLogPreparation_TwiceAllocatesSequentialIDs(t *testing.T) {
	prep := newMockRowStore(prepV2Header())
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)
	ctx := context.Background()
	req := primary.PreparationRequest{Material: "PBS", Operator: "lee"}

	first, err := service.LogPreparation(ctx, req)
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	second, err := service.LogPreparation(ctx, req)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}

	if first.Record.BatchID != "20260107-CM-01" || second.Record.BatchID != "20260107-CM-02" {
		t.Errorf("expected CM-01 then CM-02, got %q then %q", first.Record.BatchID, second.Record.BatchID)
	}
	if len(prep.sheet.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(prep.sheet.Rows))
	}
}

func TestLogPreparation_EmptyStoreGetsHeader(t *testing.T) {
	prep := newMockRowStore(nil)
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	if _, err := service.LogPreparation(context.Background(), primary.PreparationRequest{Material: "PBS", Operator: "lee"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(prep.sheet.Header, ",") != strings.Join(prepV2Header(), ",") {
		t.Errorf("expected canonical header, got %v", prep.sheet.Header)
	}
	if len(prep.sheet.Rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(prep.sheet.Rows))
	}
}

func TestLogPreparation_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     primary.PreparationRequest
		wantMsg string
	}{
		{
			name:    "missing material",
			req:     primary.PreparationRequest{Operator: "kim"},
			wantMsg: "Material",
		},
		{
			name:    "missing operator",
			req:     primary.PreparationRequest{Material: "PBS"},
			wantMsg: "Prepared By",
		},
		{
			name:    "pH out of range",
			req:     primary.PreparationRequest{Material: "PBS", Operator: "kim", PH: "15"},
			wantMsg: "pH must be at most 14",
		},
		{
			name:    "bad expiry date",
			req:     primary.PreparationRequest{Material: "PBS", Operator: "kim", ExpiryDate: "next week"},
			wantMsg: "Expiry Date",
		},
		{
			name:    "unknown lot",
			req:     primary.PreparationRequest{Material: "PBS", Operator: "kim", Lots: map[string]string{"serum": "S-1"}},
			wantMsg: "no lot column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prep := newMockRowStore(prepV2Header())
			service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

			_, err := service.LogPreparation(context.Background(), tt.req)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error to mention %q, got %q", tt.wantMsg, err.Error())
			}
			if prep.appends != 0 {
				t.Errorf("expected no append, got %d", prep.appends)
			}
		})
	}
}

func TestLogPreparation_WriteRejected(t *testing.T) {
	prep := newMockRowStore(prepV2Header())
	prep.appendErr = apperr.Derive(apperr.ErrStoreWriteRejected, "quota exceeded")
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	_, err := service.LogPreparation(context.Background(), primary.PreparationRequest{Material: "PBS", Operator: "kim"})
	if !errors.Is(err, apperr.ErrStoreWriteRejected) {
		t.Errorf("expected ErrStoreWriteRejected, got %v", err)
	}
}

// ============================================================================
// LogUsage Tests
// ============================================================================

func TestLogUsage(t *testing.T) {
	usage := newMockRowStore(usageHeader())
	service := newTestLedgerService(t, newMockRowStore(prepV2Header()), usage, nil)

	resp, err := service.LogUsage(context.Background(), primary.UsageRequest{
		Material: "DMEM complete",
		Operator: "park",
		Amount:   "50 mL",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Record.BatchID != "" {
		t.Errorf("expected no batch ID for usage, got %q", resp.Record.BatchID)
	}
	expected := []string{"2026-01-07 09:30", "DMEM complete", "park", "50 mL", ""}
	if strings.Join(usage.sheet.Rows[0], "|") != strings.Join(expected, "|") {
		t.Errorf("expected %v, got %v", expected, usage.sheet.Rows[0])
	}
}

func TestLogUsage_IdenticalRequestsAppendTwoRows(t *testing.T) {
	usage := newMockRowStore(usageHeader())
	service := newTestLedgerService(t, newMockRowStore(prepV2Header()), usage, nil)
	req := primary.UsageRequest{Material: "PBS", Operator: "lee", Amount: "10 mL"}

	for i := 0; i < 2; i++ {
		if _, err := service.LogUsage(context.Background(), req); err != nil {
			t.Fatalf("LogUsage #%d failed: %v", i+1, err)
		}
	}

	if len(usage.sheet.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(usage.sheet.Rows))
	}
	if strings.Join(usage.sheet.Rows[0], "|") != strings.Join(usage.sheet.Rows[1], "|") {
		t.Errorf("expected identical rows, got %v and %v", usage.sheet.Rows[0], usage.sheet.Rows[1])
	}
}

// ============================================================================
// ListRecords Tests
// ============================================================================

func TestListRecords_NewestFirst(t *testing.T) {
	prep := newMockRowStore(prepV2Header(),
		prepRow("20260106-CM-01", "2026-01-06 10:00"),
		prepRow("20260107-CM-01", "2026-01-07 08:00"),
		prepRow("20260105-CM-01", "2026-01-05 12:00"),
	)
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	table, err := service.ListRecords(context.Background(), primary.ListRecordsRequest{
		Table:       models.TablePreparation,
		NewestFirst: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.Join(table.BatchIDs(), ",")
	if got != "20260107-CM-01,20260106-CM-01,20260105-CM-01" {
		t.Errorf("unexpected order: %s", got)
	}
	if prep.sheet.Rows[0][0] != "20260106-CM-01" {
		t.Error("expected stored order to be untouched")
	}
}

func TestListRecords_UnknownTable(t *testing.T) {
	service := newTestLedgerService(t, newMockRowStore(prepV2Header()), newMockRowStore(usageHeader()), nil)

	_, err := service.ListRecords(context.Background(), primary.ListRecordsRequest{Table: "inventory"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================================
// ReplaceTable Tests
// ============================================================================

func TestReplaceTable_RoundTrip(t *testing.T) {
	prep := newMockRowStore(prepV2Header(),
		prepRow("20260107-CM-01", "2026-01-07 08:00"),
		prepRow("20260107-CM-02", "2026-01-07 08:10"),
	)
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)
	ctx := context.Background()

	sheet, err := service.LoadSheet(ctx, models.TablePreparation)
	if err != nil {
		t.Fatalf("load sheet: %v", err)
	}
	sheet.Rows[1][10] = "discarded"

	resp, err := service.ReplaceTable(ctx, primary.ReplaceTableRequest{
		Table:  models.TablePreparation,
		Header: sheet.Header,
		Rows:   sheet.Rows,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RowsBefore != 2 || resp.RowsAfter != 2 {
		t.Errorf("expected 2 rows before and after, got %d and %d", resp.RowsBefore, resp.RowsAfter)
	}
	if prep.sheet.Rows[1][10] != "discarded" {
		t.Errorf("expected edited note to be stored, got %q", prep.sheet.Rows[1][10])
	}
	if prep.sheet.Rows[0][0] != "20260107-CM-01" {
		t.Errorf("expected first row unchanged, got %q", prep.sheet.Rows[0][0])
	}
}

func TestReplaceTable_BlankBatchIDRejected(t *testing.T) {
	prep := newMockRowStore(prepV2Header(),
		prepRow("20260107-CM-01", "2026-01-07 08:00"),
		prepRow("20260107-CM-02", "2026-01-07 08:10"),
	)
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	edited := [][]string{
		prepRow("20260107-CM-01", "2026-01-07 08:00"),
		prepRow("", "2026-01-07 08:10"),
	}
	_, err := service.ReplaceTable(context.Background(), primary.ReplaceTableRequest{
		Table:  models.TablePreparation,
		Header: prepV2Header(),
		Rows:   edited,
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "Batch ID") {
		t.Errorf("expected error to name Batch ID, got %q", err.Error())
	}
	if prep.overwrites != 0 {
		t.Errorf("expected store untouched, got %d overwrites", prep.overwrites)
	}
}

func TestReplaceTable_AlteredBatchIDRejected(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "unparseable sequence", id: "20260107-CM-x1"},
		{name: "invented sequence", id: "20260107-CM-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prep := newMockRowStore(prepV2Header(), prepRow("20260107-CM-01", "2026-01-07 08:00"))
			service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)
			ctx := context.Background()

			_, err := service.ReplaceTable(ctx, primary.ReplaceTableRequest{
				Table:  models.TablePreparation,
				Header: prepV2Header(),
				Rows:   [][]string{prepRow(tt.id, "2026-01-07 08:00")},
			})
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if prep.overwrites != 0 {
				t.Errorf("expected store untouched, got %d overwrites", prep.overwrites)
			}

			// Allocation keeps working after the rejected edit.
			id, err := service.NextBatchID(ctx)
			if err != nil {
				t.Fatalf("NextBatchID failed: %v", err)
			}
			if id != "20260107-CM-02" {
				t.Errorf("expected 20260107-CM-02, got %s", id)
			}
		})
	}
}

func TestReplaceTable_ImportAcceptsForeignBatchIDs(t *testing.T) {
	prep := newMockRowStore(prepV2Header())
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	resp, err := service.ReplaceTable(context.Background(), primary.ReplaceTableRequest{
		Table:  models.TablePreparation,
		Header: prepV2Header(),
		Rows:   [][]string{prepRow("20260105-CM-03", "2026-01-05 08:00")},
		Import: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RowsAfter != 1 || prep.sheet.Rows[0][0] != "20260105-CM-03" {
		t.Errorf("expected imported row stored, got %v", prep.sheet.Rows)
	}
}

func TestReplaceTable_HeaderMismatch(t *testing.T) {
	prep := newMockRowStore(prepV2Header())
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	_, err := service.ReplaceTable(context.Background(), primary.ReplaceTableRequest{
		Table:  models.TablePreparation,
		Header: []string{"Batch ID", "Colour"},
	})
	if !errors.Is(err, apperr.ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReplaceTable_ReportsDuplicates(t *testing.T) {
	prep := newMockRowStore(prepV2Header(), prepRow("20260107-CM-01", "2026-01-07 08:00"))
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	resp, err := service.ReplaceTable(context.Background(), primary.ReplaceTableRequest{
		Table:  models.TablePreparation,
		Header: prepV2Header(),
		Rows: [][]string{
			prepRow("20260107-CM-01", "2026-01-07 08:00"),
			prepRow("20260107-CM-01", "2026-01-07 08:10"),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.DuplicateIDs) != 1 || resp.DuplicateIDs[0] != "20260107-CM-01" {
		t.Errorf("expected duplicate 20260107-CM-01, got %v", resp.DuplicateIDs)
	}
	if prep.overwrites != 1 {
		t.Errorf("expected 1 overwrite, got %d", prep.overwrites)
	}
}

// ============================================================================
// Snapshot Tests
// ============================================================================

func TestExportSnapshot(t *testing.T) {
	prep := newMockRowStore(prepV2Header(), prepRow("20260107-CM-01", "2026-01-07 08:00"))
	service := newTestLedgerService(t, prep, newMockRowStore(usageHeader()), nil)

	snap, err := service.ExportSnapshot(context.Background(), primary.SnapshotRequest{Table: models.TablePreparation})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Filename != "prep-20260107-0930.csv" {
		t.Errorf("expected filename prep-20260107-0930.csv, got %q", snap.Filename)
	}
	if !bytes.Contains(snap.Data, []byte("20260107-CM-01")) {
		t.Errorf("expected snapshot to contain the batch ID, got %q", snap.Data)
	}
}

func TestExportSnapshot_UnknownFormat(t *testing.T) {
	service := newTestLedgerService(t, newMockRowStore(prepV2Header()), newMockRowStore(usageHeader()), nil)

	_, err := service.ExportSnapshot(context.Background(), primary.SnapshotRequest{Table: models.TablePreparation, Format: "pdf"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestPublishSnapshot(t *testing.T) {
	uploader := &mockUploader{}
	service := newTestLedgerService(t, newMockRowStore(prepV2Header()), newMockRowStore(usageHeader()), uploader)

	resp, err := service.PublishSnapshot(context.Background(), primary.SnapshotRequest{Table: models.TableUsage, Format: "csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Location != "s3://bucket/usage-20260107-0930.csv" {
		t.Errorf("unexpected location %q", resp.Location)
	}
	if _, ok := uploader.uploaded[resp.Filename]; !ok {
		t.Errorf("expected %s to be uploaded", resp.Filename)
	}
}

func TestPublishSnapshot_NotConfigured(t *testing.T) {
	service := newTestLedgerService(t, newMockRowStore(prepV2Header()), newMockRowStore(usageHeader()), nil)

	_, err := service.PublishSnapshot(context.Background(), primary.SnapshotRequest{Table: models.TablePreparation})
	if !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

// ============================================================================
// InitTables / CheckTables Tests
// ============================================================================

func TestInitTables(t *testing.T) {
	prep := newMockRowStore(nil)
	usage := newMockRowStore(usageHeader())
	service := newTestLedgerService(t, prep, usage, nil)

	statuses, err := service.InitTables(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Created {
		t.Error("expected prep table to be created")
	}
	if statuses[1].Created {
		t.Error("expected usage table to be left alone")
	}
	if len(prep.sheet.Header) == 0 {
		t.Error("expected prep header to be written")
	}
}

func TestCheckTables(t *testing.T) {
	prep := newMockRowStore(prepV2Header(),
		prepRow("20260107-CM-01", "2026-01-07 08:00"),
		prepRow("20260107-CM-01", "2026-01-07 08:10"),
		prepRow("20260107-CMX", "2026-01-07 08:20"),
	)
	usage := newMockRowStore(nil)
	usage.readErr = apperr.Derive(apperr.ErrStoreUnavailable, "usage.csv does not exist")
	service := newTestLedgerService(t, prep, usage, nil)

	statuses := service.CheckTables(context.Background())
	if statuses[0].Rows != 3 {
		t.Errorf("expected 3 rows, got %d", statuses[0].Rows)
	}
	if len(statuses[0].DuplicateIDs) != 1 {
		t.Errorf("expected 1 duplicate, got %v", statuses[0].DuplicateIDs)
	}
	if len(statuses[0].MalformedIDs) != 1 {
		t.Errorf("expected 1 malformed ID, got %v", statuses[0].MalformedIDs)
	}
	if !errors.Is(statuses[1].Err, apperr.ErrStoreUnavailable) {
		t.Errorf("expected usage to be unavailable, got %v", statuses[1].Err)
	}
}
