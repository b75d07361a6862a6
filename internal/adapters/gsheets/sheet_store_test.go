package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/ports/secondary"
)

const testSpreadsheet = "sheet-123"

// fakeSheets serves the subset of the Sheets v4 REST API used by SheetStore.
type fakeSheets struct {
	mu         sync.Mutex
	worksheets map[string][][]string
	rejectAll  bool
}

func newFakeSheets(t *testing.T) (*fakeSheets, *sheets.Service) {
	t.Helper()
	fake := &fakeSheets{worksheets: map[string][][]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("failed to create sheets service: %v", err)
	}
	return fake, svc
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/"+testSpreadsheet)
	if !ok {
		writeAPIError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}

	if f.rejectAll && r.Method != http.MethodGet {
		writeAPIError(w, http.StatusForbidden, "The caller does not have permission")
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		var props []map[string]any
		for title := range f.worksheets {
			props = append(props, map[string]any{"properties": map[string]any{"title": title}})
		}
		writeJSON(w, map[string]any{"sheets": props})

	case rest == ":batchUpdate":
		var req sheets.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.worksheets[rq.AddSheet.Properties.Title] = nil
			}
		}
		writeJSON(w, map[string]any{"spreadsheetId": testSpreadsheet})

	case strings.HasPrefix(rest, "/values/"):
		f.serveValues(w, r, strings.TrimPrefix(rest, "/values/"))

	default:
		writeAPIError(w, http.StatusNotFound, "unknown path "+rest)
	}
}

func (f *fakeSheets) serveValues(w http.ResponseWriter, r *http.Request, rng string) {
	action := ""
	for _, suffix := range []string{":append", ":clear"} {
		if strings.HasSuffix(rng, suffix) {
			rng = strings.TrimSuffix(rng, suffix)
			action = suffix[1:]
		}
	}

	title, cells := parseRange(rng)
	rows, ok := f.worksheets[title]
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
		return
	}

	var body sheets.ValueRange
	if r.Method != http.MethodGet {
		json.NewDecoder(r.Body).Decode(&body)
	}

	switch {
	case action == "append":
		f.worksheets[title] = append(rows, stringRows(body.Values)...)
	case action == "clear":
		f.worksheets[title] = nil
	case r.Method == http.MethodPut:
		f.worksheets[title] = stringRows(body.Values)
	case r.Method == http.MethodGet:
		if cells == "1:1" && len(rows) > 0 {
			rows = rows[:1]
		}
		writeJSON(w, map[string]any{"range": rng, "majorDimension": "ROWS", "values": rows})
		return
	}
	writeJSON(w, map[string]any{"spreadsheetId": testSpreadsheet})
}

func parseRange(rng string) (title, cells string) {
	title, cells, _ = strings.Cut(rng, "!")
	title = strings.TrimSuffix(strings.TrimPrefix(title, "'"), "'")
	return strings.ReplaceAll(title, "''", "'"), cells
}

func stringRows(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		for _, c := range row {
			s, _ := c.(string)
			out[i] = append(out[i], s)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func TestSheetStore_MissingWorksheet(t *testing.T) {
	_, svc := newFakeSheets(t)
	store := NewSheetStore(svc, testSpreadsheet, "조제기록")

	_, err := store.ReadAll(context.Background())
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSheetStore_ProvisionAppendRead(t *testing.T) {
	fake, svc := newFakeSheets(t)
	store := NewSheetStore(svc, testSpreadsheet, "조제기록")
	ctx := context.Background()

	if err := store.Provision(ctx); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if _, ok := fake.worksheets["조제기록"]; !ok {
		t.Fatal("expected worksheet to be created")
	}

	header, err := store.ReadHeader(ctx)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if len(header) != 0 {
		t.Errorf("expected empty header, got %v", header)
	}

	for _, row := range [][]string{{"Batch ID", "Material"}, {"20260107-CM-01", "PBS"}} {
		if err := store.AppendRow(ctx, row); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
	}

	sheet, err := store.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if strings.Join(sheet.Header, ",") != "Batch ID,Material" {
		t.Errorf("unexpected header %v", sheet.Header)
	}
	if len(sheet.Rows) != 1 || sheet.Rows[0][0] != "20260107-CM-01" {
		t.Errorf("unexpected rows %v", sheet.Rows)
	}

	header, err = store.ReadHeader(ctx)
	if err != nil || len(header) != 2 {
		t.Errorf("expected 2 header cells, got %v (%v)", header, err)
	}
}

func TestSheetStore_OverwriteAll(t *testing.T) {
	fake, svc := newFakeSheets(t)
	fake.worksheets["prep"] = [][]string{{"Batch ID"}, {"A"}, {"B"}, {"C"}}
	store := NewSheetStore(svc, testSpreadsheet, "prep")

	err := store.OverwriteAll(context.Background(), secondary.Sheet{
		Header: []string{"Batch ID"},
		Rows:   [][]string{{"C"}},
	})
	if err != nil {
		t.Fatalf("OverwriteAll failed: %v", err)
	}
	if len(fake.worksheets["prep"]) != 2 || fake.worksheets["prep"][1][0] != "C" {
		t.Errorf("unexpected worksheet %v", fake.worksheets["prep"])
	}
}

func TestSheetStore_WriteRejected(t *testing.T) {
	fake, svc := newFakeSheets(t)
	fake.worksheets["prep"] = [][]string{{"Batch ID"}}
	fake.rejectAll = true
	store := NewSheetStore(svc, testSpreadsheet, "prep")

	err := store.AppendRow(context.Background(), []string{"A"})
	if !errors.Is(err, apperr.ErrStoreWriteRejected) {
		t.Errorf("expected ErrStoreWriteRejected, got %v", err)
	}
}

func TestQuoted(t *testing.T) {
	store := NewSheetStore(nil, testSpreadsheet, "Bob's log")
	if got := store.quoted(); got != "'Bob''s log'" {
		t.Errorf("expected 'Bob''s log', got %s", got)
	}
}
