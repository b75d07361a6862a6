// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/ports/secondary"
)

// utf8BOM is written at the start of every file so spreadsheet programs
// open Korean headers with the right encoding.
const utf8BOM = "\ufeff"

// CSVStore implements secondary.RowStore over a single CSV file.
type CSVStore struct {
	path string
}

// NewCSVStore creates a row store for the CSV file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Name identifies the store.
func (s *CSVStore) Name() string {
	return "csv:" + s.path
}

// Path returns the file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Provision creates the file and its directory if they do not exist.
func (s *CSVStore) Provision(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return writeError(err, fmt.Sprintf("failed to create directory for %s", s.path))
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return writeError(err, fmt.Sprintf("failed to create %s", s.path))
	}
	return f.Close()
}

// ReadAll parses the whole file. A zero-length file is an empty sheet.
func (s *CSVStore) ReadAll(ctx context.Context) (*secondary.Sheet, error) {
	records, err := s.read(false)
	if err != nil {
		return nil, err
	}
	sheet := &secondary.Sheet{}
	if len(records) > 0 {
		sheet.Header = records[0]
		sheet.Rows = records[1:]
	}
	return sheet, nil
}

// ReadHeader parses only the first record.
func (s *CSVStore) ReadHeader(ctx context.Context) ([]string, error) {
	records, err := s.read(true)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// AppendRow adds one record at the end of the file without rewriting it.
func (s *CSVStore) AppendRow(ctx context.Context, row []string) error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return writeError(err, fmt.Sprintf("failed to open %s", s.path))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return writeError(err, fmt.Sprintf("failed to stat %s", s.path))
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		buf.WriteString(utf8BOM)
	} else if !endsWithNewline(f, info.Size()) {
		// A hand-edited file may lack a trailing newline.
		buf.WriteByte('\n')
	}
	if err := writeRecords(&buf, [][]string{row}); err != nil {
		return err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return writeError(err, fmt.Sprintf("failed to append to %s", s.path))
	}
	return nil
}

// OverwriteAll writes the sheet to a temporary file next to the target and
// renames it into place, so readers never see a half-written file.
func (s *CSVStore) OverwriteAll(ctx context.Context, sheet secondary.Sheet) error {
	if _, err := os.Stat(s.path); err != nil {
		return writeError(err, fmt.Sprintf("failed to stat %s", s.path))
	}

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	records := make([][]string, 0, len(sheet.Rows)+1)
	if len(sheet.Header) > 0 {
		records = append(records, sheet.Header)
	}
	records = append(records, sheet.Rows...)
	if err := writeRecords(&buf, records); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return writeError(err, fmt.Sprintf("failed to create temporary file for %s", s.path))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return writeError(err, fmt.Sprintf("failed to write %s", tmpName))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return writeError(err, fmt.Sprintf("failed to sync %s", tmpName))
	}
	if err := tmp.Close(); err != nil {
		return writeError(err, fmt.Sprintf("failed to close %s", tmpName))
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return writeError(err, fmt.Sprintf("failed to chmod %s", tmpName))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return writeError(err, fmt.Sprintf("failed to replace %s", s.path))
	}
	return nil
}

func (s *CSVStore) read(headerOnly bool) ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, readError(err, s.path)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1 // ragged rows are padded or rejected by the schema

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrSchemaMismatch, fmt.Sprintf("failed to parse %s", s.path))
		}
		records = append(records, rec)
		if headerOnly {
			break
		}
	}
	return records, nil
}

func writeRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	return nil
}

func endsWithNewline(f *os.File, size int64) bool {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return true
	}
	return last[0] == '\n'
}

func readError(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.Derive(apperr.ErrStoreUnavailable,
			fmt.Sprintf("%s does not exist (run labbook init)", path))
	}
	return apperr.Wrap(err, apperr.ErrStoreUnavailable, fmt.Sprintf("failed to read %s", path))
}

func writeError(err error, message string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrap(err, apperr.ErrStoreUnavailable, message)
	}
	return apperr.Wrap(err, apperr.ErrStoreWriteRejected, message)
}

var (
	_ secondary.RowStore    = (*CSVStore)(nil)
	_ secondary.Provisioner = (*CSVStore)(nil)
)
