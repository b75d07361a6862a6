// Package sqlite contains the SQLite binding of the row store port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/ports/secondary"
)

// SheetStore implements secondary.RowStore over one named sheet in SQLite.
type SheetStore struct {
	db   *sql.DB
	name string
}

// NewSheetStore creates a row store for the sheet called name.
func NewSheetStore(db *sql.DB, name string) *SheetStore {
	return &SheetStore{db: db, name: name}
}

// Name identifies the store.
func (s *SheetStore) Name() string {
	return "sqlite:" + s.name
}

// Provision creates the sheet if it does not exist.
func (s *SheetStore) Provision(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sheets (name, header, created_at, updated_at) VALUES (?, '[]', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)",
		s.name,
	)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStoreWriteRejected, fmt.Sprintf("failed to create sheet %s", s.name))
	}
	return nil
}

// ReadHeader returns the header row.
func (s *SheetStore) ReadHeader(ctx context.Context) ([]string, error) {
	return s.readHeader(ctx, s.db)
}

// ReadAll returns the header and every row in position order.
func (s *SheetStore) ReadAll(ctx context.Context) (*secondary.Sheet, error) {
	header, err := s.readHeader(ctx, s.db)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT cells FROM sheet_rows WHERE sheet = ? ORDER BY position",
		s.name,
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStoreUnavailable, fmt.Sprintf("failed to read sheet %s", s.name))
	}
	defer rows.Close()

	sheet := &secondary.Sheet{Header: header}
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, apperr.Wrap(err, apperr.ErrStoreUnavailable, "failed to scan row")
		}
		row, err := decodeCells(cells)
		if err != nil {
			return nil, err
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStoreUnavailable, fmt.Sprintf("failed to read sheet %s", s.name))
	}

	return sheet, nil
}

// AppendRow stores row after the last one. A sheet with no header takes
// the row as its header.
func (s *SheetStore) AppendRow(ctx context.Context, row []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStoreUnavailable, "failed to begin transaction")
	}
	defer tx.Rollback()

	header, err := s.readHeader(ctx, tx)
	if err != nil {
		return err
	}

	if len(header) == 0 {
		if err := s.writeHeader(ctx, tx, row); err != nil {
			return err
		}
	} else {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (sheet, position, cells)
			 VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM sheet_rows WHERE sheet = ?), ?)`,
			s.name, s.name, string(cells),
		)
		if err != nil {
			return apperr.Wrap(err, apperr.ErrStoreWriteRejected, fmt.Sprintf("failed to append to sheet %s", s.name))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, apperr.ErrStoreWriteRejected, "failed to commit append")
	}
	return nil
}

// OverwriteAll replaces the header and every row in one transaction.
func (s *SheetStore) OverwriteAll(ctx context.Context, sheet secondary.Sheet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStoreUnavailable, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := s.readHeader(ctx, tx); err != nil {
		return err
	}
	if err := s.writeHeader(ctx, tx, sheet.Header); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_rows WHERE sheet = ?", s.name); err != nil {
		return apperr.Wrap(err, apperr.ErrStoreWriteRejected, fmt.Sprintf("failed to clear sheet %s", s.name))
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO sheet_rows (sheet, position, cells) VALUES (?, ?, ?)")
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStoreWriteRejected, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, row := range sheet.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i+1, err)
		}
		if _, err := stmt.ExecContext(ctx, s.name, i+1, string(cells)); err != nil {
			return apperr.Wrap(err, apperr.ErrStoreWriteRejected, fmt.Sprintf("failed to write row %d", i+1))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, apperr.ErrStoreWriteRejected, "failed to commit overwrite")
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SheetStore) readHeader(ctx context.Context, q queryer) ([]string, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT header FROM sheets WHERE name = ?", s.name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Derive(apperr.ErrStoreUnavailable,
			fmt.Sprintf("sheet %s does not exist (run labbook init)", s.name))
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrStoreUnavailable, fmt.Sprintf("failed to read sheet %s", s.name))
	}
	return decodeCells(raw)
}

func (s *SheetStore) writeHeader(ctx context.Context, tx *sql.Tx, header []string) error {
	if header == nil {
		header = []string{}
	}
	raw, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE sheets SET header = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?",
		string(raw), s.name,
	)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrStoreWriteRejected, fmt.Sprintf("failed to write header of %s", s.name))
	}
	return nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrSchemaMismatch, "stored row is not a JSON array of strings")
	}
	return cells, nil
}

var (
	_ secondary.RowStore    = (*SheetStore)(nil)
	_ secondary.Provisioner = (*SheetStore)(nil)
)
