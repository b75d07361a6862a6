package app

import (
	"context"
	"fmt"

	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/models"
	"github.com/example/labbook/internal/ports/secondary"
)

// RecordStore translates between a row-oriented store and typed tables.
// It holds no state besides its collaborators.
type RecordStore struct {
	rows   secondary.RowStore
	schema schema.Schema
}

// NewRecordStore binds a row store to a schema.
func NewRecordStore(rows secondary.RowStore, s schema.Schema) *RecordStore {
	return &RecordStore{rows: rows, schema: s}
}

// Schema returns the schema the store is bound to.
func (s *RecordStore) Schema() schema.Schema {
	return s.schema
}

// Name identifies the underlying store.
func (s *RecordStore) Name() string {
	return s.rows.Name()
}

// LoadAll reads every row and maps it to a table. An empty store yields an
// empty table carrying the canonical header.
func (s *RecordStore) LoadAll(ctx context.Context) (models.Table, error) {
	sheet, err := s.rows.ReadAll(ctx)
	if err != nil {
		return models.Table{}, err
	}
	return s.schema.Decode(sheet.Header, sheet.Rows)
}

// AppendRow writes one record after the existing rows, in the store's
// declared column order. A store without a header gets the canonical
// header first.
func (s *RecordStore) AppendRow(ctx context.Context, r models.Record) error {
	header, err := s.rows.ReadHeader(ctx)
	if err != nil {
		return err
	}

	if len(header) == 0 {
		header = s.schema.Headers()
		if err := s.rows.AppendRow(ctx, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	row, err := s.schema.EncodeRecord(header, r)
	if err != nil {
		return err
	}
	return s.rows.AppendRow(ctx, row)
}

// OverwriteAll replaces the store content with the table.
func (s *RecordStore) OverwriteAll(ctx context.Context, t models.Table) error {
	header, rows, err := s.schema.Encode(t)
	if err != nil {
		return err
	}
	return s.rows.OverwriteAll(ctx, secondary.Sheet{Header: header, Rows: rows})
}

// Provision creates the backing store if the binding supports it.
func (s *RecordStore) Provision(ctx context.Context) error {
	if p, ok := s.rows.(secondary.Provisioner); ok {
		return p.Provision(ctx)
	}
	return nil
}

// Init provisions the store and writes the canonical header when the store
// is empty. It reports whether the header was written.
func (s *RecordStore) Init(ctx context.Context) (bool, error) {
	if err := s.Provision(ctx); err != nil {
		return false, err
	}

	header, err := s.rows.ReadHeader(ctx)
	if err != nil {
		return false, err
	}
	if len(header) > 0 {
		if _, err := s.schema.ResolveHeader(header); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.rows.OverwriteAll(ctx, secondary.Sheet{Header: s.schema.Headers()}); err != nil {
		return false, err
	}
	return true, nil
}
