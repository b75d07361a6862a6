// Package memory contains an in-process row store used for demos and tests.
package memory

import (
	"context"
	"sync"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/ports/secondary"
)

// RowStore implements secondary.RowStore in memory. It is safe for
// concurrent use.
type RowStore struct {
	mu     sync.RWMutex
	name   string
	exists bool
	sheet  secondary.Sheet
}

// NewRowStore creates an existing, empty store.
func NewRowStore(name string) *RowStore {
	return &RowStore{name: name, exists: true}
}

// NewMissingRowStore creates a store that reports unavailable until provisioned.
func NewMissingRowStore(name string) *RowStore {
	return &RowStore{name: name}
}

// Name identifies the store.
func (s *RowStore) Name() string {
	return "memory:" + s.name
}

// Provision marks the store as existing.
func (s *RowStore) Provision(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = true
	return nil
}

// ReadAll returns a copy of the content.
func (s *RowStore) ReadAll(ctx context.Context) (*secondary.Sheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, s.missing()
	}
	out := &secondary.Sheet{Header: cloneRow(s.sheet.Header)}
	for _, r := range s.sheet.Rows {
		out.Rows = append(out.Rows, cloneRow(r))
	}
	return out, nil
}

// ReadHeader returns a copy of the header.
func (s *RowStore) ReadHeader(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, s.missing()
	}
	return cloneRow(s.sheet.Header), nil
}

// AppendRow adds a row; the first row of an empty store becomes the header.
func (s *RowStore) AppendRow(ctx context.Context, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return s.missing()
	}
	if len(s.sheet.Header) == 0 && len(s.sheet.Rows) == 0 {
		s.sheet.Header = cloneRow(row)
		return nil
	}
	s.sheet.Rows = append(s.sheet.Rows, cloneRow(row))
	return nil
}

// OverwriteAll replaces the content.
func (s *RowStore) OverwriteAll(ctx context.Context, sheet secondary.Sheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return s.missing()
	}
	next := secondary.Sheet{Header: cloneRow(sheet.Header)}
	for _, r := range sheet.Rows {
		next.Rows = append(next.Rows, cloneRow(r))
	}
	s.sheet = next
	return nil
}

func (s *RowStore) missing() error {
	return apperr.Derive(apperr.ErrStoreUnavailable, s.Name()+" does not exist")
}

func cloneRow(r []string) []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r...)
}

var (
	_ secondary.RowStore    = (*RowStore)(nil)
	_ secondary.Provisioner = (*RowStore)(nil)
)
