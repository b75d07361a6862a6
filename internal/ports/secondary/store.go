// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"io"
)

// Sheet is the untyped content of a row-oriented store: one header row
// followed by data rows. An empty store has no header and no rows.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// RowStore defines the secondary port for a row-oriented store holding
// one table (a CSV file, a spreadsheet worksheet, a SQLite-backed sheet).
//
// Errors are *apperr.Error values: ErrStoreUnavailable when the store
// cannot be reached or does not exist, ErrStoreWriteRejected when a write
// is refused.
type RowStore interface {
	// Name identifies the store in logs and messages.
	Name() string

	// ReadAll returns the header and every data row.
	ReadAll(ctx context.Context) (*Sheet, error)

	// ReadHeader returns only the header row (empty for an empty store).
	ReadHeader(ctx context.Context) ([]string, error)

	// AppendRow writes one row after the existing content without touching it.
	AppendRow(ctx context.Context, row []string) error

	// OverwriteAll replaces header and rows. Atomicity is best-effort and
	// depends on the binding.
	OverwriteAll(ctx context.Context, sheet Sheet) error
}

// Provisioner is implemented by stores that can create their backing
// file, worksheet or table when it does not exist yet.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// SnapshotEncoder renders a table snapshot in one file format.
type SnapshotEncoder interface {
	// Format is the short format name, e.g. "csv".
	Format() string

	// ContentType is the MIME type of the encoded output.
	ContentType() string

	// Encode writes header and rows to w.
	Encode(w io.Writer, title string, sheet Sheet) error
}

// SnapshotUploader publishes an encoded snapshot to object storage.
type SnapshotUploader interface {
	// Upload stores data under name and returns its location.
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}
