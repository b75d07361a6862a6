// Package primary defines the primary ports (driving adapters) for the application.
package primary

import (
	"context"

	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/models"
)

// LedgerService defines the primary port for logging and reviewing records.
// Every call loads the table fresh from the store; nothing is cached
// between calls.
type LedgerService interface {
	// Schema returns the schema a table is bound to.
	Schema(table models.TableKind) (schema.Schema, error)

	// ListRecords loads a table, optionally sorted newest first.
	ListRecords(ctx context.Context, req ListRecordsRequest) (*models.Table, error)

	// LoadSheet loads a table as raw cells in the store's column order.
	LoadSheet(ctx context.Context, table models.TableKind) (*Sheet, error)

	// NextBatchID computes the batch ID the next preparation would get.
	NextBatchID(ctx context.Context) (string, error)

	// LogPreparation allocates a batch ID and appends a preparation record.
	LogPreparation(ctx context.Context, req PreparationRequest) (*LogRecordResponse, error)

	// LogUsage appends a usage record.
	LogUsage(ctx context.Context, req UsageRequest) (*LogRecordResponse, error)

	// ReplaceTable reconciles an edited table and overwrites the store with it.
	ReplaceTable(ctx context.Context, req ReplaceTableRequest) (*ReplaceTableResponse, error)

	// ExportSnapshot renders a table in a download format.
	ExportSnapshot(ctx context.Context, req SnapshotRequest) (*Snapshot, error)

	// PublishSnapshot renders a table and uploads it to object storage.
	PublishSnapshot(ctx context.Context, req SnapshotRequest) (*PublishSnapshotResponse, error)

	// InitTables provisions every store and writes the canonical header
	// into stores that are still empty.
	InitTables(ctx context.Context) ([]TableStatus, error)

	// CheckTables loads every table and reports its health.
	CheckTables(ctx context.Context) []TableStatus
}

// ListRecordsRequest contains parameters for listing a table.
type ListRecordsRequest struct {
	Table       models.TableKind
	NewestFirst bool
}

// Sheet is a table as raw cells.
type Sheet struct {
	Table  models.TableKind
	Header []string
	Rows   [][]string
}

// PreparationRequest contains the fields of a new preparation record.
type PreparationRequest struct {
	Material   string
	Operator   string
	Lots       map[string]string // keyed by lot field name or header, e.g. "fbs" or "FBS Lot"
	PH         string
	Sterilized *bool
	ExpiryDate string
	Notes      string
}

// UsageRequest contains the fields of a new usage record.
type UsageRequest struct {
	Material string
	Operator string
	Amount   string
	Notes    string
}

// LogRecordResponse contains the record as it was appended.
type LogRecordResponse struct {
	Table  models.TableKind
	Store  string
	Record models.Record
}

// ReplaceTableRequest carries a full edited table as raw cells.
type ReplaceTableRequest struct {
	Table  models.TableKind
	Header []string
	Rows   [][]string
	Import bool // rows come from another store; batch IDs need not exist here yet
}

// ReplaceTableResponse summarizes an overwrite.
type ReplaceTableResponse struct {
	Table        models.TableKind
	Store        string
	RowsBefore   int
	RowsAfter    int
	DuplicateIDs []string
}

// SnapshotRequest selects a table and an export format ("csv" or "xlsx").
type SnapshotRequest struct {
	Table  models.TableKind
	Format string
}

// Snapshot is an encoded export of a table.
type Snapshot struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PublishSnapshotResponse contains where a snapshot was uploaded.
type PublishSnapshotResponse struct {
	Filename string
	Location string
}

// TableStatus reports the state of one table's store.
type TableStatus struct {
	Table        models.TableKind
	SchemaID     string
	Store        string
	Rows         int
	Created      bool // header written by InitTables
	DuplicateIDs []string
	MalformedIDs []string
	Err          error
}
