package app

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/core/batch"
	"github.com/example/labbook/internal/core/reconcile"
	"github.com/example/labbook/internal/core/record"
	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/ctxutil"
	"github.com/example/labbook/internal/models"
	"github.com/example/labbook/internal/ports/primary"
	"github.com/example/labbook/internal/ports/secondary"
)

// LedgerServiceImpl implements the LedgerService interface.
type LedgerServiceImpl struct {
	stores   map[models.TableKind]*RecordStore
	encoders map[string]secondary.SnapshotEncoder
	uploader secondary.SnapshotUploader // nil when uploads are not configured
	logger   *logrus.Logger
	now      func() time.Time
}

// NewLedgerService creates a new LedgerService with injected dependencies.
func NewLedgerService(
	prep, usage *RecordStore,
	encoders []secondary.SnapshotEncoder,
	uploader secondary.SnapshotUploader,
	logger *logrus.Logger,
) *LedgerServiceImpl {
	byFormat := make(map[string]secondary.SnapshotEncoder, len(encoders))
	for _, e := range encoders {
		byFormat[e.Format()] = e
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LedgerServiceImpl{
		stores: map[models.TableKind]*RecordStore{
			models.TablePreparation: prep,
			models.TableUsage:       usage,
		},
		encoders: byFormat,
		uploader: uploader,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the clock used for timestamps and batch IDs.
func (s *LedgerServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

// Schema returns the schema a table is bound to.
func (s *LedgerServiceImpl) Schema(table models.TableKind) (schema.Schema, error) {
	store, err := s.store(table)
	if err != nil {
		return schema.Schema{}, err
	}
	return store.Schema(), nil
}

// ListRecords loads a table, optionally sorted newest first.
func (s *LedgerServiceImpl) ListRecords(ctx context.Context, req primary.ListRecordsRequest) (*models.Table, error) {
	store, err := s.store(req.Table)
	if err != nil {
		return nil, err
	}

	table, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s table: %w", req.Table, err)
	}

	if req.NewestFirst {
		table = table.NewestFirst()
	}
	return &table, nil
}

// LoadSheet loads a table as raw cells in the store's column order.
func (s *LedgerServiceImpl) LoadSheet(ctx context.Context, table models.TableKind) (*primary.Sheet, error) {
	store, err := s.store(table)
	if err != nil {
		return nil, err
	}

	t, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s table: %w", table, err)
	}

	header, rows, err := store.Schema().Encode(t)
	if err != nil {
		return nil, err
	}
	return &primary.Sheet{Table: table, Header: header, Rows: rows}, nil
}

// NextBatchID computes the batch ID the next preparation would get.
func (s *LedgerServiceImpl) NextBatchID(ctx context.Context) (string, error) {
	store, err := s.store(models.TablePreparation)
	if err != nil {
		return "", err
	}
	if !store.Schema().HasBatchID() {
		return "", apperr.Derive(apperr.ErrValidation,
			fmt.Sprintf("schema %s has no batch ID column", store.Schema().ID))
	}

	table, err := store.LoadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load prep table: %w", err)
	}
	return batch.NextID(table, s.now())
}

// LogPreparation allocates a batch ID and appends a preparation record.
func (s *LedgerServiceImpl) LogPreparation(ctx context.Context, req primary.PreparationRequest) (*primary.LogRecordResponse, error) {
	store, err := s.store(models.TablePreparation)
	if err != nil {
		return nil, err
	}
	sch := store.Schema()
	now := s.now()

	rec := models.Record{
		Timestamp: now.Format(schema.DateTimeLayout),
		Material:  strings.TrimSpace(req.Material),
		Operator:  strings.TrimSpace(req.Operator),
		Notes:     req.Notes,
	}

	// Lots are written in a stable order so error messages are deterministic.
	lotKeys := make([]string, 0, len(req.Lots))
	for k := range req.Lots {
		lotKeys = append(lotKeys, k)
	}
	sort.Strings(lotKeys)
	for _, k := range lotKeys {
		f, ok := lotField(sch, k)
		if !ok {
			return nil, apperr.Derive(apperr.ErrValidation,
				fmt.Sprintf("schema %s has no lot column %q (known: %s)", sch.ID, k, strings.Join(lotNames(sch), ", ")))
		}
		schema.Set(&rec, f, strings.TrimSpace(req.Lots[k]))
	}

	if req.PH != "" {
		ph := strings.TrimSpace(req.PH)
		if normalized, err := schema.FormatDecimal(ph); err == nil {
			ph = normalized
		}
		if err := setAttribute(sch, &rec, "ph", ph); err != nil {
			return nil, err
		}
	}
	if req.Sterilized != nil {
		if err := setAttribute(sch, &rec, "sterilized", schema.FormatBool(*req.Sterilized)); err != nil {
			return nil, err
		}
	}
	if req.ExpiryDate != "" {
		if err := setAttribute(sch, &rec, "expiry_date", strings.TrimSpace(req.ExpiryDate)); err != nil {
			return nil, err
		}
	}

	// The table is loaded fresh for ID allocation. Two sessions doing this
	// concurrently can allocate the same ID; last writer wins.
	table, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prep table: %w", err)
	}
	if sch.HasBatchID() {
		id, err := batch.NextID(table, now)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate batch ID: %w", err)
		}
		rec.BatchID = id
	}

	return s.appendRecord(ctx, store, rec)
}

// LogUsage appends a usage record.
func (s *LedgerServiceImpl) LogUsage(ctx context.Context, req primary.UsageRequest) (*primary.LogRecordResponse, error) {
	store, err := s.store(models.TableUsage)
	if err != nil {
		return nil, err
	}

	rec := models.Record{
		Timestamp: s.now().Format(schema.DateTimeLayout),
		Material:  strings.TrimSpace(req.Material),
		Operator:  strings.TrimSpace(req.Operator),
		Notes:     req.Notes,
	}
	if req.Amount != "" {
		if err := setAttribute(store.Schema(), &rec, "amount", strings.TrimSpace(req.Amount)); err != nil {
			return nil, err
		}
	}

	return s.appendRecord(ctx, store, rec)
}

func (s *LedgerServiceImpl) appendRecord(ctx context.Context, store *RecordStore, rec models.Record) (*primary.LogRecordResponse, error) {
	sch := store.Schema()

	guard := record.CanAppendRecord(record.AppendContext{Schema: sch, Record: rec})
	if !guard.Allowed {
		return nil, apperr.Derive(apperr.ErrValidation, guard.Reason)
	}

	if err := store.AppendRow(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to append %s record: %w", sch.Table, err)
	}

	s.logger.WithFields(logrus.Fields{
		"table":    sch.Table,
		"store":    store.Name(),
		"batch_id": rec.BatchID,
		"operator": rec.Operator,
		"actor":    ctxutil.Actor(ctx),
	}).Info("record appended")

	return &primary.LogRecordResponse{
		Table:  sch.Table,
		Store:  store.Name(),
		Record: rec,
	}, nil
}

// ReplaceTable reconciles an edited table and overwrites the store with it.
func (s *LedgerServiceImpl) ReplaceTable(ctx context.Context, req primary.ReplaceTableRequest) (*primary.ReplaceTableResponse, error) {
	store, err := s.store(req.Table)
	if err != nil {
		return nil, err
	}
	sch := store.Schema()

	edited, err := sch.Decode(req.Header, req.Rows)
	if err != nil {
		return nil, fmt.Errorf("edited %s table: %w", req.Table, err)
	}

	current, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s table: %w", req.Table, err)
	}

	// Edited batch IDs must be ones already stored; an import brings its
	// IDs from another store.
	persisted := &current
	if req.Import {
		persisted = nil
	}
	reconciled, err := reconcile.Reconcile(sch, persisted, edited, sch.ImmutableFields())
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"table":       req.Table,
		"store":       store.Name(),
		"rows_before": current.Len(),
		"rows_after":  reconciled.Len(),
		"actor":       ctxutil.Actor(ctx),
	}

	dups := batch.DuplicateIDs(reconciled)
	if len(dups) > 0 {
		s.logger.WithFields(fields).WithField("duplicate_ids", dups).Warn("edited table repeats batch IDs")
	}

	if err := store.OverwriteAll(ctx, reconciled); err != nil {
		return nil, fmt.Errorf("failed to overwrite %s table: %w", req.Table, err)
	}
	s.logger.WithFields(fields).Info("table overwritten")

	return &primary.ReplaceTableResponse{
		Table:        req.Table,
		Store:        store.Name(),
		RowsBefore:   current.Len(),
		RowsAfter:    reconciled.Len(),
		DuplicateIDs: dups,
	}, nil
}

// ExportSnapshot renders a table in a download format.
func (s *LedgerServiceImpl) ExportSnapshot(ctx context.Context, req primary.SnapshotRequest) (*primary.Snapshot, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "csv"
	}
	enc, ok := s.encoders[format]
	if !ok {
		return nil, apperr.Derive(apperr.ErrValidation,
			fmt.Sprintf("unknown export format %q (known: %s)", req.Format, strings.Join(s.formats(), ", ")))
	}

	sheet, err := s.LoadSheet(ctx, req.Table)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, string(req.Table), secondary.Sheet{Header: sheet.Header, Rows: sheet.Rows}); err != nil {
		return nil, fmt.Errorf("failed to encode %s snapshot: %w", format, err)
	}

	return &primary.Snapshot{
		Filename:    fmt.Sprintf("%s-%s.%s", req.Table, s.now().Format("20060102-1504"), format),
		ContentType: enc.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// PublishSnapshot renders a table and uploads it to object storage.
func (s *LedgerServiceImpl) PublishSnapshot(ctx context.Context, req primary.SnapshotRequest) (*primary.PublishSnapshotResponse, error) {
	if s.uploader == nil {
		return nil, apperr.Derive(apperr.ErrNotConfigured, "snapshot upload is not configured (set export.s3_bucket)")
	}

	snap, err := s.ExportSnapshot(ctx, req)
	if err != nil {
		return nil, err
	}

	location, err := s.uploader.Upload(ctx, snap.Filename, snap.ContentType, snap.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload snapshot: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"table":    req.Table,
		"location": location,
		"bytes":    len(snap.Data),
		"actor":    ctxutil.Actor(ctx),
	}).Info("snapshot published")

	return &primary.PublishSnapshotResponse{Filename: snap.Filename, Location: location}, nil
}

// InitTables provisions every store and writes the canonical header into
// stores that are still empty.
func (s *LedgerServiceImpl) InitTables(ctx context.Context) ([]primary.TableStatus, error) {
	var statuses []primary.TableStatus
	for _, kind := range models.TableKinds {
		store := s.stores[kind]
		created, err := store.Init(ctx)
		status := primary.TableStatus{
			Table:    kind,
			SchemaID: store.Schema().ID,
			Store:    store.Name(),
			Created:  created,
			Err:      err,
		}
		statuses = append(statuses, status)
		if err != nil {
			return statuses, fmt.Errorf("failed to initialize %s table: %w", kind, err)
		}
		if created {
			s.logger.WithFields(logrus.Fields{"table": kind, "store": store.Name()}).Info("table initialized")
		}
	}
	return statuses, nil
}

// CheckTables loads every table and reports its health.
func (s *LedgerServiceImpl) CheckTables(ctx context.Context) []primary.TableStatus {
	var statuses []primary.TableStatus
	for _, kind := range models.TableKinds {
		store := s.stores[kind]
		status := primary.TableStatus{
			Table:    kind,
			SchemaID: store.Schema().ID,
			Store:    store.Name(),
		}

		table, err := store.LoadAll(ctx)
		if err != nil {
			status.Err = err
		} else {
			status.Rows = table.Len()
			status.DuplicateIDs = batch.DuplicateIDs(table)
			status.MalformedIDs = batch.MalformedIDs(table)
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Helper methods

func (s *LedgerServiceImpl) store(kind models.TableKind) (*RecordStore, error) {
	store, ok := s.stores[kind]
	if !ok || store == nil {
		return nil, apperr.Derive(apperr.ErrNotFound, fmt.Sprintf("unknown table %q", kind))
	}
	return store, nil
}

func (s *LedgerServiceImpl) formats() []string {
	out := make([]string, 0, len(s.encoders))
	for f := range s.encoders {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// lotField resolves a lot key given as field name ("fbs_lot"), short name
// ("fbs") or header ("FBS Lot").
func lotField(sch schema.Schema, key string) (schema.Field, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, f := range sch.LotFields() {
		if k == f.Name || k+"_lot" == f.Name || f.Matches(key) {
			return f, true
		}
	}
	return schema.Field{}, false
}

func lotNames(sch schema.Schema) []string {
	var names []string
	for _, f := range sch.LotFields() {
		names = append(names, strings.TrimSuffix(f.Name, "_lot"))
	}
	return names
}

func setAttribute(sch schema.Schema, rec *models.Record, name, value string) error {
	f, ok := sch.Field(name)
	if !ok {
		return apperr.Derive(apperr.ErrValidation, fmt.Sprintf("schema %s has no %s column", sch.ID, name))
	}
	schema.Set(rec, f, value)
	return nil
}

// Ensure LedgerServiceImpl implements the interface.
var _ primary.LedgerService = (*LedgerServiceImpl)(nil)
