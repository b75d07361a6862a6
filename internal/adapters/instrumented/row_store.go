package instrumented

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/ports/secondary"
)

// RowStore wraps a secondary.RowStore, counting and timing every call.
type RowStore struct {
	next   secondary.RowStore
	table  string
	logger *logrus.Logger
}

// Wrap decorates next. table labels the metrics (e.g. "prep").
func Wrap(next secondary.RowStore, table string, logger *logrus.Logger) *RowStore {
	initMetrics()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RowStore{next: next, table: table, logger: logger}
}

func (s *RowStore) Name() string {
	return s.next.Name()
}

func (s *RowStore) ReadAll(ctx context.Context) (*secondary.Sheet, error) {
	start := time.Now()
	sheet, err := s.next.ReadAll(ctx)
	s.observe("read_all", start, err)
	if err == nil {
		storeRows.WithLabelValues(s.table).Set(float64(len(sheet.Rows)))
	}
	return sheet, err
}

func (s *RowStore) ReadHeader(ctx context.Context) ([]string, error) {
	start := time.Now()
	header, err := s.next.ReadHeader(ctx)
	s.observe("read_header", start, err)
	return header, err
}

func (s *RowStore) AppendRow(ctx context.Context, row []string) error {
	start := time.Now()
	err := s.next.AppendRow(ctx, row)
	s.observe("append_row", start, err)
	return err
}

func (s *RowStore) OverwriteAll(ctx context.Context, sheet secondary.Sheet) error {
	start := time.Now()
	err := s.next.OverwriteAll(ctx, sheet)
	s.observe("overwrite_all", start, err)
	if err == nil {
		storeRows.WithLabelValues(s.table).Set(float64(len(sheet.Rows)))
	}
	return err
}

// Provision forwards to the wrapped store when it can provision.
func (s *RowStore) Provision(ctx context.Context) error {
	p, ok := s.next.(secondary.Provisioner)
	if !ok {
		return nil
	}
	start := time.Now()
	err := p.Provision(ctx)
	s.observe("provision", start, err)
	return err
}

func (s *RowStore) observe(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	result := "ok"
	if err != nil {
		result = apperr.Code(err)
	}

	storeOpsTotal.WithLabelValues(s.table, op, result).Inc()
	storeOpDuration.WithLabelValues(s.table, op).Observe(elapsed.Seconds())

	entry := s.logger.WithFields(logrus.Fields{
		"table":       s.table,
		"store":       s.next.Name(),
		"op":          op,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("store operation failed")
		return
	}
	entry.Debug("store operation")
}

var (
	_ secondary.RowStore    = (*RowStore)(nil)
	_ secondary.Provisioner = (*RowStore)(nil)
)
