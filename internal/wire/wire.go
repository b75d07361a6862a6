// Package wire provides dependency injection for the labbook application.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	cliadapter "github.com/example/labbook/internal/adapters/cli"
	"github.com/example/labbook/internal/adapters/export"
	"github.com/example/labbook/internal/adapters/filesystem"
	"github.com/example/labbook/internal/adapters/gsheets"
	"github.com/example/labbook/internal/adapters/httpapi"
	"github.com/example/labbook/internal/adapters/instrumented"
	"github.com/example/labbook/internal/adapters/memory"
	s3adapter "github.com/example/labbook/internal/adapters/s3"
	"github.com/example/labbook/internal/adapters/sqlite"
	"github.com/example/labbook/internal/app"
	"github.com/example/labbook/internal/config"
	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/db"
	"github.com/example/labbook/internal/logging"
	"github.com/example/labbook/internal/models"
	"github.com/example/labbook/internal/ports/primary"
	"github.com/example/labbook/internal/ports/secondary"
)

var (
	root          string
	cfg           *config.Config
	logger        *logrus.Logger
	ledgerService primary.LedgerService
	closers       []io.Closer
	initErr       error
	once          sync.Once
)

// SetRoot overrides the project directory. It must be called before any
// other function in this package.
func SetRoot(dir string) {
	root = dir
}

// Config returns the loaded configuration.
func Config() (*config.Config, error) {
	once.Do(initServices)
	return cfg, initErr
}

// Logger returns the process logger. It falls back to logrus defaults
// when initialization failed.
func Logger() *logrus.Logger {
	once.Do(initServices)
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// LedgerService returns the singleton LedgerService instance.
func LedgerService() (primary.LedgerService, error) {
	once.Do(initServices)
	return ledgerService, initErr
}

// ServiceFor builds a separate LedgerService bound to another backend
// with the rest of the configuration unchanged. The caller owns the
// returned closer.
func ServiceFor(ctx context.Context, backend string) (primary.LedgerService, io.Closer, error) {
	once.Do(initServices)
	if initErr != nil {
		return nil, nil, initErr
	}

	other := *cfg
	other.Backend = backend
	if err := other.Validate(); err != nil {
		return nil, nil, err
	}

	svc, cs, err := Build(ctx, &other, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, closeAll(cs), nil
}

// Close releases resources held by the singleton services.
func Close() error {
	return closeAll(closers).Close()
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	dir := root
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			initErr = fmt.Errorf("failed to get working directory: %w", err)
			return
		}
		dir = config.FindRoot(wd)
	}

	cfg, initErr = config.Load(dir)
	if initErr != nil {
		return
	}

	logger, initErr = logging.New(cfg.Log.Level, cfg.Log.Format)
	if initErr != nil {
		return
	}

	var svc *app.LedgerServiceImpl
	svc, closers, initErr = Build(context.Background(), cfg, logger)
	if initErr != nil {
		return
	}
	ledgerService = svc
}

// Build assembles a LedgerService for cfg: the configured backend's row
// stores wrapped with metrics, the schemas, the export encoders and the
// optional S3 uploader.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app.LedgerServiceImpl, []io.Closer, error) {
	prepSchema, err := lookupSchema(cfg.PrepSchema, models.TablePreparation)
	if err != nil {
		return nil, nil, err
	}
	usageSchema, err := lookupSchema(cfg.UsageSchema, models.TableUsage)
	if err != nil {
		return nil, nil, err
	}

	prepRows, usageRows, cs, err := rowStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	encoders := []secondary.SnapshotEncoder{export.NewCSVEncoder(), export.NewXLSXEncoder()}

	var uploader secondary.SnapshotUploader
	if cfg.Export.S3Bucket != "" {
		u, err := s3adapter.New(ctx, s3adapter.Config{
			Bucket:          cfg.Export.S3Bucket,
			Region:          cfg.Export.S3Region,
			Endpoint:        cfg.Export.S3Endpoint,
			Prefix:          cfg.Export.S3Prefix,
			PathStyle:       cfg.Export.S3PathStyle,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		})
		if err != nil {
			closeAll(cs).Close()
			return nil, nil, err
		}
		uploader = u
	}

	svc := app.NewLedgerService(
		app.NewRecordStore(instrumented.Wrap(prepRows, string(models.TablePreparation), logger), prepSchema),
		app.NewRecordStore(instrumented.Wrap(usageRows, string(models.TableUsage), logger), usageSchema),
		encoders,
		uploader,
		logger,
	)
	return svc, cs, nil
}

func rowStores(ctx context.Context, cfg *config.Config) (prep, usage secondary.RowStore, cs []io.Closer, err error) {
	switch cfg.Backend {
	case config.BackendCSV:
		dir := cfg.Resolve(cfg.CSV.Dir)
		return filesystem.NewCSVStore(filepath.Join(dir, "prep.csv")),
			filesystem.NewCSVStore(filepath.Join(dir, "usage.csv")), nil, nil

	case config.BackendSheets:
		svc, err := gsheets.NewService(ctx, cfg.Resolve(cfg.Sheets.CredentialsFile), cfg.Sheets.CredentialsJSON)
		if err != nil {
			return nil, nil, nil, err
		}
		return gsheets.NewSheetStore(svc, cfg.Sheets.SpreadsheetID, cfg.Sheets.PrepWorksheet),
			gsheets.NewSheetStore(svc, cfg.Sheets.SpreadsheetID, cfg.Sheets.UsageWorksheet), nil, nil

	case config.BackendSQLite:
		path := cfg.SQLite.Path
		if path == "" {
			path = db.DefaultPath(cfg.Root())
		}
		var database *sql.DB
		database, err = db.Open(cfg.Resolve(path))
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewSheetStore(database, string(models.TablePreparation)),
			sqlite.NewSheetStore(database, string(models.TableUsage)), []io.Closer{database}, nil

	case config.BackendMemory:
		return memory.NewRowStore(string(models.TablePreparation)),
			memory.NewRowStore(string(models.TableUsage)), nil, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func lookupSchema(id string, table models.TableKind) (schema.Schema, error) {
	s, err := schema.Lookup(id)
	if err != nil {
		return schema.Schema{}, err
	}
	if s.Table != table {
		return schema.Schema{}, fmt.Errorf("schema %s describes the %s table, not %s", id, s.Table, table)
	}
	return s, nil
}

type closerList []io.Closer

func (l closerList) Close() error {
	var first error
	for _, c := range l {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func closeAll(cs []io.Closer) io.Closer {
	return closerList(cs)
}

// LedgerAdapter returns a new LedgerAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func LedgerAdapter() (*cliadapter.LedgerAdapter, error) {
	return LedgerAdapterWithOutput(os.Stdout)
}

// LedgerAdapterWithOutput returns a new LedgerAdapter writing to the given output.
// This variant allows testing or alternate output destinations.
func LedgerAdapterWithOutput(out io.Writer) (*cliadapter.LedgerAdapter, error) {
	svc, err := LedgerService()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewLedgerAdapter(svc, out), nil
}

// HTTPServer returns a new HTTP server over the singleton LedgerService.
func HTTPServer() (*httpapi.Server, error) {
	svc, err := LedgerService()
	if err != nil {
		return nil, err
	}
	return httpapi.NewServer(svc, logger, cfg.Operator), nil
}
