package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Backend names
const (
	BackendCSV    = "csv"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backends lists every supported store binding.
var Backends = []string{BackendCSV, BackendSheets, BackendSQLite, BackendMemory}

// Dir is the per-project directory holding config and local data.
const Dir = ".labbook"

// Config represents the labbook configuration.
type Config struct {
	Backend     string `toml:"backend"`      // csv, sheets, sqlite or memory
	PrepSchema  string `toml:"prep_schema"`  // e.g. prep/v2
	UsageSchema string `toml:"usage_schema"` // e.g. usage/v1
	Operator    string `toml:"operator"`     // default operator for prep/use

	Log    LogConfig    `toml:"log"`
	CSV    CSVConfig    `toml:"csv"`
	Sheets SheetsConfig `toml:"sheets"`
	SQLite SQLiteConfig `toml:"sqlite"`
	Export ExportConfig `toml:"export"`
	HTTP   HTTPConfig   `toml:"http"`

	// root is the directory the config was loaded from; relative paths
	// resolve against it.
	root string
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

type CSVConfig struct {
	Dir string `toml:"dir"`
}

type SheetsConfig struct {
	SpreadsheetID   string `toml:"spreadsheet_id"`
	CredentialsFile string `toml:"credentials_file"`
	CredentialsJSON string `toml:"-"` // env only
	PrepWorksheet   string `toml:"prep_worksheet"`
	UsageWorksheet  string `toml:"usage_worksheet"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type ExportConfig struct {
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3Prefix    string `toml:"s3_prefix"`
	S3PathStyle bool   `toml:"s3_path_style"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default(dir string) *Config {
	return &Config{
		Backend:     BackendCSV,
		PrepSchema:  "prep/v2",
		UsageSchema: "usage/v1",
		Log:         LogConfig{Level: "info", Format: "text"},
		CSV:         CSVConfig{Dir: filepath.Join(Dir, "data")},
		Sheets: SheetsConfig{
			PrepWorksheet:  "조제기록",
			UsageWorksheet: "사용기록",
		},
		SQLite: SQLiteConfig{Path: filepath.Join(Dir, "labbook.db")},
		HTTP:   HTTPConfig{Addr: ":8080"},
		root:   dir,
	}
}

// Path returns the config file path for a directory.
func Path(dir string) string {
	return filepath.Join(dir, Dir, "config.toml")
}

// Load reads .labbook/config.toml from dir, then .env, then LABBOOK_*
// environment variables. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	cfg := Default(dir)

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	md, err := toml.DecodeFile(Path(dir), cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to parse config: %w", err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("unknown config keys in %s: %s", Path(dir), strings.Join(keys, ", "))
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to .labbook/config.toml in dir.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", Dir, err)
	}

	f, err := os.Create(Path(dir))
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()

	if err := writeFile(f, cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return f.Close()
}

// Validate checks values that have a closed set of choices.
func (c *Config) Validate() error {
	if !isBackend(c.Backend) {
		return fmt.Errorf("unknown backend %q (expected one of %s)", c.Backend, strings.Join(Backends, ", "))
	}
	if c.Backend == BackendSheets && c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("backend sheets needs sheets.spreadsheet_id")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", c.Log.Format)
	}
	return nil
}

// Resolve makes a configured path absolute against the config root.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.root, path)
}

// Root returns the directory the config was loaded from.
func (c *Config) Root() string {
	return c.root
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"LABBOOK_BACKEND":                 &c.Backend,
		"LABBOOK_PREP_SCHEMA":             &c.PrepSchema,
		"LABBOOK_USAGE_SCHEMA":            &c.UsageSchema,
		"LABBOOK_OPERATOR":                &c.Operator,
		"LABBOOK_LOG_LEVEL":               &c.Log.Level,
		"LABBOOK_LOG_FORMAT":              &c.Log.Format,
		"LABBOOK_CSV_DIR":                 &c.CSV.Dir,
		"LABBOOK_SHEETS_SPREADSHEET_ID":   &c.Sheets.SpreadsheetID,
		"LABBOOK_SHEETS_CREDENTIALS_FILE": &c.Sheets.CredentialsFile,
		"LABBOOK_SHEETS_CREDENTIALS_JSON": &c.Sheets.CredentialsJSON,
		"LABBOOK_SHEETS_PREP_WORKSHEET":   &c.Sheets.PrepWorksheet,
		"LABBOOK_SHEETS_USAGE_WORKSHEET":  &c.Sheets.UsageWorksheet,
		"LABBOOK_SQLITE_PATH":             &c.SQLite.Path,
		"LABBOOK_S3_BUCKET":               &c.Export.S3Bucket,
		"LABBOOK_S3_REGION":               &c.Export.S3Region,
		"LABBOOK_S3_ENDPOINT":             &c.Export.S3Endpoint,
		"LABBOOK_S3_PREFIX":               &c.Export.S3Prefix,
		"LABBOOK_HTTP_ADDR":               &c.HTTP.Addr,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("LABBOOK_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LABBOOK_S3_PATH_STYLE: %w", err)
		}
		c.Export.S3PathStyle = b
	}
	return nil
}

func isBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}

// FindRoot walks up from start to the first directory holding a .labbook
// directory. It returns start itself when none is found, so a fresh
// project is rooted where labbook was invoked.
func FindRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, Dir)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
