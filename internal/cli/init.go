package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/config"
	"github.com/example/labbook/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up labbook in the current directory",
		Long: `Write .labbook/config.toml (if missing) and create the preparation and
usage tables in the configured store. Existing tables are left untouched.

Examples:
  labbook init                    # local CSV files under .labbook/data
  labbook init --backend sqlite   # SQLite database at .labbook/labbook.db
  labbook init --backend sheets   # then set sheets.spreadsheet_id and rerun`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			path := config.Path(dir)
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				cfg := config.Default(dir)
				if backend != "" {
					cfg.Backend = backend
				}
				if err := config.Save(dir, cfg); err != nil {
					return err
				}
				fmt.Printf("✓ Wrote %s\n", path)
			} else if backend != "" {
				return fmt.Errorf("%s already exists\nHint: edit its backend setting instead of passing --backend", path)
			}

			wire.SetRoot(dir)
			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.Init(commandContext(cmd))
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Store backend for a new config (csv, sheets, sqlite, memory)")
	return cmd
}
