package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/config"
	"github.com/example/labbook/internal/wire"
)

// CopyCmd returns the copy command
func CopyCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy every table into another backend",
		Long: `Copy the preparation and usage tables from the configured backend into
another one, overwriting what is there. Useful when moving from local CSV
files to a shared spreadsheet.

Examples:
  labbook copy --to sheets
  labbook copy --to sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wire.Config()
			if err != nil {
				return err
			}
			if to == cfg.Backend {
				return fmt.Errorf("--to %s is the configured backend", to)
			}

			ctx := commandContext(cmd)
			src, err := wire.LedgerService()
			if err != nil {
				return err
			}
			dst, closer, err := wire.ServiceFor(ctx, to)
			if err != nil {
				return err
			}
			defer closer.Close()

			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.Copy(ctx, src, dst)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", fmt.Sprintf("Target backend (%s)", strings.Join(config.Backends, ", ")))
	cmd.MarkFlagRequired("to")
	return cmd
}

