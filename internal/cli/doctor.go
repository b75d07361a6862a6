package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/wire"
)

// DoctorCmd returns the doctor command for store validation
func DoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that both tables load and their batch IDs are sound",
		Long: `Load every table from the configured store and report:
- whether the store is reachable and its header matches the schema
- row counts
- duplicate or malformed batch IDs

Exits non-zero when a table cannot be loaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := wire.Config()
			if err != nil {
				return err
			}
			fmt.Printf("Backend: %s (prep %s, usage %s)\n\n", cfg.Backend, cfg.PrepSchema, cfg.UsageSchema)

			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.Doctor(commandContext(cmd))
		},
	}
}
