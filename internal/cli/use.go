package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/ports/primary"
	"github.com/example/labbook/internal/wire"
)

// UseCmd returns the use command
func UseCmd() *cobra.Command {
	var req primary.UsageRequest

	cmd := &cobra.Command{
		Use:   "use",
		Short: "Log usage of a prepared reagent",
		Long: `Append a usage record.

Examples:
  labbook use -m "DMEM complete" -o lee --amount 50 --notes "passage 12"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Operator == "" {
				cfg, err := wire.Config()
				if err != nil {
					return err
				}
				req.Operator = cfg.Operator
			}

			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.LogUsage(commandContext(cmd), req)
		},
	}

	cmd.Flags().StringVarP(&req.Material, "material", "m", "", "Material used (required)")
	cmd.Flags().StringVarP(&req.Operator, "operator", "o", "", "Who used it (default: operator from config)")
	cmd.Flags().StringVar(&req.Amount, "amount", "", "Amount used")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	cmd.MarkFlagRequired("material")

	return cmd
}
