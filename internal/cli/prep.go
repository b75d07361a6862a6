package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/ports/primary"
	"github.com/example/labbook/internal/wire"
)

// PrepCmd returns the prep command
func PrepCmd() *cobra.Command {
	var req primary.PreparationRequest
	var sterilized bool

	cmd := &cobra.Command{
		Use:   "prep",
		Short: "Log a reagent preparation",
		Long: `Append a preparation record. A batch ID (YYYYMMDD-CM-NN) is allocated
from today's existing records.

Examples:
  labbook prep -m "DMEM complete" -o kim --lot basal_media=B-101 --lot fbs=F-22
  labbook prep -m "PBS 1x" --ph 7.4 --sterilized --expiry 2026-02-07`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("sterilized") {
				req.Sterilized = &sterilized
			}
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
			return adapter.LogPreparation(commandContext(cmd), req)
		},
	}

	cmd.Flags().StringVarP(&req.Material, "material", "m", "", "Material prepared (required)")
	cmd.Flags().StringVarP(&req.Operator, "operator", "o", "", "Who prepared it (default: operator from config)")
	cmd.Flags().StringToStringVar(&req.Lots, "lot", nil, "Lot code per component, e.g. --lot fbs=F-22")
	cmd.Flags().StringVar(&req.PH, "ph", "", "Measured pH")
	cmd.Flags().BoolVar(&sterilized, "sterilized", false, "Mark the batch as sterilized")
	cmd.Flags().StringVar(&req.ExpiryDate, "expiry", "", "Expiry date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	cmd.MarkFlagRequired("material")

	return cmd
}
