package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/ports/primary"
	"github.com/example/labbook/internal/wire"
)

// ExportCmd returns the export command
func ExportCmd() *cobra.Command {
	var format, output string
	var upload bool

	cmd := &cobra.Command{
		Use:   "export [prep|usage]",
		Short: "Export a table as CSV or Excel",
		Long: `Render a table for download. The file is named after the table and the
current time unless --output is given. --s3 uploads it to the configured
bucket instead.

Examples:
  labbook export prep --format xlsx
  labbook export usage -o - > usage.csv
  labbook export prep --s3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := parseTable(args)
			if err != nil {
				return err
			}

			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.Export(commandContext(cmd), primary.SnapshotRequest{Table: table, Format: format}, output, upload)
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format (csv or xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout")
	cmd.Flags().BoolVar(&upload, "s3", false, "Upload to the configured S3 bucket")
	return cmd
}
