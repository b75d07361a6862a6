package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/wire"
)

// ListCmd returns the list command
func ListCmd() *cobra.Command {
	var oldest bool

	cmd := &cobra.Command{
		Use:   "list [prep|usage]",
		Short: "Show a table, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := parseTable(args)
			if err != nil {
				return err
			}

			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.List(commandContext(cmd), table, oldest)
		},
	}

	cmd.Flags().BoolVar(&oldest, "oldest", false, "Show records in storage order")
	return cmd
}

// ShowCmd returns the show command
func ShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [batch-id]",
		Short: "Show one preparation by batch ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateBatchID(args[0]); err != nil {
				return err
			}

			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.Show(commandContext(cmd), args[0])
		},
	}
}

// NextIDCmd returns the next-id command
func NextIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-id",
		Short: "Print the batch ID the next preparation would get",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.NextID(commandContext(cmd))
		},
	}
}
