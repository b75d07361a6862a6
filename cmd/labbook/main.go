package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/cli"
	"github.com/example/labbook/internal/wire"
	"github.com/example/labbook/internal/version"
)

func main() {
	var dir string

	rootCmd := &cobra.Command{
		Use:     "labbook",
		Short:   "labbook - reagent preparation and usage log",
		Version: version.String(),
		Long: `labbook records reagent preparations and their usage in a shared table
(CSV files, a Google spreadsheet or SQLite). Each preparation gets a batch
ID of the form YYYYMMDD-CM-NN.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if dir != "" {
				wire.SetRoot(dir)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dir, "dir", "", "Project directory (default: nearest directory with .labbook)")

	// Records
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.PrepCmd())
	rootCmd.AddCommand(cli.UseCmd())
	rootCmd.AddCommand(cli.ListCmd())
	rootCmd.AddCommand(cli.ShowCmd())
	rootCmd.AddCommand(cli.NextIDCmd())
	rootCmd.AddCommand(cli.EditCmd())

	// Data movement
	rootCmd.AddCommand(cli.ExportCmd())
	rootCmd.AddCommand(cli.CopyCmd())

	// Operations
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	wire.Close()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
