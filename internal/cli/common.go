package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/ctxutil"
)

// commandContext returns the command's context tagged as a CLI interaction.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctxutil.WithActor(ctx, "cli")
}

// projectDir returns the --dir flag or the working directory.
func projectDir(cmd *cobra.Command) (string, error) {
	if f := cmd.Flags().Lookup("dir"); f != nil && f.Value.String() != "" {
		return f.Value.String(), nil
	}
	return os.Getwd()
}
