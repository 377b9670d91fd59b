package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/statspub/dataapi/internal/cli/commands"
	"github.com/statspub/dataapi/internal/cliopt"
)

// NewRootCommand builds the full command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	g := cliopt.DefaultGlobalOptions()

	root := &cobra.Command{
		Use:           "dataapi",
		Short:         "Statistics data API query engine",
		Long:          rootLong,
		Example:       rootExample,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	cliopt.BindGlobalFlags(root.PersistentFlags(), g)

	root.AddCommand(
		commands.NewMigrateCommand(g),
		commands.NewServeCommand(g),
		commands.NewQueryCommand(g),
		commands.NewMetaCommand(g),
		commands.NewImportCommand(g),
	)
	return root
}

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(argv)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
