package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"checkin-queue/internal/config"
)

// Execute runs the command line. It cancels the command context on
// SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	opts := &serveOptions{}

	root := &cobra.Command{
		Use:   "checkin-queue",
		Short: "Walk-in check-in queue server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()
		},
		// no subcommand starts the server
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context())
		},
		SilenceUsage: true,
	}
	opts.bindFlags(root)

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newWatchCmd())
	return root
}
