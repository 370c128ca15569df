package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the trigger and admin endpoints",
		Long: `Serve the HTTP surface in the foreground. With --backend memory or
mongo the store's own writes drive the synchronizers, which makes this a
self-contained emulator of the deployed triggers.

Examples:
  syncctl serve --backend memory --snapshot store.json --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(app)

			if addr != "" {
				app.Config.ServerAddress = addr
			}
			if err := app.Serve(ctx); err != nil {
				return WrapExitError(ExitFailure, "server failed", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides BANDROOM_SERVER_ADDRESS)")
	return cmd
}
