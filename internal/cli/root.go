// Package cli implements syncctl, the operator tool that runs the
// synchronizers' repair jobs and a local emulator against any store backend.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bandroom/backend/internal/bootstrap"
	"github.com/bandroom/backend/internal/config"
	"github.com/bandroom/backend/internal/logging"
)

// RootOptions holds global flags for all commands. Empty values leave the
// environment and config file settings alone.
type RootOptions struct {
	Format   string // "json" | "text"
	Backend  string
	DataDir  string
	Snapshot string
	LogLevel string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for syncctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Operate the bandroom sync backend",
		Long: `syncctl runs maintenance jobs against the bandroom document store:
rebuilding membership indexes, replaying one user's projections, erasing a
deleted account, and serving the trigger endpoints locally.

Settings come from BANDROOM_* environment variables and BANDROOM_CONFIG_FILE;
the flags below override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "store backend (firestore|mongo|memory)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory of the memory backend snapshot")
	cmd.PersistentFlags().StringVar(&opts.Snapshot, "snapshot", "", "snapshot file name for the memory backend")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewReindexCommand(opts))
	cmd.AddCommand(NewResyncCommand(opts))
	cmd.AddCommand(NewDeleteUserCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the environment and applies the flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Backend != "" {
		cfg.StoreBackend = o.Backend
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.Snapshot != "" {
		cfg.SnapshotFile = o.Snapshot
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// openApp builds the application for a one-shot command. The console
// logger writes to stderr, which keeps JSON output on stdout parseable.
func (o *RootOptions) openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start", err)
	}
	return app, nil
}

func closeApp(app *bootstrap.App) {
	if err := app.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close:", err)
	}
}
