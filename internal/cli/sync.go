package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ebrangerieau/bandtrack/internal/config"
	"github.com/ebrangerieau/bandtrack/internal/localstore"
	"github.com/ebrangerieau/bandtrack/internal/remote"
	"github.com/ebrangerieau/bandtrack/internal/syncer"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Database string
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Drain the outbox once",
		Long: `Run a single outbox drain against the remote store and report
how many actions were applied.

Example:
  bandtrackd sync --db ./bandtrack.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	configureLogging(cfg.Log.Level, opts.Verbose)

	local, err := localstore.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open local store", err)
	}
	defer local.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	before, err := local.PendingCount(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read outbox", err)
	}

	worker := syncer.NewWorker(local, remote.NewMemory(),
		syncer.WithMaxAttempts(cfg.Sync.MaxAttempts))
	if err := worker.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "sync run failed", err)
	}

	after, err := local.PendingCount(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read outbox", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(map[string]int{
			"applied":   before - after,
			"remaining": after,
		})
	}
	return out.Success(fmt.Sprintf("applied %d action(s), %d remaining", before-after, after))
}
