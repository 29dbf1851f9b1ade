package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ebrangerieau/bandtrack/internal/config"
	"github.com/ebrangerieau/bandtrack/internal/localstore"
	"github.com/ebrangerieau/bandtrack/internal/remote"
	"github.com/ebrangerieau/bandtrack/internal/syncer"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the sync daemon",
		Long: `Start the BandTrack sync daemon.

Opens the local SQLite cache (creating it if it doesn't exist), starts
the outbox drain scheduler, and serves until interrupted. Queued
pending actions from previous sessions are drained on startup.

Example:
  bandtrackd run --db ./bandtrack.db
  bandtrackd run --config ./bandtrack.yaml --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runDaemon(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	configureLogging(cfg.Log.Level, opts.Verbose)

	slog.Info("opening local store", "path", cfg.Database)
	local, err := localstore.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open local store", err)
	}
	defer func() {
		if closeErr := local.Close(); closeErr != nil {
			slog.Error("error closing local store", "error", closeErr)
		}
	}()

	// The daemon ships with the in-memory remote store. A managed
	// document database would slot in behind the same remote.Store
	// interface.
	rs := remote.NewMemory()

	worker := syncer.NewWorker(local, rs,
		syncer.WithMaxAttempts(cfg.Sync.MaxAttempts))
	sched := syncer.NewScheduler(worker,
		syncer.WithInterval(time.Duration(cfg.Sync.IntervalMinutes)*time.Minute))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)

	// Drain whatever survived from the previous session.
	sched.TriggerSync()

	pending, err := local.PendingCount(ctx)
	if err == nil && pending > 0 {
		slog.Info("queued actions from previous session", "pending", pending)
	}

	slog.Info("daemon ready", "interval_minutes", cfg.Sync.IntervalMinutes)
	<-ctx.Done()

	slog.Info("shutting down")
	<-sched.Done()
	return nil
}

// configureLogging installs the process-wide slog handler.
func configureLogging(level string, verbose bool) {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
