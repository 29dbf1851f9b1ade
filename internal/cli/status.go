package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ebrangerieau/bandtrack/internal/config"
	"github.com/ebrangerieau/bandtrack/internal/localstore"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show cache and outbox counts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	local, err := localstore.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open local store", err)
	}
	defer local.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	entityCounts, err := local.CountEntities(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count entities", err)
	}
	counts := make(map[string]int, len(entityCounts)+1)
	for entity, n := range entityCounts {
		counts[entity.Collection()] = n
	}
	pending, err := local.PendingCount(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read outbox", err)
	}
	counts["pending_actions"] = pending

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(counts)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "songs:           %d\n", counts["songs"])
	fmt.Fprintf(&b, "suggestions:     %d\n", counts["suggestions"])
	fmt.Fprintf(&b, "performances:    %d\n", counts["performances"])
	fmt.Fprintf(&b, "pending actions: %d", counts["pending_actions"])
	return out.Success(b.String())
}
