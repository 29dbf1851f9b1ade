package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ebrangerieau/bandtrack/internal/config"
	"github.com/ebrangerieau/bandtrack/internal/localstore"
	"github.com/ebrangerieau/bandtrack/internal/model"
	"github.com/ebrangerieau/bandtrack/internal/remote"
	"github.com/ebrangerieau/bandtrack/internal/repo"
)

// AddOptions holds flags shared by the add subcommands.
type AddOptions struct {
	*RootOptions
	Database string
	Group    string
	User     string
}

// NewAddCommand creates the add command group.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entity to the local cache and queue it for sync",
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Group, "group", "", "band group id (required)")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "acting user id (required)")
	_ = cmd.MarkPersistentFlagRequired("group")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(newAddSongCommand(opts))
	cmd.AddCommand(newAddSuggestionCommand(opts))
	cmd.AddCommand(newAddPerformanceCommand(opts))

	return cmd
}

// openRepoConfig assembles the repository collaborators for one-shot
// CLI writes. No trigger is wired: the queued action waits for the
// daemon's next drain.
func openRepoConfig(opts *AddOptions) (repo.Config, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return repo.Config{}, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	local, err := localstore.Open(cfg.Database)
	if err != nil {
		return repo.Config{}, nil, WrapExitError(ExitCommandError, "failed to open local store", err)
	}

	return repo.Config{
		Remote: remote.NewMemory(),
		Local:  local,
	}, func() { local.Close() }, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newAddSongCommand(opts *AddOptions) *cobra.Command {
	var (
		title    string
		artist   string
		duration int
		key      string
		tempo    int
	)

	cmd := &cobra.Command{
		Use:           "song",
		Short:         "Add a song to the repertoire",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, cleanup, err := openRepoConfig(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := repo.NewSongs(rc).Create(cmdContext(cmd), opts.Group, model.Song{
				Title:    title,
				Artist:   artist,
				Duration: duration,
				Key:      key,
				Tempo:    tempo,
			}, opts.User)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to add song", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			if opts.Format == "json" {
				return out.Success(map[string]string{"id": id})
			}
			return out.Success(fmt.Sprintf("added song %s", id))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "song title (required)")
	cmd.Flags().StringVar(&artist, "artist", "", "artist name")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in seconds")
	cmd.Flags().StringVar(&key, "key", "", "musical key, e.g. Am")
	cmd.Flags().IntVar(&tempo, "tempo", 0, "tempo in BPM")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newAddSuggestionCommand(opts *AddOptions) *cobra.Command {
	var (
		title    string
		artist   string
		link     string
		userName string
	)

	cmd := &cobra.Command{
		Use:           "suggestion",
		Short:         "Suggest a song for the group to vote on",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, cleanup, err := openRepoConfig(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := repo.NewSuggestions(rc).Create(cmdContext(cmd), opts.Group, model.Suggestion{
				Title:  title,
				Artist: artist,
				Link:   link,
			}, opts.User, userName)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to add suggestion", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			if opts.Format == "json" {
				return out.Success(map[string]string{"id": id})
			}
			return out.Success(fmt.Sprintf("added suggestion %s", id))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "song title (required)")
	cmd.Flags().StringVar(&artist, "artist", "", "artist name")
	cmd.Flags().StringVar(&link, "link", "", "reference link")
	cmd.Flags().StringVar(&userName, "user-name", "", "acting user display name")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newAddPerformanceCommand(opts *AddOptions) *cobra.Command {
	var (
		perfType string
		date     string
		duration int
		location string
		title    string
	)

	cmd := &cobra.Command{
		Use:           "performance",
		Short:         "Schedule a rehearsal or gig",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.PerformanceType(perfType)
			switch t {
			case model.PerformanceRehearsal, model.PerformanceGig, model.PerformanceOther:
			default:
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid type %q: must be REHEARSAL, GIG or OTHER", perfType), nil)
			}

			when, err := time.Parse(time.RFC3339, date)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid date, want RFC3339", err)
			}

			rc, cleanup, err := openRepoConfig(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := repo.NewPerformances(rc).Create(cmdContext(cmd), opts.Group, model.Performance{
				Type:            t,
				Date:            when.UnixMilli(),
				DurationMinutes: duration,
				Location:        location,
				Title:           title,
			}, opts.User)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to add performance", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			if opts.Format == "json" {
				return out.Success(map[string]string{"id": id})
			}
			return out.Success(fmt.Sprintf("added performance %s", id))
		},
	}

	cmd.Flags().StringVar(&perfType, "type", string(model.PerformanceRehearsal), "REHEARSAL, GIG or OTHER")
	cmd.Flags().StringVar(&date, "date", "", "start time, RFC3339 (required)")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in minutes (default 120)")
	cmd.Flags().StringVar(&location, "location", "", "venue or room")
	cmd.Flags().StringVar(&title, "title", "", "event title")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}
