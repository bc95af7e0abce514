package cli

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/msglog/internal/config"
)

// RootOptions holds the resolved global settings for all commands.
// It is filled in PersistentPreRunE, after flags are parsed.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Backend  string // "sqlite" | "pebble"
	StateDir string
	RunID    string // UUIDv7 attached to every log line of this process
}

// NewRootCommand creates the root command for the msglog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "msglog",
		Short: "msglog - append-only message store",
		Long: `An append-only store of small binary messages.

Every call is logged as an invocation/completion pair in SQLite, so the
current store can be replayed from the log and checked against the
persisted state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.apply(cfg)
			installLogger(cmd, opts)
			return nil
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewGetMultipleCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func (o *RootOptions) apply(cfg *config.Config) {
	o.Verbose = cfg.Verbose
	o.Format = cfg.Format
	o.Database = cfg.Database
	o.Backend = cfg.Backend
	o.StateDir = cfg.StateDir
	if o.RunID == "" {
		o.RunID = uuid.Must(uuid.NewV7()).String()
	}
}

// installLogger routes slog to stderr. Info and debug records appear only under
// --verbose.
func installLogger(cmd *cobra.Command, opts *RootOptions) {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler).With("run_id", opts.RunID))
}
