package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/msglog/internal/config"
	"github.com/roach88/msglog/internal/runtime"
)

// ReplayResult is the output of replay.
type ReplayResult struct {
	Invocations     int                `json:"invocations"`
	Messages        uint64             `json:"messages"`
	Mismatches      []runtime.Mismatch `json:"mismatches"`
	Pending         []string           `json:"pending"`
	StateDigest     string             `json:"state_digest"`
	PersistedDigest string             `json:"persisted_digest"`
	Consistent      bool               `json:"consistent"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the log and verify the persisted state",
		Long: `Replay every logged invocation in seq order against an empty store.

Each recorded outcome and result must be reproduced, and the rebuilt store
must encode to exactly the persisted state. Nothing is written.

Exit codes:
  0 - Log and state are consistent
  1 - Replay diverged (mismatch, pending invocation or state digest)
  2 - Command error (database unreadable, etc.)

Examples:
  msglog replay
  msglog replay --backend pebble --state-dir ./state
  msglog replay --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.runtime.Replay(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		Invocations:     report.Invocations,
		Messages:        report.Messages,
		Mismatches:      report.Mismatches,
		Pending:         report.Pending,
		StateDigest:     report.StateDigest,
		PersistedDigest: report.PersistedDigest,
		Consistent:      report.Consistent(),
	}

	if opts.Format == config.FormatJSON {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Consistent {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY_DIVERGED",
			Message: "replay diverged from the log",
		}
	}

	f := &OutputFormatter{Format: config.FormatJSON, Writer: cmd.OutOrStdout()}
	if err := f.encode(response); err != nil {
		return err
	}

	if !result.Consistent {
		return NewExitError(ExitFailure, "replay diverged from the log")
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d invocation(s), %d message(s)\n", result.Invocations, result.Messages)
	fmt.Fprintln(w)

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ [%d] %s: %s (recorded %s, replayed %s)\n", m.Seq, m.Method, m.Reason, m.Recorded, m.Replayed)
		if verbose {
			fmt.Fprintf(w, "  Invocation: %s\n", m.InvocationID)
		}
	}
	for _, id := range result.Pending {
		fmt.Fprintf(w, "✗ pending invocation %s\n", truncateID(id))
	}

	stateMatch := result.StateDigest == result.PersistedDigest
	if verbose || !stateMatch {
		fmt.Fprintf(w, "  Rebuilt state:   %s\n", result.StateDigest)
		fmt.Fprintf(w, "  Persisted state: %s\n", result.PersistedDigest)
	}
	if !stateMatch {
		fmt.Fprintln(w, "✗ Persisted state does not match the log")
	}

	if result.Consistent {
		fmt.Fprintln(w, "✓ Log and state verified consistent")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay diverged from the log")
}
