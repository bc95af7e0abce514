package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/store"
)

// ShowResult is one invocation with its completion, if any.
type ShowResult struct {
	Invocation TimelineEvent  `json:"invocation"`
	Completion *TimelineEvent `json:"completion,omitempty"`
}

// RenderText implements textRenderer.
func (r ShowResult) RenderText(w io.Writer, verbose bool) {
	formatTimelineEvent(w, r.Invocation, true)
	if r.Completion == nil {
		fmt.Fprintln(w, "  (pending)")
		return
	}
	formatTimelineEvent(w, *r.Completion, true)
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one logged invocation and its completion",
		Long: `Show a single invocation and its completion.

The ID may be either an invocation ID or a completion ID, as printed by
"msglog log --verbose" or "msglog invoke".

Examples:
  msglog show 9f2c...
  msglog show 9f2c... --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runShow(opts *RootOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	inv, comp, err := lookupRecord(ctx, st, id)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitFailure, fmt.Sprintf("no invocation or completion with id %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}

	result := ShowResult{Invocation: invocationEvent(inv)}
	if comp != nil {
		ev := completionEvent(*comp)
		result.Completion = &ev
	}
	return newFormatter(cmd, opts).Success(result)
}

// lookupRecord resolves id as an invocation ID first, then as a completion
// ID. A nil completion means the invocation is pending.
func lookupRecord(ctx context.Context, st *store.Store, id string) (ir.Invocation, *ir.Completion, error) {
	inv, err := st.ReadInvocation(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		comp, cerr := st.ReadCompletion(ctx, id)
		if cerr != nil {
			return ir.Invocation{}, nil, cerr
		}
		inv, err = st.ReadInvocation(ctx, comp.InvocationID)
		if err != nil {
			return ir.Invocation{}, nil, err
		}
		return inv, &comp, nil
	}
	if err != nil {
		return ir.Invocation{}, nil, err
	}

	comp, err := st.ReadCompletionFor(ctx, inv.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return inv, nil, nil
	}
	if err != nil {
		return ir.Invocation{}, nil, err
	}
	return inv, &comp, nil
}

func invocationEvent(inv ir.Invocation) TimelineEvent {
	return TimelineEvent{
		Seq:    inv.Seq,
		Type:   "invocation",
		ID:     inv.ID,
		Method: inv.Method,
		Args:   irObjectToMap(inv.Args),
	}
}

func completionEvent(c ir.Completion) TimelineEvent {
	return TimelineEvent{
		Seq:     c.Seq,
		Type:    "completion",
		ID:      c.ID,
		Outcome: string(c.Outcome),
		Result:  irObjectToMap(c.Result),
		Message: c.Message,
	}
}
