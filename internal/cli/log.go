package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Method  string // optional - filter to one method
	Pending bool   // list only invocations without a completion
}

// TimelineEvent is a single invocation or completion in the log.
type TimelineEvent struct {
	Seq     int64          `json:"seq"`
	Type    string         `json:"type"` // "invocation" or "completion"
	ID      string         `json:"id"`
	Method  string         `json:"method,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome,omitempty"`
	Result  map[string]any `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
}

// LogStats summarizes the log.
type LogStats struct {
	TotalEvents int  `json:"total_events"`
	Invocations int  `json:"invocations"`
	Completions int  `json:"completions"`
	Aborted     int  `json:"aborted"`
	Pending     int  `json:"pending"`
	IsComplete  bool `json:"is_complete"`
}

// LogResult is the output of log.
type LogResult struct {
	Timeline []TimelineEvent `json:"timeline"`
	Stats    LogStats        `json:"stats"`
}

// RenderText implements textRenderer.
func (r LogResult) RenderText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Status: %s\n", completeStatus(r.Stats.IsComplete))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(r.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, event := range r.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", r.Stats.TotalEvents)
	fmt.Fprintf(w, "  Invocations:  %d\n", r.Stats.Invocations)
	fmt.Fprintf(w, "  Completions:  %d\n", r.Stats.Completions)
	fmt.Fprintf(w, "  Aborted:      %d\n", r.Stats.Aborted)
	fmt.Fprintf(w, "  Pending:      %d\n", r.Stats.Pending)
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the invocation/completion timeline",
		Long: `Show every logged invocation and its completion in seq order.

Aborted invocations are listed with their abort code and message.

Examples:
  msglog log
  msglog log --method add
  msglog log --pending
  msglog log --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Method, "method", "", "filter to one method")
	cmd.Flags().BoolVar(&opts.Pending, "pending", false, "list only invocations without a completion")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var entries []store.TraceEntry
	if opts.Pending {
		pending, err := st.FindPendingInvocations(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read log", err)
		}
		for _, inv := range pending {
			entries = append(entries, store.TraceEntry{Invocation: inv})
		}
	} else {
		entries, err = st.ReadTrace(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read log", err)
		}
	}

	return newFormatter(cmd, opts.RootOptions).Success(buildLog(entries, opts.Method))
}

// buildLog flattens trace entries into a timeline. Stats cover every entry
// even when method filters the timeline.
func buildLog(entries []store.TraceEntry, method string) LogResult {
	result := LogResult{Timeline: []TimelineEvent{}}

	for _, e := range entries {
		inv := e.Invocation
		result.Stats.Invocations++
		if e.Completion == nil {
			result.Stats.Pending++
		} else {
			result.Stats.Completions++
			if !e.Completion.Succeeded() {
				result.Stats.Aborted++
			}
		}

		if method != "" && inv.Method != method {
			continue
		}

		result.Timeline = append(result.Timeline, invocationEvent(inv))
		if c := e.Completion; c != nil {
			result.Timeline = append(result.Timeline, completionEvent(*c))
		}
	}

	result.Stats.TotalEvents = result.Stats.Invocations + result.Stats.Completions
	result.Stats.IsComplete = result.Stats.Pending == 0
	return result
}

// irObjectToMap converts an IRObject to a plain map for JSON output.
func irObjectToMap(obj ir.IRObject) map[string]any {
	if obj == nil {
		return nil
	}
	m, _ := ir.ToAny(obj).(map[string]any)
	return m
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TimelineEvent, verbose bool) {
	switch event.Type {
	case "invocation":
		fmt.Fprintf(w, "  [%d] INV %s\n", event.Seq, event.Method)
		if verbose && len(event.Args) > 0 {
			fmt.Fprintf(w, "       Args: %s\n", formatArgs(event.Args))
		}
	case "completion":
		fmt.Fprintf(w, "  [%d] COMP %s\n", event.Seq, event.Outcome)
		if event.Message != "" {
			fmt.Fprintf(w, "       %s\n", event.Message)
		}
		if verbose && len(event.Result) > 0 {
			fmt.Fprintf(w, "       Result: %s\n", formatArgs(event.Result))
		}
	}
	if verbose {
		fmt.Fprintf(w, "       ID: %s\n", truncateID(event.ID))
	}
}

// formatArgs formats a map with sorted keys for deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value, recursing into nested structures.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID shortens a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (pending invocations)"
}
