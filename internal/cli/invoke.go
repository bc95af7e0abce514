package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/runtime"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args string
}

// InvokeResult is the CLI view of one logged invocation.
type InvokeResult struct {
	InvocationID string         `json:"invocation_id"`
	CompletionID string         `json:"completion_id"`
	Method       string         `json:"method"`
	Seq          int64          `json:"seq"`
	Outcome      string         `json:"outcome"`
	Result       map[string]any `json:"result"`
}

// RenderText implements textRenderer.
func (r InvokeResult) RenderText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "[%d] %s %s\n", r.Seq, r.Method, r.Outcome)
	if len(r.Result) > 0 {
		fmt.Fprintf(w, "  Result: %s\n", formatArgs(r.Result))
	}
	if verbose {
		fmt.Fprintf(w, "  Invocation: %s\n", r.InvocationID)
		fmt.Fprintf(w, "  Completion: %s\n", r.CompletionID)
	}
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <method>",
		Short: "Invoke a method with raw JSON arguments",
		Long: `Invoke a method with raw JSON arguments.

Methods: ` + strings.Join(runtime.Methods(), ", ") + `

Message bytes are base64 strings. Indices are non-negative integers;
values above 2^63-1 are passed as decimal strings.

Exit codes:
  0 - Success
  1 - Invocation aborted (logged, state unchanged)
  2 - Command error

Examples:
  msglog invoke add --args '{"message":"aGVsbG8="}'
  msglog invoke get_multiple --args '{"start_index":0,"count":10}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeMethod(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "method arguments as JSON")

	return cmd
}

func invokeMethod(opts *InvokeOptions, method string, cmd *cobra.Command) error {
	args, err := ir.ParseObject([]byte(opts.Args))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	f := newFormatter(cmd, opts.RootOptions)
	res, err := runInvocation(cmd.Context(), opts.RootOptions, f, method, args)
	if err != nil {
		return err
	}
	return f.Success(newInvokeResult(res))
}

// runInvocation opens a session, invokes method and reports an abort
// through f. The returned error already carries the exit code.
func runInvocation(ctx context.Context, opts *RootOptions, f *OutputFormatter, method string, args ir.IRObject) (*runtime.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	res, err := s.runtime.Invoke(ctx, method, args)
	if err == nil {
		return res, nil
	}

	var abort *runtime.InvocationError
	if errors.As(err, &abort) {
		_ = f.Error(string(abort.Code), abort.Message, map[string]any{
			"method":        method,
			"seq":           res.Invocation.Seq,
			"invocation_id": res.Invocation.ID,
		})
		return nil, WrapExitError(ExitFailure, "invocation aborted", err)
	}
	return nil, WrapExitError(ExitCommandError, "invocation failed", err)
}

func newInvokeResult(res *runtime.Result) InvokeResult {
	result, _ := ir.ToAny(res.Completion.Result).(map[string]any)
	return InvokeResult{
		InvocationID: res.Invocation.ID,
		CompletionID: res.Completion.ID,
		Method:       res.Invocation.Method,
		Seq:          res.Invocation.Seq,
		Outcome:      string(res.Completion.Outcome),
		Result:       result,
	}
}
