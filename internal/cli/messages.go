package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/runtime"
)

// MessageOptions holds flags shared by add, get and get-multiple.
type MessageOptions struct {
	*RootOptions
	Encoding string
}

// AddResult is the output of add.
type AddResult struct {
	Index uint64 `json:"index"`
	Size  int    `json:"size"`
	Seq   int64  `json:"seq"`
}

// RenderText implements textRenderer.
func (r AddResult) RenderText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Appended message %d (%d bytes)\n", r.Index, r.Size)
	if verbose {
		fmt.Fprintf(w, "  Seq: %d\n", r.Seq)
	}
}

// MessagesResult is the output of get and get-multiple.
type MessagesResult struct {
	Start    uint64   `json:"start_index"`
	Encoding string   `json:"encoding"`
	Messages []string `json:"messages"`
}

// RenderText implements textRenderer.
func (r MessagesResult) RenderText(w io.Writer, verbose bool) {
	for i, m := range r.Messages {
		if verbose || len(r.Messages) > 1 {
			fmt.Fprintf(w, "%d: %s\n", r.Start+uint64(i), m)
			continue
		}
		fmt.Fprintln(w, m)
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MessageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <message>",
		Short: "Append a message (at most 1024 bytes)",
		Long: `Append a message to the end of the store and print its index.

Messages larger than 1024 bytes are rejected with MESSAGE_TOO_LARGE; the
store is left unchanged and the rejection is logged.

Examples:
  msglog add hello
  msglog add 010203 --encoding hex
  msglog add aGVsbG8= --encoding base64`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Encoding, "encoding", EncodingUTF8, "message encoding (utf8|hex|base64)")

	return cmd
}

const readEncodingUsage = "output encoding (utf8|hex|base64); default base64 for JSON output or non-UTF-8 messages, else utf8"

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MessageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <index>",
		Short: "Print the message at index",
		Long: `Print the message at index.

An index at or past the end of the store aborts with INDEX_OUT_OF_BOUNDS.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex("index", args[0])
			if err != nil {
				return err
			}
			return runRead(opts, cmd, runtime.MethodGet, index, ir.IRObject{
				runtime.ArgIndex: runtime.UintValue(index),
			})
		},
	}

	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", readEncodingUsage)

	return cmd
}

// NewGetMultipleCommand creates the get-multiple command.
func NewGetMultipleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MessageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get-multiple <start-index> <count>",
		Short: "Print up to count messages starting at start-index",
		Long: `Print up to count messages starting at start-index.

A count that runs past the end is clamped. A start index at or past the
end aborts with START_INDEX_OUT_OF_BOUNDS.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseIndex("start-index", args[0])
			if err != nil {
				return err
			}
			count, err := parseIndex("count", args[1])
			if err != nil {
				return err
			}
			return runRead(opts, cmd, runtime.MethodGetMultiple, start, ir.IRObject{
				runtime.ArgStartIndex: runtime.UintValue(start),
				runtime.ArgCount:      runtime.UintValue(count),
			})
		},
	}

	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", readEncodingUsage)

	return cmd
}

func runAdd(opts *MessageOptions, arg string, cmd *cobra.Command) error {
	msg, err := decodeMessage(arg, opts.Encoding)
	if err != nil {
		return err
	}

	f := newFormatter(cmd, opts.RootOptions)
	res, err := runInvocation(cmd.Context(), opts.RootOptions, f, runtime.MethodAdd, ir.IRObject{
		runtime.ArgMessage: runtime.BytesValue(msg),
	})
	if err != nil {
		return err
	}

	index, ok := runtime.DecodeUint(res.Completion.Result[runtime.ResultIndex])
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("malformed add result %v", res.Completion.Result))
	}
	return f.Success(AddResult{Index: index, Size: len(msg), Seq: res.Invocation.Seq})
}

func runRead(opts *MessageOptions, cmd *cobra.Command, method string, start uint64, args ir.IRObject) error {
	if opts.Encoding != "" {
		if err := checkEncoding(opts.Encoding); err != nil {
			return err
		}
	}

	f := newFormatter(cmd, opts.RootOptions)
	res, err := runInvocation(cmd.Context(), opts.RootOptions, f, method, args)
	if err != nil {
		return err
	}

	var raw []ir.IRValue
	if method == runtime.MethodGet {
		raw = []ir.IRValue{res.Completion.Result[runtime.ResultMessage]}
	} else {
		arr, _ := res.Completion.Result[runtime.ResultMessages].(ir.IRArray)
		raw = arr
	}

	msgs := make([][]byte, 0, len(raw))
	for _, v := range raw {
		msg, ok := runtime.DecodeBytes(v)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("malformed %s result %v", method, res.Completion.Result))
		}
		msgs = append(msgs, msg)
	}

	enc := opts.Encoding
	if enc == "" {
		enc = defaultReadEncoding(opts.Format, msgs)
	}
	out := MessagesResult{Start: start, Encoding: enc, Messages: make([]string, 0, len(msgs))}
	for _, msg := range msgs {
		out.Messages = append(out.Messages, encodeMessage(msg, enc))
	}
	return f.Success(out)
}

func parseIndex(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", name, s), err)
	}
	return n, nil
}
