package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/roach88/msglog/internal/state"
)

// StatsResult is the output of stats.
type StatsResult struct {
	Messages   uint64             `json:"messages"`
	TotalBytes uint64             `json:"total_bytes"` // Sum of message lengths
	StateBytes uint64             `json:"state_bytes"` // Encoded state size
	Seq        int64              `json:"seq"`
	StateSeq   int64              `json:"state_seq,omitempty"` // Seq of the last state write kept in the log
	Outcomes   map[string]int     `json:"outcomes"`
	Metrics    map[string]float64 `json:"metrics"`
}

// RenderText implements textRenderer.
func (r StatsResult) RenderText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Messages:    %d\n", r.Messages)
	fmt.Fprintf(w, "Bytes:       %d\n", r.TotalBytes)
	fmt.Fprintf(w, "State bytes: %d\n", r.StateBytes)
	fmt.Fprintf(w, "Last seq:    %d\n", r.Seq)
	if r.StateSeq > 0 {
		fmt.Fprintf(w, "State seq:   %d\n", r.StateSeq)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Outcomes ===")
	if len(r.Outcomes) == 0 {
		fmt.Fprintln(w, "  (no completions)")
	}
	for _, k := range sortedKeys(r.Outcomes) {
		fmt.Fprintf(w, "  %-26s %d\n", k, r.Outcomes[k])
	}

	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Metrics ===")
		for _, k := range sortedKeys(r.Metrics) {
			fmt.Fprintf(w, "  %s %g\n", k, r.Metrics[k])
		}
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store size and outcome counts",
		Long: `Show the number of stored messages, their total size, the encoded
state size and how many completions ended in each outcome.

Under --verbose the runtime's Prometheus gauges are listed too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}

	return cmd
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	snapshot, err := s.runtime.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load state", err)
	}
	counts, err := s.log.CountByOutcome(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count outcomes", err)
	}
	stateSeq, _, err := s.log.StateUpdatedSeq(ctx, state.StateKey)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read state seq", err)
	}
	families, err := s.registry.Gather()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to gather metrics", err)
	}

	result := StatsResult{
		Messages:   snapshot.Len(),
		TotalBytes: snapshot.TotalBytes(),
		StateBytes: state.EncodedSize(snapshot),
		Seq:        s.runtime.Seq(),
		StateSeq:   stateSeq,
		Outcomes:   make(map[string]int, len(counts)),
		Metrics:    flattenMetrics(families),
	}
	for outcome, n := range counts {
		result.Outcomes[string(outcome)] = n
	}

	return newFormatter(cmd, opts).Success(result)
}

// flattenMetrics turns gathered families into name{labels} -> value.
// Histograms contribute their _count and _sum series.
func flattenMetrics(families []*dto.MetricFamily) map[string]float64 {
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[name] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[name] = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[mf.GetName()+"_count"+formatLabels(m.GetLabel())] = float64(m.GetHistogram().GetSampleCount())
				out[mf.GetName()+"_sum"+formatLabels(m.GetLabel())] = m.GetHistogram().GetSampleSum()
			default:
				out[name] = m.GetUntyped().GetValue()
			}
		}
	}
	return out
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
