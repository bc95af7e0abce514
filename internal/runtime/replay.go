package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/messages"
	"github.com/roach88/msglog/internal/state"
)

// Mismatch is a logged invocation whose recorded completion was not
// reproduced on replay.
type Mismatch struct {
	Seq          int64      `json:"seq"`
	InvocationID string     `json:"invocation_id"`
	Method       string     `json:"method"`
	Recorded     ir.Outcome `json:"recorded"`
	Replayed     ir.Outcome `json:"replayed"`
	Reason       string     `json:"reason"`
}

// ReplayReport summarizes a replay of the full log.
type ReplayReport struct {
	Invocations     int
	Mismatches      []Mismatch
	Pending         []string // Invocation IDs without a completion
	Messages        uint64   // Messages in the rebuilt store
	StateDigest     string   // Digest of the rebuilt store's encoding
	PersistedDigest string   // Digest of the persisted encoding
}

// Consistent reports whether every outcome was reproduced and the rebuilt
// state matches the persisted state byte for byte.
func (r *ReplayReport) Consistent() bool {
	return len(r.Mismatches) == 0 && len(r.Pending) == 0 && r.StateDigest == r.PersistedDigest
}

// Replay re-executes every logged invocation in seq order against an empty
// store. It never writes: the log and the persisted state are only read.
//
// Recorded outcomes and results are compared with the re-executed ones, and
// the rebuilt store's encoding is compared with the persisted encoding. A
// missing persisted state compares equal to an empty store.
func (r *Runtime) Replay(ctx context.Context) (*ReplayReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trace, err := r.log.ReadTrace(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	report := &ReplayReport{
		Invocations: len(trace),
		Mismatches:  []Mismatch{},
		Pending:     []string{},
	}
	rebuilt := messages.New()

	for _, entry := range trace {
		inv := entry.Invocation
		if entry.Completion == nil {
			report.Pending = append(report.Pending, inv.ID)
			continue
		}
		recorded := *entry.Completion

		working := rebuilt.Clone()
		result, mutates, runErr := dispatch(working, inv.Method, inv.Args)

		replayed := ir.OutcomeSuccess
		if runErr != nil {
			var abort *InvocationError
			if !errors.As(runErr, &abort) {
				return nil, fmt.Errorf("replay seq %d: %w", inv.Seq, runErr)
			}
			replayed = abort.Outcome()
			result = ir.IRObject{}
		}

		if m, ok := compareCompletion(inv, recorded, replayed, result); !ok {
			report.Mismatches = append(report.Mismatches, m)
			slog.Warn("replay mismatch",
				"seq", inv.Seq,
				"method", inv.Method,
				"recorded", recorded.Outcome,
				"replayed", replayed,
				"reason", m.Reason,
			)
		}

		if runErr == nil && mutates {
			rebuilt = working
		}
	}

	persisted, found, err := r.backend.ReadState(ctx, state.StateKey)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if !found {
		persisted = state.Encode(messages.New())
	}

	encoded := state.Encode(rebuilt)
	report.Messages = rebuilt.Len()
	report.StateDigest = ir.StateDigest(encoded)
	report.PersistedDigest = ir.StateDigest(persisted)

	r.metrics.AddReplayMismatches(len(report.Mismatches))

	slog.Info("replay finished",
		"invocations", report.Invocations,
		"mismatches", len(report.Mismatches),
		"pending", len(report.Pending),
		"state_match", bytes.Equal(encoded, persisted),
	)
	return report, nil
}

func compareCompletion(inv ir.Invocation, recorded ir.Completion, replayed ir.Outcome, result ir.IRObject) (Mismatch, bool) {
	m := Mismatch{
		Seq:          inv.Seq,
		InvocationID: inv.ID,
		Method:       inv.Method,
		Recorded:     recorded.Outcome,
		Replayed:     replayed,
	}
	if recorded.Outcome != replayed {
		m.Reason = "outcome differs"
		return m, false
	}

	want, err := ir.MarshalCanonical(recorded.Result)
	if err != nil {
		m.Reason = fmt.Sprintf("recorded result not canonical: %v", err)
		return m, false
	}
	got, err := ir.MarshalCanonical(result)
	if err != nil {
		m.Reason = fmt.Sprintf("replayed result not canonical: %v", err)
		return m, false
	}
	if !bytes.Equal(want, got) {
		m.Reason = "result differs"
		return m, false
	}
	return m, true
}
