package harness

import (
	"bytes"
	"context"
	"fmt"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/runtime"
	"github.com/roach88/msglog/internal/store"
)

// AssertionContext gives assertions read access to the scenario's runtime
// and log.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Runtime *runtime.Runtime
}

// EvaluateAssertions evaluates all assertions and returns one message per
// failure. Assertions never log invocations.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertMessageCount:
			err = assertMessageCount(actx, assertion)
		case AssertMessageAt:
			err = assertMessageAt(actx, assertion)
		case AssertOutcomeCount:
			err = assertOutcomeCount(actx, assertion)
		case AssertReplayConsistent:
			err = assertReplayConsistent(actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion[%d] %s: %v", i, assertion.Type, err))
		}
	}

	return errors
}

func assertMessageCount(actx *AssertionContext, a Assertion) error {
	s, err := actx.Runtime.Snapshot(actx.Ctx)
	if err != nil {
		return err
	}
	if s.Len() != uint64(a.Count) {
		return fmt.Errorf("expected %d messages, got %d", a.Count, s.Len())
	}
	return nil
}

func assertMessageAt(actx *AssertionContext, a Assertion) error {
	want, err := a.Payload.Bytes()
	if err != nil {
		return err
	}
	s, err := actx.Runtime.Snapshot(actx.Ctx)
	if err != nil {
		return err
	}
	got, err := s.Get(a.Index)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("message %d: expected %x, got %x", a.Index, want, []byte(got))
	}
	return nil
}

func assertOutcomeCount(actx *AssertionContext, a Assertion) error {
	counts, err := actx.Store.CountByOutcome(actx.Ctx)
	if err != nil {
		return err
	}
	if got := counts[ir.Outcome(a.Outcome)]; got != a.Count {
		return fmt.Errorf("expected %d %s completions, got %d", a.Count, a.Outcome, got)
	}
	return nil
}

func assertReplayConsistent(actx *AssertionContext) error {
	report, err := actx.Runtime.Replay(actx.Ctx)
	if err != nil {
		return err
	}
	if !report.Consistent() {
		return fmt.Errorf("replay diverged: %d mismatches, %d pending, state digest %s vs persisted %s",
			len(report.Mismatches), len(report.Pending), report.StateDigest, report.PersistedDigest)
	}
	return nil
}
