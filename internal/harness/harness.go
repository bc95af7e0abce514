package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/runtime"
	"github.com/roach88/msglog/internal/store"
	"github.com/roach88/msglog/internal/testutil"
)

// IDGenerator produces run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable run IDs.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Harness executes one scenario against a fresh runtime.
type Harness struct {
	store   *store.Store
	runtime *runtime.Runtime
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic
// clock, so identical scenarios produce identical traces. Steps go through
// runtime.Invoke; the trace is read back from the log after the last step.
//
// A failed expectation is reported in Result.Errors. The returned error is
// reserved for infrastructure failures.
func Run(scenario *Scenario) (*Result, error) {
	ids := IDGenerator(UUIDv7Generator{})
	if scenario.RunID != "" {
		ids = testutil.NewFixedIDGenerator(scenario.RunID)
	}
	return RunWith(context.Background(), scenario, ids)
}

// RunWith is Run with an explicit context and run ID source.
func RunWith(ctx context.Context, scenario *Scenario, ids IDGenerator) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	rt, err := runtime.New(ctx, st, runtime.WithClock(testutil.NewDeterministicClock()))
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}

	result := NewResult()
	result.RunID = ids.Generate()

	h := &Harness{
		store:   st,
		runtime: rt,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)).With(
			"scenario", scenario.Name,
			"run_id", result.RunID,
		),
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	if err := h.collectTrace(ctx, result); err != nil {
		return nil, err
	}

	snapshot, err := rt.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	result.Messages = snapshot.Len()

	actx := &AssertionContext{Ctx: ctx, Store: st, Runtime: rt}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep invokes one step and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	args, err := stepArgs(step)
	if err != nil {
		return err
	}

	res, err := h.runtime.Invoke(ctx, step.Invoke, args)
	if err != nil && !runtime.IsAbort(err) {
		return err
	}
	comp := res.Completion

	h.logger.Info("step completed",
		"step", i,
		"method", step.Invoke,
		"seq", res.Invocation.Seq,
		"outcome", comp.Outcome,
	)

	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{Case: string(ir.OutcomeSuccess)}
	}
	for _, msg := range checkExpect(expect, comp) {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Invoke, msg))
	}
	return nil
}

// collectTrace reads the log back in seq order.
func (h *Harness) collectTrace(ctx context.Context, result *Result) error {
	entries, err := h.store.ReadTrace(ctx)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	for _, e := range entries {
		result.AddInvocationTrace(e.Invocation)
		if e.Completion != nil {
			result.AddCompletionTrace(*e.Completion)
		}
	}
	return nil
}

func checkExpect(expect *ExpectClause, comp ir.Completion) []string {
	var errs []string
	if string(comp.Outcome) != expect.Case {
		errs = append(errs, fmt.Sprintf("expected case %q, got %q", expect.Case, comp.Outcome))
	}
	if expect.Message != "" && comp.Message != expect.Message {
		errs = append(errs, fmt.Sprintf("expected message %q, got %q", expect.Message, comp.Message))
	}
	if expect.Result != nil {
		want, err := convertArgsToIRObject(expect.Result)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid expected result: %v", err))
		} else if !reflect.DeepEqual(ir.ToAny(want), ir.ToAny(comp.Result)) {
			errs = append(errs, fmt.Sprintf("expected result %v, got %v", ir.ToAny(want), ir.ToAny(comp.Result)))
		}
	}
	return errs
}

// stepArgs builds the invocation arguments, expanding a payload into
// args.message.
func stepArgs(step Step) (ir.IRObject, error) {
	args, err := convertArgsToIRObject(step.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to convert args: %w", err)
	}
	if step.Payload != nil {
		msg, err := step.Payload.Bytes()
		if err != nil {
			return nil, err
		}
		args[runtime.ArgMessage] = runtime.BytesValue(msg)
	}
	return args, nil
}

// convertArgsToIRObject converts YAML-decoded values to an ir.IRObject.
// Nulls and floats are rejected.
func convertArgsToIRObject(args map[string]any) (ir.IRObject, error) {
	result := make(ir.IRObject, len(args))
	for key, val := range args {
		irVal, err := ir.FromAny(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		result[key] = irVal
	}
	return result, nil
}
