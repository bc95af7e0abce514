package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msglog/internal/testutil"
)

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Steps: []Step{
			{Invoke: "add", Args: map[string]any{"message": "aGk="}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, uint64(1), result.Messages)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, EventInvocation, result.Trace[0].Type)
	assert.Equal(t, "add", result.Trace[0].Method)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, EventCompletion, result.Trace[1].Type)
	assert.Equal(t, "Success", result.Trace[1].Outcome)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
}

func TestRun_Testdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_case",
		Description: "Expectations are checked against real completions",
		Steps: []Step{
			{
				Invoke: "get",
				Args:   map[string]any{"index": 0},
				Expect: &ExpectClause{Case: "Success"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `steps[0] get: expected case "Success", got "INDEX_OUT_OF_BOUNDS"`)
}

func TestRun_StepWithoutExpectMustSucceed(t *testing.T) {
	scenario := &Scenario{
		Name:        "implicit_success",
		Description: "A step with no expect clause must succeed",
		Steps: []Step{
			{Invoke: "add", Payload: &Payload{Size: 1025}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "MESSAGE_TOO_LARGE")
}

func TestRun_ResultMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_result",
		Description: "Result matching is exact",
		Steps: []Step{
			{
				Invoke: "add",
				Args:   map[string]any{"message": "aGk="},
				Expect: &ExpectClause{Case: "Success", Result: map[string]any{"index": 3}},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected result")
}

func TestRun_AbortMessageMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_message",
		Description: "Abort messages are compared when given",
		Steps: []Step{
			{
				Invoke: "get",
				Args:   map[string]any{"index": 0},
				Expect: &ExpectClause{Case: "INDEX_OUT_OF_BOUNDS", Message: "nope"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected message "nope", got "Message index out of bounds"`)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/out_of_bounds.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_FixedRunID(t *testing.T) {
	scenario := &Scenario{
		Name:        "fixed_run",
		Description: "Run IDs can be pinned",
		RunID:       "run-42",
		Steps:       []Step{{Invoke: "get", Args: map[string]any{"index": 0}, Expect: &ExpectClause{Case: "INDEX_OUT_OF_BOUNDS"}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "run-42", result.RunID)
}

func TestRunWith_IDGenerator(t *testing.T) {
	scenario := &Scenario{
		Name:        "custom_ids",
		Description: "Run IDs come from the generator",
		Steps:       []Step{{Invoke: "add", Payload: &Payload{Text: "x"}}},
	}

	result, err := RunWith(context.Background(), scenario, testutil.NewFixedIDGenerator(""))
	require.NoError(t, err)
	assert.Equal(t, "test-run-default", result.RunID)
}

func TestRun_FreshDatabasePerScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "isolated",
		Description: "Each run starts from an empty store",
		Steps:       []Step{{Invoke: "add", Payload: &Payload{Text: "x"}, Expect: &ExpectClause{Case: "Success", Result: map[string]any{"index": 0}}}},
		Assertions:  []Assertion{{Type: AssertMessageCount, Count: 1}},
	}

	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d: %v", i, result.Errors)
	}
}

func TestRun_FloatsForbidden(t *testing.T) {
	scenario := &Scenario{
		Name:        "floats",
		Description: "Floats cannot be encoded",
		Steps:       []Step{{Invoke: "get", Args: map[string]any{"index": 1.5}}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestRun_NullsForbidden(t *testing.T) {
	scenario := &Scenario{
		Name:        "nulls",
		Description: "Nulls cannot be encoded",
		Steps:       []Step{{Invoke: "get", Args: map[string]any{"index": nil}}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
