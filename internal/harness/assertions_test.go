package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithAssertions(t *testing.T, assertions ...Assertion) *Result {
	t.Helper()
	scenario := &Scenario{
		Name:        "assertions",
		Description: "Two messages and one abort",
		Steps: []Step{
			{Invoke: "add", Payload: &Payload{Hex: "010101"}},
			{Invoke: "add", Payload: &Payload{Hex: "020202"}},
			{Invoke: "get", Args: map[string]any{"index": 5}, Expect: &ExpectClause{Case: "INDEX_OUT_OF_BOUNDS"}},
		},
		Assertions: assertions,
	}
	result, err := Run(scenario)
	require.NoError(t, err)
	return result
}

func TestAssertMessageCount(t *testing.T) {
	assert.True(t, runWithAssertions(t, Assertion{Type: AssertMessageCount, Count: 2}).Pass)

	result := runWithAssertions(t, Assertion{Type: AssertMessageCount, Count: 3})
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected 3 messages, got 2")
}

func TestAssertMessageAt(t *testing.T) {
	result := runWithAssertions(t,
		Assertion{Type: AssertMessageAt, Index: 0, Payload: &Payload{Hex: "010101"}},
		Assertion{Type: AssertMessageAt, Index: 1, Payload: &Payload{Base64: "AgIC"}},
	)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertMessageAt_Mismatch(t *testing.T) {
	result := runWithAssertions(t, Assertion{Type: AssertMessageAt, Index: 1, Payload: &Payload{Hex: "010101"}})
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "message 1: expected 010101, got 020202")
}

func TestAssertMessageAt_OutOfBounds(t *testing.T) {
	result := runWithAssertions(t, Assertion{Type: AssertMessageAt, Index: 2, Payload: &Payload{Hex: "00"}})
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "INDEX_OUT_OF_BOUNDS")
}

func TestAssertOutcomeCount(t *testing.T) {
	result := runWithAssertions(t,
		Assertion{Type: AssertOutcomeCount, Outcome: "Success", Count: 2},
		Assertion{Type: AssertOutcomeCount, Outcome: "INDEX_OUT_OF_BOUNDS", Count: 1},
		Assertion{Type: AssertOutcomeCount, Outcome: "MESSAGE_TOO_LARGE", Count: 0},
	)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertOutcomeCount_Mismatch(t *testing.T) {
	result := runWithAssertions(t, Assertion{Type: AssertOutcomeCount, Outcome: "Success", Count: 5})
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected 5 Success completions, got 2")
}

func TestAssertReplayConsistent(t *testing.T) {
	result := runWithAssertions(t, Assertion{Type: AssertReplayConsistent})
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertions_DoNotLogInvocations(t *testing.T) {
	result := runWithAssertions(t,
		Assertion{Type: AssertMessageCount, Count: 2},
		Assertion{Type: AssertReplayConsistent},
	)
	assert.Len(t, result.Trace, 6)
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions([]Assertion{{Type: "bogus"}}, &AssertionContext{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "bogus"`)
}

func TestEvaluateAssertions_ErrorPrefix(t *testing.T) {
	result := runWithAssertions(t,
		Assertion{Type: AssertMessageCount, Count: 2},
		Assertion{Type: AssertMessageCount, Count: 9},
	)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertion[1] message_count:")
}
