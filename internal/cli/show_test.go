package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invokeJSON(t *testing.T, db string, args ...string) InvokeResult {
	t.Helper()
	out, _ := execute(t, append([]string{"--db", db, "--format", "json", "invoke"}, args...)...)
	var data InvokeResult
	decodeResponse(t, out, &data)
	return data
}

func TestShowByInvocationID(t *testing.T) {
	db := tempDB(t)
	res := invokeJSON(t, db, "add", "--args", `{"message":"aGk="}`)
	require.NotEmpty(t, res.InvocationID)

	out, err := execute(t, "--db", db, "--format", "json", "show", res.InvocationID)
	require.NoError(t, err)

	var data ShowResult
	decodeResponse(t, out, &data)
	assert.Equal(t, "add", data.Invocation.Method)
	require.NotNil(t, data.Completion)
	assert.Equal(t, res.CompletionID, data.Completion.ID)
	assert.Equal(t, "Success", data.Completion.Outcome)
}

func TestShowByCompletionID(t *testing.T) {
	db := tempDB(t)
	res := invokeJSON(t, db, "add", "--args", `{"message":"aGk="}`)

	out, err := execute(t, "--db", db, "show", res.CompletionID)
	require.NoError(t, err)
	assert.Contains(t, out, "[1] INV add")
	assert.Contains(t, out, "[2] COMP Success")
	assert.Contains(t, out, "Args: {message=aGk=}")
}

func TestShowPending(t *testing.T) {
	db := tempDB(t)
	inv := writePending(t, db, 1)

	out, err := execute(t, "--db", db, "show", inv.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "[1] INV get")
	assert.Contains(t, out, "(pending)")
}

func TestShowUnknownID(t *testing.T) {
	_, err := execute(t, "--db", tempDB(t), "show", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "no invocation or completion with id missing")
}
