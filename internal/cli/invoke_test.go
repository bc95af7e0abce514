package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeAdd(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "invoke", "add", "--args", `{"message":"aGk="}`)
	require.NoError(t, err)

	var data InvokeResult
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "add", data.Method)
	assert.Equal(t, "Success", data.Outcome)
	assert.Equal(t, int64(1), data.Seq)
	assert.Equal(t, float64(0), data.Result["index"])
	assert.NotEmpty(t, data.InvocationID)
	assert.NotEmpty(t, data.CompletionID)
}

func TestInvokeText(t *testing.T) {
	db := tempDB(t)

	_, err := execute(t, "--db", db, "invoke", "add", "--args", `{"message":"aGk="}`)
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "invoke", "get", "--args", `{"index":0}`)
	require.NoError(t, err)
	assert.Equal(t, "[3] get Success\n  Result: {message=aGk=}\n", out)
}

func TestInvokeDefaultArgs(t *testing.T) {
	cmd := NewInvokeCommand(&RootOptions{})
	argsFlag := cmd.Flags().Lookup("args")
	require.NotNil(t, argsFlag)
	assert.Equal(t, "{}", argsFlag.DefValue)
}

func TestInvokeMissingMethod(t *testing.T) {
	_, err := execute(t, "--db", tempDB(t), "invoke")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestInvokeInvalidJSON(t *testing.T) {
	_, err := execute(t, "--db", tempDB(t), "invoke", "add", "--args", "{not json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --args JSON")
}

func TestInvokeAborts(t *testing.T) {
	tests := []struct {
		name   string
		method string
		args   string
		code   string
	}{
		{"unknown method", "remove", `{}`, "UNKNOWN_METHOD"},
		{"missing argument", "get", `{}`, "INVALID_ARGS"},
		{"extra argument", "get", `{"index":0,"x":1}`, "INVALID_ARGS"},
		{"bad message", "add", `{"message":5}`, "INVALID_ARGS"},
		{"empty store", "get", `{"index":0}`, "INDEX_OUT_OF_BOUNDS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "--db", tempDB(t), "--format", "json", "invoke", tt.method, "--args", tt.args)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestInvokeHelpText(t *testing.T) {
	cmd := NewInvokeCommand(&RootOptions{})
	assert.Contains(t, cmd.Long, "add, get, get_multiple")
}

func TestInvokeIndexBeyondInt64IsLogged(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "invoke", "get", "--args", `{"index":18446744073709551615}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "INDEX_OUT_OF_BOUNDS", resp.Error.Code)

	out, err = execute(t, "--db", db, "--format", "json", "log")
	require.NoError(t, err)
	var data LogResult
	decodeResponse(t, out, &data)
	require.Len(t, data.Timeline, 2)
	assert.Equal(t, map[string]any{"index": "18446744073709551615"}, data.Timeline[0].Args)
	assert.Equal(t, "INDEX_OUT_OF_BOUNDS", data.Timeline[1].Outcome)
}

func TestInvokeNegativeBeyondInt64IsInvalidArgs(t *testing.T) {
	out, err := execute(t, "--db", tempDB(t), "--format", "json", "invoke", "get", "--args", `{"index":-99999999999999999999}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "INVALID_ARGS", resp.Error.Code)
}
