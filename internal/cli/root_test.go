package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "msglog", cmd.Use)
	assert.Contains(t, cmd.Long, "append-only")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"add", "get", "get-multiple", "invoke", "log", "replay", "show", "stats", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "msglog.db", dbFlag.DefValue)

	for _, name := range []string{"backend", "state-dir", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestMessageCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"add", "get", "get-multiple"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)

		enc := sub.Flags().Lookup("encoding")
		require.NotNil(t, enc, name)
		assert.Equal(t, "utf8", enc.DefValue)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "stats", "--db", tempDB(t), "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestInvalidBackend(t *testing.T) {
	_, err := execute(t, "stats", "--db", tempDB(t), "--backend", "redis")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "remove")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunIDAssigned(t *testing.T) {
	opts := &RootOptions{}
	opts.apply(mustDefaultConfig(t))
	assert.Len(t, opts.RunID, 36)

	first := opts.RunID
	opts.apply(mustDefaultConfig(t))
	assert.Equal(t, first, opts.RunID, "run ID is fixed for the process")
}
