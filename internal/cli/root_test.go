package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cdcflow", cmd.Use)
	assert.Contains(t, cmd.Long, "SQL registry")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "verify", "render", "init-flow", "sink-smoke", "history"}

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

	for _, name := range []string{"config", "specs-dir", "registry", "flow", "journal", "metrics-file"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	assert.NotNil(t, compileCmd.Flags().Lookup("dry-run"))
	assert.NotNil(t, compileCmd.Flags().Lookup("diff"))
}

func TestInvalidFormat(t *testing.T) {
	res := execute(t, "verify", "--format", "yaml")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "Error [E003]")
	assert.Contains(t, res.stdout, `invalid format "yaml"`)
}

func TestMissingConfigFile(t *testing.T) {
	res := execute(t, "verify", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "Error [E002]")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitDrift, GetExitCode(NewExitError(ExitDrift, "drift")))
	wrapped := WrapExitError(ExitViolation, "E701", errors.New("bad"))
	assert.Equal(t, ExitViolation, GetExitCode(wrapped))
	assert.Equal(t, "E701: bad", wrapped.Error())
}
