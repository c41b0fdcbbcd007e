package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/cadence/pkg/api"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cadence", cmd.Use)
	assert.Contains(t, cmd.Long, "recurring-task server")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"login"}, {"register"}, {"logout"}, {"whoami"},
		{"tasks"}, {"add"}, {"edit"}, {"delete"},
		{"mirror"}, {"auth"},
		{"config", "show"}, {"config", "set-api-url"}, {"config", "set-calendar"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	dirFlag := cmd.PersistentFlags().Lookup("config-dir")
	require.NotNil(t, dirFlag)
	assert.Equal(t, "", dirFlag.DefValue)
}

func TestTaskFieldFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"add", "edit"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		for _, flag := range []string{"title", "description", "frequency", "due-date", "due-time"} {
			assert.NotNil(t, sub.Flags().Lookup(flag), "%s --%s", name, flag)
		}
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseID("forty-two")
	assert.Error(t, err)
}

func TestRootSilencesCobraErrors(t *testing.T) {
	cmd := NewRootCommand()
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, fmt.Errorf("delete task 1: %w", &api.Error{Kind: api.KindRejected, Status: 404, Message: "Task not found"}))
	assert.Empty(t, buf.String())

	reportError(&buf, errors.New("no task with id 9"))
	assert.Equal(t, "Error: no task with id 9\n", buf.String())
}
