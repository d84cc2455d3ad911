package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panesync/panesync/internal/workspace"
)

func TestSetupLogging_UsesWorkspacePath(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	// a non-default workspace root must receive the application log
	root := filepath.Join(t.TempDir(), "custom-ws")
	ws, err := workspace.New(root)
	require.NoError(t, err)

	closer, err := setupLogging(ws)
	require.NoError(t, err)

	slog.Info("logging into the chosen workspace")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(ws.AppLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "logging into the chosen workspace")
	assert.Equal(t, filepath.Join(root, "logs"), filepath.Dir(ws.AppLogPath()))
}

func TestSetupLogging_TruncatesPerRun(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	ws, err := workspace.New(filepath.Join(t.TempDir(), "ws"))
	require.NoError(t, err)

	closer, err := setupLogging(ws)
	require.NoError(t, err)
	slog.Info("first run entry")
	require.NoError(t, closer.Close())

	closer, err = setupLogging(ws)
	require.NoError(t, err)
	slog.Info("second run entry")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(ws.AppLogPath())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "first run entry")
	assert.Contains(t, string(data), "second run entry")
}
