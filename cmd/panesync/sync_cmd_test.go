package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panesync/panesync/internal/config"
	"github.com/panesync/panesync/internal/robocopy"
	"github.com/panesync/panesync/internal/selection"
	"github.com/panesync/panesync/internal/task"
	"github.com/panesync/panesync/internal/workspace"
)

func testWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(filepath.Join(t.TempDir(), "ws"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(ws.Root, 0o700))
	return ws
}

func TestResolvePlan_ArgsAndConfig(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	ws := testWorkspace(t)
	cfg := config.Default()
	cfg.TargetDir = "/dst"
	cfg.Threads = 16

	p, err := resolvePlan(newSyncCmd(), []string{src}, ws, cfg)
	require.NoError(t, err)
	assert.Equal(t, "/dst", p.targetDir)
	assert.Equal(t, 16, p.copyOpts.Threads)
	assert.False(t, p.copyOpts.ByteProgress)
	require.Len(t, p.sel.Items, 1)
	assert.Equal(t, src, p.sel.Items[0].SourcePath)
}

func TestResolvePlan_ManifestOverrides(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	manifestPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, selection.SaveManifest(manifestPath, &selection.Manifest{
		Target: "/manifest-dst",
		Items:  []string{src},
		Options: selection.ManifestOptions{
			Threads:      8,
			ByteProgress: true,
		},
	}))

	ws := testWorkspace(t)
	cfg := config.Default()
	cfg.TargetDir = "/flag-dst"

	cmd := newSyncCmd()
	require.NoError(t, cmd.Flags().Set("manifest", manifestPath))

	// manifest wins over args and config
	p, err := resolvePlan(cmd, []string{"/ignored"}, ws, cfg)
	require.NoError(t, err)
	assert.Equal(t, "/manifest-dst", p.targetDir)
	assert.Equal(t, 8, p.copyOpts.Threads)
	assert.True(t, p.copyOpts.ByteProgress)
	require.Len(t, p.sel.Items, 1)
}

func TestResolvePlan_Validation(t *testing.T) {
	ws := testWorkspace(t)
	cfg := config.Default()

	_, err := resolvePlan(newSyncCmd(), nil, ws, cfg)
	assert.ErrorIs(t, err, task.ErrNoSelection)

	cfg.TargetDir = ""
	_, err = resolvePlan(newSyncCmd(), []string{"/some/path"}, ws, cfg)
	assert.ErrorIs(t, err, task.ErrNoTarget)
}

func TestResolvePlan_AppliesIgnoreRules(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.txt")
	skip := filepath.Join(dir, "movie.iso")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(skip, []byte("x"), 0o644))

	ws := testWorkspace(t)
	require.NoError(t, os.WriteFile(ws.IgnorePath, []byte("*.iso\n"), 0o644))

	cfg := config.Default()
	cfg.TargetDir = "/dst"

	p, err := resolvePlan(newSyncCmd(), []string{keep, skip}, ws, cfg)
	require.NoError(t, err)
	require.Len(t, p.sel.Items, 1)
	assert.Equal(t, keep, p.sel.Items[0].SourcePath)
	assert.Equal(t, []string{skip}, p.sel.Skipped)

	// --no-ignore keeps everything
	cmd := newSyncCmd()
	require.NoError(t, cmd.Flags().Set("no-ignore", "true"))
	p, err = resolvePlan(cmd, []string{keep, skip}, ws, cfg)
	require.NoError(t, err)
	assert.Len(t, p.sel.Items, 2)
	assert.Empty(t, p.sel.Skipped)
}

func TestResolvePlan_DefaultThreads(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	ws := testWorkspace(t)
	cfg := config.Default()
	cfg.TargetDir = "/dst"

	p, err := resolvePlan(newSyncCmd(), []string{src}, ws, cfg)
	require.NoError(t, err)
	assert.Equal(t, robocopy.DefaultThreads, p.copyOpts.Threads)
}
