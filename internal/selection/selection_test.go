package selection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panesync/panesync/internal/task"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestResolve_LiteralsAndGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), 10)
	writeFile(t, filepath.Join(dir, "b.txt"), 20)
	writeFile(t, filepath.Join(dir, "nested", "c.txt"), 30)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "photos"), 0o755))

	sel, err := Resolve([]string{
		filepath.Join(dir, "photos"),
		filepath.Join(dir, "**", "*.txt"),
	}, ResolveOptions{})
	require.NoError(t, err)

	require.Len(t, sel.Items, 4)
	assert.Equal(t, 1, sel.Dirs)
	assert.Equal(t, 3, sel.Files)
	assert.Equal(t, uint64(60), sel.TotalBytes)

	assert.Equal(t, filepath.Join(dir, "photos"), sel.Items[0].SourcePath)
	assert.True(t, sel.Items[0].IsDir)
	for _, item := range sel.Items[1:] {
		assert.False(t, item.IsDir)
	}

	assert.Contains(t, sel.Summary(), "4 items")
}

func TestResolve_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, 5)

	sel, err := Resolve([]string{path, path, filepath.Join(dir, "*.txt")}, ResolveOptions{})
	require.NoError(t, err)
	assert.Len(t, sel.Items, 1)
	assert.Equal(t, uint64(5), sel.TotalBytes)
}

func TestResolve_IgnoreSkips(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.txt"), 1)
	writeFile(t, filepath.Join(dir, ".DS_Store"), 1)

	ignore := NewIgnoreList(dir)
	ignore.Load()

	sel, err := Resolve([]string{filepath.Join(dir, "*")}, ResolveOptions{Ignore: ignore})
	require.NoError(t, err)
	require.Len(t, sel.Items, 1)
	assert.Equal(t, filepath.Join(dir, "keep.txt"), sel.Items[0].SourcePath)
	require.Len(t, sel.Skipped, 1)
	assert.Equal(t, filepath.Join(dir, ".DS_Store"), sel.Skipped[0])
}

func TestResolve_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Resolve(nil, ResolveOptions{})
	assert.ErrorIs(t, err, task.ErrNoSelection)

	_, err = Resolve([]string{filepath.Join(dir, "missing.txt")}, ResolveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")

	_, err = Resolve([]string{filepath.Join(dir, "*.doc")}, ResolveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched nothing")
}

func TestResolve_AllIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "junk.tmp"), 1)

	ignore := NewIgnoreList(dir)
	ignore.Load()

	_, err := Resolve([]string{filepath.Join(dir, "junk.tmp")}, ResolveOptions{Ignore: ignore})
	assert.ErrorIs(t, err, task.ErrNoSelection)
}
