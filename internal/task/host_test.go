package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePane struct {
	path     string
	selected []string
	reloads  int
}

func (p *fakePane) SelectedPaths() []string { return p.selected }
func (p *fakePane) Path() string            { return p.path }
func (p *fakePane) Reload() error           { p.reloads++; return nil }

type fakeWindow struct {
	panes []PaneView
}

func (w *fakeWindow) Panes() []PaneView { return w.panes }

func TestFromWindow(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))
	subDir := filepath.Join(dir, "photos")
	require.NoError(t, os.Mkdir(subDir, 0o755))

	t.Run("items and target from panes", func(t *testing.T) {
		active := &fakePane{path: dir, selected: []string{filePath, subDir}}
		target := &fakePane{path: "/dst"}
		win := &fakeWindow{panes: []PaneView{active, target}}

		items, targetDir, refresh, err := FromWindow(win)
		require.NoError(t, err)
		assert.Equal(t, "/dst", targetDir)
		require.Len(t, items, 2)
		assert.Equal(t, filePath, items[0].SourcePath)
		assert.False(t, items[0].IsDir)
		assert.Equal(t, subDir, items[1].SourcePath)
		assert.True(t, items[1].IsDir)

		require.NotNil(t, refresh)
		require.NoError(t, refresh())
		assert.Equal(t, 1, target.reloads)
		assert.Equal(t, 0, active.reloads)
	})

	t.Run("no panes", func(t *testing.T) {
		_, _, _, err := FromWindow(&fakeWindow{})
		assert.ErrorIs(t, err, ErrNoSelection)
	})

	t.Run("empty selection", func(t *testing.T) {
		win := &fakeWindow{panes: []PaneView{
			&fakePane{path: dir},
			&fakePane{path: "/dst"},
		}}
		_, _, _, err := FromWindow(win)
		assert.ErrorIs(t, err, ErrNoSelection)
	})

	t.Run("single pane has no target", func(t *testing.T) {
		win := &fakeWindow{panes: []PaneView{
			&fakePane{path: dir, selected: []string{filePath}},
		}}
		_, _, _, err := FromWindow(win)
		assert.ErrorIs(t, err, ErrNoTargetPane)
	})

	t.Run("missing selected path", func(t *testing.T) {
		win := &fakeWindow{panes: []PaneView{
			&fakePane{path: dir, selected: []string{filepath.Join(dir, "gone.txt")}},
			&fakePane{path: "/dst"},
		}}
		_, _, _, err := FromWindow(win)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gone.txt")
	})
}
