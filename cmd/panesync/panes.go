package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/panesync/panesync/internal/selection"
	"github.com/panesync/panesync/internal/task"
)

// sourcePane presents the resolved selection as the active pane of a
// two-pane window.
type sourcePane struct {
	path     string
	selected []string
}

func (p *sourcePane) SelectedPaths() []string { return p.selected }
func (p *sourcePane) Path() string            { return p.path }
func (p *sourcePane) Reload() error           { return nil }

// targetPane is the destination side. Reload rereads the directory after
// each copied item, the way a file-manager pane would.
type targetPane struct {
	path string
}

func (p *targetPane) SelectedPaths() []string { return nil }
func (p *targetPane) Path() string            { return p.path }

func (p *targetPane) Reload() error {
	entries, err := os.ReadDir(p.path)
	if err != nil {
		return fmt.Errorf("reload target pane %s: %w", p.path, err)
	}
	slog.Debug("target pane reloaded", "path", p.path, "entries", len(entries))
	return nil
}

type syncWindow struct {
	panes []task.PaneView
}

func (w *syncWindow) Panes() []task.PaneView { return w.panes }

// newSyncWindow arranges the resolved selection and the target directory as
// a dual-pane window: the selection in the active pane, the destination in
// the opposite one.
func newSyncWindow(sel *selection.Selection, targetDir string) task.WindowView {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	selected := make([]string, 0, len(sel.Items))
	for _, item := range sel.Items {
		selected = append(selected, item.SourcePath)
	}

	return &syncWindow{panes: []task.PaneView{
		&sourcePane{path: cwd, selected: selected},
		&targetPane{path: targetDir},
	}}
}
