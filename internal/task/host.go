package task

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoSelection means the source pane had nothing selected.
	ErrNoSelection = errors.New("no items selected")
	// ErrNoTargetPane means the window had no second pane to copy into.
	ErrNoTargetPane = errors.New("no other pane available")
)

// TaskHost receives progress and status updates from a running task. All
// calls arrive from the task goroutine; implementations forward them to
// whatever surface the host owns. Cancellation flows the other way: the host
// cancels the context passed to Run, and the engine observes it at its poll
// points.
type TaskHost interface {
	// SetSize announces the total number of items before the first copy.
	SetSize(n int)
	// SetText publishes the current progress line, e.g. "Copying 2 of 5: a.txt".
	SetText(s string)
	// SetProgress reports how many items have been processed so far.
	SetProgress(i int)
	// Notify publishes a transient status message (warnings, "Sync canceled").
	Notify(msg string)
}

// NopHost discards all updates.
type NopHost struct{}

func (NopHost) SetSize(int)     {}
func (NopHost) SetText(string)  {}
func (NopHost) SetProgress(int) {}
func (NopHost) Notify(string)   {}

// RefreshFunc signals the destination view to reread its contents after each
// processed item.
type RefreshFunc func() error

// PaneView is one file pane of the hosting application.
type PaneView interface {
	// SelectedPaths returns the absolute paths currently selected in the pane.
	SelectedPaths() []string
	// Path returns the directory the pane is showing.
	Path() string
	// Reload makes the pane reread its directory.
	Reload() error
}

// WindowView exposes the panes of the hosting window, active pane first.
type WindowView interface {
	Panes() []PaneView
}

// FromWindow derives a task's inputs from a dual-pane window: the selection
// comes from the active pane, the target directory and refresh callback from
// the opposite one. Selected paths are stat'ed to distinguish files from
// directories.
func FromWindow(win WindowView) ([]Item, string, RefreshFunc, error) {
	panes := win.Panes()
	if len(panes) == 0 {
		return nil, "", nil, ErrNoSelection
	}

	selected := panes[0].SelectedPaths()
	if len(selected) == 0 {
		return nil, "", nil, ErrNoSelection
	}

	if len(panes) < 2 {
		return nil, "", nil, ErrNoTargetPane
	}
	target := panes[1]

	items := make([]Item, 0, len(selected))
	for _, path := range selected {
		info, err := os.Stat(path)
		if err != nil {
			return nil, "", nil, fmt.Errorf("selected path %s: %w", path, err)
		}
		items = append(items, Item{SourcePath: path, IsDir: info.IsDir()})
	}

	return items, target.Path(), target.Reload, nil
}
