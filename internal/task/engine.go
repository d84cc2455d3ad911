package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/panesync/panesync/internal/auditlog"
	"github.com/panesync/panesync/internal/robocopy"
)

// Task owns one sync run: an ordered list of items copied sequentially into a
// single target directory, one external process at a time. A Task runs at
// most once.
type Task struct {
	id        string
	items     []Item
	targetDir string

	audit    *auditlog.Logger
	host     TaskHost
	refresh  RefreshFunc
	build    BuildFunc
	copyOpts robocopy.Options

	mu             sync.RWMutex
	state          State
	currentIndex   int
	completedCount int
}

// ID returns the task's unique identifier.
func (t *Task) ID() string { return t.id }

// TargetDir returns the destination directory.
func (t *Task) TargetDir() string { return t.targetDir }

// TotalCount returns the number of items in the task.
func (t *Task) TotalCount() int { return len(t.items) }

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// CurrentIndex returns the index of the item being processed.
func (t *Task) CurrentIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentIndex
}

// CompletedCount returns how many items have been processed so far. It only
// ever increases.
func (t *Task) CompletedCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completedCount
}

// Run executes the task. It blocks until a terminal state is reached and
// returns the Result. The error is nil for StateCompleted (even when some
// items had unsuccessful verdicts), ErrTaskCanceled for StateCancelled, and
// the fatal cause for StateFailed. Cancellation is requested by cancelling
// ctx and is observed cooperatively at the engine's poll points.
func (t *Task) Run(ctx context.Context) (*Result, error) {
	if !t.transition(StatePending, StateRunning) {
		return nil, ErrAlreadyRunning
	}

	res := &Result{
		TaskID:    t.id,
		TargetDir: t.targetDir,
		Total:     len(t.items),
		StartedAt: time.Now(),
		Items:     make([]ItemResult, 0, len(t.items)),
	}

	err := t.run(ctx, res)

	res.FinishedAt = time.Now()
	res.Completed = t.CompletedCount()

	switch {
	case err == nil:
		t.setState(StateCompleted)
		res.State = StateCompleted
	case errors.Is(err, ErrTaskCanceled):
		t.setState(StateCancelled)
		res.State = StateCancelled
	default:
		t.setState(StateFailed)
		res.State = StateFailed
	}

	return res, err
}

func (t *Task) run(ctx context.Context, res *Result) error {
	total := len(t.items)
	t.host.SetSize(total)

	slog.Info("sync task started", "task", t.id, "items", total, "target", t.targetDir)

	for i, item := range t.items {
		if ctx.Err() != nil {
			return t.onCancel()
		}
		t.setCurrent(i)

		name := filepath.Base(item.SourcePath)
		label := fmt.Sprintf("Copying %d of %d: %s", i+1, total, name)
		t.host.SetText(label)

		cmd := t.build(item, t.targetDir)
		if err := t.audit.Command(cmd.String()); err != nil {
			return t.onFatal(fmt.Errorf("failed to write audit log: %w", err))
		}

		itemRes, err := t.runItem(ctx, cmd, label)
		switch {
		case errors.Is(err, ErrTaskCanceled):
			return t.onCancel()
		case err != nil:
			return t.onFatal(err)
		}

		itemRes.Item = item
		res.Items = append(res.Items, *itemRes)

		if !itemRes.Success {
			res.Failed++
			t.host.Notify(fmt.Sprintf("Warning: %s: %s", name, itemRes.Message))
			slog.Warn("item copy unsuccessful", "task", t.id, "file", name, "code", itemRes.ExitCode)
		}

		t.advance()
		t.host.SetProgress(i + 1)

		if err := t.safeRefresh(); err != nil {
			if aerr := t.audit.Error("refresh failed: " + err.Error()); aerr != nil {
				slog.Error("failed to write audit log", "task", t.id, "error", aerr)
			}
			slog.Warn("refresh callback failed", "task", t.id, "error", err)
		}
	}

	slog.Info("sync task completed", "task", t.id, "items", total, "failed", res.Failed)
	return nil
}

// runItem spawns the copy process for one item and follows it to a classified
// exit. It returns ErrTaskCanceled when cancellation was observed at a poll
// point; the in-flight process is stopped before returning.
func (t *Task) runItem(ctx context.Context, cmd robocopy.Command, label string) (*ItemResult, error) {
	proc, err := startCopyProcess(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn copy process: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			proc.Stop()
			return nil, ErrTaskCanceled
		case line, ok := <-proc.Lines():
			if !ok {
				return t.finishItem(ctx, cmd, proc)
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := t.audit.Output(line); err != nil {
				proc.Stop()
				return nil, fmt.Errorf("failed to write audit log: %w", err)
			}
			if t.copyOpts.ByteProgress && strings.Contains(line, "%") {
				t.host.SetText(label + " (" + line + ")")
			}
		}
	}
}

// finishItem reaps the exited process and classifies its exit code.
func (t *Task) finishItem(ctx context.Context, cmd robocopy.Command, proc *copyProcess) (*ItemResult, error) {
	code, err := proc.Wait()
	if err != nil {
		return nil, fmt.Errorf("copy process failed: %w", err)
	}

	// A cancellation that raced the process exit still wins.
	if ctx.Err() != nil {
		return nil, ErrTaskCanceled
	}

	verdict := robocopy.Classify(code)
	if err := t.audit.Completion(verdict.Code, verdict.Message); err != nil {
		return nil, fmt.Errorf("failed to write audit log: %w", err)
	}

	stderr := proc.Stderr()
	if stderr != "" {
		if err := t.audit.Error(stderr); err != nil {
			return nil, fmt.Errorf("failed to write audit log: %w", err)
		}
	}

	return &ItemResult{
		Command:  cmd.String(),
		ExitCode: verdict.Code,
		Success:  verdict.Success,
		Message:  verdict.Message,
		Stderr:   stderr,
	}, nil
}

// onCancel records the cancellation and surfaces it to the host. Any
// in-flight process is already stopped by the time this runs.
func (t *Task) onCancel() error {
	if err := t.audit.Cancelled(); err != nil {
		slog.Error("failed to log cancellation", "task", t.id, "error", err)
	}
	t.host.Notify("Sync canceled")
	slog.Info("sync task canceled", "task", t.id, "completed", t.CompletedCount())
	return ErrTaskCanceled
}

// onFatal records an unexpected error and propagates it.
func (t *Task) onFatal(err error) error {
	if aerr := t.audit.Error(err.Error()); aerr != nil {
		slog.Error("failed to log task error", "task", t.id, "error", aerr)
	}
	slog.Error("sync task failed", "task", t.id, "error", err)
	return err
}

// safeRefresh invokes the refresh callback, converting a panic into an error
// so a misbehaving host cannot corrupt the task loop.
func (t *Task) safeRefresh() (err error) {
	if t.refresh == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh callback panic: %v", r)
		}
	}()
	return t.refresh()
}

func (t *Task) transition(from, to State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != from {
		return false
	}
	t.state = to
	return true
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Task) setCurrent(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentIndex = index
}

func (t *Task) advance() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedCount++
}
