// Package task implements the copy task engine: a cancellable, sequential,
// progress-reporting pipeline that drives one external robocopy process per
// selected item and records every step in the audit log.
package task

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/panesync/panesync/internal/auditlog"
	"github.com/panesync/panesync/internal/robocopy"
)

var (
	// ErrAlreadyRunning is returned by Run when the task left Pending before.
	ErrAlreadyRunning = errors.New("task already running")
	// ErrTaskCanceled is the tri-state "cancelled" outcome: the task did not
	// complete normally and the host asked for it.
	ErrTaskCanceled = errors.New("task canceled")
	// ErrNoItems rejects an empty selection at construction time.
	ErrNoItems = errors.New("no items to sync")
	// ErrNoTarget rejects a missing target directory at construction time.
	ErrNoTarget = errors.New("no target directory")

	errNoAudit = errors.New("audit logger is required")
)

// State is the lifecycle of a sync task. Terminal states never transition.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Item is one selected file or directory to copy. Immutable once the task
// starts; existence at task start is the caller's responsibility.
type Item struct {
	SourcePath string
	IsDir      bool
}

// BuildFunc produces the external invocation for one item. The default wraps
// robocopy.Build; tests inject portable commands.
type BuildFunc func(item Item, targetDir string) robocopy.Command

// Config wires a task's collaborators.
type Config struct {
	// Audit receives the per-task audit trail. Required.
	Audit *auditlog.Logger
	// Host receives progress and status updates. Defaults to NopHost.
	Host TaskHost
	// Refresh is invoked after every processed item so the destination view
	// can reread its contents. Optional.
	Refresh RefreshFunc
	// Build overrides command construction. Defaults to robocopy.Build with
	// the Copy options.
	Build BuildFunc
	// Copy selects the robocopy flags. Copy.ByteProgress also enables
	// percent-line progress parsing.
	Copy robocopy.Options
}

// ItemResult records the outcome of one processed item.
type ItemResult struct {
	Item     Item
	Command  string
	ExitCode int
	Success  bool
	Message  string
	Stderr   string
}

// Result is the outcome of a task run. State is one of Completed, Cancelled
// or Failed; Items holds one entry per item that ran to a classified exit.
type Result struct {
	TaskID     string
	State      State
	TargetDir  string
	Total      int
	Completed  int
	Failed     int
	Items      []ItemResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// New constructs a task in StatePending. The item order is preserved exactly
// through execution.
func New(items []Item, targetDir string, cfg Config) (*Task, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if targetDir == "" {
		return nil, ErrNoTarget
	}
	if cfg.Audit == nil {
		return nil, errNoAudit
	}

	return &Task{
		id:        uuid.NewString(),
		items:     items,
		targetDir: targetDir,
		audit:     cfg.Audit,
		host:      hostOrNop(cfg.Host),
		refresh:   cfg.Refresh,
		build:     buildOrDefault(cfg),
		copyOpts:  cfg.Copy,
		state:     StatePending,
	}, nil
}

func hostOrNop(h TaskHost) TaskHost {
	if h == nil {
		return NopHost{}
	}
	return h
}

func buildOrDefault(cfg Config) BuildFunc {
	if cfg.Build != nil {
		return cfg.Build
	}
	opts := cfg.Copy
	return func(item Item, targetDir string) robocopy.Command {
		return robocopy.Build(item.SourcePath, item.IsDir, targetDir, opts)
	}
}
