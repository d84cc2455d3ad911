// Package workspace owns the per-user panesync directory: audit logs, task
// history, configuration and the single-instance lock.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/panesync/panesync/internal/utils"
)

const (
	// DefaultDirName is the workspace directory created under the user's home.
	DefaultDirName = ".panesync"

	logsDir       = "logs"
	lockFile      = "panesync.lock"
	syncLogFile   = "sync_commands.log"
	dryRunLogFile = "sync_commands_dry_run.log"
	historyDBFile = "history.db"
	configFile    = "config.json"
	ignoreFile    = "syncignore"
	appLogFile    = "panesync.log"
)

var ErrWorkspaceLocked = errors.New("workspace locked by another process")

// Workspace resolves and owns the well-known paths of a panesync directory.
type Workspace struct {
	Root          string
	LogsDir       string
	SyncLogPath   string
	DryRunLogPath string
	HistoryDBPath string
	ConfigPath    string
	IgnorePath    string

	flock *flock.Flock
}

// DefaultRoot returns the default workspace location under the user's home.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

// New resolves rootDir and builds a Workspace around it. No directories are
// created until Setup is called.
func New(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	return &Workspace{
		Root:          root,
		LogsDir:       filepath.Join(root, logsDir),
		SyncLogPath:   filepath.Join(root, syncLogFile),
		DryRunLogPath: filepath.Join(root, dryRunLogFile),
		HistoryDBPath: filepath.Join(root, historyDBFile),
		ConfigPath:    filepath.Join(root, configFile),
		IgnorePath:    filepath.Join(root, ignoreFile),
		flock:         flock.New(filepath.Join(root, lockFile)),
	}, nil
}

// Setup creates the workspace directories and takes the instance lock.
func (w *Workspace) Setup() error {
	dirs := []string{w.Root, w.LogsDir}
	for _, dir := range dirs {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := w.Lock(); err != nil {
		return err
	}

	slog.Debug("workspace", "root", w.Root)
	return nil
}

// Lock takes the workspace lock so other panesync instances cannot run
// against the same directory (the audit log has a sequential-task contract).
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.Root); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.Root, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

// Unlock releases the instance lock and removes the lock file. Calling it on
// a workspace this process never locked is a no-op.
func (w *Workspace) Unlock() error {
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// AppLogPath is the rotating-per-run application log file (slog output, not
// the audit trail).
func (w *Workspace) AppLogPath() string {
	return filepath.Join(w.LogsDir, appLogFile)
}
