// Package auditlog persists the per-task audit trail: one timestamped line
// per command issued, output line observed, completion, error or
// cancellation. This is the compatibility-critical artifact consumed by
// external tooling, distinct from the application's slog output.
package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// TimestampLayout is the line-prefix timestamp format, local time.
	TimestampLayout = "2006-01-02 15:04:05"

	LogFilePermission = 0600
	LogDirPermission  = 0700
)

// Kind identifies what produced a record.
type Kind string

const (
	KindCommand    Kind = "command"
	KindOutput     Kind = "output"
	KindCompletion Kind = "completion"
	KindError      Kind = "error"
	KindCancelled  Kind = "cancelled"
)

// Record is a single audit event.
type Record struct {
	Time    time.Time
	Kind    Kind
	Payload string
}

// String renders the persisted line format: `[YYYY-MM-DD HH:MM:SS] <payload>`.
func (r Record) String() string {
	return fmt.Sprintf("[%s] %s", r.Time.Format(TimestampLayout), r.Payload)
}

// Logger appends records to a single log file. It never holds the file open
// across records: every append opens, writes one line and closes, so a crash
// mid-task leaves a valid log. Writes are not synchronized; the task engine's
// sequential execution is the serialization (one task per workspace).
type Logger struct {
	path string
}

// New creates a Logger for path and ensures the log directory exists.
func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), LogDirPermission); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Logger{path: path}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Reset removes any previous log file and recreates it empty, so the log
// reflects only the upcoming task. Called once per task submission.
func (l *Logger) Reset() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove previous log: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY, LogFilePermission)
	if err != nil {
		return fmt.Errorf("failed to recreate log: %w", err)
	}
	return f.Close()
}

// Append writes one record as a single line and closes the file again.
func (l *Logger) Append(rec Record) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, LogFilePermission)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, rec.String()); err != nil {
		return fmt.Errorf("failed to append to log: %w", err)
	}
	return nil
}

// Command records the human-readable command line about to be executed.
func (l *Logger) Command(cmd string) error {
	return l.Append(Record{Time: time.Now(), Kind: KindCommand, Payload: cmd})
}

// Output records one line of process output.
func (l *Logger) Output(line string) error {
	return l.Append(Record{Time: time.Now(), Kind: KindOutput, Payload: line})
}

// Completion records a classified process exit.
func (l *Logger) Completion(code int, message string) error {
	payload := fmt.Sprintf("Exit Code: %d (%s)", code, message)
	return l.Append(Record{Time: time.Now(), Kind: KindCompletion, Payload: payload})
}

// Error records an error event.
func (l *Logger) Error(text string) error {
	return l.Append(Record{Time: time.Now(), Kind: KindError, Payload: "Error: " + text})
}

// Cancelled records a user cancellation.
func (l *Logger) Cancelled() error {
	return l.Append(Record{Time: time.Now(), Kind: KindCancelled, Payload: "Task canceled by user"})
}
