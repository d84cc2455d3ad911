// Package history persists completed task runs to a local SQLite database
// so past syncs can be listed, inspected and exported.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/panesync/panesync/internal/db"
	"github.com/panesync/panesync/internal/task"
	"github.com/panesync/panesync/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_history (
    id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    target_dir TEXT NOT NULL,
    total INTEGER NOT NULL,
    completed INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    machine_id TEXT NOT NULL,
    started_at TEXT NOT NULL, -- Store as RFC3339 string
    finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item_history (
    task_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    source_path TEXT NOT NULL,
    is_dir INTEGER NOT NULL,
    command TEXT NOT NULL,
    exit_code INTEGER NOT NULL,
    success INTEGER NOT NULL,
    message TEXT NOT NULL,
    stderr TEXT NOT NULL,
    PRIMARY KEY (task_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_task_history_started ON task_history(started_at);
`

// TaskRecord is one stored task run.
type TaskRecord struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	TargetDir  string    `json:"target_dir"`
	Total      int       `json:"total"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	MachineID  string    `json:"machine_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ItemRecord is one stored item outcome within a task.
type ItemRecord struct {
	TaskID     string `json:"-" db:"task_id"`
	Seq        int    `json:"seq" db:"seq"`
	SourcePath string `json:"source_path" db:"source_path"`
	IsDir      bool   `json:"is_dir" db:"is_dir"`
	Command    string `json:"command" db:"command"`
	ExitCode   int    `json:"exit_code" db:"exit_code"`
	Success    bool   `json:"success" db:"success"`
	Message    string `json:"message" db:"message"`
	Stderr     string `json:"stderr,omitempty" db:"stderr"`
}

// dbTaskRow is used for scanning from the database where time is stored as TEXT.
type dbTaskRow struct {
	ID         string `db:"id"`
	State      string `db:"state"`
	TargetDir  string `db:"target_dir"`
	Total      int    `db:"total"`
	Completed  int    `db:"completed"`
	Failed     int    `db:"failed"`
	MachineID  string `db:"machine_id"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
}

func (r *dbTaskRow) toRecord() (*TaskRecord, error) {
	startedAt, err := time.Parse(time.RFC3339, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for %s: %w", r.ID, err)
	}
	finishedAt, err := time.Parse(time.RFC3339, r.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finished_at for %s: %w", r.ID, err)
	}
	return &TaskRecord{
		ID:         r.ID,
		State:      r.State,
		TargetDir:  r.TargetDir,
		Total:      r.Total,
		Completed:  r.Completed,
		Failed:     r.Failed,
		MachineID:  r.MachineID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}, nil
}

// Store manages the persistent task history using SQLite.
type Store struct {
	db     *sqlx.DB
	dbPath string
}

// NewStore creates a Store backed by an SQLite database at dbPath.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Open the store and the underlying database.
func (s *Store) Open() error {
	if s.db != nil {
		return fmt.Errorf("history store already open")
	}

	dbDir := filepath.Dir(s.dbPath)
	if err := utils.EnsureDir(dbDir); err != nil {
		return fmt.Errorf("failed to create history directory %s: %w", dbDir, err)
	}

	sdb, err := db.NewSqliteDB(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}

	if _, err := sdb.Exec(schema); err != nil {
		sdb.Close()
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}

	s.db = sdb
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return fmt.Errorf("history store not open")
	}
	if err := s.db.Close(); err != nil {
		slog.Error("Failed to close history database", "error", err)
		return err
	}
	slog.Debug("history store closed")
	return nil
}

// SaveResult stores a finished task run and all of its item outcomes.
func (s *Store) SaveResult(res *task.Result) error {
	if res == nil {
		return fmt.Errorf("cannot save nil result")
	}

	row := dbTaskRow{
		ID:         res.TaskID,
		State:      string(res.State),
		TargetDir:  res.TargetDir,
		Total:      res.Total,
		Completed:  res.Completed,
		Failed:     res.Failed,
		MachineID:  utils.HWID,
		StartedAt:  res.StartedAt.Format(time.RFC3339),
		FinishedAt: res.FinishedAt.Format(time.RFC3339),
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT OR REPLACE INTO task_history
	          (id, state, target_dir, total, completed, failed, machine_id, started_at, finished_at)
	          VALUES (:id, :state, :target_dir, :total, :completed, :failed, :machine_id, :started_at, :finished_at)`
	if _, err := tx.NamedExec(query, row); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save task %s: %w", res.TaskID, err)
	}

	stmt, err := tx.Preparex(
		`INSERT OR REPLACE INTO item_history
		 (task_id, seq, source_path, is_dir, command, exit_code, success, message, stderr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare item statement: %w", err)
	}

	for i, item := range res.Items {
		_, err := stmt.Exec(res.TaskID, i+1, item.Item.SourcePath, item.Item.IsDir,
			item.Command, item.ExitCode, item.Success, item.Message, item.Stderr)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save item %s: %w", item.Item.SourcePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task %s: %w", res.TaskID, err)
	}

	slog.Debug("history saved", "task", res.TaskID, "items", len(res.Items))
	return nil
}

// Get retrieves a single task run. Returns nil when the id is unknown.
func (s *Store) Get(id string) (*TaskRecord, error) {
	var row dbTaskRow
	err := s.db.Get(&row,
		`SELECT id, state, target_dir, total, completed, failed, machine_id, started_at, finished_at
		 FROM task_history WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query task %s: %w", id, err)
	}
	return row.toRecord()
}

// Latest retrieves the most recently finished task run. Returns nil when
// the history is empty.
func (s *Store) Latest() (*TaskRecord, error) {
	var row dbTaskRow
	err := s.db.Get(&row,
		`SELECT id, state, target_dir, total, completed, failed, machine_id, started_at, finished_at
		 FROM task_history ORDER BY started_at DESC, id DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest task: %w", err)
	}
	return row.toRecord()
}

// Recent retrieves up to limit task runs, newest first.
func (s *Store) Recent(limit int) ([]*TaskRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []dbTaskRow
	err := s.db.Select(&rows,
		`SELECT id, state, target_dir, total, completed, failed, machine_id, started_at, finished_at
		 FROM task_history ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tasks: %w", err)
	}

	records := make([]*TaskRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			slog.Error("Skipping history row with bad timestamp", "task", rows[i].ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Items retrieves the stored item outcomes of one task in execution order.
func (s *Store) Items(taskID string) ([]ItemRecord, error) {
	var items []ItemRecord
	err := s.db.Select(&items,
		`SELECT task_id, seq, source_path, is_dir, command, exit_code, success, message, stderr
		 FROM item_history WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for task %s: %w", taskID, err)
	}
	return items, nil
}

// Count returns the number of stored task runs.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.Get(&count, "SELECT COUNT(*) FROM task_history")
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}
