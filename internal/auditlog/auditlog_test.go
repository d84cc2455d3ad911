package auditlog

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linePattern = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] .+$`)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func TestRecordString(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	rec := Record{Time: ts, Kind: KindCommand, Payload: "robocopy a b /e"}
	assert.Equal(t, "[2026-03-14 09:26:53] robocopy a b /e", rec.String())
}

func TestNew_CreatesLogDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sync_commands.log")

	_, err := New(path)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(path))
}

func TestAppend_OneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_commands.log")
	logger, err := New(path)
	require.NoError(t, err)

	require.NoError(t, logger.Command(`robocopy "/a/b" "/c/b" /e /mt:32`))
	require.NoError(t, logger.Output("  12%  some-file.bin"))
	require.NoError(t, logger.Completion(1, "files copied"))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Regexp(t, linePattern, line)
	}
	assert.Contains(t, lines[0], `robocopy "/a/b" "/c/b" /e /mt:32`)
	assert.Contains(t, lines[1], "12%")
	assert.Contains(t, lines[2], "Exit Code: 1 (files copied)")
}

func TestAppend_NoPersistentHandle(t *testing.T) {
	// Two independent loggers appending to the same path must interleave
	// cleanly because neither keeps the file open between records.
	path := filepath.Join(t.TempDir(), "sync_commands.log")

	first, err := New(path)
	require.NoError(t, err)
	second, err := New(path)
	require.NoError(t, err)

	require.NoError(t, first.Command("cmd one"))
	require.NoError(t, second.Command("cmd two"))
	require.NoError(t, first.Command("cmd three"))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "cmd one")
	assert.Contains(t, lines[1], "cmd two")
	assert.Contains(t, lines[2], "cmd three")
}

func TestReset_TruncatesPreviousTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_commands.log")
	logger, err := New(path)
	require.NoError(t, err)

	require.NoError(t, logger.Command("task one command"))
	require.NoError(t, logger.Completion(0, "nothing copied"))
	require.NotEmpty(t, readLines(t, path))

	require.NoError(t, logger.Reset())
	assert.FileExists(t, path)
	assert.Empty(t, readLines(t, path))

	require.NoError(t, logger.Command("task two command"))
	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "task one")
}

func TestReset_NoPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_commands.log")
	logger, err := New(path)
	require.NoError(t, err)

	require.NoError(t, logger.Reset())
	assert.FileExists(t, path)
}

func TestPayloadShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_commands.log")
	logger, err := New(path)
	require.NoError(t, err)

	require.NoError(t, logger.Error("boom"))
	require.NoError(t, logger.Cancelled())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "Error: boom"))
	assert.True(t, strings.HasSuffix(lines[1], "Task canceled by user"))
}
