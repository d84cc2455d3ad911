package task

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/panesync/panesync/internal/auditlog"
)

// recordingHost captures every update a task publishes.
type recordingHost struct {
	mu       sync.Mutex
	sizes    []int
	texts    []string
	progress []int
	notices  []string
	onText   func(string)
}

func (h *recordingHost) SetSize(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sizes = append(h.sizes, n)
}

func (h *recordingHost) SetText(s string) {
	h.mu.Lock()
	h.texts = append(h.texts, s)
	cb := h.onText
	h.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

func (h *recordingHost) SetProgress(i int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress = append(h.progress, i)
}

func (h *recordingHost) Notify(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, msg)
}

func (h *recordingHost) snapshot() (sizes, progress []int, texts, notices []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.sizes...), append([]int(nil), h.progress...),
		append([]string(nil), h.texts...), append([]string(nil), h.notices...)
}

func newTestAudit(t *testing.T) *auditlog.Logger {
	t.Helper()
	logger, err := auditlog.New(filepath.Join(t.TempDir(), "sync_commands.log"))
	require.NoError(t, err)
	return logger
}

func auditLines(t *testing.T, logger *auditlog.Logger) []string {
	t.Helper()
	data, err := os.ReadFile(logger.Path())
	require.NoError(t, err)
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
