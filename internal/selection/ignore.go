package selection

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/panesync/panesync/internal/utils"
)

const ignoreFileName = "syncignore"

var defaultIgnoreLines = []string{
	// panesync
	ignoreFileName,
	// partial downloads and editor droppings
	"*.tmp",
	"*.crdownload",
	"*.partial",
	"~$*",
	// OS junk
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// IgnoreList filters selected paths through gitignore-style rules. The
// defaults cover OS junk files; a syncignore file in baseDir appends
// custom rules.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	return &IgnoreList{baseDir: baseDir}
}

func (s *IgnoreList) Load() {
	lines := append([]string(nil), defaultIgnoreLines...)

	ignorePath := filepath.Join(s.baseDir, ignoreFileName)
	if utils.FileExists(ignorePath) {
		custom, err := readIgnoreFile(ignorePath)
		if err != nil {
			slog.Warn("Failed to read syncignore file", "path", ignorePath, "error", err)
		} else {
			slog.Info("Loaded syncignore file", "path", ignorePath, "rules", len(custom))
			lines = append(lines, custom...)
		}
	}

	s.ignore = gitignore.CompileIgnoreLines(lines...)
}

func (s *IgnoreList) ShouldIgnore(path string) bool {
	if s.ignore == nil {
		return false
	}
	return s.ignore.MatchesPath(path)
}

// readIgnoreFile returns the non-empty lines of a syncignore file. Comment
// handling is left to the gitignore compiler.
func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
