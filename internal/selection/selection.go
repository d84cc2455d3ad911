package selection

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"

	"github.com/panesync/panesync/internal/task"
)

// Selection is a resolved, deduplicated set of copy sources.
type Selection struct {
	Items      []task.Item
	Files      int
	Dirs       int
	TotalBytes uint64
	Skipped    []string
}

// Summary renders a one-line description for logs and prompts.
func (s *Selection) Summary() string {
	return fmt.Sprintf("%d items (%d dirs, %d files, %s)",
		len(s.Items), s.Dirs, s.Files, humanize.Bytes(s.TotalBytes))
}

type ResolveOptions struct {
	// Ignore drops matching paths from the selection when set.
	Ignore *IgnoreList
}

// Resolve expands the given paths and glob patterns into copy items.
// Literal paths must exist; patterns must match at least one path.
// Duplicates are dropped, first occurrence wins.
func Resolve(args []string, opts ResolveOptions) (*Selection, error) {
	if len(args) == 0 {
		return nil, task.ErrNoSelection
	}

	seen := mapset.NewSet[string]()
	sel := &Selection{}

	for _, arg := range args {
		paths, err := expand(arg)
		if err != nil {
			return nil, err
		}

		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, fmt.Errorf("resolve %q: %w", p, err)
			}
			if !seen.Add(abs) {
				continue
			}

			if opts.Ignore != nil && opts.Ignore.ShouldIgnore(abs) {
				sel.Skipped = append(sel.Skipped, abs)
				continue
			}

			info, err := os.Stat(abs)
			if err != nil {
				return nil, fmt.Errorf("stat %q: %w", p, err)
			}

			sel.Items = append(sel.Items, task.Item{SourcePath: abs, IsDir: info.IsDir()})
			if info.IsDir() {
				sel.Dirs++
			} else {
				sel.Files++
				sel.TotalBytes += uint64(info.Size())
			}
		}
	}

	if len(sel.Items) == 0 {
		return nil, fmt.Errorf("%w: all matches are ignored", task.ErrNoSelection)
	}
	return sel, nil
}

func expand(arg string) ([]string, error) {
	if !strings.ContainsAny(arg, "*?[{") {
		return []string{arg}, nil
	}

	matches, err := doublestar.FilepathGlob(arg)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pattern %q matched nothing", arg)
	}
	return matches, nil
}
