package task

import (
	"fmt"
	"path/filepath"
)

// DryRun writes the command that would run for each item to the configured
// audit log without executing anything, and returns the rendered commands.
// Progress still flows to the host so a dry run previews the real sequence.
func DryRun(items []Item, targetDir string, cfg Config) ([]string, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if targetDir == "" {
		return nil, ErrNoTarget
	}
	if cfg.Audit == nil {
		return nil, errNoAudit
	}

	host := hostOrNop(cfg.Host)
	build := buildOrDefault(cfg)

	total := len(items)
	host.SetSize(total)

	commands := make([]string, 0, total)
	for i, item := range items {
		host.SetText(fmt.Sprintf("Copying %d of %d: %s", i+1, total, filepath.Base(item.SourcePath)))

		rendered := build(item, targetDir).String()
		if err := cfg.Audit.Command(rendered); err != nil {
			return commands, fmt.Errorf("failed to write audit log: %w", err)
		}

		commands = append(commands, rendered)
		host.SetProgress(i + 1)
	}

	return commands, nil
}
