package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panesync/panesync/internal/auditlog"
	"github.com/panesync/panesync/internal/robocopy"
	"github.com/panesync/panesync/internal/selection"
	"github.com/panesync/panesync/internal/task"
)

func init() {
	rootCmd.AddCommand(newDryRunCmd())
}

func newDryRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dry-run [sources...]",
		Aliases: []string{"dryrun"},
		Short:   "Preview the robocopy commands without executing anything",
		Long: `Resolve the selection and print the robocopy command for every item.
Commands are appended to the dry-run audit log; no process is spawned
and nothing is copied.`,
		PreRunE: bindCopyFlags,
		RunE:    runDryRun,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("target", "t", "", "target directory")
	cmd.Flags().StringP("manifest", "m", "", "sync plan file (overrides sources and target)")
	cmd.Flags().Int("threads", robocopy.DefaultThreads, "robocopy thread count")
	cmd.Flags().Bool("byte-progress", false, "byte-level progress flags")
	cmd.Flags().Bool("no-ignore", false, "include junk files the ignore rules would skip")
	cmd.Flags().String("save-manifest", "", "write the resolved plan to this file")

	return cmd
}

func runDryRun(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	if err := ws.Setup(); err != nil {
		return err
	}
	defer ws.Unlock()

	p, err := resolvePlan(cmd, args, ws, cfg)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true
	out := cmd.OutOrStdout()

	audit, err := auditlog.New(ws.DryRunLogPath)
	if err != nil {
		return err
	}
	if err := audit.Reset(); err != nil {
		return err
	}

	commands, err := task.DryRun(p.sel.Items, p.targetDir, task.Config{Audit: audit, Copy: p.copyOpts})
	if err != nil {
		return err
	}

	for _, c := range commands {
		fmt.Fprintln(out, cyan.Render(c))
	}
	fmt.Fprintln(out, gray.Render(fmt.Sprintf("%d commands logged to %s", len(commands), ws.DryRunLogPath)))

	if savePath, _ := cmd.Flags().GetString("save-manifest"); savePath != "" {
		items := make([]string, 0, len(p.sel.Items))
		for _, item := range p.sel.Items {
			items = append(items, item.SourcePath)
		}
		mf := &selection.Manifest{
			Target: p.targetDir,
			Items:  items,
			Options: selection.ManifestOptions{
				ByteProgress: p.copyOpts.ByteProgress,
			},
		}
		if p.copyOpts.Threads != robocopy.DefaultThreads {
			mf.Options.Threads = p.copyOpts.Threads
		}
		if err := selection.SaveManifest(savePath, mf); err != nil {
			return fmt.Errorf("save manifest: %w", err)
		}
		fmt.Fprintln(out, green.Render("Plan saved to "+savePath))
	}

	return nil
}
