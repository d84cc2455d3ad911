package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/panesync/panesync/internal/auditlog"
	"github.com/panesync/panesync/internal/config"
	"github.com/panesync/panesync/internal/history"
	"github.com/panesync/panesync/internal/robocopy"
	"github.com/panesync/panesync/internal/selection"
	"github.com/panesync/panesync/internal/task"
	"github.com/panesync/panesync/internal/workspace"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [sources...]",
		Short: "Copy files and folders to the target directory",
		Long: `Copy the given files and folders (or the items of a sync plan) to the
target directory, one robocopy process per item. Every command, output
line and exit status is appended to the workspace audit log.`,
		PreRunE: bindCopyFlags,
		RunE:    runSync,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("target", "t", "", "target directory")
	cmd.Flags().StringP("manifest", "m", "", "sync plan file (overrides sources and target)")
	cmd.Flags().Int("threads", robocopy.DefaultThreads, "robocopy thread count")
	cmd.Flags().Bool("byte-progress", false, "byte-level progress with per-item percentages")
	cmd.Flags().Bool("no-ignore", false, "copy junk files the ignore rules would skip")
	cmd.Flags().Bool("plain", false, "plain line output instead of the interactive view")
	cmd.Flags().Bool("force", false, "run even where robocopy is unlikely to exist")
	cmd.Flags().Bool("report", false, "print a JSON report after the sync")

	return cmd
}

func bindCopyFlags(cmd *cobra.Command, args []string) error {
	viper.BindPFlag("target_dir", cmd.Flags().Lookup("target"))
	viper.BindPFlag("threads", cmd.Flags().Lookup("threads"))
	viper.BindPFlag("byte_progress", cmd.Flags().Lookup("byte-progress"))
	return nil
}

// plan is a fully resolved sync request: what to copy, where to, and how.
type plan struct {
	sel       *selection.Selection
	targetDir string
	copyOpts  robocopy.Options
}

// resolvePlan turns command arguments, flags and an optional manifest into
// a concrete plan. The manifest, when given, replaces sources and target.
func resolvePlan(cmd *cobra.Command, args []string, ws *workspace.Workspace, cfg *config.Config) (*plan, error) {
	sources := args
	targetDir := cfg.TargetDir
	copyOpts := robocopy.Options{Threads: cfg.Threads, ByteProgress: cfg.ByteProgress}

	if manifestPath, _ := cmd.Flags().GetString("manifest"); manifestPath != "" {
		mf, err := selection.LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		sources = mf.Items
		targetDir = mf.Target
		if mf.Options.Threads > 0 {
			copyOpts.Threads = mf.Options.Threads
		}
		if mf.Options.ByteProgress {
			copyOpts.ByteProgress = true
		}
	}

	if len(sources) == 0 {
		return nil, task.ErrNoSelection
	}
	if targetDir == "" {
		return nil, task.ErrNoTarget
	}

	var ignore *selection.IgnoreList
	if noIgnore, _ := cmd.Flags().GetBool("no-ignore"); !noIgnore {
		ignore = selection.NewIgnoreList(ws.Root)
		ignore.Load()
	}

	sel, err := selection.Resolve(sources, selection.ResolveOptions{Ignore: ignore})
	if err != nil {
		return nil, err
	}

	return &plan{sel: sel, targetDir: targetDir, copyOpts: copyOpts}, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}

	if runtime.GOOS != "windows" {
		if force, _ := cmd.Flags().GetBool("force"); !force {
			return fmt.Errorf("sync drives robocopy, which needs Windows; use 'dry-run' here or --force to try anyway")
		}
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
	slog.Info("sync", "selection", p.sel.Summary(), "target", p.targetDir, "threads", p.copyOpts.Threads)
	for _, skipped := range p.sel.Skipped {
		slog.Debug("sync skip", "path", skipped)
	}

	audit, err := auditlog.New(ws.SyncLogPath)
	if err != nil {
		return err
	}
	// each submission starts a fresh audit trail
	if err := audit.Reset(); err != nil {
		return err
	}

	store := history.NewStore(ws.HistoryDBPath)
	if err := store.Open(); err != nil {
		slog.Warn("history unavailable", "error", err)
		store = nil
	} else {
		defer store.Close()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// the selection and the destination form a dual-pane window; the
	// target pane's Reload runs after every copied item
	win := newSyncWindow(p.sel, p.targetDir)
	items, targetDir, refresh, err := task.FromWindow(win)
	if err != nil {
		return err
	}

	taskCfg := task.Config{Audit: audit, Copy: p.copyOpts, Refresh: refresh}

	var res *task.Result
	plain, _ := cmd.Flags().GetBool("plain")
	if !plain && isatty.IsTerminal(os.Stdout.Fd()) {
		res, err = runSyncTUI(cancel, targetDir, func(host task.TaskHost) (*task.Result, error) {
			taskCfg.Host = host
			tk, terr := task.New(items, targetDir, taskCfg)
			if terr != nil {
				return nil, terr
			}
			return tk.Run(ctx)
		})
	} else {
		taskCfg.Host = newConsoleHost(cmd.OutOrStdout())
		var tk *task.Task
		if tk, err = task.New(items, targetDir, taskCfg); err == nil {
			res, err = tk.Run(ctx)
		}
	}

	if res != nil {
		if store != nil {
			if serr := store.SaveResult(res); serr != nil {
				slog.Warn("failed to save history", "error", serr)
			}
		}

		printSummary(cmd.OutOrStdout(), res)

		if report, _ := cmd.Flags().GetBool("report"); report {
			if store == nil {
				slog.Warn("cannot build report without history")
			} else if rep, rerr := store.Report(res.TaskID); rerr != nil {
				slog.Warn("failed to build report", "error", rerr)
			} else if werr := history.WriteReport(cmd.OutOrStdout(), rep); werr != nil {
				slog.Warn("failed to write report", "error", werr)
			}
		}
	}

	if err != nil {
		return err
	}
	if res != nil && res.Failed > 0 {
		return fmt.Errorf("%d of %d items were not fully copied", res.Failed, res.Total)
	}
	return nil
}

func printSummary(w io.Writer, res *task.Result) {
	took := gray.Render(fmt.Sprintf("(%s)", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)))

	switch {
	case res.State == task.StateCancelled:
		fmt.Fprintf(w, "%s %s %s\n",
			red.Render("Sync canceled"),
			gray.Render(fmt.Sprintf("%d of %d items done", res.Completed, res.Total)),
			took)
	case res.State == task.StateFailed:
		fmt.Fprintf(w, "%s %s %s\n",
			red.Render("Sync failed"),
			gray.Render(fmt.Sprintf("%d of %d items done", res.Completed, res.Total)),
			took)
	case res.Failed > 0:
		fmt.Fprintf(w, "%s %s\n",
			yellow.Render(fmt.Sprintf("Sync finished with warnings: %d ok, %d failed", res.Completed-res.Failed, res.Failed)),
			took)
	default:
		fmt.Fprintf(w, "%s %s\n",
			green.Render(fmt.Sprintf("Sync complete: %d items copied to %s", res.Completed, res.TargetDir)),
			took)
	}
}
