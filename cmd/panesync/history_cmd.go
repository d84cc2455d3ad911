package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/panesync/panesync/internal/history"
	"github.com/panesync/panesync/internal/task"
)

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [task-id]",
		Short: "List past sync runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().IntP("limit", "n", 0, "number of runs to list")
	cmd.Flags().Bool("json", false, "emit a JSON report instead of text")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}

	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	store := history.NewStore(ws.HistoryDBPath)
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	cmd.SilenceUsage = true
	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		return showTask(out, store, args[0], asJSON)
	}

	if asJSON {
		latest, err := store.Latest()
		if err != nil {
			return err
		}
		if latest == nil {
			return fmt.Errorf("no sync history yet")
		}
		return showTask(out, store, latest.ID, true)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cfg.HistoryLimit
	}

	records, err := store.Recent(limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, gray.Render("No sync history yet."))
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s  %s  %s  %s  %s\n",
			lightGray.Render(shortID(rec.ID)),
			stateStyle(rec.State).Render(fmt.Sprintf("%-9s", rec.State)),
			fmt.Sprintf("%d/%d", rec.Completed, rec.Total),
			rec.TargetDir,
			gray.Render(humanize.Time(rec.FinishedAt)),
		)
	}
	return nil
}

func showTask(out io.Writer, store *history.Store, id string, asJSON bool) error {
	if asJSON {
		rep, err := store.Report(id)
		if err != nil {
			return err
		}
		return history.WriteReport(out, rep)
	}

	rec, err := store.Get(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("task %s not found", id)
	}
	items, err := store.Items(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s  %s\n", gray.Render("Task  "), rec.ID)
	fmt.Fprintf(out, "%s  %s\n", gray.Render("State "), stateStyle(rec.State).Render(rec.State))
	fmt.Fprintf(out, "%s  %s\n", gray.Render("Target"), rec.TargetDir)
	fmt.Fprintf(out, "%s  %s (%s)\n", gray.Render("When  "),
		rec.FinishedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(rec.FinishedAt))
	fmt.Fprintf(out, "%s  %d/%d done, %d failed\n", gray.Render("Items "),
		rec.Completed, rec.Total, rec.Failed)

	for _, it := range items {
		marker := green.Render("ok  ")
		if !it.Success {
			marker = red.Render("fail")
		}
		fmt.Fprintf(out, "  %s %s %s\n", marker, it.SourcePath, gray.Render(it.Message))
	}
	return nil
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case string(task.StateCompleted):
		return green
	case string(task.StateCancelled):
		return yellow
	default:
		return red
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
