package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/panesync/panesync/internal/task"
)

// Styles
var (
	tuiTitleStyle   = cyan.Bold(true)
	tuiSpinnerStyle = cyan
	tuiTextStyle    = lightGray
	tuiCountStyle   = green
	tuiWarnStyle    = yellow
	tuiHelpStyle    = gray
)

const maxVisibleNotices = 3

// --- Messages ---
type hostSizeMsg int
type hostTextMsg string
type hostProgressMsg int
type hostNoticeMsg string
type taskDoneMsg struct{}

// tuiHost forwards engine updates into the Bubble Tea event loop.
type tuiHost struct {
	updates chan tea.Msg
}

func newTUIHost() *tuiHost {
	return &tuiHost{updates: make(chan tea.Msg, 256)}
}

func (h *tuiHost) SetSize(n int)     { h.updates <- hostSizeMsg(n) }
func (h *tuiHost) SetText(s string)  { h.updates <- hostTextMsg(s) }
func (h *tuiHost) SetProgress(i int) { h.updates <- hostProgressMsg(i) }
func (h *tuiHost) Notify(msg string) { h.updates <- hostNoticeMsg(msg) }

// finish signals completion to the view. Must be called exactly once, after
// the last host update.
func (h *tuiHost) finish() {
	h.updates <- taskDoneMsg{}
	close(h.updates)
}

// syncModel holds the progress view state.
type syncModel struct {
	host    *tuiHost
	cancel  context.CancelFunc
	spinner spinner.Model

	target    string
	total     int
	current   int
	text      string
	notices   []string
	canceling bool
	done      bool
}

func newSyncModel(host *tuiHost, cancel context.CancelFunc, target string) syncModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = tuiSpinnerStyle

	return syncModel{
		host:    host,
		cancel:  cancel,
		spinner: s,
		target:  target,
	}
}

func (m syncModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

// waitForUpdate pumps the next engine update into the event loop.
func (m syncModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.host.updates
		if !ok {
			return taskDoneMsg{}
		}
		return msg
	}
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.done && !m.canceling {
				m.canceling = true
				m.cancel()
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case hostSizeMsg:
		m.total = int(msg)
		return m, m.waitForUpdate()

	case hostTextMsg:
		m.text = string(msg)
		return m, m.waitForUpdate()

	case hostProgressMsg:
		m.current = int(msg)
		return m, m.waitForUpdate()

	case hostNoticeMsg:
		m.notices = append(m.notices, string(msg))
		if len(m.notices) > maxVisibleNotices {
			m.notices = m.notices[len(m.notices)-maxVisibleNotices:]
		}
		return m, m.waitForUpdate()

	case taskDoneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m syncModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render("Syncing to " + m.target))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), tuiTextStyle.Render(m.text)))
	if m.total > 0 {
		b.WriteString(tuiCountStyle.Render(fmt.Sprintf("%d/%d items done", m.current, m.total)))
		b.WriteString("\n")
	}

	if len(m.notices) > 0 {
		b.WriteString("\n")
		for _, n := range m.notices {
			b.WriteString(tuiWarnStyle.Render(n))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.canceling {
		b.WriteString(tuiWarnStyle.Render("Canceling, waiting for the current item to stop..."))
	} else {
		b.WriteString(tuiHelpStyle.Render("Press 'q' or 'Esc' to cancel."))
	}
	b.WriteString("\n")

	return b.String()
}

// runSyncTUI drives run under an interactive progress view. Closing the view
// cancels the task instead of abandoning it; the returned result and error
// are the task's own.
func runSyncTUI(cancel context.CancelFunc, target string, run func(task.TaskHost) (*task.Result, error)) (*task.Result, error) {
	host := newTUIHost()
	p := tea.NewProgram(newSyncModel(host, cancel, target))

	var (
		res    *task.Result
		runErr error
	)
	go func() {
		res, runErr = run(host)
		host.finish()
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		return nil, fmt.Errorf("progress view failed: %w", err)
	}
	return res, runErr
}
