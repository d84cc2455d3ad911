package main

import (
	"fmt"
	"io"
)

// consoleHost renders task updates as plain lines, one per update, for
// non-interactive terminals and piped output.
type consoleHost struct {
	out   io.Writer
	total int
}

func newConsoleHost(out io.Writer) *consoleHost {
	return &consoleHost{out: out}
}

func (h *consoleHost) SetSize(n int) {
	h.total = n
	fmt.Fprintln(h.out, gray.Render(fmt.Sprintf("Syncing %d items", n)))
}

func (h *consoleHost) SetText(s string) {
	fmt.Fprintln(h.out, s)
}

func (h *consoleHost) SetProgress(i int) {
	fmt.Fprintln(h.out, green.Render(fmt.Sprintf("[%d/%d] done", i, h.total)))
}

func (h *consoleHost) Notify(msg string) {
	fmt.Fprintln(h.out, yellow.Render(msg))
}
