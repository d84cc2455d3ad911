package task

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"

	"github.com/panesync/panesync/internal/robocopy"
)

const (
	// killGraceTimeout is how long a terminated process tree gets to clean up
	// before surviving processes are killed outright.
	killGraceTimeout = 3 * time.Second

	// maxOutputLine bounds a single line of process output.
	maxOutputLine = 1024 * 1024
)

type processExit struct {
	code int
	err  error
}

// copyProcess wraps one external copy invocation: line-streamed stdout,
// buffered stderr, and forced termination of the whole process tree. The
// handle is owned by exactly one loop iteration and must be reaped (Wait) or
// stopped before the next item starts.
type copyProcess struct {
	cmd      *exec.Cmd
	procInfo *process.Process

	lines chan string
	exit  chan processExit
	done  chan struct{}

	killed   chan struct{}
	killOnce sync.Once

	stderrBuf bytes.Buffer
}

// startCopyProcess spawns the command with stdout/stderr captured as text
// and no console window.
func startCopyProcess(cmd robocopy.Command) (*copyProcess, error) {
	proc := exec.Command(cmd.Path, cmd.Args...)
	proc.SysProcAttr = getSysProcAttr()
	proc.Stdin = nil

	stdout, err := proc.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("start process: %w", err)
	}

	p := &copyProcess{
		cmd:    proc,
		lines:  make(chan string, 64),
		exit:   make(chan processExit, 1),
		done:   make(chan struct{}),
		killed: make(chan struct{}),
	}

	// Needed for tree termination; a nil procInfo falls back to killing just
	// the direct child.
	if info, err := process.NewProcess(int32(proc.Process.Pid)); err == nil {
		p.procInfo = info
	}

	pumps := &errgroup.Group{}
	pumps.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
		for scanner.Scan() {
			select {
			case p.lines <- scanner.Text():
			case <-p.killed:
				// nobody is reading anymore; drop the rest
			}
		}
		return scanner.Err()
	})
	pumps.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
		for scanner.Scan() {
			p.stderrBuf.WriteString(scanner.Text())
			p.stderrBuf.WriteByte('\n')
		}
		return scanner.Err()
	})

	go p.monitor(pumps)

	return p, nil
}

// monitor reaps the process once both pipes are drained and publishes the
// exit code. A nonzero exit is data for the classifier, not an error.
func (p *copyProcess) monitor(pumps *errgroup.Group) {
	pumpErr := pumps.Wait()
	err := p.cmd.Wait()
	close(p.lines)

	code := p.cmd.ProcessState.ExitCode()
	var exitErr *exec.ExitError
	if err != nil && errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
		err = nil
	}
	if err == nil {
		err = pumpErr
	}

	p.exit <- processExit{code: code, err: err}
	close(p.done)
}

// Lines streams raw stdout lines; the channel closes once the process has
// exited and no more output remains.
func (p *copyProcess) Lines() <-chan string {
	return p.lines
}

// Wait blocks until the process is fully reaped and returns its exit code.
func (p *copyProcess) Wait() (int, error) {
	ex := <-p.exit
	return ex.code, ex.err
}

// Stderr returns everything the process wrote to stderr. Valid after Wait or
// Stop returned.
func (p *copyProcess) Stderr() string {
	return strings.TrimSpace(p.stderrBuf.String())
}

// Stop terminates the process and all its children and blocks until the
// process is reaped. Safe to call on an already-exited process.
func (p *copyProcess) Stop() {
	p.killOnce.Do(func() { close(p.killed) })

	select {
	case <-p.done:
		return
	default:
	}

	pid := p.cmd.Process.Pid

	// Get all descendants in a bottom-up order.
	var descendants []*process.Process
	if p.procInfo != nil {
		if tree, err := getProcessTreeBottomUp(p.procInfo); err == nil {
			descendants = tree
		} else {
			descendants = []*process.Process{p.procInfo}
		}
	}

	if len(descendants) == 0 {
		slog.Debug("stop copy process: direct kill", "pid", pid)
		_ = p.cmd.Process.Kill()
		<-p.done
		return
	}

	slog.Debug("stop copy process: terminate", "pid", pid, "subprocs", len(descendants))
	for _, child := range descendants {
		if err := child.Terminate(); err != nil {
			slog.Debug("stop copy process: terminate", "pid", child.Pid, "ppid", pid, "err", err)
		}
	}

	// give some time for cleanup
	timeout := time.NewTimer(killGraceTimeout)
	defer timeout.Stop()

	select {
	case <-p.done:
		slog.Debug("stop copy process: exited after terminate", "pid", pid)
		return
	case <-timeout.C:
		slog.Debug("stop copy process: grace period over", "pid", pid)
	}

	slog.Debug("stop copy process: kill", "pid", pid, "subprocs", len(descendants))
	for _, child := range descendants {
		exists, err := process.PidExists(child.Pid)
		if err != nil || !exists {
			continue
		}
		if err := child.Kill(); err != nil {
			slog.Warn("stop copy process: kill", "pid", child.Pid, "ppid", pid, "err", err)
		}
	}

	<-p.done
}

// getProcessTreeBottomUp recursively traverses the process tree starting from
// a given process and returns all descendants in a bottom-up order, so
// children are terminated before their parents.
func getProcessTreeBottomUp(proc *process.Process) ([]*process.Process, error) {
	var tree []*process.Process
	children, err := proc.Children()
	if err != nil {
		// If we can't list children, we can't go deeper.
		return nil, fmt.Errorf("failed to list children for pid %d: %w", proc.Pid, err)
	}

	for _, child := range children {
		// Ignore errors from sub-trees to kill as much of the tree as possible.
		subtree, _ := getProcessTreeBottomUp(child)
		tree = append(tree, subtree...)
	}

	tree = append(tree, proc)
	return tree, nil
}
