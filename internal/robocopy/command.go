// Package robocopy builds invocations of, and interprets exit codes from,
// robocopy, the external bulk-copy tool panesync delegates all byte transfer
// to.
package robocopy

import (
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultThreads is the bounded thread count passed to robocopy via /MT.
const DefaultThreads = 32

const binaryName = "robocopy"

// Options select per-invocation flags.
type Options struct {
	// Threads sets the /MT value. Zero or negative means DefaultThreads.
	Threads int
	// ByteProgress adds /bytes /njh /njs: byte-level sizes with the job
	// header and summary suppressed, so output stays line-oriented and the
	// percent lines are parseable.
	ByteProgress bool
}

// Command is a structured invocation: discrete arguments, never a shell
// string. String renders the human-readable form recorded in the audit log.
type Command struct {
	Path string
	Args []string
}

// String renders the command for display and audit logging. Arguments
// containing whitespace are quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Path)
	for _, arg := range c.Args {
		if strings.ContainsAny(arg, " \t") {
			arg = `"` + arg + `"`
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Build maps one selected item and a target directory to a robocopy
// invocation. A directory is copied recursively into target/<basename>; a
// file is copied by name from its containing directory into target. Build is
// pure: it touches no filesystem state and executes nothing.
func Build(sourcePath string, isDir bool, targetDir string, opts Options) Command {
	threads := opts.Threads
	if threads <= 0 {
		threads = DefaultThreads
	}
	mt := "/MT:" + strconv.Itoa(threads)

	src := filepath.Clean(sourcePath)
	dst := filepath.Clean(targetDir)

	var args []string
	if isDir {
		args = []string{src, filepath.Join(dst, filepath.Base(src)), "/e", mt}
	} else {
		args = []string{filepath.Dir(src), dst, filepath.Base(src), mt}
	}

	if opts.ByteProgress {
		args = append(args, "/bytes", "/njh", "/njs")
	}

	return Command{Path: binaryName, Args: args}
}
