//go:build windows

package task

import "syscall"

// getSysProcAttr returns the sys proc attr for the current platform.
// HideWindow suppresses the console window the copy tool would otherwise
// open per invocation.
func getSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow: true,
	}
}
