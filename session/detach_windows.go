//go:build windows

package session

import (
	"os"
	"syscall"
)

const (
	createNewProcessGroup = 0x00000200
	detachedProcess       = 0x00000008
)

func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNewProcessGroup | detachedProcess}
}

// Windows has no SIGTERM; forceful kill is the only escalation available.
func terminateSignal() os.Signal { return os.Kill }
