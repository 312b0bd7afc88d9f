//go:build !windows

package session

import (
	"os"
	"syscall"
)

// detachedProcAttr puts the worker in its own session so terminal-generated
// signals (SIGHUP on close, ctrl-c) never reach it.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

func terminateSignal() os.Signal { return syscall.SIGTERM }
