package core

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	// ExitRedirectFailed is the status of a command whose redirection target
	// couldn't be opened.
	ExitRedirectFailed = 1
	// ExitLaunchFailed is the status of a command that couldn't be found or
	// executed.
	ExitLaunchFailed = 2
)

// ExitStatus describes how a process ended.
type ExitStatus struct {
	// Code is the exit code for processes that exited normally.
	Code int
	// Signal is the terminating signal, zero if the process exited normally.
	Signal syscall.Signal
}

// Signaled returns true if the process was terminated by a signal.
func (e ExitStatus) Signaled() bool {
	return e.Signal != 0
}

// String formats the status the way the status builtin reports it.
func (e ExitStatus) String() string {
	if e.Signaled() {
		return fmt.Sprintf("terminated by signal %d", e.Signal)
	}
	return fmt.Sprintf("exit value %d", e.Code)
}

func exitStatusFromWait(ws unix.WaitStatus) ExitStatus {
	if ws.Signaled() {
		return ExitStatus{Signal: ws.Signal()}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}
