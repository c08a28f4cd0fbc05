//go:build !windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// detach sets the child its own process group so it survives the
// supervisor's own termination and signals are not delivered to it via
// the supervisor's controlling terminal.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// terminate sends SIGTERM, the graceful request (§4.6 "banish" step 2).
func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

// forceKill escalates to SIGKILL (§4.6 "banish" step 3).
func forceKill(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGKILL)
}

// alive reports whether pid still refers to a running process.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
