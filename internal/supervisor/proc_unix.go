//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
	"time"
)

// setupProcessGroup places the subprocess in its own process group so
// the whole tree can be signalled at once. Killing only the direct
// child leaves the shell's grandchildren (the actual web server) alive.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessTree terminates the subprocess and everything it spawned.
// SIGTERM first for a graceful exit, then SIGKILL on the whole group.
func killProcessTree(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid

	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		// No group to signal; fall back to the direct child
		return cmd.Process.Kill()
	}

	syscall.Kill(-pgid, syscall.SIGTERM)

	// Give processes a brief moment to handle SIGTERM
	time.Sleep(100 * time.Millisecond)

	if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}
