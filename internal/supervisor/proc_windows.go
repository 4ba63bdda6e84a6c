//go:build windows

package supervisor

import (
	"fmt"
	"os/exec"
)

// setupProcessGroup is a no-op on Windows; tree termination goes
// through taskkill instead of process groups.
func setupProcessGroup(cmd *exec.Cmd) {
}

// killProcessTree terminates the subprocess and everything it spawned.
// taskkill /T walks the child tree, /F forces termination.
func killProcessTree(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	taskkill := exec.Command("taskkill", "/PID", fmt.Sprintf("%d", cmd.Process.Pid), "/T", "/F")
	return taskkill.Run()
}
