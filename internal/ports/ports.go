package ports

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// ErrWaitTimeout is returned by WaitReachable when the port never opened
// within the allowed budget.
var ErrWaitTimeout = fmt.Errorf("timed out waiting for port")

// IsAvailable checks if a port is available for binding
func IsAvailable(port int) bool {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// IsReachable performs a single TCP connect probe against host:port.
// A successful connect is the only readiness signal; no protocol
// handshake is attempted.
func IsReachable(host string, port int) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitReachable polls host:port with a plain TCP connect until the port
// accepts a connection, the overall timeout elapses, or ctx is
// cancelled. The wait is bounded by timeout plus at most one interval.
//
// Known gap: an unrelated listener already bound to the port satisfies
// the probe immediately. The caller is assumed to be the sole owner of
// the port; a doctor check warns when that assumption is violated.
func WaitReachable(ctx context.Context, host string, port int, interval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if IsReachable(host, port) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s:%d did not open within %s", ErrWaitTimeout, host, port, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// FindAvailable finds the next available port starting from the given port
func FindAvailable(startPort int) int {
	maxAttempts := 100 // Don't search forever
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		if IsAvailable(port) {
			return port
		}
	}
	return 0 // No available port found
}

// ProcessOnPort returns the PID of a process listening on the given port.
// Returns 0 if no process is found or if the lookup fails.
// This is useful for spotting a foreign listener that would make the
// readiness probe succeed against the wrong process.
func ProcessOnPort(port int) int {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin", "linux":
		// Use lsof to find the process PID
		cmd = exec.Command("lsof", "-i", fmt.Sprintf(":%d", port), "-t", "-sTCP:LISTEN")
	case "windows":
		// On Windows, use netstat and parse the output
		cmd = exec.Command("cmd", "/C", fmt.Sprintf("netstat -ano | findstr :%d | findstr LISTENING", port))
	default:
		return 0
	}

	output, err := cmd.Output()
	if err != nil {
		return 0
	}

	pidStr := strings.TrimSpace(string(output))
	if pidStr == "" {
		return 0
	}

	// For Windows, the PID is the last column
	if runtime.GOOS == "windows" {
		fields := strings.Fields(pidStr)
		if len(fields) > 0 {
			pidStr = fields[len(fields)-1]
		}
	} else {
		// For Unix, lsof -t returns just the PID (may have multiple lines)
		lines := strings.Split(pidStr, "\n")
		if len(lines) > 0 {
			pidStr = strings.TrimSpace(lines[0])
		}
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0
	}

	return pid
}

// Status returns a human-readable status of a port
func Status(port int) string {
	if IsAvailable(port) {
		return fmt.Sprintf("Port %d is available", port)
	}
	return fmt.Sprintf("Port %d is in use", port)
}
