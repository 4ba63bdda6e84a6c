//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// openListener binds a TCP listener the readiness probe will hit. The
// probe accepts any listener on the port, which lets these tests
// resolve Launch without a real web server.
func openListener(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

// closedPort returns a port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestLaunchIdempotent(t *testing.T) {
	port := openListener(t)
	s := newTestSupervisor(t, "sleep 30", port)
	defer s.Shutdown()

	if err := s.Launch(); err != nil {
		t.Fatalf("first Launch: %v", err)
	}
	pid := s.Pid()
	if pid == 0 {
		t.Fatal("no pid after successful Launch")
	}

	s.mu.Lock()
	released := s.pollCancel == nil
	s.mu.Unlock()
	if !released {
		t.Error("poll context still held after a successful launch")
	}

	// A second Launch while the handle is live must be a no-op that
	// reports the prior success, not a second spawn.
	if err := s.Launch(); err != nil {
		t.Fatalf("second Launch: %v", err)
	}
	if got := s.Pid(); got != pid {
		t.Errorf("second Launch produced a new subprocess: pid %d -> %d", pid, got)
	}
}

func TestShutdownIdempotentConcurrent(t *testing.T) {
	port := openListener(t)
	s := newTestSupervisor(t, "sleep 30", port)

	var mu sync.Mutex
	kills := 0
	realKill := s.killTree
	s.killTree = func(cmd *exec.Cmd) error {
		mu.Lock()
		kills++
		mu.Unlock()
		return realKill(cmd)
	}

	if err := s.Launch(); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	// Fire shutdown from many triggers at once; exactly one termination
	// signal may reach the subprocess tree.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Shutdown()
		}()
	}
	wg.Wait()
	s.Shutdown() // and one more, sequentially

	mu.Lock()
	got := kills
	mu.Unlock()
	if got != 1 {
		t.Errorf("termination signals sent = %d, want exactly 1", got)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Shutdown")
	}
}

func TestGenerationReset(t *testing.T) {
	port := openListener(t)
	s := newTestSupervisor(t, "sleep 30", port)
	defer s.Shutdown()

	if err := s.Launch(); err != nil {
		t.Fatalf("first Launch: %v", err)
	}
	first := s.Pid()
	s.Shutdown()

	if err := s.Launch(); err != nil {
		t.Fatalf("Launch after Shutdown: %v", err)
	}
	second := s.Pid()
	if second == 0 || second == first {
		t.Errorf("new generation pid = %d, want a fresh subprocess (first was %d)", second, first)
	}
}

func TestLaunchTimeoutBound(t *testing.T) {
	port := closedPort(t)
	s := newTestSupervisor(t, "sleep 30", port)
	s.pollInterval = 50 * time.Millisecond
	s.launchTimeout = 500 * time.Millisecond

	start := time.Now()
	err := s.Launch()
	elapsed := time.Since(start)

	if !errors.Is(err, ErrLaunchTimeout) {
		t.Fatalf("Launch = %v, want ErrLaunchTimeout", err)
	}
	// Bounded by timeout + one interval, with slack for CI
	if elapsed > 5*time.Second {
		t.Errorf("Launch took %s, want it bounded near %s", elapsed, s.launchTimeout)
	}
	// The failed launch must have torn the subprocess down
	if s.IsRunning() {
		t.Error("IsRunning() = true after launch timeout")
	}
}

func TestShutdownCancelsPendingLaunch(t *testing.T) {
	port := closedPort(t)
	s := newTestSupervisor(t, "sleep 30", port)
	s.pollInterval = 50 * time.Millisecond
	s.launchTimeout = 30 * time.Second

	errCh := make(chan error, 1)
	go func() { errCh <- s.Launch() }()

	// Let the readiness poll get going, then pull the plug
	time.Sleep(300 * time.Millisecond)
	s.Shutdown()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("Launch = nil after Shutdown during poll, want an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Launch still polling after Shutdown; the poll was not cancelled")
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Shutdown")
	}
}

func TestTreeKill(t *testing.T) {
	port := openListener(t)
	pidFile := filepath.Join(t.TempDir(), "grandchild.pid")

	// The shell spawns a grandchild and records its pid. Killing only
	// the direct child would leave the grandchild running.
	cmd := fmt.Sprintf("sleep 30 & echo $! > %s; wait", pidFile)
	s := newTestSupervisor(t, cmd, port)

	if err := s.Launch(); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	var grandchild int
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(pidFile)
		if err == nil && len(data) > 0 {
			grandchild, _ = strconv.Atoi(strings.TrimSpace(string(data)))
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if grandchild == 0 {
		t.Fatal("grandchild pid never recorded")
	}

	s.Shutdown()

	// The whole tree must be gone, not just the direct child
	alive := true
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(grandchild, 0); err == syscall.ESRCH {
			alive = false
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if alive {
		t.Errorf("grandchild %d survived Shutdown; tree-kill failed", grandchild)
	}
}

func TestNaturalExitClearsHandle(t *testing.T) {
	port := openListener(t)
	s := newTestSupervisor(t, "true", port)

	exited := make(chan struct{})
	s.OnExit = func() { close(exited) }

	// The subprocess exits immediately, so Launch may resolve ready (the
	// listener satisfies the probe) or observe the exit first.
	if err := s.Launch(); err != nil && !errors.Is(err, ErrCancelled) {
		t.Fatalf("Launch: %v", err)
	}

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("OnExit never fired for a subprocess that exits on its own")
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after the subprocess exited")
	}
	if got := s.Phase(); got != PhaseIdle {
		t.Errorf("Phase() = %q after natural exit, want %q", got, PhaseIdle)
	}
}

func TestLateExitObserverFromOldGeneration(t *testing.T) {
	port := openListener(t)
	s := newTestSupervisor(t, "sleep 30", port)
	defer s.Shutdown()

	// Keep the first generation's tree alive through its shutdown so
	// its exit observer is still pending when the next one registers.
	var gen1 *exec.Cmd
	s.killTree = func(cmd *exec.Cmd) error {
		gen1 = cmd
		return nil
	}

	if err := s.Launch(); err != nil {
		t.Fatalf("first Launch: %v", err)
	}
	pid1 := s.Pid()
	s.Shutdown()

	s.killTree = killProcessTree
	if err := s.Launch(); err != nil {
		t.Fatalf("second Launch: %v", err)
	}
	pid2 := s.Pid()
	if pid2 == 0 || pid2 == pid1 {
		t.Fatalf("second generation pid = %d, want a fresh subprocess", pid2)
	}

	// Now let the first generation die so its observer finally runs,
	// after the second generation's handle is in place.
	if err := killProcessTree(gen1); err != nil {
		t.Fatalf("killing first generation: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(pid1, 0); err == syscall.ESRCH {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	// The late observer must not have cleared the live handle.
	if !s.IsRunning() || s.Pid() != pid2 {
		t.Fatalf("live generation lost: IsRunning=%v pid=%d, want pid %d", s.IsRunning(), s.Pid(), pid2)
	}

	// And the live generation must still be reachable by Shutdown.
	s.Shutdown()
	alive := true
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(pid2, 0); err == syscall.ESRCH {
			alive = false
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if alive {
		t.Errorf("subprocess %d survived Shutdown after a stale observer ran", pid2)
	}
}

func TestLaunchWhileStartingIsNoOp(t *testing.T) {
	port := closedPort(t)
	s := newTestSupervisor(t, "sleep 30", port)
	s.pollInterval = 50 * time.Millisecond
	s.launchTimeout = 30 * time.Second

	errCh := make(chan error, 1)
	go func() { errCh <- s.Launch() }()

	// Wait for the first launch to register its handle.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && s.Pid() == 0 {
		time.Sleep(20 * time.Millisecond)
	}
	pid1 := s.Pid()
	if pid1 == 0 {
		t.Fatal("first Launch never registered a subprocess")
	}

	// A second Launch while the first is still polling must not spawn.
	if err := s.Launch(); err != nil {
		t.Fatalf("overlapping Launch: %v", err)
	}
	if got := s.Pid(); got != pid1 {
		t.Errorf("overlapping Launch replaced the subprocess: pid %d -> %d", pid1, got)
	}

	s.Shutdown()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("first Launch never resolved after Shutdown")
	}
}
