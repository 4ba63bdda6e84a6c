package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/chatdock/chatdock/internal/config"
	"github.com/chatdock/chatdock/internal/launchenv"
	"github.com/chatdock/chatdock/internal/ports"
)

// Supervisor owns the chat application subprocess: it launches it with
// a prepared environment, waits for its port to open, streams its
// output to the log sink, and guarantees the whole subprocess tree is
// torn down exactly once per generation no matter which trigger fires
// first (explicit stop, console quit, interrupt signal, failed launch).

// Sentinel errors for the launch failure taxonomy.
var (
	ErrSpawn         = errors.New("subprocess could not be started")
	ErrLaunchTimeout = errors.New("subprocess never became reachable")
	ErrCancelled     = errors.New("launch aborted before the port opened")
)

// Phase represents the current state of the subprocess generation
type Phase string

const (
	PhaseIdle     Phase = "Idle"
	PhaseStarting Phase = "Starting"
	PhaseRunning  Phase = "Running"
	PhaseStopping Phase = "Stopping"
)

const (
	pollInterval  = 400 * time.Millisecond
	launchTimeout = 20 * time.Second
	probeHost     = "127.0.0.1"
)

// Supervisor manages zero-or-one chat application subprocess.
type Supervisor struct {
	settings config.Settings
	store    *config.Store
	mirror   io.Writer // diagnostic stream, mirrors the log sink

	mu         sync.Mutex
	cmd        *exec.Cmd
	stopped    bool // monotonic per generation; reset only by a fresh Launch
	phase      Phase
	pollCancel context.CancelFunc
	pid        int

	// OnExit is invoked when the subprocess terminates on its own while
	// not in a stopped state. The generation ends silently; this is a
	// notification, not an error report.
	OnExit func()

	// killTree terminates the whole subprocess tree. Overridable so
	// tests can count termination signals.
	killTree func(*exec.Cmd) error

	// Poll timing, fixed at construction.
	pollInterval  time.Duration
	launchTimeout time.Duration
}

// New creates a supervisor for the configured chat application.
func New(settings config.Settings, store *config.Store, mirror io.Writer) *Supervisor {
	if mirror == nil {
		mirror = os.Stdout
	}
	return &Supervisor{
		settings:      settings,
		store:         store,
		mirror:        mirror,
		phase:         PhaseIdle,
		killTree:      killProcessTree,
		pollInterval:  pollInterval,
		launchTimeout: launchTimeout,
	}
}

// Phase returns the current lifecycle phase (thread-safe)
func (s *Supervisor) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// IsRunning reports whether a subprocess handle is live (thread-safe)
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Pid returns the subprocess pid of the current generation, 0 when idle
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return 0
	}
	return s.pid
}

// URL returns the address the chat application serves on once ready.
func (s *Supervisor) URL() string {
	return fmt.Sprintf("http://%s:%d", probeHost, s.settings.Port)
}

// Launch starts the chat application and blocks until its port accepts
// a TCP connection or the launch budget elapses. Calling Launch while a
// subprocess handle is live is a no-op reporting the prior success.
//
// Every failure path performs an internal Shutdown first, so no
// orphaned subprocess survives a failed launch.
func (s *Supervisor) Launch() error {
	s.mu.Lock()
	if s.cmd != nil || s.phase == PhaseStarting {
		// A handle is live or another Launch is mid-flight between
		// this check and its registration; either way this call is a
		// no-op reporting the prior request.
		s.mu.Unlock()
		return nil
	}
	// A fresh generation begins: the stop flag becomes armed again.
	s.stopped = false
	s.phase = PhaseStarting
	s.mu.Unlock()

	// Copy the env blob into the application directory. A failure here
	// is logged but does not block the launch; the application has its
	// own fallback when the file is missing.
	if err := s.store.Stage(s.settings.AppDir); err != nil {
		fmt.Fprintf(s.mirror, "warning: could not stage env file: %v\n", err)
	}

	sink := s.openSink()

	cmd := s.buildCommand(sink)
	if err := cmd.Start(); err != nil {
		if sink != nil {
			sink.Close()
		}
		s.mu.Lock()
		s.phase = PhaseIdle
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.stopped || s.cmd != nil {
		// A shutdown trigger fired between the spawn and the handle
		// registration, or another generation registered first. The
		// termination signal for this spawn is sent here; the handle
		// is never installed.
		if s.cmd == nil {
			s.phase = PhaseIdle
		}
		s.mu.Unlock()
		cancel()
		s.killTree(cmd)
		go func() {
			cmd.Wait()
			if sink != nil {
				sink.Close()
			}
		}()
		return ErrCancelled
	}
	s.cmd = cmd
	s.pid = cmd.Process.Pid
	s.pollCancel = cancel
	s.mu.Unlock()

	// Exit observer: when the subprocess ends on its own, clear the
	// handle so a later Launch starts a new generation. A kill from
	// Shutdown also lands here, after the handle was already cleared.
	// The identity check keeps a late observer from a dead generation
	// from touching the state of the one that replaced it.
	go func() {
		cmd.Wait()
		if sink != nil {
			sink.Close()
		}
		s.mu.Lock()
		exited := s.cmd == cmd
		if exited {
			s.cmd = nil
			s.phase = PhaseIdle
			if s.pollCancel != nil {
				s.pollCancel()
				s.pollCancel = nil
			}
		}
		onExit := s.OnExit
		s.mu.Unlock()
		if exited && onExit != nil {
			onExit()
		}
	}()

	// Readiness wait: a bare TCP connect poll against the fixed port.
	err := ports.WaitReachable(ctx, probeHost, s.settings.Port, s.pollInterval, s.launchTimeout)
	switch {
	case err == nil:
		s.mu.Lock()
		if s.stopped || s.cmd != cmd {
			s.mu.Unlock()
			return ErrCancelled
		}
		s.phase = PhaseRunning
		s.pollCancel = nil
		s.mu.Unlock()
		cancel() // the poll resolved; release its context
		return nil
	case errors.Is(err, context.Canceled):
		// Shutdown fired while we were polling; teardown already ran.
		return ErrCancelled
	default:
		s.Shutdown()
		return fmt.Errorf("%w: %v", ErrLaunchTimeout, err)
	}
}

// Shutdown tears down the current generation. It is safe to call any
// number of times from any trigger: the first caller to observe the
// stop flag unset flips it and sends the one termination signal to the
// subprocess tree; every other caller is a no-op. Termination is fire
// and forget; a failed kill is logged, never retried.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cmd := s.cmd
	s.cmd = nil
	cancel := s.pollCancel
	s.pollCancel = nil
	s.phase = PhaseStopping
	s.mu.Unlock()

	// Stop a readiness poll that may still be probing.
	if cancel != nil {
		cancel()
	}

	if cmd != nil {
		if err := s.killTree(cmd); err != nil {
			fmt.Fprintf(s.mirror, "warning: failed to terminate subprocess tree: %v\n", err)
		}
	}

	s.mu.Lock()
	s.phase = PhaseIdle
	s.mu.Unlock()
}

// buildCommand constructs the subprocess with its fixed command line,
// working directory, prepared environment, and output wiring.
//
// The shell resolves the run command, so a missing program surfaces as
// a shell exit seen by the exit observer, not as a start failure; Start
// itself fails only when the shell or the working directory is
// unavailable.
func (s *Supervisor) buildCommand(sink io.WriteCloser) *exec.Cmd {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", s.settings.RunCommand)
	} else {
		cmd = exec.Command("sh", "-c", s.settings.RunCommand)
	}
	cmd.Dir = s.settings.AppDir

	cmd.Env = launchenv.Build(launchenv.Options{
		AppDir:      s.settings.AppDir,
		RuntimeHome: s.settings.RuntimeHome,
		EnvFile:     s.store.BlobPath(),
	})

	// Subprocess output goes to the log sink verbatim and is mirrored
	// to the diagnostic stream.
	var out io.Writer = s.mirror
	if sink != nil {
		out = io.MultiWriter(sink, s.mirror)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	setupProcessGroup(cmd)
	return cmd
}

// openSink opens the append-only log sink. The sink is owned by the
// host environment; failing to open it degrades to mirror-only output.
func (s *Supervisor) openSink() io.WriteCloser {
	f, err := os.OpenFile(s.store.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(s.mirror, "warning: could not open log sink: %v\n", err)
		return nil
	}
	return f
}

// Result is the boundary form of every supervisor operation: no error
// crosses into the UI layer, only a flag and a human-readable message.
type Result struct {
	OK      bool
	Message string
}

// AsResult converts an operation error into the boundary form.
func AsResult(err error, okMessage string) Result {
	if err == nil {
		return Result{OK: true, Message: okMessage}
	}
	return Result{OK: false, Message: err.Error()}
}
