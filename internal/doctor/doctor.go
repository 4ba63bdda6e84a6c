package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/chatdock/chatdock/internal/config"
	"github.com/chatdock/chatdock/internal/launchenv"
	"github.com/chatdock/chatdock/internal/ports"
	"github.com/chatdock/chatdock/internal/ui"
)

// RuntimeStatus represents the status of a runtime check
type RuntimeStatus struct {
	Name      string
	Installed bool
	Version   string
	Path      string
}

// PortStatus represents the status of the target port
type PortStatus struct {
	Port     int
	Free     bool
	OwnerPID int // pid of a foreign listener, 0 if none found
}

// Diagnosis contains the full health check results
type Diagnosis struct {
	Platform string
	Runtime  RuntimeStatus
	Chainlit RuntimeStatus
	AppDirOK bool
	KeySet   bool // OPENAI_API_KEY present in the env blob
	Port     PortStatus
	Healthy  bool
	Issues   []string
}

// Diagnose checks whether the chat application can be launched with the
// given settings: Python runtime, chainlit package, application files,
// env blob, and the target port.
func Diagnose(settings config.Settings, store *config.Store) Diagnosis {
	diagnosis := Diagnosis{
		Healthy: true,
		Issues:  []string{},
	}

	if info, err := host.Info(); err == nil {
		diagnosis.Platform = fmt.Sprintf("%s %s (%s)", info.Platform, info.PlatformVersion, info.KernelArch)
	}

	diagnosis.Runtime = checkPythonRuntime(settings.RuntimeHome)
	if !diagnosis.Runtime.Installed {
		diagnosis.Healthy = false
		diagnosis.Issues = append(diagnosis.Issues, "Python runtime is not installed")
	}

	diagnosis.Chainlit = checkChainlit(settings.RuntimeHome)
	if diagnosis.Runtime.Installed && !diagnosis.Chainlit.Installed {
		diagnosis.Healthy = false
		diagnosis.Issues = append(diagnosis.Issues, "chainlit package is missing. Run 'pip install chainlit' to fix")
	}

	diagnosis.AppDirOK = checkAppDir(settings.AppDir)
	if !diagnosis.AppDirOK {
		diagnosis.Healthy = false
		diagnosis.Issues = append(diagnosis.Issues, fmt.Sprintf("application directory %s is missing or has no main.py", settings.AppDir))
	}

	diagnosis.KeySet = checkAPIKey(store)
	if !diagnosis.KeySet {
		// Not fatal: the application shows its own prompt for a key
		diagnosis.Issues = append(diagnosis.Issues, "OPENAI_API_KEY is empty; set it with 'chatdock config set OPENAI_API_KEY=...'")
	}

	diagnosis.Port = checkPort(settings.Port)
	if !diagnosis.Port.Free {
		diagnosis.Healthy = false
		msg := fmt.Sprintf("port %d is already in use", settings.Port)
		if diagnosis.Port.OwnerPID > 0 {
			// A foreign listener would make the readiness probe succeed
			// against the wrong process
			msg += fmt.Sprintf(" by PID %d; the launcher would attach to the wrong server", diagnosis.Port.OwnerPID)
		}
		diagnosis.Issues = append(diagnosis.Issues, msg)
	}

	return diagnosis
}

// checkPythonRuntime checks the interpreter the launch would use.
func checkPythonRuntime(runtimeHome string) RuntimeStatus {
	interp := launchenv.Interpreter(runtimeHome)
	status := RuntimeStatus{Name: "Python", Path: interp}

	if runtimeHome == "" {
		// Resolve against PATH like the launch itself would
		if p, err := exec.LookPath(interp); err == nil {
			status.Path = p
		}
	}

	status.Installed, status.Version = launchenv.CheckRuntime(interp)
	return status
}

// checkChainlit checks that the chainlit package imports cleanly.
func checkChainlit(runtimeHome string) RuntimeStatus {
	interp := launchenv.Interpreter(runtimeHome)
	status := RuntimeStatus{Name: "chainlit"}

	cmd := exec.Command(interp, "-c", "import chainlit; print(chainlit.__version__)")
	output, err := cmd.Output()
	if err != nil {
		return status
	}
	status.Installed = true
	status.Version = strings.TrimSpace(string(output))
	return status
}

// checkAppDir verifies the application directory and its entry file.
func checkAppDir(appDir string) bool {
	if appDir == "" {
		return false
	}
	info, err := os.Stat(appDir)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(appDir, "main.py"))
	return err == nil
}

// checkAPIKey reports whether the env blob defines a non-empty API key.
func checkAPIKey(store *config.Store) bool {
	vars, err := config.ParseEnv(store.BlobPath())
	if err != nil {
		return false
	}
	return vars["OPENAI_API_KEY"] != ""
}

// checkPort reports whether the target port is free to bind.
func checkPort(port int) PortStatus {
	status := PortStatus{Port: port, Free: ports.IsAvailable(port)}
	if !status.Free {
		status.OwnerPID = ports.ProcessOnPort(port)
	}
	return status
}

// Print writes a human-readable report of the diagnosis.
func Print(d Diagnosis) {
	if d.Platform != "" {
		ui.Info("Host: " + d.Platform)
	}

	printRuntime(d.Runtime)
	printRuntime(d.Chainlit)

	if d.AppDirOK {
		ui.Success("Application files found")
	} else {
		ui.Fail("Application files missing")
	}

	if d.KeySet {
		ui.Success("OPENAI_API_KEY is set")
	} else {
		ui.Warn("OPENAI_API_KEY is not set")
	}

	if d.Port.Free {
		ui.Success(fmt.Sprintf("Port %d is available", d.Port.Port))
	} else {
		ui.Fail(fmt.Sprintf("Port %d is in use", d.Port.Port))
	}

	fmt.Println()
	if d.Healthy {
		ui.Success("Everything looks good. Run 'chatdock up' to start.")
	} else {
		ui.Fail("Problems found:")
		for _, issue := range d.Issues {
			fmt.Println("   •", issue)
		}
	}
}

func printRuntime(r RuntimeStatus) {
	if r.Installed {
		ui.Success(fmt.Sprintf("%s %s", r.Name, r.Version))
	} else {
		ui.Fail(r.Name + " not found")
	}
}
