package launchenv

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// The chat application is started with the inherited environment plus a
// small set of launcher-owned variables: the Python runtime location,
// the module search path, a pointer to the staged env file, and a PATH
// augmented with the runtime's binary directories. The variable names
// match what the application reads at its own startup.

// Options describes the subprocess environment to build.
type Options struct {
	AppDir      string // working directory of the chat application
	RuntimeHome string // embedded/pinned Python runtime root, may be empty
	EnvFile     string // staged env file the application should load
}

// Build layers the launcher-owned variables on top of the inherited
// process environment. Inherited values for the same keys are
// overridden; everything else passes through untouched.
func Build(opts Options) []string {
	overrides := map[string]string{
		"EXE_DIR": opts.AppDir,
	}
	if opts.EnvFile != "" {
		overrides["CHATDOCK_ENV_FILE"] = opts.EnvFile
	}
	if opts.RuntimeHome != "" {
		overrides["PYTHONHOME"] = opts.RuntimeHome
		overrides["PYTHONPATH"] = modulePath(opts.RuntimeHome, opts.AppDir)
	}

	env := os.Environ()
	out := make([]string, 0, len(env)+len(overrides))
	for _, kv := range env {
		key := kv
		if idx := strings.Index(kv, "="); idx >= 0 {
			key = kv[:idx]
		}
		if key == "PATH" {
			out = append(out, "PATH="+augmentedPath(kv[len("PATH="):], opts.RuntimeHome))
			continue
		}
		if _, ok := overrides[key]; ok {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overrides {
		out = append(out, k+"="+v)
	}
	return out
}

// modulePath builds the Python module search path for a pinned runtime.
func modulePath(runtimeHome, appDir string) string {
	entries := []string{
		filepath.Join(runtimeHome, "Lib", "site-packages"),
		appDir,
	}
	return strings.Join(entries, string(os.PathListSeparator))
}

// augmentedPath prepends the runtime's binary directories to PATH so
// the fixed run command resolves against the pinned runtime first.
func augmentedPath(path, runtimeHome string) string {
	if runtimeHome == "" {
		return path
	}
	bins := BinDirs(runtimeHome)
	return strings.Join(append(bins, path), string(os.PathListSeparator))
}

// BinDirs returns the binary directories of a Python runtime root.
func BinDirs(runtimeHome string) []string {
	if runtime.GOOS == "windows" {
		return []string{runtimeHome, filepath.Join(runtimeHome, "Scripts")}
	}
	return []string{filepath.Join(runtimeHome, "bin")}
}

// CheckRuntime checks if a Python interpreter is installed and returns its version
func CheckRuntime(interpreter string) (bool, string) {
	cmd := exec.Command(interpreter, "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return false, ""
	}
	return true, strings.TrimSpace(string(output))
}

// Interpreter returns the Python interpreter to probe: the pinned
// runtime's interpreter when a runtime home is configured, otherwise
// whatever python3 resolves to on PATH.
func Interpreter(runtimeHome string) string {
	if runtimeHome == "" {
		if runtime.GOOS == "windows" {
			return "python"
		}
		return "python3"
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(runtimeHome, "python.exe")
	}
	return filepath.Join(runtimeHome, "bin", "python3")
}
