package supervisor

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenUI opens the chat UI. When a viewer command is configured (for
// example a browser in app mode) it is used first; on any failure the
// URL is handed to the platform's default browser instead. The return
// value reports which path was taken: true for the configured viewer,
// false for the external fallback.
func (s *Supervisor) OpenUI() (inline bool, err error) {
	url := s.URL()

	if s.settings.Viewer != "" {
		if err := runViewer(s.settings.Viewer, url); err == nil {
			return true, nil
		}
		fmt.Fprintf(s.mirror, "warning: viewer failed, falling back to default browser\n")
	}

	return false, openBrowser(url)
}

// runViewer starts the configured viewer command with the URL appended.
// Fire and forget; the viewer's lifetime is not supervised.
func runViewer(viewer, url string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", viewer+" "+url)
	} else {
		cmd = exec.Command("sh", "-c", viewer+" "+url)
	}
	return cmd.Start()
}

// openBrowser opens the URL in the platform's default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
