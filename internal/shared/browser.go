package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var osName = func() string { return runtime.GOOS }

// OpenBrowser launches the system browser at url so the user can approve the
// Spotify authorization request. The CLI falls back to printing the URL when
// the launch fails.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch os := osName(); os {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", os)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
