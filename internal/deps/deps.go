// Package deps diagnoses the external command-line tools the daemon
// shells out to, for `dictate deps`.
package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency.
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
	Required  bool // false for optional/backend-specific tools
}

// Check looks up name on PATH and tries versionFlag to get a version string.
// An empty versionFlag skips the version probe entirely.
func Check(name string, required bool, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Name: name, Installed: false, Required: required}
	}

	status := Status{Name: name, Installed: true, Path: path, Required: required}
	if versionFlag == "" {
		return status
	}

	cmd := exec.Command(path, versionFlag)
	output, err := cmd.CombinedOutput()
	if err == nil {
		if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}
	return status
}

// CheckAll probes every tool the daemon can invoke, grouped by concern:
// audio capture, the injection backends, and notifications.
func CheckAll() []Status {
	return []Status{
		Check("pw-record", true, ""),
		Check("pw-cli", true, ""),
		Check("wtype", false, "-h"),
		Check("wl-copy", false, "--version"),
		Check("wl-paste", false, "--version"),
		Check("wlrctl", false, ""),
		Check("ydotool", false, "--help"),
		Check("xdotool", false, "version"),
		Check("xclip", false, "-version"),
		Check("hyprctl", false, "version"),
		Check("notify-send", false, "--version"),
	}
}
