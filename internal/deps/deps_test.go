package deps

import (
	"os/exec"
	"testing"
)

func TestCheckNotInstalled(t *testing.T) {
	status := Check("definitely-not-a-real-binary-xyz", true, "")
	if status.Installed {
		t.Error("expected Installed=false for a nonexistent binary")
	}
	if status.Path != "" {
		t.Error("expected empty path when not installed")
	}
	if !status.Required {
		t.Error("expected Required to be preserved")
	}
}

func TestCheckInstalled(t *testing.T) {
	// sh is present on every POSIX system these tests run on.
	path, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not in PATH, can't test the installed case")
	}
	status := Check("sh", true, "")
	if !status.Installed {
		t.Error("sh in PATH but Installed=false")
	}
	if status.Path != path {
		t.Errorf("Path = %q, want %q", status.Path, path)
	}
}

func TestCheckAllReturnsExpectedNames(t *testing.T) {
	statuses := CheckAll()
	names := map[string]bool{}
	for _, s := range statuses {
		names[s.Name] = true
	}
	for _, want := range []string{"pw-record", "pw-cli", "wtype", "wl-copy", "ydotool", "xdotool", "notify-send"} {
		if !names[want] {
			t.Errorf("CheckAll() missing expected tool %q", want)
		}
	}
}
