package injection

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"
)

type activeWindow struct {
	Class string `json:"class"`
}

// FocusedWindowClass returns the lowercased class of the active window via
// hyprctl. It returns "" on any failure (no compositor, not Hyprland, tool
// missing) rather than an error, since the caller always has a usable
// default to fall back to.
func FocusedWindowClass(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "hyprctl", "activewindow", "-j").Output()
	if err != nil {
		return ""
	}
	var win activeWindow
	if err := json.Unmarshal(out, &win); err != nil {
		return ""
	}
	return strings.ToLower(win.Class)
}
