package injection

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// saveClipboard returns the current system clipboard contents, or "" if it
// cannot be read (empty clipboard, no clipboard tool installed).
func saveClipboard() string {
	text, err := clipboard.ReadAll()
	if err != nil {
		return ""
	}
	return text
}

// restoreClipboard writes text back to the system clipboard, ignoring
// failures: restoration is best-effort and must never fail an injection
// that has already completed.
func restoreClipboard(text string) {
	_ = clipboard.WriteAll(text)
}

// clipboardBackend copies text to the system clipboard as the last-resort
// injection method, when no typing backend is usable at all.
type clipboardBackend struct{}

func (clipboardBackend) Name() string { return "clipboard" }

func (clipboardBackend) Available() error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found for this platform")
	}
	return nil
}

func (clipboardBackend) Inject(_ context.Context, text string, _ time.Duration) error {
	if err := clipboard.WriteAll(text + " "); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}

// setPrimarySelection copies text into the Wayland PRIMARY selection via
// wl-copy, used by the middle-click and Shift+Insert paste backends.
// trimNewline mirrors wl-copy's --trim-newline, used by the middle-click
// variant to avoid pasting a trailing newline into terminal prompts.
func setPrimarySelection(ctx context.Context, text string, trimNewline bool) error {
	args := []string{"--primary"}
	if trimNewline {
		args = append(args, "--trim-newline")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "wl-copy", args...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wl-copy --primary: %w", err)
	}
	return nil
}
