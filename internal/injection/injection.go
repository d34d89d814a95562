// Package injection delivers finished transcripts into whatever application
// currently has focus, picking a backend per window class and falling back
// to the clipboard when nothing else works.
package injection

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Config controls backend selection and timeouts.
type Config struct {
	Default          string // backend name used when no rule matches
	RulesPath        string
	WtypeTimeout     time.Duration
	YdotoolTimeout   time.Duration
	ClipboardTimeout time.Duration
	RestoreClipboard bool
}

// Injector resolves a backend per call (via RuleSet + focused window class)
// and injects text, saving the previous clipboard contents beforehand and
// restoring them afterward when configured to do so.
type Injector struct {
	cfg      Config
	rules    *RuleSet
	backends map[string]Backend
}

// New returns an Injector wired with every backend.
func New(cfg Config) *Injector {
	backends := map[string]Backend{
		"wtype":        NewWtypeBackend(),
		"primary":      NewShiftInsertBackend(),
		"middle-click": NewMiddleClickBackend(),
		"ydotool":      NewYdotoolBackend(),
		"xdotool":      NewXdotoolBackend(),
		"clipboard":    clipboardBackend{},
	}
	return &Injector{
		cfg:      cfg,
		rules:    NewRuleSet(cfg.RulesPath, cfg.Default),
		backends: backends,
	}
}

// Inject saves the current clipboard contents (when RestoreClipboard is
// set), types text via the backend selected for the currently focused
// window, and then restores the saved contents unless the clipboard-only
// backend delivered the text. It reports whether the text reached the
// destination application; a selected clipboard-only backend counts as
// success. When the selected backend fails, the text is copied to the
// clipboard for a manual paste and false is returned.
func (inj *Injector) Inject(ctx context.Context, text string) bool {
	if text == "" {
		return false
	}

	var original string
	if inj.cfg.RestoreClipboard {
		original = saveClipboard()
	}

	windowClass := FocusedWindowClass(ctx)
	name := inj.rules.MethodFor(windowClass)
	backend, ok := inj.backends[name]
	if !ok {
		log.Printf("injection: unknown backend %q for window %q, using clipboard", name, windowClass)
		backend = inj.backends["clipboard"]
		name = "clipboard"
	}

	timeout := inj.timeoutFor(name)
	err := backend.Inject(ctx, text, timeout)
	if err != nil && name != "clipboard" {
		log.Printf("injection: %s failed (%v), falling back to clipboard", name, err)
		cb := inj.backends["clipboard"]
		if cbErr := cb.Inject(ctx, text, inj.cfg.ClipboardTimeout); cbErr != nil {
			log.Printf("injection: clipboard fallback also failed: %v", cbErr)
			return false
		}
		// The text is on the clipboard for a manual paste, but it did not
		// reach the application.
		return false
	}
	success := err == nil

	if inj.cfg.RestoreClipboard && original != "" && name != "clipboard" {
		go func() {
			time.Sleep(100 * time.Millisecond)
			restoreClipboard(original)
		}()
	}

	return success
}

func (inj *Injector) timeoutFor(backend string) time.Duration {
	switch backend {
	case "ydotool":
		return orDefault(inj.cfg.YdotoolTimeout, 5*time.Second)
	case "clipboard":
		return orDefault(inj.cfg.ClipboardTimeout, 2*time.Second)
	default:
		return orDefault(inj.cfg.WtypeTimeout, 5*time.Second)
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// CheckBackend reports whether the named backend is currently usable, by
// running that backend's Available probe.
func (inj *Injector) CheckBackend(name string) error {
	b, ok := inj.backends[name]
	if !ok {
		return fmt.Errorf("unknown backend %q", name)
	}
	return b.Available()
}
