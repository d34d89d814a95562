// Package tui provides the interactive setup wizard used by `dictate configure`.
package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/quietkey/dictate/internal/config"
)

// RunWizard walks the user through the settings a fresh config.toml needs
// and returns the populated Config. It never writes to disk; the caller
// decides where to persist the result (config.Save).
func RunWizard(existing *config.Config) (*config.Config, error) {
	cfg := existing
	if cfg == nil {
		cfg = config.Defaults()
	}

	fmt.Println(Logo())
	fmt.Println()

	var apiKey = cfg.Transcription.APIKey
	var model = cfg.Transcription.Model
	var noise string
	var gain string
	var injectionBackend = cfg.Injection.Default
	var notifications = cfg.Notifications.Type

	noise = fmt.Sprintf("%d", cfg.Recording.NoiseSuppression)
	gain = fmt.Sprintf("%.2f", cfg.Recording.Gain)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API key").
				Description("Used for both the realtime session and fallback transcription.").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription model").
				Options(
					huh.NewOption("gpt-4o-transcribe (recommended)", "gpt-4o-transcribe"),
					huh.NewOption("gpt-4o-mini-transcribe", "gpt-4o-mini-transcribe"),
					huh.NewOption("whisper-1", "whisper-1"),
				).
				Value(&model),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Noise suppression level").
				Description("0 disables noise suppression.").
				Options(
					huh.NewOption("Off", "0"),
					huh.NewOption("1 (light)", "1"),
					huh.NewOption("2", "2"),
					huh.NewOption("3", "3"),
					huh.NewOption("4 (strongest)", "4"),
				).
				Value(&noise),
			huh.NewInput().
				Title("Gain").
				Description("1.0 = unity gain.").
				Value(&gain),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default injection backend").
				Description("Used when no window-class rule matches.").
				Options(
					huh.NewOption("wtype (Wayland keystrokes)", "wtype"),
					huh.NewOption("PRIMARY-selection paste", "primary"),
					huh.NewOption("ydotool", "ydotool"),
					huh.NewOption("xdotool (X11)", "xdotool"),
					huh.NewOption("clipboard only", "clipboard"),
				).
				Value(&injectionBackend),
			huh.NewSelect[string]().
				Title("Notifications").
				Options(
					huh.NewOption("Desktop", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&notifications),
		),
	).WithTheme(formTheme())

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("configuration wizard: %w", err)
	}

	cfg.Transcription.APIKey = apiKey
	cfg.Transcription.Model = model
	cfg.Recording.NoiseSuppression = parseIntDefault(noise, 0)
	cfg.Recording.Gain = parseFloatDefault(gain, 1.0)
	cfg.Injection.Default = injectionBackend
	cfg.Notifications.Type = notifications

	fmt.Println(StyleSuccess.Render("Configuration complete."))
	return cfg, nil
}

func formTheme() *huh.Theme {
	t := huh.ThemeBase()
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorSecondary)
	return t
}

func parseIntDefault(s string, def int) int {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return def
	}
	return v
}

func parseFloatDefault(s string, def float64) float64 {
	var v float64
	if _, err := fmt.Sscanf(s, "%f", &v); err != nil {
		return def
	}
	return v
}
