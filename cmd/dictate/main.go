package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quietkey/dictate/internal/bus"
	"github.com/quietkey/dictate/internal/config"
	"github.com/quietkey/dictate/internal/daemon"
	"github.com/quietkey/dictate/internal/deps"
	"github.com/quietkey/dictate/internal/tui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dictate",
	Short: "Voice-powered typing for Wayland/Hyprland",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		depsCmd(),
	)
}

func serveCmd() *cobra.Command {
	var (
		model             string
		allowByeThankYou  bool
		allowNonASCII     bool
		allowFillers      bool
		noiseSuppression  int
		gain              float64
		noAudioProcessing bool
		noLog             bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.LoadOrLegacy()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			applyFlagOverrides(cmd, cfg, model, allowByeThankYou, allowNonASCII,
				allowFillers, noiseSuppression, gain, noAudioProcessing, noLog)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			d := daemon.New(config.NewManagerFrom(cfg))
			return d.Run()
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "transcription model (whisper-1, gpt-4o-transcribe, gpt-4o-mini-transcribe)")
	cmd.Flags().BoolVar(&allowByeThankYou, "allow-bye-thank-you", false, "disable the bye/thank-you hallucination filter")
	cmd.Flags().BoolVar(&allowNonASCII, "allow-non-ascii", false, "disable non-ASCII character stripping")
	cmd.Flags().BoolVar(&allowFillers, "allow-fillers", false, "disable filler-word removal (um, uh, mhm, ...)")
	cmd.Flags().IntVar(&noiseSuppression, "noise-suppression", -1, "noise suppression level 0-4 (0 disables)")
	cmd.Flags().Float64Var(&gain, "gain", 0, "linear gain multiplier applied to captured audio (1.0 = unity)")
	cmd.Flags().BoolVar(&noAudioProcessing, "no-audio-processing", false, "skip the audio processing stage entirely")
	cmd.Flags().BoolVar(&noLog, "no-log", false, "set logging.no_log in the loaded config (transcript/event/metrics files are still written)")
	return cmd
}

// applyFlagOverrides layers any explicitly-set CLI flags on top of the
// loaded config, so config.toml remains the source of defaults and flags
// are a one-off override for this invocation only.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, model string,
	allowByeThankYou, allowNonASCII, allowFillers bool, noiseSuppression int,
	gain float64, noAudioProcessing, noLog bool) {

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Transcription.Model = model
	}
	if flags.Changed("allow-bye-thank-you") {
		cfg.Transcription.AllowByeThankYou = allowByeThankYou
	}
	if flags.Changed("allow-non-ascii") {
		cfg.Transcription.AllowNonASCII = allowNonASCII
	}
	if flags.Changed("allow-fillers") {
		cfg.Transcription.AllowFillers = allowFillers
	}
	if flags.Changed("noise-suppression") {
		cfg.Recording.NoiseSuppression = noiseSuppression
	}
	if flags.Changed("gain") {
		cfg.Recording.Gain = gain
	}
	if flags.Changed("no-audio-processing") {
		cfg.Recording.NoAudioProcessing = noAudioProcessing
	}
	if flags.Changed("no-log") {
		cfg.Logging.NoLog = noLog
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle recording on/off",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand('t')
			if err != nil {
				return fmt.Errorf("toggle recording: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand('s')
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the control-socket protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand('v')
			if err != nil {
				return fmt.Errorf("get version: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand('q')
			if err != nil {
				return fmt.Errorf("stop daemon: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, _, err := config.LoadOrLegacy()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cfg, err := tui.RunWizard(existing)
			if err != nil {
				return fmt.Errorf("configuration wizard: %w", err)
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			path, _ := config.GetConfigPath()
			fmt.Printf("Saved %s\n", path)
			return nil
		},
	}
}

func depsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check for the external tools dictate shells out to",
		RunE: func(cmd *cobra.Command, args []string) error {
			missingRequired := false
			for _, s := range deps.CheckAll() {
				mark := "✗"
				if s.Installed {
					mark = "✓"
				}
				label := s.Name
				if s.Required {
					label += " (required)"
				}
				if s.Version != "" {
					fmt.Printf("%s %-16s %s\n", mark, label, s.Version)
				} else {
					fmt.Printf("%s %-16s\n", mark, label)
				}
				if s.Required && !s.Installed {
					missingRequired = true
				}
			}
			if missingRequired {
				return fmt.Errorf("one or more required dependencies are missing")
			}
			return nil
		},
	}
}
