package config

// Defaults returns a Config populated with the values the wizard and
// daemon fall back to before a config.toml exists.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			ConversationsDir: "~/.local/share/dictate/conversations",
		},
		Recording: RecordingConfig{
			ChannelBufferSize: 64,
			NoiseSuppression:  0,
			Gain:              1.0,
		},
		Transcription: TranscriptionConfig{
			Model: "gpt-4o-transcribe",
		},
		Injection: InjectionConfig{
			Default:          "wtype",
			RulesPath:        "~/.config/dictate/typer_rules.yaml",
			WtypeTimeoutMs:   5000,
			YdotoolTimeoutMs: 5000,
			ClipboardTimeout: 2000,
			RestoreClipboard: true,
		},
		Notifications: NotificationsConfig{
			Type: "desktop",
		},
		Logging: LoggingConfig{
			FilterPath: "~/.config/dictate/filters.yaml",
		},
	}
}
