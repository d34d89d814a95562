package config

import "fmt"

var validModels = map[string]bool{
	"whisper-1": true, "gpt-4o-transcribe": true, "gpt-4o-mini-transcribe": true,
}

var validInjectionBackends = map[string]bool{
	"wtype": true, "primary": true, "ydotool": true, "xdotool": true, "clipboard": true,
}

var validNotificationTypes = map[string]bool{"desktop": true, "log": true, "none": true}

// Validate checks the fields this repository actually depends on.
func (c *Config) Validate() error {
	if c.Transcription.APIKey == "" {
		return fmt.Errorf("OpenAI API key required: not found in config (transcription.api_key) or environment variable OPENAI_API_KEY")
	}
	if !validModels[c.Transcription.Model] {
		return fmt.Errorf("invalid transcription.model: %s (must be whisper-1, gpt-4o-transcribe, or gpt-4o-mini-transcribe)", c.Transcription.Model)
	}
	if c.Recording.NoiseSuppression < 0 || c.Recording.NoiseSuppression > 4 {
		return fmt.Errorf("invalid recording.noise_suppression: %d (must be 0..4)", c.Recording.NoiseSuppression)
	}
	if c.Recording.Gain <= 0 {
		return fmt.Errorf("invalid recording.gain: %v", c.Recording.Gain)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if !validInjectionBackends[c.Injection.Default] {
		return fmt.Errorf("invalid injection.default: %s", c.Injection.Default)
	}
	if !validNotificationTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}
	return nil
}
