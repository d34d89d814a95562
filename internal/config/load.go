package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

var ErrConfigNotFound = errors.New("config not found")

// GetConfigPath returns the path of config.toml under the user's config
// dir, creating the containing directory if it is absent.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	dir := filepath.Join(configDir, "dictate")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config.toml over the defaults, applying the OPENAI_API_KEY
// environment variable when the file omits transcription.api_key. It does
// not validate the result; that is left to the caller.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: run `dictate configure`", ErrConfigNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Printf("config: loading configuration from %s", configPath)
	cfg := Defaults()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if cfg.Transcription.APIKey == "" {
		cfg.Transcription.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	log.Printf("config: configuration loaded successfully")
	return cfg, nil
}

// LoadOrLegacy loads config.toml, treating a missing file as "needs
// onboarding" rather than an error: it returns defaults with legacy=true
// so the caller can prompt the user to run `dictate configure` instead of
// refusing to start.
func LoadOrLegacy() (*Config, bool, error) {
	cfg, err := Load()
	if errors.Is(err, ErrConfigNotFound) {
		cfg := Defaults()
		cfg.Transcription.APIKey = os.Getenv("OPENAI_API_KEY")
		return cfg, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// Save writes cfg to config.toml.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(configPath, buf.Bytes(), 0o600)
}
