// Package config provides configuration management for shopsync.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/ini.v1"
)

// DefaultConfirmThreshold is the staging size above which an upload needs
// explicit operator confirmation (5 MB).
const DefaultConfirmThreshold = 5 * 1024 * 1024

// Config holds the connection and sync settings.
//
// Resolution order (later wins): defaults, INI file, environment, CLI flags.
//
// INI format (~/.config/shopsync/config):
//
//	[api]
//	base_url = https://example.ngrok-free.app
//	tunnel_header = ngrok-skip-browser-warning
//	tunnel_header_value = true
//
//	[upload]
//	mock = false
//	confirm_threshold_bytes = 5242880
type Config struct {
	// APIBaseURL is the base URL of the dashboard API, without trailing slash.
	APIBaseURL string `env:"SHOPSYNC_API_URL"`

	// TunnelHeader / TunnelHeaderValue form the fixed auxiliary header the
	// tunneling proxy in front of the API requires on every request.
	TunnelHeader      string `env:"SHOPSYNC_TUNNEL_HEADER"`
	TunnelHeaderValue string `env:"SHOPSYNC_TUNNEL_HEADER_VALUE"`

	// MockUpload switches the transport engine to simulated transfers.
	MockUpload bool `env:"SHOPSYNC_MOCK"`

	// ConfirmThresholdBytes is the staged-file size above which upload
	// requires explicit confirmation.
	ConfirmThresholdBytes int64 `env:"SHOPSYNC_CONFIRM_THRESHOLD"`

	// ProxyMode selects outbound proxy handling: "system" (environment
	// variables) or "no-proxy".
	ProxyMode string `env:"SHOPSYNC_PROXY_MODE"`
}

// Validation errors.
var (
	ErrMissingBaseURL  = errors.New("api base_url is required")
	ErrInvalidThreshold = errors.New("confirm_threshold_bytes must be positive")
)

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		TunnelHeader:          "ngrok-skip-browser-warning",
		TunnelHeaderValue:     "true",
		ConfirmThresholdBytes: DefaultConfirmThreshold,
		ProxyMode:             "system",
	}
}

// DefaultPath returns the default config file path
// (~/.config/shopsync/config).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "shopsync", "config"), nil
}

// Load reads configuration from the INI file at path, then applies
// environment overrides. A missing file is not an error; defaults are
// returned. An unreadable or malformed file is.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			path = "" // fall through to env-only
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			iniFile, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}

			apiSection := iniFile.Section("api")
			cfg.APIBaseURL = apiSection.Key("base_url").MustString(cfg.APIBaseURL)
			cfg.TunnelHeader = apiSection.Key("tunnel_header").MustString(cfg.TunnelHeader)
			cfg.TunnelHeaderValue = apiSection.Key("tunnel_header_value").MustString(cfg.TunnelHeaderValue)
			cfg.ProxyMode = apiSection.Key("proxy_mode").MustString(cfg.ProxyMode)

			uploadSection := iniFile.Section("upload")
			cfg.MockUpload = uploadSection.Key("mock").MustBool(cfg.MockUpload)
			cfg.ConfirmThresholdBytes = uploadSection.Key("confirm_threshold_bytes").MustInt64(cfg.ConfirmThresholdBytes)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.APIBaseURL = strings.TrimSuffix(cfg.APIBaseURL, "/")
	return cfg, nil
}

// Save writes the configuration to an INI file, creating parent directories.
// Uses a temp file plus rename so a crash never leaves a half-written config.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	apiSection, err := iniFile.NewSection("api")
	if err != nil {
		return fmt.Errorf("failed to create api section: %w", err)
	}
	apiSection.Key("base_url").SetValue(cfg.APIBaseURL)
	apiSection.Key("tunnel_header").SetValue(cfg.TunnelHeader)
	apiSection.Key("tunnel_header_value").SetValue(cfg.TunnelHeaderValue)
	apiSection.Key("proxy_mode").SetValue(cfg.ProxyMode)

	uploadSection, err := iniFile.NewSection("upload")
	if err != nil {
		return fmt.Errorf("failed to create upload section: %w", err)
	}
	uploadSection.Key("mock").SetValue(fmt.Sprintf("%t", cfg.MockUpload))
	uploadSection.Key("confirm_threshold_bytes").SetValue(fmt.Sprintf("%d", cfg.ConfirmThresholdBytes))

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks that the configuration can reach the API.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return ErrMissingBaseURL
	}
	if cfg.ConfirmThresholdBytes <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}
