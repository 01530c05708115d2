// Package config loads keyforge configuration from YAML and supports live
// reload of hotkey bindings via fsnotify.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Hotkeys maps engine operations to key combinations.
type Hotkeys struct {
	StartRecording string `yaml:"start_recording"`
	StopRecording  string `yaml:"stop_recording"`
	TogglePlayback string `yaml:"toggle_playback"`
	StopPlayback   string `yaml:"stop_playback"`
}

// Playback holds playback tunables.
type Playback struct {
	// StopOnError escalates a failed injection to the Failed state instead
	// of skipping the action.
	StopOnError bool `yaml:"stop_on_error"`

	// DelayFloorMs is the minimum wait in milliseconds enforced between
	// injected actions. 0 disables the floor.
	DelayFloorMs int `yaml:"delay_floor_ms"`

	// Speed is the default speed multiplier.
	Speed float64 `yaml:"speed"`
}

// Config is the root configuration document.
type Config struct {
	// StorePath is the bbolt database location.
	StorePath string `yaml:"store_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Hotkeys  Hotkeys  `yaml:"hotkeys"`
	Playback Playback `yaml:"playback"`
}

// Default returns the built-in configuration. Paths live under
// ~/.keyforge.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		StorePath: filepath.Join(home, ".keyforge", "scripts.db"),
		LogLevel:  "info",
		Hotkeys: Hotkeys{
			StartRecording: "ctrl+f6",
			StopRecording:  "ctrl+f7",
			TogglePlayback: "ctrl+f8",
			StopPlayback:   "ctrl+f9",
		},
		Playback: Playback{
			StopOnError:  false,
			DelayFloorMs: 0,
			Speed:        1.0,
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".keyforge", "config.yaml")
}

// Load reads a config file, layering it over defaults. A missing file is
// not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks tunable ranges.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.Playback.Speed <= 0 {
		return fmt.Errorf("playback.speed must be positive, got %v", c.Playback.Speed)
	}
	if c.Playback.DelayFloorMs < 0 {
		return fmt.Errorf("playback.delay_floor_ms must be >= 0, got %d", c.Playback.DelayFloorMs)
	}
	return nil
}

// DelayFloor returns the configured floor as a duration.
func (c *Config) DelayFloor() time.Duration {
	return time.Duration(c.Playback.DelayFloorMs) * time.Millisecond
}
