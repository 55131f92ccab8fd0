// Package config loads and saves the tutor's settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	appDir   = "keytutor"
	fileName = "config.yaml"
)

// Config is the settings file.
type Config struct {
	// InputPort is matched against MIDI input names; empty picks the first.
	InputPort string `yaml:"input_port,omitempty"`
	// LitUntilRelease keeps a played key lit until it is released.
	LitUntilRelease bool `yaml:"lit_until_release"`
	// Brightness scales due-key light levels.
	Brightness float64 `yaml:"brightness"`
	// Lookahead is how many upcoming steps are previewed.
	Lookahead int `yaml:"lookahead"`
	// Tempo is the playback speed in percent of the score's tempo. Zero
	// advances as soon as a step is played.
	Tempo int `yaml:"tempo"`
	// Sound enables audible feedback.
	Sound bool `yaml:"sound"`
	// MutedChannels are MIDI channels (0-15) left out of practice.
	MutedChannels []int `yaml:"muted_channels,omitempty"`
	// LogFile receives the debug log; empty uses the config directory.
	LogFile string `yaml:"log_file,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Brightness: 1,
		Lookahead:  2,
		Tempo:      100,
		Sound:      true,
	}
}

// Dir returns ~/.config/keytutor.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appDir), nil
}

// Path returns the default settings file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads path, or the default path when empty. A missing file yields
// the defaults. Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the settings to path, creating its directory.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Brightness < 0 {
		return fmt.Errorf("brightness must not be negative, got %v", c.Brightness)
	}
	if c.Lookahead < 0 {
		return fmt.Errorf("lookahead must not be negative, got %d", c.Lookahead)
	}
	if c.Tempo < 0 {
		return fmt.Errorf("tempo must not be negative, got %d", c.Tempo)
	}
	for _, ch := range c.MutedChannels {
		if ch < 0 || ch > 15 {
			return fmt.Errorf("muted channel %d out of range 0-15", ch)
		}
	}
	return nil
}
