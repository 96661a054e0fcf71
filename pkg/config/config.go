// Package config loads settings for the ovum inspection tool.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ColorMode selects when diagnostics are coloured
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Bounds is the accepted number of basket members after a verify
type Bounds struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Config is the tool configuration
type Config struct {
	Color    ColorMode `yaml:"color"`
	LogLevel string    `yaml:"log_level"`
	// Strict panics on the first validation violation
	Strict bool   `yaml:"strict"`
	Verify Bounds `yaml:"verify"`
	// Dot is where the basket graph is written after a script, if set
	Dot string `yaml:"dot"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Color:    ColorAuto,
		LogLevel: "info",
	}
}

// Parse decodes YAML over the defaults. Unknown fields are errors.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Check validates field values
func (c Config) Check() error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always or never)", c.Color)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Verify.Min < 0 || c.Verify.Max < c.Verify.Min {
		return fmt.Errorf("invalid verify bounds [%d, %d]", c.Verify.Min, c.Verify.Max)
	}
	return nil
}

// Level returns the slog level named by LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
