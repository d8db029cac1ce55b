// Package config provides configuration loading and management for slicevol.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many slices are decoded and extracted
		// concurrently
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Brush defaults applied when a stroke leaves a field unset
	Brush struct {
		// Radius is the default brush radius in pixels
		Radius int `yaml:"radius"`

		// Threshold is the default paint gate in physical units
		// (Hounsfield-equivalent for CT)
		Threshold float64 `yaml:"threshold"`

		// Segment is the default segment id written by paint strokes
		Segment uint8 `yaml:"segment"`
	} `yaml:"brush"`

	// Window controls how rescaled values map to gray levels on export
	Window struct {
		// Center of the intensity window in physical units
		Center float64 `yaml:"center"`

		// Width of the intensity window in physical units
		Width float64 `yaml:"width"`
	} `yaml:"window"`

	// Output parameters
	Output struct {
		// SaveSlices determines whether per-slice images are exported after
		// assembly
		SaveSlices bool `yaml:"saveSlices"`

		// SlicesDir is the directory slice images are written to
		SlicesDir string `yaml:"slicesDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()

	// A 5px brush gated at soft-tissue density is a reasonable starting
	// point for CT; operators adjust per study.
	cfg.Brush.Radius = 5
	cfg.Brush.Threshold = 150
	cfg.Brush.Segment = 1

	// Soft-tissue window
	cfg.Window.Center = 40
	cfg.Window.Width = 400

	cfg.Output.SaveSlices = false
	cfg.Output.SlicesDir = "exported_slices"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
