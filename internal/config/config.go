package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"syscheck/internal/geo"
)

// Config represents configuration data for the diagnostics service.
type Config struct {
	Addr                string           `yaml:"addr"`
	BaseURL             string           `yaml:"base_url"`
	PingTimeoutSeconds  int              `yaml:"ping_timeout_seconds"`
	GeoTimeoutSeconds   int              `yaml:"geo_timeout_seconds"`
	CameraTimeoutSecs   int              `yaml:"camera_timeout_seconds"`
	ScanIntervalMS      int              `yaml:"scan_interval_ms"`
	PushIntervalSeconds int              `yaml:"push_interval_seconds"`
	DesiredWidth        int              `yaml:"desired_width"`
	DesiredHeight       int              `yaml:"desired_height"`
	Checkpoints         []geo.Checkpoint `yaml:"checkpoints"`
}

// DefaultConfig returns sensible defaults in case no configuration file is
// provided.
func DefaultConfig() Config {
	return Config{
		Addr:                ":8080",
		BaseURL:             "http://localhost:8080",
		PingTimeoutSeconds:  10,
		GeoTimeoutSeconds:   20,
		CameraTimeoutSecs:   15,
		ScanIntervalMS:      500,
		PushIntervalSeconds: 1,
		DesiredWidth:        2560,
		DesiredHeight:       1440,
		Checkpoints:         geo.DefaultCheckpoints(),
	}
}

// Load reads configuration from a yaml file. Missing files fall back to
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.PingTimeoutSeconds <= 0 {
		cfg.PingTimeoutSeconds = defaults.PingTimeoutSeconds
	}
	if cfg.GeoTimeoutSeconds <= 0 {
		cfg.GeoTimeoutSeconds = defaults.GeoTimeoutSeconds
	}
	if cfg.CameraTimeoutSecs <= 0 {
		cfg.CameraTimeoutSecs = defaults.CameraTimeoutSecs
	}
	if cfg.ScanIntervalMS <= 0 {
		cfg.ScanIntervalMS = defaults.ScanIntervalMS
	}
	if cfg.PushIntervalSeconds <= 0 {
		cfg.PushIntervalSeconds = defaults.PushIntervalSeconds
	}
	if len(cfg.Checkpoints) == 0 {
		cfg.Checkpoints = defaults.Checkpoints
	}

	if cfg.DesiredWidth <= 0 || cfg.DesiredHeight <= 0 {
		return Config{}, fmt.Errorf("desired resolution %dx%d is invalid", cfg.DesiredWidth, cfg.DesiredHeight)
	}
	for i, cp := range cfg.Checkpoints {
		if cp.Label == "" {
			return Config{}, fmt.Errorf("checkpoint %d is missing a label", i)
		}
	}
	return cfg, nil
}
