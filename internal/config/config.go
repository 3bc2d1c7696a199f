package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LogDir          string          `yaml:"log_dir"`
	LogPrefix       string          `yaml:"log_prefix"`
	Marker          string          `yaml:"marker"`
	FollowerConfig  FollowerConfig  `yaml:"follower"`
	DetectorConfig  DetectorConfig  `yaml:"detector"`
	AlertConfig     AlertConfig     `yaml:"alert"`
	DashboardConfig DashboardConfig `yaml:"dashboard"`
	LoggingConfig   LoggingConfig   `yaml:"logging"`
}

// FollowerConfig contains log following settings
type FollowerConfig struct {
	CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
	WatchDir             bool   `yaml:"watch_dir"`   // wake on fsnotify events in addition to polling
	DateLayout           string `yaml:"date_layout"` // Go time layout appended to log_prefix
}

// DetectorConfig contains sliding-window detection settings
type DetectorConfig struct {
	TimeWindowSeconds      int    `yaml:"time_window_seconds"`
	ThresholdCount         int    `yaml:"threshold_count"`
	CleanupIntervalSeconds int    `yaml:"cleanup_interval_seconds"`
	StrictIP               bool   `yaml:"strict_ip"`        // reject octets above 255
	UnattributedKey        string `yaml:"unattributed_key"` // track marker lines without an IP under this key; empty drops them
}

// AlertConfig contains notification sink settings
type AlertConfig struct {
	Command        string `yaml:"command"`
	Facility       string `yaml:"facility"`
	Tag            string `yaml:"tag"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DashboardConfig contains status dashboard settings
type DashboardConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	RefreshRate int    `yaml:"refresh_rate_ms"`
	TopIPs      int    `yaml:"top_ips"`
}

// LoggingConfig contains diagnostic logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Return default configuration if file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LogDir:    "/logs/apache",
		LogPrefix: "ssl_www_log-",
		Marker:    "today_download",
		FollowerConfig: FollowerConfig{
			CheckIntervalSeconds: 1,
			WatchDir:             true,
			DateLayout:           "2006-01-02",
		},
		DetectorConfig: DetectorConfig{
			TimeWindowSeconds:      600, // 10 minutes
			ThresholdCount:         10,
			CleanupIntervalSeconds: 300,
		},
		AlertConfig: AlertConfig{
			Command:        "logger",
			Facility:       "user.error",
			Tag:            "WebAppMonitor",
			TimeoutSeconds: 5,
		},
		DashboardConfig: DashboardConfig{
			Enabled:     false,
			Port:        8080,
			Host:        "localhost",
			RefreshRate: 1000,
			TopIPs:      10,
		},
		LoggingConfig: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch {
	case c.LogDir == "":
		return errors.New("log_dir must not be empty")
	case c.Marker == "":
		return errors.New("marker must not be empty")
	case strings.ContainsRune(c.LogPrefix, os.PathSeparator):
		return fmt.Errorf("log_prefix %q must not contain a path separator", c.LogPrefix)
	case c.FollowerConfig.CheckIntervalSeconds <= 0:
		return errors.New("follower.check_interval_seconds must be positive")
	case c.FollowerConfig.DateLayout == "":
		return errors.New("follower.date_layout must not be empty")
	case c.DetectorConfig.TimeWindowSeconds <= 0:
		return errors.New("detector.time_window_seconds must be positive")
	case c.DetectorConfig.ThresholdCount <= 0:
		return errors.New("detector.threshold_count must be positive")
	case c.DetectorConfig.CleanupIntervalSeconds <= 0:
		return errors.New("detector.cleanup_interval_seconds must be positive")
	case c.AlertConfig.Command == "":
		return errors.New("alert.command must not be empty")
	case c.AlertConfig.TimeoutSeconds <= 0:
		return errors.New("alert.timeout_seconds must be positive")
	case c.DashboardConfig.Enabled && (c.DashboardConfig.Port <= 0 || c.DashboardConfig.Port > 65535):
		return fmt.Errorf("dashboard.port %d out of range", c.DashboardConfig.Port)
	case c.DashboardConfig.Enabled && c.DashboardConfig.RefreshRate <= 0:
		return errors.New("dashboard.refresh_rate_ms must be positive")
	}
	return nil
}

// CheckInterval is the follower poll interval
func (f FollowerConfig) CheckInterval() time.Duration {
	return time.Duration(f.CheckIntervalSeconds) * time.Second
}

// TimeWindow is the sliding window length
func (d DetectorConfig) TimeWindow() time.Duration {
	return time.Duration(d.TimeWindowSeconds) * time.Second
}

// CleanupInterval is the minimum spacing between prune sweeps
func (d DetectorConfig) CleanupInterval() time.Duration {
	return time.Duration(d.CleanupIntervalSeconds) * time.Second
}

// Timeout bounds a single sink invocation
func (a AlertConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Refresh is the status publish interval
func (d DashboardConfig) Refresh() time.Duration {
	return time.Duration(d.RefreshRate) * time.Millisecond
}
