// Package config loads and hot-reloads the showrunner configuration file.
package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Channel   ChannelConfig   `yaml:"channel"`
	Chat      ChatConfig      `yaml:"chat"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Retention RetentionConfig `yaml:"retention"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"file"`
}

type StorageConfig struct {
	Path          string        `yaml:"path"`
	BusyTimeoutMS int64         `yaml:"busy_timeout_ms"`
	RoleCacheTTL  time.Duration `yaml:"role_cache_ttl"`
}

type ChannelConfig struct {
	// BroadcasterID is the channel owner's user id; it bypasses role gates.
	BroadcasterID string `yaml:"broadcaster_id"`
}

type ChatConfig struct {
	RatePerSec int `yaml:"rate_per_sec"`
	Burst      int `yaml:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type RetentionConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a cron spec; defaults to nightly.
	Schedule string        `yaml:"schedule"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// Default returns the baseline configuration applied under the file.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Console = true
	cfg.Storage.Path = "./data/showrunner.db"
	cfg.Storage.BusyTimeoutMS = 5000
	cfg.Storage.RoleCacheTTL = 5 * time.Minute
	cfg.Chat.RatePerSec = 1
	cfg.Chat.Burst = 3
	cfg.Metrics.Addr = ":9311"
	cfg.Retention.Schedule = "30 4 * * *"
	cfg.Retention.MaxAge = 30 * 24 * time.Hour
	return cfg
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return errors.New("storage.path must not be empty")
	}
	if c.Chat.RatePerSec < 0 {
		return fmt.Errorf("chat.rate_per_sec must not be negative (got %d)", c.Chat.RatePerSec)
	}
	if c.Retention.Enabled && c.Retention.MaxAge <= 0 {
		return errors.New("retention.max_age must be positive when retention is enabled")
	}
	return nil
}
