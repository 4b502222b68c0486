package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	WaniKani WaniKaniConfig `toml:"wanikani"`
	Sync     SyncConfig     `toml:"sync"`
	Server   ServerConfig   `toml:"server"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// WaniKaniConfig contains upstream API settings.
type WaniKaniConfig struct {
	BaseURL string `toml:"base_url"`
	// RateLimit is the number of requests allowed per rolling 60s window.
	RateLimit int `toml:"rate_limit"`
}

// SyncConfig contains background sync scheduling settings.
type SyncConfig struct {
	IntervalMinutes     int `toml:"interval_minutes"`
	MaxConcurrentSyncs  int `toml:"max_concurrent_syncs"`
	StaleAfterMinutes   int `toml:"stale_after_minutes"`
	MisfireGraceSeconds int `toml:"misfire_grace_seconds"`
}

// Interval returns the scheduler firing interval.
func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// StaleAfter returns the staleness threshold for fleet sync selection.
func (s SyncConfig) StaleAfter() time.Duration {
	return time.Duration(s.StaleAfterMinutes) * time.Minute
}

// MisfireGrace returns the maximum allowed lateness before a scheduled firing is dropped.
func (s SyncConfig) MisfireGrace() time.Duration {
	return time.Duration(s.MisfireGraceSeconds) * time.Second
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string  `toml:"host"`
	Port          int     `toml:"port"`
	RegisterRate  float64 `toml:"register_rate"`
	RegisterBurst int     `toml:"register_burst"`
}

// Addr returns the host:port address the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidInput)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
