// Package config loads the service configuration from config/applinks.yaml
// with environment-variable overrides and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the durable store. An empty DSN keeps the service on
// the in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RefreshConfig controls the scheduled refresh walk.
type RefreshConfig struct {
	Schedule         string        `yaml:"schedule"`           // cron expression
	Workers          int           `yaml:"workers"`            // bounded parallelism
	MinFetchInterval time.Duration `yaml:"min_fetch_interval"` // upstream pacing
}

// UpstreamConfig controls the outbound fetch behaviour.
type UpstreamConfig struct {
	UserAgent      string        `yaml:"user_agent"`
	Timeout        time.Duration `yaml:"timeout"`
	Country        string        `yaml:"country"`  // App Store lookup country
	Language       string        `yaml:"language"` // Play storefront language
	Region         string        `yaml:"region"`   // Play storefront region
	LookupEndpoint string        `yaml:"lookup_endpoint"`
	PlayBaseURL    string        `yaml:"play_base_url"`
}

// LoggingConfig mirrors the logger package configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// browserUserAgent mirrors what a desktop browser sends; the Play storefront
// serves a degraded page to unidentified clients.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Refresh: RefreshConfig{
			Schedule:         "@every 24h",
			Workers:          4,
			MinFetchInterval: 200 * time.Millisecond,
		},
		Upstream: UpstreamConfig{
			UserAgent: browserUserAgent,
			Timeout:   10 * time.Second,
			Country:   "JP",
			Language:  "ja",
			Region:    "JP",
		},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

// Load reads config/applinks.yaml relative to the working directory.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "applinks.yaml"))
}

// LoadFromPath reads a configuration file, layering it over the defaults and
// then applying environment overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration file or falls back to defaults (plus
// environment overrides) when the file is absent.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APPLINKS_ADDR_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("APPLINKS_ADDR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("APPLINKS_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("APPLINKS_REFRESH_SCHEDULE"); v != "" {
		c.Refresh.Schedule = v
	}
	if v := os.Getenv("APPLINKS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Refresh.Workers <= 0 {
		return fmt.Errorf("refresh workers must be positive")
	}
	return nil
}
