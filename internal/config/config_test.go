package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Refresh.Schedule != "@every 24h" {
		t.Fatalf("schedule = %q", cfg.Refresh.Schedule)
	}
	if cfg.Upstream.Country != "JP" || cfg.Upstream.Language != "ja" {
		t.Fatalf("unexpected upstream locale: %#v", cfg.Upstream)
	}
	if cfg.Upstream.UserAgent == "" {
		t.Fatalf("user agent must default to a browser identification")
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "applinks.yaml")
	doc := `
server:
  port: 9090
database:
  dsn: postgres://localhost/applinks
refresh:
  schedule: "@every 1h"
  workers: 8
  min_fetch_interval: 500ms
upstream:
  timeout: 30s
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.DSN != "postgres://localhost/applinks" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Refresh.Schedule != "@every 1h" || cfg.Refresh.Workers != 8 {
		t.Fatalf("refresh = %#v", cfg.Refresh)
	}
	if cfg.Refresh.MinFetchInterval != 500*time.Millisecond {
		t.Fatalf("min fetch interval = %v", cfg.Refresh.MinFetchInterval)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.Upstream.Timeout)
	}
	// Unset keys keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("host = %q", cfg.Server.Host)
	}
	if cfg.Upstream.Country != "JP" {
		t.Fatalf("country = %q", cfg.Upstream.Country)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad-port.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}

	path = filepath.Join(dir, "bad-workers.yaml")
	if err := os.WriteFile(path, []byte("refresh:\n  workers: -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected error for negative worker count")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APPLINKS_ADDR_HOST", "127.0.0.1")
	t.Setenv("APPLINKS_ADDR_PORT", "8181")
	t.Setenv("APPLINKS_DATABASE_DSN", "postgres://env/dsn")
	t.Setenv("APPLINKS_REFRESH_SCHEDULE", "@every 6h")
	t.Setenv("APPLINKS_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.applyEnv()

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8181 {
		t.Fatalf("server = %#v", cfg.Server)
	}
	if cfg.Database.DSN != "postgres://env/dsn" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Refresh.Schedule != "@every 6h" {
		t.Fatalf("schedule = %q", cfg.Refresh.Schedule)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
}
