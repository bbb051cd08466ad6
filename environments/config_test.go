package environments

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "DISPATCH_CALLSIGN", "HOPPIE_LOGON_CODE", "API_TIMEOUT",
		"API_RETRY_ATTEMPTS", "API_RETRY_DELAY", "HOPPIE_POLL_INTERVAL_SECONDS",
		"STORAGE_DRIVER", "DEDUP_WINDOW_SECONDS", "NOTIFY_TIMEOUT", "AUTO_START_SYNC",
	} {
		// t.Setenv restores the original value after the test.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Hoppie.Station != "JALV" {
		t.Errorf("expected station JALV, got %q", cfg.Hoppie.Station)
	}
	if cfg.Hoppie.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Hoppie.Timeout)
	}
	if cfg.Hoppie.MaxAttempts != 3 || cfg.Hoppie.RetryDelay != time.Second {
		t.Errorf("unexpected retry policy: %d attempts, %v delay", cfg.Hoppie.MaxAttempts, cfg.Hoppie.RetryDelay)
	}
	if cfg.Sync.PollInterval != 30*time.Second {
		t.Errorf("expected 30s poll interval, got %v", cfg.Sync.PollInterval)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if cfg.HasCredentials() {
		t.Errorf("expected no credentials without a logon code")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)

	t.Setenv("DISPATCH_CALLSIGN", "jalx")
	t.Setenv("HOPPIE_LOGON_CODE", "secret")
	t.Setenv("API_TIMEOUT", "2500")
	t.Setenv("API_RETRY_ATTEMPTS", "5")
	t.Setenv("HOPPIE_POLL_INTERVAL_SECONDS", "45")
	t.Setenv("STORAGE_DRIVER", "VALKEY")
	t.Setenv("DEDUP_WINDOW_SECONDS", "120")
	t.Setenv("NOTIFY_TIMEOUT", "750ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Hoppie.Station != "JALX" {
		t.Errorf("expected uppercased station JALX, got %q", cfg.Hoppie.Station)
	}
	if !cfg.HasCredentials() {
		t.Errorf("expected credentials to be configured")
	}
	if cfg.Hoppie.Timeout != 2500*time.Millisecond {
		t.Errorf("expected 2.5s timeout, got %v", cfg.Hoppie.Timeout)
	}
	if cfg.Hoppie.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Hoppie.MaxAttempts)
	}
	if cfg.Sync.PollInterval != 45*time.Second {
		t.Errorf("expected 45s interval, got %v", cfg.Sync.PollInterval)
	}
	if cfg.Storage.Driver != DriverValkey {
		t.Errorf("expected valkey driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.DedupWindow != 2*time.Minute {
		t.Errorf("expected 2m dedup window, got %v", cfg.Storage.DedupWindow)
	}
	if cfg.Notify.Timeout != 750*time.Millisecond {
		t.Errorf("expected 750ms notify timeout, got %v", cfg.Notify.Timeout)
	}
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "acars.yaml")
	content := `
hoppie:
  station: JALY
  retry_delay: 250ms
sync:
  poll_interval: 1m
  alert_threshold: 4
storage:
  driver: mysql
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_RETRY_ATTEMPTS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Hoppie.Station != "JALY" {
		t.Errorf("expected station from file, got %q", cfg.Hoppie.Station)
	}
	if cfg.Hoppie.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms retry delay, got %v", cfg.Hoppie.RetryDelay)
	}
	if cfg.Sync.PollInterval != time.Minute || cfg.Sync.AlertThreshold != 4 {
		t.Errorf("unexpected sync config: %+v", cfg.Sync)
	}
	if cfg.Storage.Driver != DriverMySQL {
		t.Errorf("expected mysql driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Hoppie.MaxAttempts != 2 {
		t.Errorf("expected env to override attempts, got %d", cfg.Hoppie.MaxAttempts)
	}
	if cfg.Hoppie.Timeout != 10*time.Second {
		t.Errorf("expected default timeout to survive, got %v", cfg.Hoppie.Timeout)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.Hoppie.URL = "" }},
		{"empty station", func(c *Config) { c.Hoppie.Station = "" }},
		{"zero timeout", func(c *Config) { c.Hoppie.Timeout = 0 }},
		{"zero attempts", func(c *Config) { c.Hoppie.MaxAttempts = 0 }},
		{"negative delay", func(c *Config) { c.Hoppie.RetryDelay = -time.Second }},
		{"zero interval", func(c *Config) { c.Sync.PollInterval = 0 }},
		{"empty namespace", func(c *Config) { c.Storage.Namespace = "" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }},
	}

	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults must validate, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
