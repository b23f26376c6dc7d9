package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() with no config file failed: %v", err)
	}

	if cfg.DBPath != ".aset/inventory.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Remote.Timeout != 15*time.Second {
		t.Errorf("Remote.Timeout = %v, want 15s", cfg.Remote.Timeout)
	}
	if cfg.Dashboard.Port != 8484 {
		t.Errorf("Dashboard.Port = %d, want 8484", cfg.Dashboard.Port)
	}
	if cfg.Netmon.MarkerFile != ".aset/connectivity" {
		t.Errorf("Netmon.MarkerFile = %q", cfg.Netmon.MarkerFile)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aset.yaml")
	content := `db_path: /data/inv.db
remote:
  base_url: https://office.example.com/tables
  token: secret
  timeout: 30s
dashboard:
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DBPath != "/data/inv.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Remote.BaseURL != "https://office.example.com/tables" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Token != "secret" {
		t.Errorf("Remote.Token = %q", cfg.Remote.Token)
	}
	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("Remote.Timeout = %v", cfg.Remote.Timeout)
	}
	if cfg.Dashboard.Port != 9000 {
		t.Errorf("Dashboard.Port = %d", cfg.Dashboard.Port)
	}
	// Unset keys keep their defaults.
	if cfg.Netmon.MarkerFile != ".aset/connectivity" {
		t.Errorf("Netmon.MarkerFile = %q", cfg.Netmon.MarkerFile)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("ASET_REMOTE_BASE_URL", "https://env.example.com")
	t.Setenv("ASET_DB_PATH", "/env/inv.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Remote.BaseURL != "https://env.example.com" {
		t.Errorf("Remote.BaseURL = %q, want env value", cfg.Remote.BaseURL)
	}
	if cfg.DBPath != "/env/inv.db" {
		t.Errorf("DBPath = %q, want env value", cfg.DBPath)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with explicit missing file succeeded")
	}
}
