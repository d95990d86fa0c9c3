package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "tareasd.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d", cfg.HTTPPort)
	}
	if cfg.ReevalInterval != time.Minute {
		t.Errorf("ReevalInterval = %v", cfg.ReevalInterval)
	}
	if cfg.DueSoonWindow != 30*time.Minute {
		t.Errorf("DueSoonWindow = %v", cfg.DueSoonWindow)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TAREASD_DB", "/tmp/otra.db")
	t.Setenv("TAREASD_PORT", "9090")
	t.Setenv("TAREASD_REEVAL_INTERVAL", "15s")
	t.Setenv("TAREASD_USER", "ana")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/otra.db" || cfg.HTTPPort != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ReevalInterval != 15*time.Second {
		t.Errorf("ReevalInterval = %v", cfg.ReevalInterval)
	}
	if cfg.LocalUser != "ana" {
		t.Errorf("LocalUser = %q", cfg.LocalUser)
	}
}
