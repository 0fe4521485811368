package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadRequiresAdminPassword(t *testing.T) {
	t.Setenv("PARTYSTAT_ADMIN_PASSWORD", "")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "PARTYSTAT_ADMIN_PASSWORD") {
		t.Fatalf("Load without password = %v, want missing-password error", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PARTYSTAT_ADMIN_PASSWORD", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "/partysta" {
		t.Errorf("BasePath = %q, want /partysta", cfg.Server.BasePath)
	}
	if cfg.Storage.DataDir != "./data" {
		t.Errorf("DataDir = %q, want ./data", cfg.Storage.DataDir)
	}
	if cfg.Upload.MaxFileSize != 50<<20 {
		t.Errorf("MaxFileSize = %d, want 50MiB", cfg.Upload.MaxFileSize)
	}
	if cfg.Auth.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.Auth.SessionTTL)
	}
	if cfg.Lock.Timeout != 30*time.Second {
		t.Errorf("Lock.Timeout = %v, want 30s", cfg.Lock.Timeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PARTYSTAT_ADMIN_PASSWORD", "secret")
	t.Setenv("PARTYSTAT_PORT", "8080")
	t.Setenv("PARTYSTAT_BASE_PATH", "stats/")
	t.Setenv("PARTYSTAT_SESSION_TTL", "1h")
	t.Setenv("PARTYSTAT_LOCK_TIMEOUT", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "/stats" {
		t.Errorf("BasePath = %q, want /stats", cfg.Server.BasePath)
	}
	if cfg.Auth.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want 1h", cfg.Auth.SessionTTL)
	}
	if cfg.Lock.Timeout != 0 {
		t.Errorf("Lock.Timeout = %v, want 0", cfg.Lock.Timeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PARTYSTAT_ADMIN_PASSWORD", "secret")
	t.Setenv("PARTYSTAT_PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("Load with bad port succeeded, want error")
	}
}

func TestAllowedExtension(t *testing.T) {
	u := defaults().Upload
	allowed := []string{"roster.xlsx", "ROSTER.XLSX", "old.xls", "档案.xlsx"}
	for _, name := range allowed {
		if !u.AllowedExtension(name) {
			t.Errorf("AllowedExtension(%q) = false, want true", name)
		}
	}
	denied := []string{"roster.csv", "roster.xlsx.exe", "roster", ""}
	for _, name := range denied {
		if u.AllowedExtension(name) {
			t.Errorf("AllowedExtension(%q) = true, want false", name)
		}
	}
}
