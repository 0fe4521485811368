// Package config loads the server configuration from documented defaults and
// PARTYSTAT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Upload  UploadConfig
	Auth    AuthConfig
	Lock    LockConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	BasePath string
}

type StorageConfig struct {
	DataDir string
}

type UploadConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

type AuthConfig struct {
	// AdminPassword has no default and must come from the environment.
	AdminPassword string
	SessionTTL    time.Duration
}

type LockConfig struct {
	// Timeout bounds how long a storage operation waits for its path lock.
	// Zero waits forever.
	Timeout time.Duration
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     3000,
			BasePath: "/partysta",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Upload: UploadConfig{
			MaxFileSize:       50 << 20,
			AllowedExtensions: []string{".xlsx", ".xls"},
		},
		Auth: AuthConfig{
			SessionTTL: 12 * time.Hour,
		},
		Lock: LockConfig{
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults and environment overrides:
//
//	PARTYSTAT_PORT           listen port
//	PARTYSTAT_BASE_PATH      URL prefix the app is served under
//	PARTYSTAT_DATA_DIR       data directory
//	PARTYSTAT_MAX_FILE_SIZE  upload size cap in bytes
//	PARTYSTAT_ADMIN_PASSWORD admin password (required)
//	PARTYSTAT_SESSION_TTL    admin session lifetime (Go duration)
//	PARTYSTAT_LOCK_TIMEOUT   path lock wait bound (Go duration, 0 = none)
//	PARTYSTAT_LOG_LEVEL      "info" or "debug"
//
// Load fails when no admin password is configured.
func Load() (Config, error) {
	cfg := defaults()

	if v := os.Getenv("PARTYSTAT_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing PARTYSTAT_PORT: %w", err)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("PARTYSTAT_BASE_PATH"); v != "" {
		cfg.Server.BasePath = "/" + strings.Trim(v, "/")
	}
	if v := os.Getenv("PARTYSTAT_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("PARTYSTAT_MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parsing PARTYSTAT_MAX_FILE_SIZE: %w", err)
		}
		cfg.Upload.MaxFileSize = n
	}
	if v := os.Getenv("PARTYSTAT_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing PARTYSTAT_SESSION_TTL: %w", err)
		}
		cfg.Auth.SessionTTL = d
	}
	if v := os.Getenv("PARTYSTAT_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing PARTYSTAT_LOCK_TIMEOUT: %w", err)
		}
		cfg.Lock.Timeout = d
	}
	if v := os.Getenv("PARTYSTAT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.Auth.AdminPassword = os.Getenv("PARTYSTAT_ADMIN_PASSWORD")
	if cfg.Auth.AdminPassword == "" {
		return Config{}, fmt.Errorf("missing required config: admin password. Set it via environment variable PARTYSTAT_ADMIN_PASSWORD")
	}

	return cfg, nil
}

// AllowedExtension reports whether the upload filename carries one of the
// accepted workbook extensions.
func (c UploadConfig) AllowedExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range c.AllowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
