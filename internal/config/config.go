// Package config provides configuration management for catch.
// Process-level options come from environment variables; the user-editable
// capture settings live in a settings file (see Store).
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the process configuration.
type Config struct {
	// Storage
	VaultDir  string // CATCH_VAULT_DIR (default: current directory)
	ConfigDir string // CATCH_CONFIG_DIR (default: ~/.config/catch)
	Journal   string // CATCH_JOURNAL (optional, path to the SQLite capture journal)

	// Logging
	LogDir    string // CATCH_LOG_DIR (optional, also writes rotating log files)
	LogFormat string // CATCH_LOG_FORMAT (text or json, default: text)

	// Features
	Notify    bool // CATCH_NOTIFY (default: true, desktop notifications)
	RateLimit int  // CATCH_RATE_LIMIT (captures per minute per client, 0 = off)
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		VaultDir:  envStr("CATCH_VAULT_DIR", "."),
		ConfigDir: envStr("CATCH_CONFIG_DIR", defaultConfigDir()),
		Journal:   envStr("CATCH_JOURNAL", ""),
		LogDir:    envStr("CATCH_LOG_DIR", ""),
		LogFormat: envStr("CATCH_LOG_FORMAT", "text"),
		Notify:    envBool("CATCH_NOTIFY", true),
		RateLimit: envInt("CATCH_RATE_LIMIT", 0),
	}
}

// SettingsPath returns the default settings file location.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.ConfigDir, "settings.json")
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "catch")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "catch")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
