package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Addr            string  `toml:"addr"`
	Size            int     `toml:"size"`
	KeySpacing      float64 `toml:"key_spacing"`
	DefaultLimit    int     `toml:"default_limit"`
	MaxLimit        int     `toml:"max_limit"`
	ViewCacheSize   int     `toml:"view_cache_size"`
	MaxClients      int     `toml:"max_clients"`
	SelectionTTL    string  `toml:"selection_ttl"`
	ShutdownTimeout string  `toml:"shutdown_timeout"`
	LogLevel        string  `toml:"log_level"`
	AllowedOrigins  string  `toml:"allowed_origins"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.orderly/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".orderly", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("addr", fc.Addr, &cfg.Addr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("allowed-origins", fc.AllowedOrigins, &cfg.AllowedOrigins)

	s.setInt("size", fc.Size, &cfg.Size)
	s.setInt("default-limit", fc.DefaultLimit, &cfg.DefaultLimit)
	s.setInt("max-limit", fc.MaxLimit, &cfg.MaxLimit)
	s.setInt("view-cache-size", fc.ViewCacheSize, &cfg.ViewCacheSize)
	s.setInt("max-clients", fc.MaxClients, &cfg.MaxClients)

	s.setFloat("key-spacing", fc.KeySpacing, &cfg.KeySpacing)

	if err := s.setDuration("selection-ttl", fc.SelectionTTL, &cfg.SelectionTTL); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
