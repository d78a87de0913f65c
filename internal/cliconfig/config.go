package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/orderly/internal/domain"
)

// Defaults for server configuration.
const (
	DefaultAddr            = ":3000"
	DefaultSize            = 1_000_000
	DefaultKeySpacing      = 1.0
	DefaultLimit           = 20
	DefaultMaxLimit        = 1000
	DefaultMaxClients      = 10000
	DefaultSelectionTTL    = 24 * time.Hour
	DefaultViewCacheSize   = 64
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
)

// Config holds CLI configuration for the orderly server.
type Config struct {
	Addr string

	Size       int
	KeySpacing float64

	DefaultLimit  int
	MaxLimit      int
	ViewCacheSize int

	MaxClients   int
	SelectionTTL time.Duration

	ShutdownTimeout time.Duration
	LogLevel        string

	// AllowedOrigins is a comma-separated list of origins allowed to call
	// the API from a browser. Empty disables CORS headers.
	AllowedOrigins string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addr:            DefaultAddr,
		Size:            DefaultSize,
		KeySpacing:      DefaultKeySpacing,
		DefaultLimit:    DefaultLimit,
		MaxLimit:        DefaultMaxLimit,
		ViewCacheSize:   DefaultViewCacheSize,
		MaxClients:      DefaultMaxClients,
		SelectionTTL:    DefaultSelectionTTL,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        DefaultLogLevel,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Size <= 0 {
		return fmt.Errorf("%w: size must be positive", domain.ErrInvalidConfig)
	}
	if c.KeySpacing <= 0 {
		return fmt.Errorf("%w: key spacing must be positive", domain.ErrInvalidConfig)
	}
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("%w: default limit must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("%w: max limit %d below default limit %d", domain.ErrInvalidConfig, c.MaxLimit, c.DefaultLimit)
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("%w: max clients must be positive", domain.ErrInvalidConfig)
	}
	if c.SelectionTTL < 0 {
		return fmt.Errorf("%w: selection ttl must not be negative", domain.ErrInvalidConfig)
	}
	if c.ViewCacheSize <= 0 {
		c.ViewCacheSize = DefaultViewCacheSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return nil
}

// Origins splits AllowedOrigins into its non-empty entries.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(strings.ReplaceAll(value, "_", ""))
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}
