package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (ORDERLY_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("addr", os.Getenv("ORDERLY_ADDR"), &cfg.Addr)
	s.setString("log-level", os.Getenv("ORDERLY_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("allowed-origins", os.Getenv("ORDERLY_ALLOWED_ORIGINS"), &cfg.AllowedOrigins)

	ints := []struct {
		flag, env string
		dst       *int
	}{
		{"size", "ORDERLY_SIZE", &cfg.Size},
		{"default-limit", "ORDERLY_DEFAULT_LIMIT", &cfg.DefaultLimit},
		{"max-limit", "ORDERLY_MAX_LIMIT", &cfg.MaxLimit},
		{"view-cache-size", "ORDERLY_VIEW_CACHE_SIZE", &cfg.ViewCacheSize},
		{"max-clients", "ORDERLY_MAX_CLIENTS", &cfg.MaxClients},
	}
	for _, v := range ints {
		if err := s.setIntFromString(v.flag, os.Getenv(v.env), v.dst); err != nil {
			return err
		}
	}

	if err := s.setFloatFromString("key-spacing", os.Getenv("ORDERLY_KEY_SPACING"), &cfg.KeySpacing); err != nil {
		return err
	}
	if err := s.setDuration("selection-ttl", os.Getenv("ORDERLY_SELECTION_TTL"), &cfg.SelectionTTL); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("ORDERLY_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	return nil
}
