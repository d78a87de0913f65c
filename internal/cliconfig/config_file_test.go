package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Addr:          ":8080",
				Size:          500,
				KeySpacing:    16,
				MaxClients:    10,
				SelectionTTL:  "1h",
				LogLevel:      "debug",
				ViewCacheSize: 8,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Addr:          ":8080",
				Size:          500,
				KeySpacing:    16,
				MaxClients:    10,
				SelectionTTL:  time.Hour,
				LogLevel:      "debug",
				ViewCacheSize: 8,
			},
		},
		{
			name:       "respects changed flags",
			fileConfig: FileConfig{Addr: ":8080", Size: 500},
			changed:    map[string]bool{"addr": true},
			initial:    Config{Addr: ":9090"},
			expected:   Config{Addr: ":9090", Size: 500},
		},
		{
			name:       "zero values leave defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			expected:   DefaultConfig(),
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{ShutdownTimeout: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `addr = ":4000"
size = 2500
key_spacing = 8.0
selection_ttl = "30m"
log_level = "warn"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if fc.Addr != ":4000" || fc.Size != 2500 || fc.KeySpacing != 8 {
		t.Errorf("FileConfig = %+v", fc)
	}
	if fc.SelectionTTL != "30m" || fc.LogLevel != "warn" {
		t.Errorf("FileConfig = %+v", fc)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false, want true")
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFileConfig(missing) error = nil, want error")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("size = ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFileConfig(bad); err == nil {
		t.Error("LoadFileConfig(bad) error = nil, want error")
	}
}
