package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"ORDERLY_ADDR":             ":7000",
				"ORDERLY_SIZE":             "1_000",
				"ORDERLY_KEY_SPACING":      "2.5",
				"ORDERLY_MAX_CLIENTS":      "50",
				"ORDERLY_SELECTION_TTL":    "2h",
				"ORDERLY_SHUTDOWN_TIMEOUT": "3s",
				"ORDERLY_LOG_LEVEL":        "debug",
			},
			changed: map[string]bool{},
			expected: Config{
				Addr:            ":7000",
				Size:            1000,
				KeySpacing:      2.5,
				MaxClients:      50,
				SelectionTTL:    2 * time.Hour,
				ShutdownTimeout: 3 * time.Second,
				LogLevel:        "debug",
			},
		},
		{
			name:     "respects changed flags",
			envVars:  map[string]string{"ORDERLY_ADDR": ":7000", "ORDERLY_SIZE": "10"},
			changed:  map[string]bool{"addr": true},
			expected: Config{Size: 10},
		},
		{
			name:    "invalid int",
			envVars: map[string]string{"ORDERLY_SIZE": "lots"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid float",
			envVars: map[string]string{"ORDERLY_KEY_SPACING": "wide"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid duration",
			envVars: map[string]string{"ORDERLY_SELECTION_TTL": "forever"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			var cfg Config
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
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

func TestPrecedence_FileThenEnvThenFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ":1111" // set by flag
	changed := map[string]bool{"addr": true}

	fc := FileConfig{Addr: ":2222", Size: 200, MaxClients: 5}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	t.Setenv("ORDERLY_SIZE", "300")
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig() error = %v", err)
	}

	if cfg.Addr != ":1111" {
		t.Errorf("Addr = %v, want flag value :1111", cfg.Addr)
	}
	if cfg.Size != 300 {
		t.Errorf("Size = %v, want env value 300", cfg.Size)
	}
	if cfg.MaxClients != 5 {
		t.Errorf("MaxClients = %v, want file value 5", cfg.MaxClients)
	}
}
