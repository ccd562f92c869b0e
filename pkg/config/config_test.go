package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEFAULT_USE_LIMIT", "")
	t.Setenv("DEFAULT_TTL_HOURS", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("BASE_URL", "http://short.test/")

	cfg := Load()

	if cfg.DefaultUseLimit != 10 {
		t.Errorf("DefaultUseLimit = %d, want 10", cfg.DefaultUseLimit)
	}
	if cfg.DefaultTTLHours != 24 {
		t.Errorf("DefaultTTLHours = %d, want 24", cfg.DefaultTTLHours)
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %s, want 1h", cfg.SweepInterval)
	}
	if cfg.BaseURL != "http://short.test" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DEFAULT_USE_LIMIT", "5")
	t.Setenv("DEFAULT_TTL_HOURS", "48")
	t.Setenv("SWEEP_INTERVAL", "15m")
	t.Setenv("NOTIFY_BUFFER", "not-a-number")

	cfg := Load()

	if cfg.DefaultUseLimit != 5 || cfg.DefaultTTLHours != 48 {
		t.Errorf("got limit=%d ttl=%d, want 5/48", cfg.DefaultUseLimit, cfg.DefaultTTLHours)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("SweepInterval = %s, want 15m", cfg.SweepInterval)
	}
	if cfg.NotifyBuffer != 256 {
		t.Errorf("NotifyBuffer = %d, invalid value should fall back to 256", cfg.NotifyBuffer)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{DefaultUseLimit: 1, DefaultTTLHours: 8760, SweepInterval: time.Minute}, false},
		{"limit too low", Config{DefaultUseLimit: 0, DefaultTTLHours: 24, SweepInterval: time.Minute}, true},
		{"limit too high", Config{DefaultUseLimit: 1001, DefaultTTLHours: 24, SweepInterval: time.Minute}, true},
		{"ttl too high", Config{DefaultUseLimit: 10, DefaultTTLHours: 8761, SweepInterval: time.Minute}, true},
		{"no interval", Config{DefaultUseLimit: 10, DefaultTTLHours: 24}, true},
		{"local default secret", Config{DefaultUseLimit: 10, DefaultTTLHours: 24, SweepInterval: time.Minute, AppEnv: "local", JWTSecret: DefaultJWTSecret}, false},
		{"production default secret", Config{DefaultUseLimit: 10, DefaultTTLHours: 24, SweepInterval: time.Minute, AppEnv: "production", JWTSecret: DefaultJWTSecret}, true},
		{"production empty secret", Config{DefaultUseLimit: 10, DefaultTTLHours: 24, SweepInterval: time.Minute, AppEnv: "production"}, true},
		{"production real secret", Config{DefaultUseLimit: 10, DefaultTTLHours: 24, SweepInterval: time.Minute, AppEnv: "production", JWTSecret: "9f2c7e1a4b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg := Load()
	if !cfg.IsProduction() || cfg.JWTSecret != DefaultJWTSecret {
		t.Fatalf("got production=%v secret=%q", cfg.IsProduction(), cfg.JWTSecret)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("production config with the default secret should not validate")
	}

	t.Setenv("JWT_SECRET", "4f8d2b6e9a")
	if err := Load().Validate(); err != nil {
		t.Errorf("production config with a real secret: %v", err)
	}
}
