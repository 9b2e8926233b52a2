package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected http address %q", cfg.HTTPAddress)
	}
	if cfg.APITimeout != defaultAPITimeout {
		t.Fatalf("unexpected timeout %v", cfg.APITimeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SNIPPYVAULT_API_BASE_URL", "https://vault.example.com/v1")
	t.Setenv("SNIPPYVAULT_API_TIMEOUT", "3s")
	t.Setenv("SNIPPYVAULT_LOG_LEVEL", "debug")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "https://vault.example.com/v1" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 3*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.APITimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"database.path": "",
		"api.base_url":  "  ",
		"api.timeout":   "0s",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			configViper := NewViper()
			configViper.Set(key, value)
			if _, err := Load(configViper); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
