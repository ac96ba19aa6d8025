package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/medvault_test")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.SummaryCooldownSeconds != 30 {
		t.Errorf("expected default cooldown 30s, got %d", cfg.SummaryCooldownSeconds)
	}
	if cfg.TokenDefaultTTLHours != 24 {
		t.Errorf("expected default token TTL 24h, got %d", cfg.TokenDefaultTTLHours)
	}
	if cfg.TokenMaxTTLHours != 720 {
		t.Errorf("expected token TTL ceiling 720h, got %d", cfg.TokenMaxTTLHours)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestResolvedAuthMode(t *testing.T) {
	cases := []struct {
		env, mode, want string
	}{
		{"development", "", AuthModeDevBypass},
		{"production", "", AuthModeNormal},
		{"development", AuthModeNormal, AuthModeNormal},
		{"production", AuthModeDevBypass, AuthModeDevBypass},
	}
	for _, tc := range cases {
		cfg := &Config{Env: tc.env, AuthMode: tc.mode}
		if got := cfg.ResolvedAuthMode(); got != tc.want {
			t.Errorf("env=%s mode=%s: expected %s, got %s", tc.env, tc.mode, tc.want, got)
		}
	}
}

func TestValidate_RejectsBypassInProduction(t *testing.T) {
	cfg := &Config{
		Env:                  "production",
		AuthMode:             AuthModeDevBypass,
		TokenDefaultTTLHours: 24,
		TokenMaxTTLHours:     720,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected dev-bypass to be rejected in production")
	}
}

func TestValidate_RequiresSessionSecret(t *testing.T) {
	cfg := &Config{
		Env:                  "production",
		AuthMode:             AuthModeNormal,
		TokenDefaultTTLHours: 24,
		TokenMaxTTLHours:     720,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing SESSION_SECRET to be rejected")
	}
	cfg.SessionSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_TokenTTLOrdering(t *testing.T) {
	cfg := &Config{
		Env:                  "development",
		SessionSecret:        "secret",
		TokenDefaultTTLHours: 1000,
		TokenMaxTTLHours:     720,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected default TTL above ceiling to be rejected")
	}
}
