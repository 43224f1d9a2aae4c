package main

import (
	"context"
	"testing"

	"pharmapos/terminal/internal/config"
	"pharmapos/terminal/internal/session/memory"
)

func validConfig() config.Config {
	return config.Config{
		BackendURL:    "https://pos.example.com/api",
		TerminalID:    "T01",
		SessionDriver: "memory",
		ApprovalMode:  "backend",
	}
}

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateConfigRejectsRelativeBackendURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "/api"} {
		cfg := validConfig()
		cfg.BackendURL = raw
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestValidateConfigChecksDriverSettings(t *testing.T) {
	cfg := validConfig()
	cfg.SessionDriver = "redis"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected redis driver without REDIS_ADDR to be rejected")
	}
	cfg.RedisAddr = "127.0.0.1:6379"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected redis driver to pass, got %v", err)
	}

	cfg = validConfig()
	cfg.SessionDriver = "postgres"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected postgres driver without DATABASE_URL to be rejected")
	}

	cfg = validConfig()
	cfg.SessionDriver = "sqlite"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected unknown driver to be rejected")
	}
}

func TestValidateConfigRejectsWeakLocalPIN(t *testing.T) {
	for _, pin := range []string{"", "1234", "123456", "987654", "444444", "12ab56"} {
		cfg := validConfig()
		cfg.ApprovalMode = "local"
		cfg.ManagerPIN = pin
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("expected PIN %q to be rejected", pin)
		}
	}
}

func TestValidateConfigAcceptsStrongLocalPIN(t *testing.T) {
	cfg := validConfig()
	cfg.ApprovalMode = "local"
	cfg.ManagerPIN = "739154"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected strong PIN to pass, got %v", err)
	}
}

func TestOpenSessionsMemory(t *testing.T) {
	store, err := openSessions(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("open memory sessions: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	cfg := validConfig()
	cfg.SessionDriver = "bogus"
	if _, err := openSessions(context.Background(), cfg); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}
