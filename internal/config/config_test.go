package config

import "testing"

func TestLoadDoesNotInjectWeakManagerPIN(t *testing.T) {
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BACKEND_TIMEOUT_SECONDS", "BACKEND_RATE_LIMIT", "SESSION_DRIVER", "APPROVAL_MODE", "TERMINAL_ID"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Address() != ":8090" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
	if cfg.BackendTimeoutSeconds != 10 || cfg.BackendRateLimit != 20 {
		t.Fatalf("unexpected backend defaults: %+v", cfg)
	}
	if cfg.SessionDriver != "memory" || cfg.ApprovalMode != "backend" || cfg.TerminalID != "terminal-1" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "soon")
	t.Setenv("PRODUCT_CACHE_TTL_SECONDS", "-4")
	t.Setenv("SESSION_DRIVER", "Redis")

	cfg := Load()
	if cfg.BackendTimeoutSeconds != 10 {
		t.Fatalf("expected timeout fallback, got %d", cfg.BackendTimeoutSeconds)
	}
	if cfg.ProductCacheTTLSeconds != 300 {
		t.Fatalf("expected cache ttl fallback, got %d", cfg.ProductCacheTTLSeconds)
	}
	if cfg.SessionDriver != "redis" {
		t.Fatalf("expected lower-cased driver, got %q", cfg.SessionDriver)
	}
}
