package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pharmapos/terminal/internal/auth"
	"pharmapos/terminal/internal/backend"
	"pharmapos/terminal/internal/cache"
	"pharmapos/terminal/internal/config"
	"pharmapos/terminal/internal/domain"
	"pharmapos/terminal/internal/httpapi"
	"pharmapos/terminal/internal/logger"
	"pharmapos/terminal/internal/receipt"
	"pharmapos/terminal/internal/session"
	"pharmapos/terminal/internal/session/memory"
	pgsession "pharmapos/terminal/internal/session/postgres"
	redissession "pharmapos/terminal/internal/session/redis"
	"pharmapos/terminal/internal/shift"
	"pharmapos/terminal/internal/terminal"
)

func main() {
	// a missing .env is fine; the process environment still applies
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(logger.FromEnv(cfg.AppEnv, cfg.LogLevel, cfg.LogEncoding))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := validateConfig(cfg); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 3)

	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		log.Fatal("session store unavailable", zap.String("driver", cfg.SessionDriver), zap.Error(err))
	}
	closers = append(closers, sessions.Close)
	log.Info("session store ready", zap.String("driver", cfg.SessionDriver))

	var products cache.ProductCache = cache.NewMemoryProductCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisProductCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using in-memory product cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			products = redisCache
			closers = append(closers, redisCache.Close)
			log.Info("product cache: redis")
		}
	} else {
		log.Info("product cache: memory")
	}

	client, err := backend.New(backend.Options{
		BaseURL:           cfg.BackendURL,
		Timeout:           time.Duration(cfg.BackendTimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.BackendRateLimit,
		Logger:            log,
	})
	if err != nil {
		log.Fatal("backend client", zap.Error(err))
	}

	var approvals shift.Verifier
	if cfg.ApprovalMode == "local" {
		verifier, err := auth.NewPINVerifier(cfg.ManagerPIN, domain.Approver{ID: "local-manager", Name: cfg.ManagerName})
		if err != nil {
			log.Fatal("manager PIN", zap.Error(err))
		}
		approvals = verifier
		log.Info("shift approvals: local PIN")
	} else {
		log.Info("shift approvals: backend")
	}

	printer := receipt.NewPrinter(cfg.PrinterAddr, cfg.PrinterDevice)
	if !printer.Ready() {
		log.Info("no receipt printer configured")
	}

	svc := terminal.New(terminal.Options{
		Backend:    client,
		Sessions:   sessions,
		Products:   products,
		ProductTTL: time.Duration(cfg.ProductCacheTTLSeconds) * time.Second,
		Approvals:  approvals,
		Printer:    printer,
		ReceiptDir: cfg.ReceiptDir,
		OutletID:   cfg.OutletID,
		TerminalID: cfg.TerminalID,
		Logger:     log,
	})
	api := httpapi.New(svc, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("terminal listening",
			zap.String("addr", cfg.Address()),
			zap.String("terminal_id", cfg.TerminalID),
			zap.String("backend", cfg.BackendURL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn("close error", zap.Error(err))
		}
	}

	log.Info("terminal stopped")
}

func openSessions(ctx context.Context, cfg config.Config) (session.Store, error) {
	switch cfg.SessionDriver {
	case "memory":
		return memory.New(), nil
	case "redis":
		store := redissession.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TerminalID)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := pgsession.New(ctx, cfg.DatabaseURL, cfg.TerminalID)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown SESSION_DRIVER %q", cfg.SessionDriver)
	}
}

func validateConfig(cfg config.Config) error {
	base, err := url.Parse(cfg.BackendURL)
	if cfg.BackendURL == "" || err != nil || !base.IsAbs() || base.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL")
	}
	if cfg.TerminalID == "" {
		return fmt.Errorf("TERMINAL_ID must be set")
	}

	switch cfg.SessionDriver {
	case "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set for the redis session driver")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres session driver")
		}
	default:
		return fmt.Errorf("SESSION_DRIVER must be memory, redis or postgres")
	}

	switch cfg.ApprovalMode {
	case "backend":
	case "local":
		if len(cfg.ManagerPIN) < 6 {
			return fmt.Errorf("MANAGER_PIN must be set and at least 6 digits")
		}
		if err := validatePINStrength(cfg.ManagerPIN); err != nil {
			return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
		}
	default:
		return fmt.Errorf("APPROVAL_MODE must be backend or local")
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"123456": true, "654321": true, "000000": true, "111111": true,
		"121212": true, "112233": true, "123123": true, "159753": true,
		"147258": true, "102030": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("PIN must be digits only")
		}
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}
