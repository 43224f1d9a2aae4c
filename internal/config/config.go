package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv                 string
	Port                   string
	AllowedOrigin          string
	BackendURL             string
	BackendTimeoutSeconds  int
	BackendRateLimit       float64
	OutletID               string
	TerminalID             string
	SessionDriver          string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	DatabaseURL            string
	ProductCacheTTLSeconds int
	ReceiptDir             string
	PrinterAddr            string
	PrinterDevice          string
	ApprovalMode           string
	ManagerPIN             string
	ManagerName            string
	LogLevel               string
	LogEncoding            string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	timeout, err := strconv.Atoi(getEnv("BACKEND_TIMEOUT_SECONDS", "10"))
	if err != nil || timeout < 1 {
		timeout = 10
	}
	rateLimit, err := strconv.ParseFloat(getEnv("BACKEND_RATE_LIMIT", "20"), 64)
	if err != nil || rateLimit < 0 {
		rateLimit = 20
	}
	cacheTTL, err := strconv.Atoi(getEnv("PRODUCT_CACHE_TTL_SECONDS", "300"))
	if err != nil || cacheTTL < 0 {
		cacheTTL = 300
	}

	cfg := Config{
		AppEnv:                 getEnv("APP_ENV", "production"),
		Port:                   getEnv("PORT", "8090"),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		BackendURL:             strings.TrimSpace(os.Getenv("BACKEND_URL")),
		BackendTimeoutSeconds:  timeout,
		BackendRateLimit:       rateLimit,
		OutletID:               strings.TrimSpace(os.Getenv("OUTLET_ID")),
		TerminalID:             getEnv("TERMINAL_ID", "terminal-1"),
		SessionDriver:          strings.ToLower(getEnv("SESSION_DRIVER", "memory")),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		ProductCacheTTLSeconds: cacheTTL,
		ReceiptDir:             getEnv("RECEIPT_DIR", "receipts"),
		PrinterAddr:            strings.TrimSpace(os.Getenv("PRINTER_ADDR")),
		PrinterDevice:          strings.TrimSpace(os.Getenv("PRINTER_DEVICE")),
		ApprovalMode:           strings.ToLower(getEnv("APPROVAL_MODE", "backend")),
		ManagerPIN:             strings.TrimSpace(os.Getenv("MANAGER_PIN")),
		ManagerName:            getEnv("MANAGER_NAME", "Store Manager"),
		LogLevel:               os.Getenv("LOG_LEVEL"),
		LogEncoding:            os.Getenv("LOG_ENCODING"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}
