package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string

	// GatewayServerKey signs inbound payment notifications. Notifications
	// that do not verify against it are rejected.
	GatewayServerKey string

	PayoutBaseURL       string
	PayoutAPIKey        string
	PayoutTimeout       time.Duration
	PayoutBankCode      string
	PayoutAccountName   string
	PayoutAccountNumber string

	LicenseCacheTTL     time.Duration
	LicenseQueryTimeout time.Duration

	PendingTransactionTTL time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "lokapasar"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "lokapasar"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		GatewayServerKey: strings.TrimSpace(getenv("GATEWAY_SERVER_KEY", "")),

		PayoutBaseURL:       strings.TrimRight(getenv("PAYOUT_BASE_URL", ""), "/"),
		PayoutAPIKey:        strings.TrimSpace(getenv("PAYOUT_API_KEY", "")),
		PayoutTimeout:       getenvDuration("PAYOUT_TIMEOUT", 5*time.Second),
		PayoutBankCode:      getenv("PAYOUT_BANK_CODE", ""),
		PayoutAccountName:   getenv("PAYOUT_ACCOUNT_NAME", ""),
		PayoutAccountNumber: getenv("PAYOUT_ACCOUNT_NUMBER", ""),

		LicenseCacheTTL:     getenvDuration("LICENSE_CACHE_TTL", 3*time.Minute),
		LicenseQueryTimeout: getenvDuration("LICENSE_QUERY_TIMEOUT", 2*time.Second),

		PendingTransactionTTL: getenvDuration("PENDING_TRANSACTION_TTL", 24*time.Hour),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}
