package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Email EmailConfig

	Engine EngineConfig
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	// AccountingEmail is CC'd on invoice-family notifications when the
	// reminder config asks for it.
	AccountingEmail string
}

// EngineConfig carries the tunables of the notification engine. The expiry
// thresholds, grace/deletion windows, retry ceiling and backoff policy are
// deployment configuration, never hard-coded in the rule code.
type EngineConfig struct {
	RunInterval        time.Duration
	WorkerBatchSize    int
	MaxRetries         int
	RetryBackoffBase   time.Duration
	RetryBackoffCap    time.Duration
	SendTimeout        time.Duration
	ExpiryThresholds   []int
	ExpiryGraceDays    int
	ExpiryDeletionDays int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "notify-engine"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "resellhub"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		Email: EmailConfig{
			SMTPHost:        getenv("SMTP_HOST", "localhost"),
			SMTPPort:        getenvInt("SMTP_PORT", 587),
			SMTPUsername:    getenv("SMTP_USERNAME", ""),
			SMTPPassword:    getenv("SMTP_PASSWORD", ""),
			SMTPFrom:        getenv("SMTP_FROM", "noreply@resellhub.io"),
			AccountingEmail: strings.TrimSpace(getenv("ACCOUNTING_EMAIL", "")),
		},

		Engine: EngineConfig{
			RunInterval:        getenvDuration("ENGINE_RUN_INTERVAL", time.Minute),
			WorkerBatchSize:    getenvInt("ENGINE_WORKER_BATCH_SIZE", 50),
			MaxRetries:         getenvInt("ENGINE_MAX_RETRIES", 3),
			RetryBackoffBase:   getenvDuration("ENGINE_RETRY_BACKOFF_BASE", 5*time.Minute),
			RetryBackoffCap:    getenvDuration("ENGINE_RETRY_BACKOFF_CAP", 6*time.Hour),
			SendTimeout:        getenvDuration("ENGINE_SEND_TIMEOUT", 30*time.Second),
			ExpiryThresholds:   getenvInts("ENGINE_EXPIRY_THRESHOLDS", []int{30, 15, 7}),
			ExpiryGraceDays:    getenvInt("ENGINE_EXPIRY_GRACE_DAYS", 30),
			ExpiryDeletionDays: getenvInt("ENGINE_EXPIRY_DELETION_DAYS", 60),
		},
	}
}

// Module provides the loaded configuration.
var Module = fx.Provide(Load)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInts(key string, def []int) []int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return def
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
