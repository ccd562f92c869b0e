package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
)

// DefaultJWTSecret is the local development secret; production refuses it.
const DefaultJWTSecret = "secret"

type Config struct {
	Port        string
	DatabaseURL string
	AppEnv      string
	BaseURL     string

	DefaultUseLimit int
	DefaultTTLHours int

	SweepInterval time.Duration
	SweepLockTTL  time.Duration

	RedisURL     string
	RabbitMQURL  string
	NotifyQueue  string
	NotifyBuffer int

	IdentityCacheSize int
	JWTSecret         string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxAgeDays int
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:      getEnv("APP_ENV", "local"),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),

		DefaultUseLimit: getEnvInt("DEFAULT_USE_LIMIT", 10),
		DefaultTTLHours: getEnvInt("DEFAULT_TTL_HOURS", 24),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),
		SweepLockTTL:  getEnvDuration("SWEEP_LOCK_TTL", 5*time.Minute),

		RedisURL:     getEnv("REDIS_URL", ""),
		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),
		NotifyQueue:  getEnv("NOTIFY_QUEUE", "limitlink.notifications"),
		NotifyBuffer: getEnvInt("NOTIFY_BUFFER", 256),

		IdentityCacheSize: getEnvInt("IDENTITY_CACHE_SIZE", 4096),
		JWTSecret:         getEnv("JWT_SECRET", DefaultJWTSecret),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 7),
	}
}

// Validate rejects settings the core cannot honour.
func (c *Config) Validate() error {
	if c.DefaultUseLimit < domain.MinUseLimit || c.DefaultUseLimit > domain.MaxUseLimit {
		return fmt.Errorf("DEFAULT_USE_LIMIT must be between %d and %d, got %d",
			domain.MinUseLimit, domain.MaxUseLimit, c.DefaultUseLimit)
	}
	if c.DefaultTTLHours < domain.MinTTLHours || c.DefaultTTLHours > domain.MaxTTLHours {
		return fmt.Errorf("DEFAULT_TTL_HOURS must be between %d and %d, got %d",
			domain.MinTTLHours, domain.MaxTTLHours, c.DefaultTTLHours)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set to a non-default value in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
