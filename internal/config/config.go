package config

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Storage backends selectable with STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	StoreBackend       string
	DBURL              string
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	DBMaxConns         int
	DBMinConns         int
	DBMaxIdleSecs      int
	DBMaxLifeSecs      int
	DBConnTimeoutSecs  int
	DBStatementCache   int
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisTxRetries     int
	RecentReviewsLimit int
	WriteRateLimit     int
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		StoreBackend:       getEnv("STORE_BACKEND", BackendPostgres),
		DBURL:              os.Getenv("DB_URL"),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:      getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:      getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:  getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:   getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisTxRetries:     getEnvInt("REDIS_TX_RETRIES", 10),
		RecentReviewsLimit: getEnvInt("RECENT_REVIEWS_LIMIT", 20),
		WriteRateLimit:     getEnvInt("WRITE_RATE_LIMIT", 60),
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DBURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required")
		}
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return Config{}, fmt.Errorf("REDIS_ADDR is required")
		}
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND must be %q or %q", BackendPostgres, BackendRedis)
	}

	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.RedisDB < 0 {
		return Config{}, fmt.Errorf("REDIS_DB must be non-negative")
	}
	if cfg.RedisTxRetries <= 0 {
		return Config{}, fmt.Errorf("REDIS_TX_RETRIES must be positive")
	}
	if cfg.RecentReviewsLimit <= 0 {
		return Config{}, fmt.Errorf("RECENT_REVIEWS_LIMIT must be positive")
	}
	if cfg.WriteRateLimit < 0 {
		return Config{}, fmt.Errorf("WRITE_RATE_LIMIT must be non-negative")
	}

	return cfg, nil
}

// NewLogger creates a zap logger suited to the configured environment.
func NewLogger(cfg Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
