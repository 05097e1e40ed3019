package config

import (
	"os"
	"strconv"
	"time"

	"slotline/internal/database"
	"slotline/internal/external"
	"slotline/internal/messaging"
)

// Config contains the application configuration
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	CacheTTL time.Duration
	LockTTL  time.Duration

	Database      database.Config
	Redis         RedisConfig
	NATS          messaging.Config
	Availability  external.AvailabilityConfig
	WorkerProfile external.WorkerProfileConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8084"),
		GinMode:   getEnv("GIN_MODE", "debug"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_SEC", 300)) * time.Second,
		LockTTL:  time.Duration(getEnvInt("LOCK_TTL_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "slotline"),
			Password:           getEnv("DB_PASSWORD", "slotline123"),
			DBName:             getEnv("DB_NAME", "slotline"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "slotline"),
			ClientID:  getEnv("NATS_CLIENT_ID", "slotline-api"),
		},

		Availability: external.AvailabilityConfig{
			BaseURL: getEnv("AVAILABILITY_SERVICE_URL", "http://localhost:8082/availability"),
			Timeout: time.Duration(getEnvInt("AVAILABILITY_TIMEOUT_SEC", 10)) * time.Second,
		},

		WorkerProfile: external.WorkerProfileConfig{
			BaseURL: getEnv("WORKER_PROFILE_SERVICE_URL", "http://localhost:8083/profile"),
			Timeout: time.Duration(getEnvInt("WORKER_PROFILE_TIMEOUT_SEC", 10)) * time.Second,
		},
	}
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable value or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
