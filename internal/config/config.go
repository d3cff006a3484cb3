package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	DatabaseURL string
	AuthSecret  string
	TokenTTL    time.Duration

	DebounceWindow    time.Duration
	RecomputeInterval time.Duration
	AlertCooldown     time.Duration
	AlertDismissAfter time.Duration

	SensorBaseTimeout      time.Duration
	SensorMaxTimeout       time.Duration
	SensorBackoffFactor    float64
	SensorRestartDelay     time.Duration
	SensorRetryDelay       time.Duration
	SensorWatchdogInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		AuthSecret:  getEnv("AUTH_SECRET", "dev-secret-change-me"),
		TokenTTL:    getEnvDuration("TOKEN_TTL", 24*time.Hour),

		DebounceWindow:    getEnvDuration("DEBOUNCE_WINDOW", time.Second),
		RecomputeInterval: getEnvDuration("RECOMPUTE_INTERVAL", 5*time.Second),
		AlertCooldown:     getEnvDuration("ALERT_COOLDOWN", 30*time.Second),
		AlertDismissAfter: getEnvDuration("ALERT_DISMISS_AFTER", 5*time.Second),

		SensorBaseTimeout:      getEnvDuration("SENSOR_BASE_TIMEOUT", 5*time.Second),
		SensorMaxTimeout:       getEnvDuration("SENSOR_MAX_TIMEOUT", 30*time.Second),
		SensorBackoffFactor:    getEnvFloat("SENSOR_BACKOFF_FACTOR", 1.5),
		SensorRestartDelay:     getEnvDuration("SENSOR_RESTART_DELAY", time.Second),
		SensorRetryDelay:       getEnvDuration("SENSOR_RETRY_DELAY", 5*time.Second),
		SensorWatchdogInterval: getEnvDuration("SENSOR_WATCHDOG_INTERVAL", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
