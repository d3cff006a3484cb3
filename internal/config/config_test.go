package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.DebounceWindow)
	assert.Equal(t, 5*time.Second, cfg.SensorBaseTimeout)
	assert.Equal(t, 30*time.Second, cfg.SensorMaxTimeout)
	assert.Equal(t, 1.5, cfg.SensorBackoffFactor)
	assert.Equal(t, 5*time.Second, cfg.SensorRetryDelay)
	assert.Equal(t, 10*time.Second, cfg.SensorWatchdogInterval)
}

func TestLoad_SensorTuningFromEnv(t *testing.T) {
	t.Setenv("SENSOR_BASE_TIMEOUT", "10s")
	t.Setenv("SENSOR_MAX_TIMEOUT", "1m")
	t.Setenv("SENSOR_BACKOFF_FACTOR", "2.0")
	t.Setenv("SENSOR_RESTART_DELAY", "500ms")
	t.Setenv("SENSOR_RETRY_DELAY", "3s")
	t.Setenv("SENSOR_WATCHDOG_INTERVAL", "20s")

	cfg := Load()
	assert.Equal(t, 10*time.Second, cfg.SensorBaseTimeout)
	assert.Equal(t, time.Minute, cfg.SensorMaxTimeout)
	assert.Equal(t, 2.0, cfg.SensorBackoffFactor)
	assert.Equal(t, 500*time.Millisecond, cfg.SensorRestartDelay)
	assert.Equal(t, 3*time.Second, cfg.SensorRetryDelay)
	assert.Equal(t, 20*time.Second, cfg.SensorWatchdogInterval)
}

func TestLoad_IgnoresGarbageValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("SENSOR_BACKOFF_FACTOR", "fast")
	t.Setenv("SENSOR_BASE_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1.5, cfg.SensorBackoffFactor)
	assert.Equal(t, 5*time.Second, cfg.SensorBaseTimeout)
}
