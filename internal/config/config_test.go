package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("WL_TEST_EMPTY", "")
	assert.Equal(t, "fallback", GetEnv("WL_TEST_EMPTY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("WL_TEST_UNSET_KEY", "fallback"))

	t.Setenv("WL_TEST_SET", "value")
	assert.Equal(t, "value", GetEnv("WL_TEST_SET", "fallback"))
}

func TestGetIntEnv(t *testing.T) {
	t.Setenv("WL_TEST_INT", "42")
	assert.Equal(t, 42, GetIntEnv("WL_TEST_INT", 1))

	t.Setenv("WL_TEST_INT", "not-a-number")
	assert.Equal(t, 1, GetIntEnv("WL_TEST_INT", 1))
}

func TestGetDurationEnv(t *testing.T) {
	t.Setenv("WL_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, GetDurationEnv("WL_TEST_DURATION", time.Second))

	t.Setenv("WL_TEST_DURATION", "ninety")
	assert.Equal(t, time.Second, GetDurationEnv("WL_TEST_DURATION", time.Second))
}

func TestLoad(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("TRANSFER_RATE_LIMIT", "3")
	t.Setenv("DB_NAME", "ledger_test")

	cfg := Load()

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 3, cfg.RateLimit.TransferLimit)
	assert.Equal(t, 3, cfg.Ledger.MaxAttempts)
	assert.Contains(t, cfg.Database.DSN(), "dbname=ledger_test")
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	t.Setenv("ENV", "development")
	cfg := Load()
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
	assert.NoError(t, cfg.Validate())

	t.Setenv("ENV", "production")
	assert.Error(t, Load().Validate())

	t.Setenv("JWT_SECRET", "s3cr3t-from-vault")
	assert.NoError(t, Load().Validate())
}
