package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fern-api", cfg.AppName)
		assert.Equal(t, "raw-records", cfg.KafkaInputTopic)
		assert.Equal(t, 15*time.Minute, cfg.TransformLockTTL)
		assert.Equal(t, 500, cfg.TransformRowBatchSize)
		assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	})

	t.Run("should read the environment", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
		t.Setenv("TRANSFORM_LOCK_TTL", "2m")
		t.Setenv("REDIS_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, 2*time.Minute, cfg.TransformLockTTL)
		assert.True(t, cfg.RedisEnabled)
	})

	t.Run("should reject a malformed value", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestConfig_DatabaseURL(t *testing.T) {
	cfg := &Config{
		DatabaseHost:     "db",
		DatabasePort:     "5432",
		DatabaseUserName: "fern",
		DatabasePassword: "secret",
		DatabaseName:     "fern",
		DatabaseSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=fern password=secret dbname=fern sslmode=disable", cfg.DatabaseURL())
}
