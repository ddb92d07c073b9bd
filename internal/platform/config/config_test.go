package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.JWT.TokenTTL)
	assert.Equal(t, "hearth-api", cfg.JWT.Audience)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, 5, cfg.AdminRateLimit.Burst)
	assert.False(t, cfg.TracingEnabled)
	assert.InDelta(t, 1.0, cfg.TracingSampleRatio, 0.0001)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "hearth.audit.events", cfg.Kafka.AuditTopic)
	assert.Equal(t, "all", cfg.Kafka.Acks)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HEARTH_ADDR", ":9090")
	t.Setenv("TOKEN_TTL", "5m")
	t.Setenv("DATABASE_URL", "postgres://localhost/hearth")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("ADMIN_RATE_LIMIT_RPS", "0.5")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.0/24")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.JWT.TokenTTL)
	assert.Equal(t, "postgres://localhost/hearth", cfg.Database.URL)
	assert.Equal(t, 32, cfg.Redis.PoolSize)
	assert.InDelta(t, 0.5, cfg.AdminRateLimit.RPS, 0.0001)
	assert.True(t, cfg.TracingEnabled)
	assert.InDelta(t, 0.25, cfg.TracingSampleRatio, 0.0001)
	require.Len(t, cfg.Server.TrustedProxies, 2)
	assert.Equal(t, "10.0.0.0/8", cfg.Server.TrustedProxies[0].String())
	assert.Equal(t, "kafka-1:9092,kafka-2:9092", cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Kafka.PollInterval)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":         {"TOKEN_TTL", "soon"},
		"bad int":              {"REDIS_POOL_SIZE", "many"},
		"bad bool":             {"TRACING_ENABLED", "sometimes"},
		"sample ratio above 1": {"TRACING_SAMPLE_RATIO", "1.5"},
		"non positive ttl":     {"TOKEN_TTL", "0s"},
		"non positive burst":   {"ADMIN_RATE_LIMIT_BURST", "0"},
		"default key in prod":  {"HEARTH_ENV", "production"},
		"bad proxy prefix":     {"TRUSTED_PROXIES", "10.0.0.1"},
		"unknown kafka acks":   {"KAFKA_ACKS", "leader"},
		"zero outbox poll":     {"OUTBOX_POLL_INTERVAL", "0s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
