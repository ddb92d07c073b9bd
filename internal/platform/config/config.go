package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAddr       = ":8080"
	defaultSigningKey = "dev-secret-key-change-in-production"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	ShutdownTimeout time.Duration

	// TrustedProxies may set X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

type JWT struct {
	SigningKey string
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
}

// DatabaseConfig is empty-URL safe: no URL means in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables publishing audit entries through the outbox when
// Brokers is set.
type KafkaConfig struct {
	Brokers         string
	AuditTopic      string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	PollInterval    time.Duration
	Retention       time.Duration
}

// RateLimit bounds admin control endpoints per actor.
type RateLimit struct {
	RPS   float64
	Burst int
}

type Config struct {
	Server         Server
	JWT            JWT
	Database       DatabaseConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	AdminRateLimit RateLimit
	TracingEnabled bool
	// TracingSampleRatio is the fraction of root spans kept when tracing is on.
	TracingSampleRatio float64
	PlanLimitsFile     string
	SeedDemoData       bool
}

func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []error
	cfg := Config{
		Server: Server{
			Addr:            envString("HEARTH_ADDR", defaultAddr),
			Environment:     envString("HEARTH_ENV", "development"),
			ShutdownTimeout: envDuration("HEARTH_SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
			TrustedProxies:  envPrefixes("TRUSTED_PROXIES", &errs),
		},
		JWT: JWT{
			SigningKey: envString("JWT_SIGNING_KEY", defaultSigningKey),
			Issuer:     envString("JWT_ISSUER", "hearth"),
			Audience:   envString("JWT_AUDIENCE", "hearth-api"),
			TokenTTL:   envDuration("TOKEN_TTL", 15*time.Minute, &errs),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25, &errs),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5, &errs),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute, &errs),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			AuditTopic:      envString("KAFKA_AUDIT_TOPIC", "hearth.audit.events"),
			Acks:            envString("KAFKA_ACKS", "all"),
			Retries:         envInt("KAFKA_RETRIES", 3, &errs),
			DeliveryTimeout: envDuration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second, &errs),
			PollInterval:    envDuration("OUTBOX_POLL_INTERVAL", time.Second, &errs),
			Retention:       envDuration("OUTBOX_RETENTION", 7*24*time.Hour, &errs),
		},
		AdminRateLimit: RateLimit{
			RPS:   envFloat("ADMIN_RATE_LIMIT_RPS", 1, &errs),
			Burst: envInt("ADMIN_RATE_LIMIT_BURST", 5, &errs),
		},
		TracingEnabled:     envBool("TRACING_ENABLED", false, &errs),
		TracingSampleRatio: envFloat("TRACING_SAMPLE_RATIO", 1, &errs),
		PlanLimitsFile:     os.Getenv("PLAN_LIMITS_FILE"),
		SeedDemoData:       envBool("HEARTH_SEED", false, &errs),
	}

	if cfg.JWT.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if cfg.AdminRateLimit.RPS <= 0 || cfg.AdminRateLimit.Burst <= 0 {
		errs = append(errs, errors.New("admin rate limit must be positive"))
	}
	if cfg.TracingSampleRatio < 0 || cfg.TracingSampleRatio > 1 {
		errs = append(errs, errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1"))
	}
	if cfg.Kafka.PollInterval <= 0 {
		errs = append(errs, errors.New("OUTBOX_POLL_INTERVAL must be positive"))
	}
	switch cfg.Kafka.Acks {
	case "0", "1", "all":
	default:
		errs = append(errs, fmt.Errorf("KAFKA_ACKS: unsupported value %q", cfg.Kafka.Acks))
	}
	if cfg.IsProduction() && cfg.JWT.SigningKey == defaultSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func envInt(key string, fallback int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func envBool(key string, fallback bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func envPrefixes(key string, errs *[]error) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range strings.Split(os.Getenv(key), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		out = append(out, prefix)
	}
	return out
}
