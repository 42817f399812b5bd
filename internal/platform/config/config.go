// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via
// CONDOFLOW_* variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server wires at startup.
type Config struct {
	Addr string

	// PostgresURL selects the durable store. Empty falls back to the
	// in-memory stores, which is the mode unit tests and local demos run in.
	PostgresURL string

	Redis RedisConfig

	// KafkaBrokers enables the audit trail publisher when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string
	JWTIssuer     string

	// DefenseWindowDays is the policy constant for the resident defense
	// deadline, computed at submission time and stored on the record.
	// The legacy system disagreed with itself here (7 in the write path,
	// 10 in a read-side display); the value is a single knob pending
	// product clarification.
	DefenseWindowDays int

	// SubscriptionCacheTTL bounds staleness of cached billing periods.
	SubscriptionCacheTTL time.Duration

	// AuthorityWebhookURL receives fire-and-forget notices when a resident
	// submits a defense. Empty disables the webhook dispatcher.
	AuthorityWebhookURL string
}

// RedisConfig mirrors the connection knobs the platform redis client accepts.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv assembles a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                 getString("CONDOFLOW_ADDR", ":8080"),
		PostgresURL:          os.Getenv("CONDOFLOW_POSTGRES_URL"),
		JWTSigningKey:        getString("CONDOFLOW_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:            getString("CONDOFLOW_JWT_ISSUER", "condoflow"),
		DefenseWindowDays:    getInt("CONDOFLOW_DEFENSE_WINDOW_DAYS", 7),
		SubscriptionCacheTTL: getDuration("CONDOFLOW_SUBSCRIPTION_CACHE_TTL", 5*time.Minute),
		AuditTopic:           getString("CONDOFLOW_AUDIT_TOPIC", "condoflow.audit"),
		AuthorityWebhookURL:  os.Getenv("CONDOFLOW_AUTHORITY_WEBHOOK_URL"),
	}

	if brokers := os.Getenv("CONDOFLOW_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("CONDOFLOW_REDIS_URL"),
		PoolSize:     getInt("CONDOFLOW_REDIS_POOL_SIZE", 10),
		MinIdleConns: getInt("CONDOFLOW_REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getDuration("CONDOFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getDuration("CONDOFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getDuration("CONDOFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	return cfg
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
