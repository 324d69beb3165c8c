// Package config loads the immutable service configuration from the
// environment. FromEnv is called once in main; the resulting Config is
// passed by value into constructors and never mutated, so there is no
// ambient global state to reason about.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cubby/internal/compliance"
	"cubby/pkg/domain"
)

// Config is the root configuration, one section per concern.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Compliance ComplianceConfig
	Retention  RetentionConfig
	RateLimit  RateLimitConfig
	Audit      AuditConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig selects handler format and level.
type LogConfig struct {
	Format string // "json" or "text"
	Level  string // "debug", "info", "warn", "error"
}

// PostgresConfig carries the database DSN. Empty means in-memory stores
// (dev and tests).
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
}

// RedisConfig carries Redis connection settings. Empty URL means Redis is
// not configured and the in-memory rate limit stores are used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig carries broker addresses for the audit pipeline. Empty means
// the outbox relay and consumer are not started.
type KafkaConfig struct {
	Brokers       []string
	TopicPrefix   string
	ConsumerGroup string
}

// AuthConfig configures parent access tokens.
type AuthConfig struct {
	JWTSigningKey  string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
}

// ComplianceConfig is the injected policy for the compliance engine.
type ComplianceConfig struct {
	ChildRetentionDays      int
	StandardRetentionDays   int
	ChildPreferencesConsent string
	TeenSensitiveConsent    string
}

// RetentionConfig configures the background sweeper.
type RetentionConfig struct {
	SweepInterval time.Duration
	SweepBatch    int
}

// RateLimitConfig configures request limits and the child quota.
type RateLimitConfig struct {
	Disabled        bool
	ChildDailyQuota int
	GlobalPerSecond int
}

// AuditConfig configures the audit publishers.
type AuditConfig struct {
	SecurityBufferSize int
	OpsSampleRate      float64
}

// FromEnv builds the full configuration from environment variables so main
// stays lean. Unset variables fall back to development defaults.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:            envString("CUBBY_ADDR", ":8080"),
			ReadTimeout:     envDuration("CUBBY_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    envDuration("CUBBY_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: envDuration("CUBBY_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Format: envString("CUBBY_LOG_FORMAT", "json"),
			Level:  envString("CUBBY_LOG_LEVEL", "info"),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("CUBBY_POSTGRES_DSN"),
			MaxOpenConns: envInt("CUBBY_POSTGRES_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CUBBY_REDIS_URL"),
			PoolSize:     envInt("CUBBY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CUBBY_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("CUBBY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CUBBY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CUBBY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       envList("CUBBY_KAFKA_BROKERS"),
			TopicPrefix:   envString("CUBBY_KAFKA_TOPIC_PREFIX", "cubby.audit"),
			ConsumerGroup: envString("CUBBY_KAFKA_CONSUMER_GROUP", "cubby-audit-consumer"),
		},
		Auth: AuthConfig{
			JWTSigningKey:  envString("CUBBY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:         envString("CUBBY_JWT_ISSUER", "cubby"),
			Audience:       envString("CUBBY_JWT_AUDIENCE", "cubby-api"),
			AccessTokenTTL: envDuration("CUBBY_ACCESS_TOKEN_TTL", time.Hour),
		},
		Compliance: ComplianceConfig{
			ChildRetentionDays:      envInt("CUBBY_CHILD_RETENTION_DAYS", 90),
			StandardRetentionDays:   envInt("CUBBY_STANDARD_RETENTION_DAYS", 365),
			ChildPreferencesConsent: envString("CUBBY_CHILD_PREFERENCES_CONSENT", domain.ConsentParentalNotice.String()),
			TeenSensitiveConsent:    envString("CUBBY_TEEN_SENSITIVE_CONSENT", domain.ConsentTeenAssent.String()),
		},
		Retention: RetentionConfig{
			SweepInterval: envDuration("CUBBY_RETENTION_SWEEP_INTERVAL", time.Hour),
			SweepBatch:    envInt("CUBBY_RETENTION_SWEEP_BATCH", 500),
		},
		RateLimit: RateLimitConfig{
			Disabled:        os.Getenv("CUBBY_RATELIMIT_DISABLED") == "true",
			ChildDailyQuota: envInt("CUBBY_CHILD_DAILY_QUOTA", 200),
			GlobalPerSecond: envInt("CUBBY_GLOBAL_THROTTLE_PER_SECOND", 1000),
		},
		Audit: AuditConfig{
			SecurityBufferSize: envInt("CUBBY_AUDIT_SECURITY_BUFFER", 10000),
			OpsSampleRate:      envFloat("CUBBY_AUDIT_OPS_SAMPLE_RATE", 0.1),
		},
	}
}

// PolicyConfig converts the compliance section into the engine's injected
// policy. Parse failures and invariant violations surface here, before the
// engine is ever constructed.
func (c ComplianceConfig) PolicyConfig() (compliance.PolicyConfig, error) {
	childPrefs, err := domain.ParseConsentType(c.ChildPreferencesConsent)
	if err != nil {
		return compliance.PolicyConfig{}, fmt.Errorf("child preferences consent: %w", err)
	}
	teenSensitive, err := domain.ParseConsentType(c.TeenSensitiveConsent)
	if err != nil {
		return compliance.PolicyConfig{}, fmt.Errorf("teen sensitive consent: %w", err)
	}

	cfg := compliance.PolicyConfig{
		Consent: compliance.ConsentPolicy{
			ChildPreferencesConsent: childPrefs,
			TeenSensitiveConsent:    teenSensitive,
		},
		Retention: compliance.RetentionConfig{
			ChildRetentionDays:    c.ChildRetentionDays,
			StandardRetentionDays: c.StandardRetentionDays,
		},
	}
	if err := cfg.Retention.Validate(); err != nil {
		return compliance.PolicyConfig{}, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants that env parsing cannot express.
func (c Config) Validate() error {
	if _, err := c.Compliance.PolicyConfig(); err != nil {
		return err
	}
	if c.Retention.SweepBatch < 1 {
		return fmt.Errorf("retention sweep batch must be at least 1, got %d", c.Retention.SweepBatch)
	}
	if c.RateLimit.ChildDailyQuota < 1 {
		return fmt.Errorf("child daily quota must be at least 1, got %d", c.RateLimit.ChildDailyQuota)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if seg := v[start:i]; seg != "" {
				out = append(out, seg)
			}
			start = i + 1
		}
	}
	return out
}
