// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty runs the server on in-memory stores (dev only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; signs organizer access tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; verifies organizer access tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "acp-auth"); required when organizer auth is enabled.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "acp-api"); required when organizer auth is enabled.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the organizer access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// DeviceBlockingEnabled turns per-session device blocking on. Disabling it
	// is an explicit deployment choice, never a silent default.
	DeviceBlockingEnabled bool `mapstructure:"DEVICE_BLOCKING_ENABLED"`
	// DeviceMaxUses is the max check-ins per device key within the usage window.
	DeviceMaxUses int `mapstructure:"DEVICE_MAX_USES"`
	// DeviceWindowSeconds is the rolling usage window length in seconds.
	DeviceWindowSeconds int `mapstructure:"DEVICE_WINDOW_SECONDS"`
	// DeviceScope selects the usage-window scope: "session" or "global".
	DeviceScope string `mapstructure:"DEVICE_SCOPE"`
	// ConsistencyMin is the minimum fingerprint consistency score (0..1) to
	// accept a check-in. 0 keeps the score advisory only (the default).
	ConsistencyMin float64 `mapstructure:"CONSISTENCY_MIN"`
	// TokenAutoRotate issues a fresh session token after every accepted
	// check-in so each scan is single-use while the session stays open.
	TokenAutoRotate bool `mapstructure:"TOKEN_AUTO_ROTATE"`
	// ExpiryPollInterval is how often the server polls for sessions past
	// end_time (e.g. "30s").
	ExpiryPollInterval string `mapstructure:"EXPIRY_POLL_INTERVAL"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Telemetry (optional). When Kafka brokers are set, the server emits
	// check-in events to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for check-in events (default acp-checkin-events).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// OTLPEndpoint is the OTLP collector endpoint for traces/metrics/logs; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "acp-auth")
	v.SetDefault("JWT_AUDIENCE", "acp-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("DEVICE_BLOCKING_ENABLED", true)
	v.SetDefault("DEVICE_MAX_USES", 1)
	v.SetDefault("DEVICE_WINDOW_SECONDS", 3600)
	v.SetDefault("DEVICE_SCOPE", "session")
	v.SetDefault("CONSISTENCY_MIN", 0.0)
	v.SetDefault("TOKEN_AUTO_ROTATE", true)
	v.SetDefault("EXPIRY_POLL_INTERVAL", "30s")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "acp-checkin-events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "acp-event-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.DeviceMaxUses < 1 {
		return nil, errors.New("config: DEVICE_MAX_USES must be at least 1")
	}
	if cfg.DeviceWindowSeconds < 1 {
		return nil, errors.New("config: DEVICE_WINDOW_SECONDS must be at least 1")
	}
	if cfg.DeviceScope != "session" && cfg.DeviceScope != "global" {
		return nil, errors.New(`config: DEVICE_SCOPE must be "session" or "global"`)
	}
	if cfg.ConsistencyMin < 0 || cfg.ConsistencyMin > 1 {
		return nil, errors.New("config: CONSISTENCY_MIN must be between 0 and 1")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// ExpiryInterval parses ExpiryPollInterval as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) ExpiryInterval() time.Duration {
	d, err := time.ParseDuration(c.ExpiryPollInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// DeviceWindow returns the usage window as a time.Duration.
func (c *Config) DeviceWindow() time.Duration {
	return time.Duration(c.DeviceWindowSeconds) * time.Second
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
