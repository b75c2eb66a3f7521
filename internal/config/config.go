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
	// DatabaseURL is the Postgres DSN; empty runs the server on in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BusinessTimezone is the IANA timezone the business operates in; day keys
	// are derived in it (e.g. "Europe/Berlin").
	BusinessTimezone string `mapstructure:"BUSINESS_TIMEZONE"`
	// JWTSecret is the HS256 signing secret for access tokens; required.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "gastrocore-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "gastrocore-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// TerminalKeyHash is the bcrypt hash of the punch-terminal shared key.
	// Empty rejects punches with source TERMINAL.
	TerminalKeyHash string `mapstructure:"TERMINAL_KEY_HASH"`
	// KafkaBrokers is a comma-separated broker list; when set, applied time
	// events are emitted to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the topic applied time events are emitted to.
	KafkaTopic string `mapstructure:"ATTENDANCE_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of the payroll export worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// PayrollExportPath is the JSONL file the export worker appends
	// consumed time events to.
	PayrollExportPath string `mapstructure:"PAYROLL_EXPORT_PATH"`
	// OTLPEndpoint is the OTLP gRPC endpoint for telemetry; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BUSINESS_TIMEZONE", "UTC")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "gastrocore-auth")
	v.SetDefault("JWT_AUDIENCE", "gastrocore-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("TERMINAL_KEY_HASH", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ATTENDANCE_KAFKA_TOPIC", "gastrocore-time-events")
	v.SetDefault("KAFKA_GROUP_ID", "gastrocore-payroll-export")
	v.SetDefault("PAYROLL_EXPORT_PATH", "payroll-export.jsonl")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if _, err := time.LoadLocation(cfg.BusinessTimezone); err != nil {
		return nil, errors.New("config: BUSINESS_TIMEZONE must be a valid IANA timezone")
	}

	return &cfg, nil
}

// Location returns the business timezone as a *time.Location. Load has
// already validated the name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset
// or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// KafkaBrokersList returns broker addresses from the comma-separated
// config. Used to decide if event emission is enabled (non-empty list)
// and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
