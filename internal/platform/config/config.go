// Package config loads service configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	audit "audittrail/pkg/platform/audit"
	principalmw "audittrail/pkg/platform/middleware/principal"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the admin API listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Environment is reported by /health and guards dev-only defaults.
	Environment string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	// DatabaseURL is the Postgres DSN. Empty runs everything in memory.
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	MigrateOnStart bool          `mapstructure:"MIGRATE_ON_START"`
	TxTimeout      time.Duration `mapstructure:"TX_TIMEOUT"`
	// SeedDemoData creates demo tenants and clients at startup.
	SeedDemoData bool `mapstructure:"SEED_DEMO_DATA"`

	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTAudience   string        `mapstructure:"JWT_AUDIENCE"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL"`

	// NoPrincipalPolicy is what happens to a mutation that has no principal:
	// skip, fail or record_anonymous.
	NoPrincipalPolicy string `mapstructure:"AUDIT_NO_PRINCIPAL_POLICY"`
	// PrincipalUserAccessor selects where the principal ID comes from:
	// auth_user or header:<Name>.
	PrincipalUserAccessor string `mapstructure:"PRINCIPAL_USER_ACCESSOR"`
	// TrustedProxies is a comma-separated list of CIDRs allowed to set X-Forwarded-For.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// KafkaBrokers enables audit export when set.
	KafkaBrokers       string        `mapstructure:"KAFKA_BROKERS"`
	AuditExportTopic   string        `mapstructure:"AUDIT_EXPORT_TOPIC"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE"`
	OutboxRetention    time.Duration `mapstructure:"OUTBOX_RETENTION"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Environment variables override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("TX_TIMEOUT", "10s")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("JWT_SIGNING_KEY", devSigningKey)
	v.SetDefault("JWT_ISSUER", "audittrail")
	v.SetDefault("JWT_AUDIENCE", "audittrail-admin")
	v.SetDefault("TOKEN_TTL", "15m")
	v.SetDefault("AUDIT_NO_PRINCIPAL_POLICY", string(audit.PolicySkip))
	v.SetDefault("PRINCIPAL_USER_ACCESSOR", principalmw.AccessorAuthUser)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_EXPORT_TOPIC", "audit.records")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "1s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_RETENTION", "168h")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("config: HTTP_ADDR must be set"))
	}
	if _, err := audit.ParsePolicy(c.NoPrincipalPolicy); err != nil {
		errs = append(errs, fmt.Errorf("config: AUDIT_NO_PRINCIPAL_POLICY: %w", err))
	}
	if _, err := principalmw.ParseAccessor(c.PrincipalUserAccessor); err != nil {
		errs = append(errs, fmt.Errorf("config: PRINCIPAL_USER_ACCESSOR: %w", err))
	}
	if c.JWTSigningKey == devSigningKey && c.Environment == "production" {
		errs = append(errs, errors.New("config: JWT_SIGNING_KEY must be set when APP_ENV=production"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("config: TOKEN_TTL must be positive"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("config: OUTBOX_BATCH_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// Policy returns the parsed no-principal policy. Load has already validated it.
func (c *Config) Policy() audit.Policy {
	p, err := audit.ParsePolicy(c.NoPrincipalPolicy)
	if err != nil {
		return audit.PolicySkip
	}
	return p
}

// TrustedProxyList splits TrustedProxies on commas.
func (c *Config) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

// ExportEnabled reports whether audit records are exported to Kafka.
func (c *Config) ExportEnabled() bool {
	return len(splitList(c.KafkaBrokers)) > 0
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
