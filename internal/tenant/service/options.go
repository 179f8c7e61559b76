package service

import (
	"log/slog"

	tenantmetrics "audittrail/internal/tenant/metrics"
	"audittrail/pkg/platform/tx"
)

// serviceConfig holds optional dependencies for services.
type serviceConfig struct {
	logger  *slog.Logger
	metrics *tenantmetrics.Metrics
	runner  tx.Runner
}

// Option configures a service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithRunner sets the transaction runner shared by entity writes and their
// audit records. Defaults to an in-memory runner.
func WithRunner(r tx.Runner) Option {
	return func(c *serviceConfig) {
		c.runner = r
	}
}

func newConfig(opts []Option) *serviceConfig {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.runner == nil {
		cfg.runner = tx.NewMemory()
	}
	return cfg
}
