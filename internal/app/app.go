// Package app is the composition root shared by the server and auditctl. It
// turns a config.Config into stores, the audit recorder, the lifecycle
// registry and the tenant services, picking Postgres or in-memory backends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"audittrail/internal/platform/config"
	"audittrail/internal/platform/database"
	"audittrail/internal/platform/database/migrate"
	"audittrail/internal/platform/kafka/producer"
	"audittrail/internal/platform/metrics"
	tenantmetrics "audittrail/internal/tenant/metrics"
	"audittrail/internal/tenant/service"
	clientstore "audittrail/internal/tenant/store/client"
	tenantstore "audittrail/internal/tenant/store/tenant"
	audit "audittrail/pkg/platform/audit"
	auditmetrics "audittrail/pkg/platform/audit/metrics"
	"audittrail/pkg/platform/audit/outbox"
	outboxmetrics "audittrail/pkg/platform/audit/outbox/metrics"
	outboxpg "audittrail/pkg/platform/audit/outbox/store/postgres"
	"audittrail/pkg/platform/audit/outbox/worker"
	auditmemory "audittrail/pkg/platform/audit/store/memory"
	auditpg "audittrail/pkg/platform/audit/store/postgres"
	"audittrail/pkg/platform/circuit"
	"audittrail/pkg/platform/lifecycle"
	"audittrail/pkg/platform/tx"
)

// App holds the wired dependencies. Close releases them.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *prometheus.Registry
	Pool     *database.Pool
	Runner   tx.Runner
	Audit    audit.Store
	Registry *lifecycle.Registry
	Tenants  *service.TenantService
	Clients  *service.ClientService

	// Exporter is nil unless Kafka export is enabled on a Postgres backend.
	Exporter *worker.Worker
	producer *producer.Producer
}

// New wires the application. With no DATABASE_URL every store is in memory
// and nothing survives a restart.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewRegistry(),
	}

	pool, err := database.Open(ctx, database.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	if pool != nil && cfg.MigrateOnStart {
		if err := migrate.Run(cfg.DatabaseURL, migrate.Up); err != nil {
			_ = a.Close()
			return nil, err
		}
		logger.InfoContext(ctx, "database migrated")
	}
	if err := metrics.RegisterDB(a.Metrics, pool.DB()); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register db metrics: %w", err)
	}

	var (
		tenants service.TenantStore
		clients service.ClientStore
	)
	if pool != nil {
		db := pool.DB()
		a.Runner = tx.NewSQL(db, tx.WithTimeout(cfg.TxTimeout))
		tenants = tenantstore.NewPostgres(db)
		clients = clientstore.NewPostgres(db)

		var opts []auditpg.Option
		if cfg.ExportEnabled() {
			ob := outboxpg.New(db)
			opts = append(opts, auditpg.WithOutbox(ob))
			if err := a.wireExporter(ob); err != nil {
				_ = a.Close()
				return nil, err
			}
		}
		a.Audit = auditpg.New(db, opts...)
	} else {
		if cfg.ExportEnabled() {
			logger.WarnContext(ctx, "KAFKA_BROKERS ignored: audit export needs DATABASE_URL")
		}
		a.Runner = tx.NewMemory()
		tenants = tenantstore.NewInMemory()
		clients = clientstore.NewInMemory()
		a.Audit = auditmemory.NewInMemoryStore()
	}

	recorder := audit.NewRecorder(a.Audit,
		audit.WithPolicy(cfg.Policy()),
		audit.WithLogger(logger),
		audit.WithMetrics(auditmetrics.New(a.Metrics)),
	)
	a.Registry = lifecycle.NewRegistry(recorder, lifecycle.WithLogger(logger))
	if err := service.RegisterAuditing(a.Registry); err != nil {
		_ = a.Close()
		return nil, err
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(tenantmetrics.New(a.Metrics)),
		service.WithRunner(a.Runner),
	}
	a.Tenants = service.NewTenantService(tenants, clients, a.Registry, opts...)
	a.Clients = service.NewClientService(clients, tenants, a.Registry, opts...)

	logger.InfoContext(ctx, "application wired",
		"backend", a.Backend(),
		"no_principal_policy", recorder.Policy(),
		"audit_export", a.Exporter != nil,
	)
	return a, nil
}

func (a *App) wireExporter(ob outbox.Store) error {
	p, err := producer.New(producer.DefaultConfig(a.Config.KafkaBrokers), a.Logger)
	if err != nil {
		return err
	}
	a.producer = p
	a.Exporter = worker.New(ob, p,
		worker.WithTopic(a.Config.AuditExportTopic),
		worker.WithBatchSize(a.Config.OutboxBatchSize),
		worker.WithPollInterval(a.Config.OutboxPollInterval),
		worker.WithRetention(a.Config.OutboxRetention),
		worker.WithMetrics(outboxmetrics.New(a.Metrics)),
		worker.WithLogger(a.Logger),
		worker.WithRunner(a.Runner),
		worker.WithBreaker(circuit.New("kafka-export")),
	)
	return nil
}

// Backend names the storage in use.
func (a *App) Backend() string {
	if a.Pool != nil {
		return "postgres"
	}
	return "memory"
}

// KafkaHealth reports broker reachability for the readiness probe.
func (a *App) KafkaHealth(ctx context.Context) error {
	if a.producer == nil {
		return nil
	}
	if !a.producer.Healthy(ctx) {
		return errors.New("kafka brokers unreachable")
	}
	return nil
}

// Close releases the producer and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	errs = append(errs, a.Pool.Close())
	return errors.Join(errs...)
}
