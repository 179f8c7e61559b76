package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	tenantmetrics "audittrail/internal/tenant/metrics"
	"audittrail/internal/tenant/models"
	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/lifecycle"
	"audittrail/pkg/platform/tx"
	"audittrail/pkg/requestcontext"
)

// TenantService orchestrates tenant lifecycle management. Every mutation is
// written through a lifecycle.Repository and so leaves an audit record.
type TenantService struct {
	tenants    TenantStore
	clients    ClientStore
	repo       *lifecycle.Repository[*models.Tenant]
	clientRepo *lifecycle.Repository[*models.Client]
	registry   *lifecycle.Registry
	runner     tx.Runner
	logger     *slog.Logger
	metrics    *tenantmetrics.Metrics
}

func NewTenantService(tenants TenantStore, clients ClientStore, registry *lifecycle.Registry, opts ...Option) *TenantService {
	cfg := newConfig(opts)
	return &TenantService{
		tenants:    tenants,
		clients:    clients,
		repo:       lifecycle.NewRepository[*models.Tenant](tenants, cfg.runner, registry),
		clientRepo: lifecycle.NewRepository[*models.Client](clients, cfg.runner, registry),
		registry:   registry,
		runner:     cfg.runner,
		logger:     cfg.logger,
		metrics:    cfg.metrics,
	}
}

func (s *TenantService) CreateTenant(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)

	t, err := models.NewTenant(id.TenantID(uuid.New()), name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, wrapWriteErr(err, "tenant name must be unique", "failed to create tenant")
	}

	s.logger.InfoContext(ctx, "tenant created", "tenant_id", t.ID, "request_id", requestcontext.RequestID(ctx))
	s.metrics.IncrementTenantCreated()
	return t, nil
}

func (s *TenantService) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return tenant, nil
}

// GetTenantByName retrieves a tenant by name (case-insensitive).
func (s *TenantService) GetTenantByName(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant name is required")
	}
	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return tenant, nil
}

func (s *TenantService) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenants")
	}
	return tenants, nil
}

func (s *TenantService) RenameTenant(ctx context.Context, tenantID id.TenantID, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	return s.mutate(ctx, tenantID, func(t *models.Tenant) error {
		return t.Rename(name, requestcontext.Now(ctx))
	})
}

// DeactivateTenant returns a conflict if the tenant is already inactive.
func (s *TenantService) DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.mutate(ctx, tenantID, func(t *models.Tenant) error {
		return transitionErr(t.Deactivate(requestcontext.Now(ctx)))
	})
}

// ReactivateTenant returns a conflict if the tenant is already active.
func (s *TenantService) ReactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.mutate(ctx, tenantID, func(t *models.Tenant) error {
		return transitionErr(t.Reactivate(requestcontext.Now(ctx)))
	})
}

// DeleteTenant destroys the tenant and all of its clients in one transaction.
// Each client gets its own DESTROY record before the tenant's.
func (s *TenantService) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	if err := requireTenantID(tenantID); err != nil {
		return err
	}
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.tenants.FindByID(txCtx, tenantID)
		if err != nil {
			return wrapTenantErr(err)
		}
		clients, err := s.clients.ListByTenant(txCtx, tenantID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenant clients")
		}
		for _, c := range clients {
			if err := s.clientRepo.Destroy(txCtx, c); err != nil {
				return wrapWriteErr(err, "client changed concurrently", "failed to delete client")
			}
		}
		if err := s.repo.Destroy(txCtx, t); err != nil {
			return wrapWriteErr(err, "tenant changed concurrently", "failed to delete tenant")
		}
		s.logger.InfoContext(txCtx, "tenant deleted", "tenant_id", t.ID, "clients_deleted", len(clients))
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementTenantDeleted()
	return nil
}

// AuditTrail returns the tenant's audit records oldest first. The trail stays
// readable after the tenant is deleted.
func (s *TenantService) AuditTrail(ctx context.Context, tenantID id.TenantID) ([]audit.Record, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	return s.registry.AuditRecords(ctx, audit.Ref{Type: models.AuditableTenant, ID: tenantID.String()})
}

func (s *TenantService) mutate(ctx context.Context, tenantID id.TenantID, change func(*models.Tenant) error) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	var tenant *models.Tenant
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.tenants.FindByID(txCtx, tenantID)
		if err != nil {
			return wrapTenantErr(err)
		}
		if err := change(t); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, t); err != nil {
			return wrapWriteErr(err, "tenant name must be unique", "failed to update tenant")
		}
		tenant = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tenant, nil
}
