package service

import (
	"context"
	"errors"

	"audittrail/internal/tenant/models"
	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/lifecycle"
	"audittrail/pkg/platform/sentinel"
)

// Store interfaces define persistence contracts. Writes go through
// lifecycle.Repository so every mutation is validated and audited.

type TenantStore interface {
	lifecycle.Backend[*models.Tenant]
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	// LockByID reads a tenant and holds it against concurrent status
	// changes and deletes until the enclosing transaction ends.
	LockByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByName(ctx context.Context, name string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}

type ClientStore interface {
	lifecycle.Backend[*models.Client]
	FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	FindByTenantAndID(ctx context.Context, tenantID id.TenantID, clientID id.ClientID) (*models.Client, error)
	FindByPublicID(ctx context.Context, publicID string) (*models.Client, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.Client, error)
}

// RegisterAuditing binds tenants and clients to the audit trail. Every save of
// a tenant needs a principal ID; creating a client also needs the caller's IP.
func RegisterAuditing(reg *lifecycle.Registry) error {
	if err := reg.Bind(models.AuditableTenant); err != nil {
		return err
	}
	if err := reg.Bind(models.AuditableClient); err != nil {
		return err
	}
	if err := reg.ValidatePrincipal(models.AuditableTenant, lifecycle.DefaultRule()); err != nil {
		return err
	}
	if err := reg.ValidatePrincipal(models.AuditableClient, lifecycle.DefaultRule()); err != nil {
		return err
	}
	return reg.ValidatePrincipal(models.AuditableClient, lifecycle.Rule{
		RequireID: true,
		RequireIP: true,
		On:        lifecycle.PhaseCreate,
	})
}

// ID validation helpers reduce repetition in service methods.

func requireClientID(clientID id.ClientID) error {
	if clientID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "client ID required")
	}
	return nil
}

func requireTenantID(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	return nil
}

// Error wrapping helpers translate sentinel errors to domain errors.

func wrapClientErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
}

func wrapTenantErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
}

// wrapWriteErr maps a failed audited mutation. Domain errors raised by
// validation or the recorder keep their code.
func wrapWriteErr(err error, conflictMsg, action string) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, conflictMsg)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "record no longer exists")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

// transitionErr turns an invariant violation on a status change into a conflict.
func transitionErr(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeConflict, err.Error())
	}
	return err
}
