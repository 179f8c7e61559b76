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
	"audittrail/pkg/secrets"
)

// ClientService orchestrates client registration and lifecycle management.
type ClientService struct {
	clients  ClientStore
	tenants  TenantStore // read-only: locks the owning tenant while a client is created
	repo     *lifecycle.Repository[*models.Client]
	registry *lifecycle.Registry
	runner   tx.Runner
	logger   *slog.Logger
	metrics  *tenantmetrics.Metrics
}

func NewClientService(clients ClientStore, tenants TenantStore, registry *lifecycle.Registry, opts ...Option) *ClientService {
	cfg := newConfig(opts)
	return &ClientService{
		clients:  clients,
		tenants:  tenants,
		repo:     lifecycle.NewRepository[*models.Client](clients, cfg.runner, registry),
		registry: registry,
		runner:   cfg.runner,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}
}

// CreateClient registers a client under a tenant.
// Returns the created client and the cleartext secret (only available at creation time).
func (s *ClientService) CreateClient(ctx context.Context, cmd *CreateClientCommand) (*models.Client, string, error) {
	if err := cmd.Validate(); err != nil {
		return nil, "", err
	}

	secret, secretHash, err := generateSecret(cmd.Public)
	if err != nil {
		return nil, "", err
	}

	client, err := models.NewClient(
		id.ClientID(uuid.New()),
		cmd.TenantID,
		strings.TrimSpace(cmd.Name),
		uuid.NewString(),
		secretHash,
		cmd.RedirectURIs,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, "", err
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		tenant, err := s.tenants.LockByID(txCtx, cmd.TenantID)
		if err != nil {
			return wrapTenantErr(err)
		}
		if !tenant.IsActive() {
			return dErrors.New(dErrors.CodeValidation, "cannot create client under inactive tenant")
		}
		if err := s.repo.Create(txCtx, client); err != nil {
			return wrapWriteErr(err, "client already exists", "failed to create client")
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "client created",
		"tenant_id", client.TenantID,
		"client_id", client.ID,
		"confidential", client.IsConfidential(),
	)
	s.metrics.IncrementClientCreated()
	return client, secret, nil
}

func (s *ClientService) GetClient(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	if err := requireClientID(clientID); err != nil {
		return nil, err
	}
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, wrapClientErr(err)
	}
	return client, nil
}

// GetClientForTenant enforces tenant scoping when retrieving a client.
func (s *ClientService) GetClientForTenant(ctx context.Context, tenantID id.TenantID, clientID id.ClientID) (*models.Client, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	if err := requireClientID(clientID); err != nil {
		return nil, err
	}
	client, err := s.clients.FindByTenantAndID(ctx, tenantID, clientID)
	if err != nil {
		return nil, wrapClientErr(err)
	}
	return client, nil
}

func (s *ClientService) ListClients(ctx context.Context, tenantID id.TenantID) ([]*models.Client, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	clients, err := s.clients.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	return clients, nil
}

// UpdateClient applies the non-nil fields of cmd.
func (s *ClientService) UpdateClient(ctx context.Context, clientID id.ClientID, cmd *UpdateClientCommand) (*models.Client, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no changes requested")
	}
	return s.mutate(ctx, clientID, func(c *models.Client) error {
		now := requestcontext.Now(ctx)
		if cmd.Name != nil {
			if err := c.Rename(strings.TrimSpace(*cmd.Name), now); err != nil {
				return err
			}
		}
		if cmd.HasRedirectURIs() {
			return c.SetRedirectURIs(cmd.RedirectURIs, now)
		}
		return nil
	})
}

// RotateSecret issues a new secret for a confidential client and returns it
// in cleartext. The old secret stops working immediately.
func (s *ClientService) RotateSecret(ctx context.Context, clientID id.ClientID) (*models.Client, string, error) {
	var secret string
	client, err := s.mutate(ctx, clientID, func(c *models.Client) error {
		var hash string
		var err error
		secret, hash, err = generateSecret(false)
		if err != nil {
			return err
		}
		return c.RotateSecret(hash, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, "", err
	}
	s.logger.InfoContext(ctx, "client secret rotated", "client_id", client.ID, "tenant_id", client.TenantID)
	s.metrics.IncrementSecretRotated()
	return client, secret, nil
}

// DeactivateClient returns a conflict if the client is already inactive.
func (s *ClientService) DeactivateClient(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	return s.mutate(ctx, clientID, func(c *models.Client) error {
		return transitionErr(c.Deactivate(requestcontext.Now(ctx)))
	})
}

// ReactivateClient returns a conflict if the client is already active.
func (s *ClientService) ReactivateClient(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	return s.mutate(ctx, clientID, func(c *models.Client) error {
		return transitionErr(c.Reactivate(requestcontext.Now(ctx)))
	})
}

func (s *ClientService) DeleteClient(ctx context.Context, clientID id.ClientID) error {
	if err := requireClientID(clientID); err != nil {
		return err
	}
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.clients.FindByID(txCtx, clientID)
		if err != nil {
			return wrapClientErr(err)
		}
		if err := s.repo.Destroy(txCtx, c); err != nil {
			return wrapWriteErr(err, "client changed concurrently", "failed to delete client")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "client deleted", "client_id", clientID)
	s.metrics.IncrementClientDeleted()
	return nil
}

// AuditTrail returns the client's audit records oldest first.
func (s *ClientService) AuditTrail(ctx context.Context, clientID id.ClientID) ([]audit.Record, error) {
	if err := requireClientID(clientID); err != nil {
		return nil, err
	}
	return s.registry.AuditRecords(ctx, audit.Ref{Type: models.AuditableClient, ID: clientID.String()})
}

func (s *ClientService) mutate(ctx context.Context, clientID id.ClientID, change func(*models.Client) error) (*models.Client, error) {
	if err := requireClientID(clientID); err != nil {
		return nil, err
	}
	var client *models.Client
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.clients.FindByID(txCtx, clientID)
		if err != nil {
			return wrapClientErr(err)
		}
		if err := change(c); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, c); err != nil {
			return wrapWriteErr(err, "client already exists", "failed to update client")
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// generateSecret creates a new secret and its hash.
// Returns empty strings for public clients.
func generateSecret(isPublic bool) (secret, hash string, err error) {
	if isPublic {
		return "", "", nil
	}
	secret, err = secrets.Generate()
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate secret")
	}
	hash, err = secrets.Hash(secret)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash secret")
	}
	return secret, hash, nil
}
