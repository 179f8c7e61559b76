// Package seeder creates demo tenants and clients through the tenant services,
// so every seeded row arrives with its audit records.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"audittrail/internal/tenant/models"
	"audittrail/internal/tenant/service"
	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/principal"
)

// Principal is the actor recorded for seeded changes.
var Principal = principal.Principal{ID: "seeder", IP: "127.0.0.1"}

// TenantService is the subset of *service.TenantService the seeder drives.
type TenantService interface {
	CreateTenant(ctx context.Context, name string) (*models.Tenant, error)
	GetTenantByName(ctx context.Context, name string) (*models.Tenant, error)
	DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
}

// ClientService is the subset of *service.ClientService the seeder drives.
type ClientService interface {
	CreateClient(ctx context.Context, cmd *service.CreateClientCommand) (*models.Client, string, error)
}

// Summary counts what a run created. Tenants that already exist are skipped
// along with their clients.
type Summary struct {
	Tenants int `json:"tenants"`
	Clients int `json:"clients"`
	Skipped int `json:"skipped"`
}

type demoClient struct {
	name     string
	redirect string
	public   bool
}

type demoTenant struct {
	name     string
	inactive bool
	clients  []demoClient
}

var demoTenants = []demoTenant{
	{
		name: "Acme Corp",
		clients: []demoClient{
			{name: "Acme Portal", redirect: "https://portal.acme.example/callback"},
			{name: "Acme Mobile", redirect: "http://localhost:8400/callback", public: true},
		},
	},
	{
		name: "Globex",
		clients: []demoClient{
			{name: "Globex Back Office", redirect: "https://admin.globex.example/callback"},
		},
	},
	{
		name:     "Initech (retired)",
		inactive: true,
		clients: []demoClient{
			{name: "TPS Reports", redirect: "https://tps.initech.example/callback"},
		},
	},
}

// Seeder populates the tenant stores with demo data
type Seeder struct {
	tenants TenantService
	clients ClientService
	logger  *slog.Logger
}

func New(tenants TenantService, clients ClientService, logger *slog.Logger) *Seeder {
	return &Seeder{tenants: tenants, clients: clients, logger: logger}
}

// SeedAll creates the demo tenants and clients as Principal. It is safe to
// run repeatedly.
func (s *Seeder) SeedAll(ctx context.Context) (Summary, error) {
	ctx = principal.Set(ctx, Principal)
	s.logger.InfoContext(ctx, "seeding demo data")

	var sum Summary
	for _, dt := range demoTenants {
		_, err := s.tenants.GetTenantByName(ctx, dt.name)
		if err == nil {
			sum.Skipped++
			continue
		}
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return sum, fmt.Errorf("failed to look up tenant %q: %w", dt.name, err)
		}

		n, err := s.seedTenant(ctx, dt)
		if err != nil {
			return sum, err
		}
		sum.Tenants++
		sum.Clients += n
	}

	s.logger.InfoContext(ctx, "demo data seeded",
		"tenants", sum.Tenants,
		"clients", sum.Clients,
		"skipped", sum.Skipped,
	)
	return sum, nil
}

func (s *Seeder) seedTenant(ctx context.Context, dt demoTenant) (int, error) {
	tenant, err := s.tenants.CreateTenant(ctx, dt.name)
	if err != nil {
		return 0, fmt.Errorf("failed to seed tenant %q: %w", dt.name, err)
	}

	for _, dc := range dt.clients {
		_, _, err := s.clients.CreateClient(ctx, &service.CreateClientCommand{
			TenantID:     tenant.ID,
			Name:         dc.name,
			RedirectURIs: []string{dc.redirect},
			Public:       dc.public,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to seed client %q: %w", dc.name, err)
		}
	}

	// Clients can only be created under an active tenant.
	if dt.inactive {
		if _, err := s.tenants.DeactivateTenant(ctx, tenant.ID); err != nil {
			return 0, fmt.Errorf("failed to deactivate tenant %q: %w", dt.name, err)
		}
	}
	return len(dt.clients), nil
}
