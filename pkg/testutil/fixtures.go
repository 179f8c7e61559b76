package testutil

import (
	"time"

	"github.com/google/uuid"

	tenantmodels "audittrail/internal/tenant/models"
	id "audittrail/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	UserID1   id.UserID
	TenantID1 id.TenantID
	TenantID2 id.TenantID
	ClientID1 id.ClientID
	ClientID2 id.ClientID
}{
	UserID1:   id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	TenantID1: id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	TenantID2: id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
	ClientID1: id.ClientID(uuid.MustParse("cccc0000-0000-0000-0000-000000000001")),
	ClientID2: id.ClientID(uuid.MustParse("cccc0000-0000-0000-0000-000000000002")),
}

// TenantBuilder provides a fluent interface for building test tenants.
type TenantBuilder struct {
	tenant *tenantmodels.Tenant
}

// NewTenantBuilder creates a new TenantBuilder with sensible defaults.
func NewTenantBuilder() *TenantBuilder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &TenantBuilder{
		tenant: &tenantmodels.Tenant{
			ID:        id.TenantID(uuid.New()),
			Name:      "Test Tenant " + uuid.NewString()[:8],
			Status:    tenantmodels.TenantStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *TenantBuilder) WithID(tenantID id.TenantID) *TenantBuilder {
	b.tenant.ID = tenantID
	return b
}

func (b *TenantBuilder) WithName(name string) *TenantBuilder {
	b.tenant.Name = name
	return b
}

func (b *TenantBuilder) WithStatus(status tenantmodels.TenantStatus) *TenantBuilder {
	b.tenant.Status = status
	return b
}

func (b *TenantBuilder) Build() *tenantmodels.Tenant {
	return b.tenant
}

// ClientBuilder provides a fluent interface for building test clients.
type ClientBuilder struct {
	client *tenantmodels.Client
}

// NewClientBuilder creates a confidential, active client under TestIDs.TenantID1.
func NewClientBuilder() *ClientBuilder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &ClientBuilder{
		client: &tenantmodels.Client{
			ID:           id.ClientID(uuid.New()),
			TenantID:     TestIDs.TenantID1,
			Name:         "Test Client",
			PublicID:     uuid.NewString(),
			SecretHash:   "test-secret-hash",
			RedirectURIs: []string{"https://example.com/callback"},
			Status:       tenantmodels.ClientStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func (b *ClientBuilder) WithID(clientID id.ClientID) *ClientBuilder {
	b.client.ID = clientID
	return b
}

func (b *ClientBuilder) WithTenantID(tenantID id.TenantID) *ClientBuilder {
	b.client.TenantID = tenantID
	return b
}

func (b *ClientBuilder) WithName(name string) *ClientBuilder {
	b.client.Name = name
	return b
}

// Public clears the secret.
func (b *ClientBuilder) Public() *ClientBuilder {
	b.client.SecretHash = ""
	return b
}

func (b *ClientBuilder) WithRedirectURIs(uris ...string) *ClientBuilder {
	b.client.RedirectURIs = uris
	return b
}

func (b *ClientBuilder) WithStatus(status tenantmodels.ClientStatus) *ClientBuilder {
	b.client.Status = status
	return b
}

func (b *ClientBuilder) Build() *tenantmodels.Client {
	return b.client
}
