package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "audittrail/pkg/domain"
	dErrors "audittrail/pkg/domain-errors"
)

type TenantModelSuite struct {
	suite.Suite
}

func TestTenantModelSuite(t *testing.T) {
	suite.Run(t, new(TenantModelSuite))
}

func (s *TenantModelSuite) newTenant(status TenantStatus) *Tenant {
	return &Tenant{
		ID:        id.TenantID(uuid.New()),
		Name:      "Acme",
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func (s *TenantModelSuite) TestNewTenant() {
	now := time.Now()
	tenant, err := NewTenant(id.TenantID(uuid.New()), "Acme", now)
	s.Require().NoError(err)
	s.True(tenant.IsActive())
	s.Equal(now, tenant.CreatedAt)

	_, err = NewTenant(id.TenantID(uuid.New()), "", now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewTenant(id.TenantID(uuid.New()), strings.Repeat("x", 129), now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *TenantModelSuite) TestAuditableIdentity() {
	tenant := s.newTenant(TenantStatusActive)
	s.Equal("Tenant", tenant.AuditableType())
	s.Equal(tenant.ID.String(), tenant.AuditableID())
}

func (s *TenantModelSuite) TestRename() {
	s.Run("changes name and timestamp", func() {
		now := time.Now()
		tenant := s.newTenant(TenantStatusActive)
		s.Require().NoError(tenant.Rename("Acme Corp", now))
		s.Equal("Acme Corp", tenant.Name)
		s.Equal(now, tenant.UpdatedAt)
	})

	s.Run("same name is rejected", func() {
		tenant := s.newTenant(TenantStatusActive)
		err := tenant.Rename("Acme", time.Now())
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *TenantModelSuite) TestLifecycle() {
	s.Run("deactivate then reactivate", func() {
		tenant := s.newTenant(TenantStatusActive)
		s.Require().NoError(tenant.Deactivate(time.Now()))
		s.Equal(TenantStatusInactive, tenant.Status)
		s.Require().NoError(tenant.Reactivate(time.Now()))
		s.True(tenant.IsActive())
	})

	s.Run("double transitions are invariant violations", func() {
		s.True(dErrors.HasCode(s.newTenant(TenantStatusInactive).Deactivate(time.Now()), dErrors.CodeInvariantViolation))
		s.True(dErrors.HasCode(s.newTenant(TenantStatusActive).Reactivate(time.Now()), dErrors.CodeInvariantViolation))
	})
}

type ClientModelSuite struct {
	suite.Suite
}

func TestClientModelSuite(t *testing.T) {
	suite.Run(t, new(ClientModelSuite))
}

func (s *ClientModelSuite) newClient(status ClientStatus, secretHash string) *Client {
	return &Client{
		ID:           id.ClientID(uuid.New()),
		TenantID:     id.TenantID(uuid.New()),
		Name:         "Billing",
		PublicID:     "billing-app",
		SecretHash:   secretHash,
		RedirectURIs: []string{"https://billing.example.com/callback"},
		Status:       status,
	}
}

func (s *ClientModelSuite) TestNewClient() {
	now := time.Now()
	tenantID := id.TenantID(uuid.New())

	client, err := NewClient(id.ClientID(uuid.New()), tenantID, "Billing", "billing-app", "", []string{"https://x"}, now)
	s.Require().NoError(err)
	s.Equal(tenantID, client.TenantID)
	s.False(client.IsConfidential())
	s.Equal("Client", client.AuditableType())

	_, err = NewClient(id.ClientID(uuid.New()), tenantID, "Billing", "", "", []string{"https://x"}, now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewClient(id.ClientID(uuid.New()), tenantID, "Billing", "billing-app", "", nil, now)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ClientModelSuite) TestRotateSecret() {
	s.Run("confidential active client rotates", func() {
		client := s.newClient(ClientStatusActive, "old-hash")
		s.Require().NoError(client.RotateSecret("new-hash", time.Now()))
		s.Equal("new-hash", client.SecretHash)
	})

	s.Run("public client cannot rotate", func() {
		err := s.newClient(ClientStatusActive, "").RotateSecret("h", time.Now())
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("inactive client cannot rotate", func() {
		err := s.newClient(ClientStatusInactive, "old").RotateSecret("h", time.Now())
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ClientModelSuite) TestRedirectURIs() {
	client := s.newClient(ClientStatusActive, "")
	s.True(dErrors.HasCode(client.SetRedirectURIs(nil, time.Now()), dErrors.CodeInvariantViolation))
	s.Require().NoError(client.SetRedirectURIs([]string{"https://a", "https://b"}, time.Now()))
	s.Len(client.RedirectURIs, 2)
}

func (s *ClientModelSuite) TestLifecycle() {
	client := s.newClient(ClientStatusActive, "hash")
	s.Require().NoError(client.Deactivate(time.Now()))
	s.False(client.IsActive())
	s.True(dErrors.HasCode(client.Deactivate(time.Now()), dErrors.CodeInvariantViolation))
	s.Require().NoError(client.Reactivate(time.Now()))
	s.True(dErrors.HasCode(client.Reactivate(time.Now()), dErrors.CodeInvariantViolation))
}
