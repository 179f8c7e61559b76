//go:build integration

package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"audittrail/internal/tenant/models"
	"audittrail/internal/tenant/store/client"
	id "audittrail/pkg/domain"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/testutil"
	"audittrail/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *client.PostgresStore
	tenantID id.TenantID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = client.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.tenantID = s.postgres.CreateTestTenant(ctx, s.T())
}

func (s *PostgresStoreSuite) newClient() *models.Client {
	return testutil.NewClientBuilder().WithTenantID(s.tenantID).Build()
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	c := s.newClient()
	s.Require().NoError(s.store.Insert(ctx, c))

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.Name, found.Name)
	s.Equal(c.RedirectURIs, found.RedirectURIs)
	s.Equal(c.SecretHash, found.SecretHash)

	scoped, err := s.store.FindByTenantAndID(ctx, s.tenantID, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, scoped.ID)

	byPublic, err := s.store.FindByPublicID(ctx, c.PublicID)
	s.Require().NoError(err)
	s.Equal(c.ID, byPublic.ID)
}

func (s *PostgresStoreSuite) TestPublicClientHasNoSecret() {
	ctx := context.Background()
	c := testutil.NewClientBuilder().WithTenantID(s.tenantID).Public().Build()
	s.Require().NoError(s.store.Insert(ctx, c))

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(found.SecretHash)
	s.False(found.IsConfidential())
}

func (s *PostgresStoreSuite) TestScopedLookupRejectsOtherTenant() {
	ctx := context.Background()
	c := s.newClient()
	s.Require().NoError(s.store.Insert(ctx, c))

	other := s.postgres.CreateTestTenant(ctx, s.T())
	_, err := s.store.FindByTenantAndID(ctx, other, c.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPublicIDIsUnique() {
	ctx := context.Background()
	first := s.newClient()
	s.Require().NoError(s.store.Insert(ctx, first))

	dup := s.newClient()
	dup.PublicID = first.PublicID
	s.ErrorIs(s.store.Insert(ctx, dup), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateDeleteAndList() {
	ctx := context.Background()
	a := s.newClient()
	b := s.newClient()
	s.Require().NoError(s.store.Insert(ctx, a))
	s.Require().NoError(s.store.Insert(ctx, b))

	a.RedirectURIs = []string{"https://example.com/a", "https://example.com/b"}
	a.Status = models.ClientStatusInactive
	s.Require().NoError(s.store.Update(ctx, a))

	found, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.RedirectURIs, found.RedirectURIs)
	s.Equal(models.ClientStatusInactive, found.Status)

	s.Require().NoError(s.store.Delete(ctx, b))
	listed, err := s.store.ListByTenant(ctx, s.tenantID)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(a.ID, listed[0].ID)
}
