package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"audittrail/internal/tenant/models"
	id "audittrail/pkg/domain"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/platform/tx"
)

type InMemoryClientStoreSuite struct {
	suite.Suite
	store    *InMemory
	tenantID id.TenantID
}

func TestInMemoryClientStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryClientStoreSuite))
}

func (s *InMemoryClientStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.tenantID = id.TenantID(uuid.New())
}

func (s *InMemoryClientStoreSuite) newClient(publicID string) *models.Client {
	client, err := models.NewClient(id.ClientID(uuid.New()), s.tenantID, "Billing", publicID, "hash",
		[]string{"https://billing.example.com/cb"}, time.Now())
	s.Require().NoError(err)
	return client
}

func (s *InMemoryClientStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	client := s.newClient("billing")
	s.Require().NoError(s.store.Insert(ctx, client))

	s.Run("by id", func() {
		found, err := s.store.FindByID(ctx, client.ID)
		s.Require().NoError(err)
		s.Equal(client.PublicID, found.PublicID)
	})

	s.Run("scoped to tenant", func() {
		_, err := s.store.FindByTenantAndID(ctx, s.tenantID, client.ID)
		s.NoError(err)
		_, err = s.store.FindByTenantAndID(ctx, id.TenantID(uuid.New()), client.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("by public id", func() {
		found, err := s.store.FindByPublicID(ctx, "billing")
		s.Require().NoError(err)
		s.Equal(client.ID, found.ID)
	})

	s.Run("duplicate public id conflicts", func() {
		s.ErrorIs(s.store.Insert(ctx, s.newClient("billing")), sentinel.ErrConflict)
	})
}

func (s *InMemoryClientStoreSuite) TestReturnedClientsAreCopies() {
	ctx := context.Background()
	client := s.newClient("billing")
	s.Require().NoError(s.store.Insert(ctx, client))

	found, err := s.store.FindByID(ctx, client.ID)
	s.Require().NoError(err)
	found.RedirectURIs[0] = "https://evil.example.com"
	found.Name = "changed"

	again, err := s.store.FindByID(ctx, client.ID)
	s.Require().NoError(err)
	s.Equal("Billing", again.Name)
	s.Equal("https://billing.example.com/cb", again.RedirectURIs[0])
}

func (s *InMemoryClientStoreSuite) TestListByTenant() {
	ctx := context.Background()
	first := s.newClient("a")
	second := s.newClient("b")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	s.Require().NoError(s.store.Insert(ctx, second))
	s.Require().NoError(s.store.Insert(ctx, first))

	clients, err := s.store.ListByTenant(ctx, s.tenantID)
	s.Require().NoError(err)
	s.Require().Len(clients, 2)
	s.Equal(first.ID, clients[0].ID)

	none, err := s.store.ListByTenant(ctx, id.TenantID(uuid.New()))
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *InMemoryClientStoreSuite) TestRollbackUndoesWrites() {
	ctx := context.Background()
	client := s.newClient("billing")
	s.Require().NoError(s.store.Insert(ctx, client))

	err := tx.NewMemory().RunInTx(ctx, func(ctx context.Context) error {
		updated := *client
		updated.Name = "Renamed"
		s.Require().NoError(s.store.Update(ctx, &updated))
		s.Require().NoError(s.store.Delete(ctx, &updated))
		return errors.New("abort")
	})
	s.Require().Error(err)

	found, err := s.store.FindByPublicID(ctx, "billing")
	s.Require().NoError(err)
	s.Equal("Billing", found.Name)
}

func (s *InMemoryClientStoreSuite) TestMissingClient() {
	ctx := context.Background()
	ghost := s.newClient("ghost")
	s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, ghost), sentinel.ErrNotFound)
}
