//go:build integration

package tenant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"audittrail/internal/tenant/models"
	"audittrail/internal/tenant/store/tenant"
	id "audittrail/pkg/domain"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/platform/tx"
	"audittrail/pkg/testutil"
	"audittrail/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *tenant.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = tenant.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	t := testutil.NewTenantBuilder().WithName("Acme").Build()
	s.Require().NoError(s.store.Insert(ctx, t))

	byID, err := s.store.FindByID(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("Acme", byID.Name)
	s.Equal(models.TenantStatusActive, byID.Status)
	s.WithinDuration(t.CreatedAt, byID.CreatedAt, 0)

	byName, err := s.store.FindByName(ctx, "ACME")
	s.Require().NoError(err)
	s.Equal(t.ID, byName.ID)
}

func (s *PostgresStoreSuite) TestNameIsUniqueCaseInsensitively() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, testutil.NewTenantBuilder().WithName("Acme").Build()))

	err := s.store.Insert(ctx, testutil.NewTenantBuilder().WithName("acme").Build())
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	t := testutil.NewTenantBuilder().Build()
	s.Require().NoError(s.store.Insert(ctx, t))

	t.Name = "Renamed"
	t.Status = models.TenantStatusInactive
	s.Require().NoError(s.store.Update(ctx, t))

	found, err := s.store.FindByID(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", found.Name)
	s.Equal(models.TenantStatusInactive, found.Status)

	s.Require().NoError(s.store.Delete(ctx, t))
	_, err = s.store.FindByID(ctx, t.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, t), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMissingTenant() {
	_, err := s.store.FindByID(context.Background(), id.TenantID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestWritesJoinTransaction() {
	ctx := context.Background()
	runner := tx.NewSQL(s.postgres.DB)
	t := testutil.NewTenantBuilder().Build()
	rollback := errors.New("rollback")

	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		s.Require().NoError(s.store.Insert(txCtx, t))
		_, err := s.store.FindByID(txCtx, t.ID)
		s.Require().NoError(err, "visible inside the transaction")
		return rollback
	})
	s.ErrorIs(err, rollback)

	_, err = s.store.FindByID(ctx, t.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestLockByIDBlocksWriters() {
	ctx := context.Background()
	t := testutil.NewTenantBuilder().Build()
	s.Require().NoError(s.store.Insert(ctx, t))

	err := tx.NewSQL(s.postgres.DB).RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.store.LockByID(txCtx, t.ID)
		s.Require().NoError(err)
		s.Equal(t.ID, locked.ID)

		row := s.postgres.DB.QueryRowContext(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE NOWAIT`, uuid.UUID(t.ID))
		var got uuid.UUID
		s.Error(row.Scan(&got), "a writer cannot lock the row while it is shared")
		return nil
	})
	s.Require().NoError(err)

	_, err = s.store.LockByID(ctx, id.TenantID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
